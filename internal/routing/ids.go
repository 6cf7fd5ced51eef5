package routing

import "github.com/google/uuid"

// GenerateID returns a new random identifier for a point or route.
func GenerateID() string {
	return uuid.New().String()
}
