package mqtt

import "fmt"

// Topic prefixes.
const (
	// TopicPrefix is the root of every mixroute topic.
	TopicPrefix = "mixroute"

	// TopicPrefixCore is the base for engine topics.
	TopicPrefixCore = "mixroute/core"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "mixroute/system"
)

// Topics provides builders for mixroute MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.CoreEvent("route_created") // "mixroute/core/event/route_created"
type Topics struct{}

// CoreEvent returns the topic for a lifecycle event type.
//
// Example: mixroute/core/event/route_created
func (Topics) CoreEvent(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefixCore, eventType)
}

// CoreMeter returns the topic for a sidechain bus meter snapshot.
//
// Example: mixroute/core/meter/kick-bus
func (Topics) CoreMeter(busID string) string {
	return fmt.Sprintf("%s/meter/%s", TopicPrefixCore, busID)
}

// SystemStatus returns the retained online/offline status topic.
//
// Example: mixroute/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllCoreEvents returns a pattern matching every lifecycle event.
//
// Pattern: mixroute/core/event/+
func (Topics) AllCoreEvents() string {
	return fmt.Sprintf("%s/event/+", TopicPrefixCore)
}

// AllTopics returns a pattern matching every mixroute topic.
//
// Pattern: mixroute/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
