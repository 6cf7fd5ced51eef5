package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/mixroute-core/internal/routing"
)

// createPointRequest is the body of POST /points.
type createPointRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Channels int    `json:"channels"`
	TrackID  string `json:"track_id,omitempty"`
	EffectID string `json:"effect_id,omitempty"`
}

// updatePointRequest is the body of PATCH /points/{id}. Absent fields are
// left unchanged.
type updatePointRequest struct {
	Name     *string `json:"name,omitempty"`
	Active   *bool   `json:"active,omitempty"`
	TrackID  *string `json:"track_id,omitempty"`
	EffectID *string `json:"effect_id,omitempty"`
}

func pointInfos(points []*routing.Point) []routing.PointInfo {
	out := make([]routing.PointInfo, len(points))
	for i, p := range points {
		out[i] = p.Info()
	}
	return out
}

func (s *Server) pointOr404(w http.ResponseWriter, r *http.Request) *routing.Point {
	p := s.matrix.Point(chi.URLParam(r, "id"))
	if p == nil {
		writeNotFound(w, "point not found")
	}
	return p
}

// handleListPoints returns every point in registration order.
//
// Query parameters:
//   - type: only points of this type
//   - role: "source" or "destination"
func (s *Server) handleListPoints(w http.ResponseWriter, r *http.Request) {
	var points []*routing.Point

	switch q := r.URL.Query(); {
	case q.Get("type") != "":
		t, err := routing.ParsePointType(q.Get("type"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		points = s.matrix.PointsByType(t)
	case q.Get("role") == "source":
		points = s.matrix.Sources()
	case q.Get("role") == "destination":
		points = s.matrix.Destinations()
	case q.Get("role") != "":
		writeBadRequest(w, "role must be source or destination")
		return
	default:
		points = s.matrix.Points()
	}

	writeJSON(w, http.StatusOK, map[string]any{"points": pointInfos(points), "count": len(points)})
}

// handleCreatePoint creates and registers a point.
func (s *Server) handleCreatePoint(w http.ResponseWriter, r *http.Request) {
	var req createPointRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	t, err := routing.ParsePointType(req.Type)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	p, err := routing.NewPoint(req.Name, t, req.Channels)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	p.SetTrackID(req.TrackID)
	p.SetEffectID(req.EffectID)

	if !s.matrix.RegisterPoint(p) {
		writeInternalError(w, "failed to register point")
		return
	}
	writeJSON(w, http.StatusCreated, p.Info())
}

// handleGetPoint returns a single point.
func (s *Server) handleGetPoint(w http.ResponseWriter, r *http.Request) {
	if p := s.pointOr404(w, r); p != nil {
		writeJSON(w, http.StatusOK, p.Info())
	}
}

// handleUpdatePoint renames, (de)activates or retags a point.
func (s *Server) handleUpdatePoint(w http.ResponseWriter, r *http.Request) {
	p := s.pointOr404(w, r)
	if p == nil {
		return
	}

	var req updatePointRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.Name != nil {
		if err := s.matrix.RenamePoint(p.ID(), *req.Name); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if req.Active != nil {
		if err := s.matrix.SetPointActive(p.ID(), *req.Active); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if req.TrackID != nil {
		p.SetTrackID(*req.TrackID)
	}
	if req.EffectID != nil {
		p.SetEffectID(*req.EffectID)
	}

	writeJSON(w, http.StatusOK, p.Info())
}

// handleDeletePoint unregisters a point and every route touching it.
func (s *Server) handleDeletePoint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.matrix.UnregisterPoint(id) {
		writeDomainError(w, fmt.Errorf("%w: %s", routing.ErrPointNotFound, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePointRoutes returns the routes into and out of a point.
func (s *Server) handlePointRoutes(w http.ResponseWriter, r *http.Request) {
	p := s.pointOr404(w, r)
	if p == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"incoming": routeInfos(s.matrix.RoutesTo(p.ID())),
		"outgoing": routeInfos(s.matrix.RoutesFrom(p.ID())),
	})
}
