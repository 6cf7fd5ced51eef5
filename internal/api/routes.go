package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/mixroute-core/internal/routing"
)

// createRouteRequest is the body of POST /routes. Source and destination
// are point IDs.
type createRouteRequest struct {
	SourceID       string  `json:"source_id"`
	DestinationID  string  `json:"destination_id"`
	GainDB         float64 `json:"gain_db"`
	Enabled        *bool   `json:"enabled,omitempty"`
	LatencySamples int     `json:"latency_samples,omitempty"`
	PreFader       bool    `json:"pre_fader,omitempty"`
	PreInsert      bool    `json:"pre_insert,omitempty"`
}

// updateRouteRequest is the body of PATCH /routes/{id}.
type updateRouteRequest struct {
	GainDB         *float64 `json:"gain_db,omitempty"`
	Enabled        *bool    `json:"enabled,omitempty"`
	LatencySamples *int     `json:"latency_samples,omitempty"`
	PreFader       *bool    `json:"pre_fader,omitempty"`
	PreInsert      *bool    `json:"pre_insert,omitempty"`
}

// feedbackResponse extends FeedbackResult with the point names on the path.
type feedbackResponse struct {
	routing.FeedbackResult
	PathNames []string `json:"path_names,omitempty"`
}

func routeInfos(routes []*routing.Route) []routing.RouteInfo {
	out := make([]routing.RouteInfo, len(routes))
	for i, rt := range routes {
		out[i] = rt.Info()
	}
	return out
}

// handleListRoutes returns routes in creation order.
//
// Query parameters:
//   - kind: audio, send_return, group or sidechain
func (s *Server) handleListRoutes(w http.ResponseWriter, r *http.Request) {
	var routes []*routing.Route
	if kind := r.URL.Query().Get("kind"); kind != "" {
		routes = s.matrix.RoutesByKind(routing.RouteKind(kind))
	} else {
		routes = s.matrix.Routes()
	}
	writeJSON(w, http.StatusOK, map[string]any{"routes": routeInfos(routes), "count": len(routes)})
}

// handleCreateRoute connects two registered points.
func (s *Server) handleCreateRoute(w http.ResponseWriter, r *http.Request) {
	var req createRouteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.SourceID == "" || req.DestinationID == "" {
		writeBadRequest(w, "source_id and destination_id are required")
		return
	}

	rt, err := s.matrix.CreateRoute(req.SourceID, req.DestinationID, req.GainDB)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	rt.SetPreFader(req.PreFader)
	rt.SetPreInsert(req.PreInsert)
	if req.LatencySamples > 0 {
		if err := s.matrix.SetRouteLatency(rt.ID(), req.LatencySamples); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if req.Enabled != nil && !*req.Enabled {
		if err := s.matrix.SetRouteEnabled(rt.ID(), false); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, rt.Info())
}

// handleGetRoute returns a single route.
func (s *Server) handleGetRoute(w http.ResponseWriter, r *http.Request) {
	rt := s.matrix.Route(chi.URLParam(r, "id"))
	if rt == nil {
		writeNotFound(w, "route not found")
		return
	}
	writeJSON(w, http.StatusOK, rt.Info())
}

// handleUpdateRoute changes gain, enabled state, latency or flags.
// Re-enabling a route that would now close a loop fails with 409.
func (s *Server) handleUpdateRoute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rt := s.matrix.Route(id)
	if rt == nil {
		writeNotFound(w, "route not found")
		return
	}

	var req updateRouteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.Enabled != nil {
		if err := s.matrix.SetRouteEnabled(id, *req.Enabled); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if req.GainDB != nil {
		if err := s.matrix.SetRouteGain(id, *req.GainDB); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if req.LatencySamples != nil {
		if err := s.matrix.SetRouteLatency(id, *req.LatencySamples); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if req.PreFader != nil {
		rt.SetPreFader(*req.PreFader)
	}
	if req.PreInsert != nil {
		rt.SetPreInsert(*req.PreInsert)
	}

	writeJSON(w, http.StatusOK, rt.Info())
}

// handleDeleteRoute removes a route.
func (s *Server) handleDeleteRoute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.matrix.RemoveRoute(id) {
		writeDomainError(w, fmt.Errorf("%w: %s", routing.ErrRouteNotFound, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleFeedbackProbe reports whether a route from source to destination
// would create a feedback loop, without creating it.
func (s *Server) handleFeedbackProbe(w http.ResponseWriter, r *http.Request) {
	src := r.URL.Query().Get("source")
	dst := r.URL.Query().Get("destination")
	if src == "" || dst == "" {
		writeBadRequest(w, "source and destination query parameters are required")
		return
	}

	res := feedbackResponse{FeedbackResult: s.matrix.DetectFeedback(src, dst)}
	for _, id := range res.Path {
		name := id
		if p := s.matrix.Point(id); p != nil {
			name = p.Name()
		}
		res.PathNames = append(res.PathNames, name)
	}
	writeJSON(w, http.StatusOK, res)
}
