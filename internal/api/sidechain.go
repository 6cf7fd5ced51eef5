package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/mixroute-core/internal/sidechain"
)

// createSidechainRouteRequest is the body of POST /sidechain/routes.
// effect_id binds the target; bus_id uses a sidechain bus as the live
// source.
type createSidechainRouteRequest struct {
	SourceName string   `json:"source_name"`
	TargetName string   `json:"target_name"`
	EffectID   string   `json:"effect_id,omitempty"`
	BusID      string   `json:"bus_id,omitempty"`
	Gain       *float64 `json:"gain,omitempty"`
	Active     *bool    `json:"active,omitempty"`
}

// updateSidechainRouteRequest is the body of PATCH /sidechain/routes/{id}.
// An empty effect_id or bus_id unbinds.
type updateSidechainRouteRequest struct {
	EffectID *string  `json:"effect_id,omitempty"`
	BusID    *string  `json:"bus_id,omitempty"`
	Gain     *float64 `json:"gain,omitempty"`
	Active   *bool    `json:"active,omitempty"`
}

type createBusRequest struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	InputGain  *float64 `json:"input_gain,omitempty"`
	HighPassHz *float64 `json:"high_pass_hz,omitempty"`
}

type updateBusRequest struct {
	InputGain  *float64 `json:"input_gain,omitempty"`
	HighPassHz *float64 `json:"high_pass_hz,omitempty"`
}

func (s *Server) sidechainRouteOr404(w http.ResponseWriter, r *http.Request) *sidechain.Route {
	id := chi.URLParam(r, "id")
	rt := s.sidechain.Route(id)
	if rt == nil {
		writeDomainError(w, fmt.Errorf("%w: %s", sidechain.ErrRouteNotFound, id))
	}
	return rt
}

func (s *Server) busOr404(w http.ResponseWriter, r *http.Request) *sidechain.Bus {
	id := chi.URLParam(r, "id")
	b := s.buses.Bus(id)
	if b == nil {
		writeDomainError(w, fmt.Errorf("%w: %s", sidechain.ErrBusNotFound, id))
	}
	return b
}

// bindSource assigns the bus with busID as the route's source, or clears
// the source when busID is empty.
func (s *Server) bindSource(rt *sidechain.Route, busID string) error {
	if busID == "" {
		return s.sidechain.AssignSource(rt, nil)
	}
	b := s.buses.Bus(busID)
	if b == nil {
		return fmt.Errorf("%w: %s", sidechain.ErrBusNotFound, busID)
	}
	return s.sidechain.AssignSource(rt, b)
}

func (s *Server) bindTarget(rt *sidechain.Route, effectID string) error {
	if effectID == "" {
		return s.sidechain.AssignTarget(rt, nil)
	}
	return s.sidechain.AssignTarget(rt, sidechain.EffectID(effectID))
}

// ─── Routes ──────────────────────────────────────────────────────────

// handleListSidechainRoutes lists sidechain routes.
//
// Query parameters:
//   - source: only routes with this source name
func (s *Server) handleListSidechainRoutes(w http.ResponseWriter, r *http.Request) {
	var routes []*sidechain.Route
	if src := r.URL.Query().Get("source"); src != "" {
		routes = s.sidechain.RoutesFromSource(src)
	} else {
		routes = s.sidechain.Routes()
	}
	out := make([]sidechain.RouteInfo, len(routes))
	for i, rt := range routes {
		out[i] = rt.Info()
	}
	writeJSON(w, http.StatusOK, map[string]any{"routes": out, "count": len(out)})
}

func (s *Server) handleCreateSidechainRoute(w http.ResponseWriter, r *http.Request) {
	var req createSidechainRouteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.BusID != "" && s.buses.Bus(req.BusID) == nil {
		writeDomainError(w, fmt.Errorf("%w: %s", sidechain.ErrBusNotFound, req.BusID))
		return
	}

	rt, err := s.sidechain.CreateRoute(req.SourceName, req.TargetName)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := s.applySidechainUpdate(rt, updateSidechainRouteRequest{
		EffectID: nonEmpty(req.EffectID),
		BusID:    nonEmpty(req.BusID),
		Gain:     req.Gain,
		Active:   req.Active,
	}); err != nil {
		s.sidechain.RemoveRoute(rt.ID())
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, rt.Info())
}

func (s *Server) handleGetSidechainRoute(w http.ResponseWriter, r *http.Request) {
	if rt := s.sidechainRouteOr404(w, r); rt != nil {
		writeJSON(w, http.StatusOK, rt.Info())
	}
}

func (s *Server) handleUpdateSidechainRoute(w http.ResponseWriter, r *http.Request) {
	rt := s.sidechainRouteOr404(w, r)
	if rt == nil {
		return
	}

	var req updateSidechainRouteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if err := s.applySidechainUpdate(rt, req); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.Info())
}

func (s *Server) applySidechainUpdate(rt *sidechain.Route, req updateSidechainRouteRequest) error {
	if req.BusID != nil {
		if err := s.bindSource(rt, *req.BusID); err != nil {
			return err
		}
	}
	if req.EffectID != nil {
		if err := s.bindTarget(rt, *req.EffectID); err != nil {
			return err
		}
	}
	if req.Gain != nil {
		if _, err := s.sidechain.SetGain(rt, *req.Gain); err != nil {
			return err
		}
	}
	if req.Active != nil {
		if err := s.sidechain.SetActive(rt, *req.Active); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handleDeleteSidechainRoute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.sidechain.RemoveRoute(id) {
		writeDomainError(w, fmt.Errorf("%w: %s", sidechain.ErrRouteNotFound, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Buses ───────────────────────────────────────────────────────────

func (s *Server) handleListBuses(w http.ResponseWriter, _ *http.Request) {
	buses := s.buses.Buses()
	out := make([]sidechain.BusInfo, len(buses))
	for i, b := range buses {
		out[i] = b.Info()
	}
	writeJSON(w, http.StatusOK, map[string]any{"buses": out, "count": len(out)})
}

// handleCreateBus returns the bus with the given ID, creating it if it
// does not exist. Status is 201 for a new bus, 200 for an existing one.
func (s *Server) handleCreateBus(w http.ResponseWriter, r *http.Request) {
	var req createBusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	b, created, err := s.buses.GetOrCreateBus(req.ID, req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if created {
		if err := applyBusUpdate(b, req.busUpdate()); err != nil {
			s.buses.RemoveBus(b.ID())
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, b.Info())
		return
	}
	writeJSON(w, http.StatusOK, b.Info())
}

func (req createBusRequest) busUpdate() updateBusRequest {
	return updateBusRequest{InputGain: req.InputGain, HighPassHz: req.HighPassHz}
}

func (s *Server) handleGetBus(w http.ResponseWriter, r *http.Request) {
	if b := s.busOr404(w, r); b != nil {
		writeJSON(w, http.StatusOK, b.Info())
	}
}

func (s *Server) handleUpdateBus(w http.ResponseWriter, r *http.Request) {
	b := s.busOr404(w, r)
	if b == nil {
		return
	}

	var req updateBusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if err := applyBusUpdate(b, req); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b.Info())
}

func applyBusUpdate(b *sidechain.Bus, req updateBusRequest) error {
	if req.HighPassHz != nil {
		if err := b.SetHighPass(*req.HighPassHz); err != nil {
			return err
		}
	}
	if req.InputGain != nil {
		b.SetInputGain(*req.InputGain)
	}
	return nil
}

func (s *Server) handleDeleteBus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.buses.RemoveBus(id) {
		writeDomainError(w, fmt.Errorf("%w: %s", sidechain.ErrBusNotFound, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleResetBus clears the bus meters and filter state.
func (s *Server) handleResetBus(w http.ResponseWriter, r *http.Request) {
	b := s.busOr404(w, r)
	if b == nil {
		return
	}
	b.Reset()
	writeJSON(w, http.StatusOK, b.Info())
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
