package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/mixroute-core/internal/vca"
)

type createFaderRequest struct {
	Name    string   `json:"name"`
	Volume  *float64 `json:"volume,omitempty"`
	GroupID string   `json:"group_id,omitempty"`
}

type updateFaderRequest struct {
	Volume *float64 `json:"volume,omitempty"`
}

type linkFaderRequest struct {
	GroupID string `json:"group_id"`
}

type createGroupRequest struct {
	Name     string   `json:"name"`
	Volume   *float64 `json:"volume,omitempty"`
	Muted    bool     `json:"muted,omitempty"`
	ParentID string   `json:"parent_id,omitempty"`
}

type updateGroupRequest struct {
	Volume *float64 `json:"volume,omitempty"`
	Muted  *bool    `json:"muted,omitempty"`
}

// setParentRequest is the body of PUT /vca/groups/{id}/parent. An empty
// parent_id detaches the group.
type setParentRequest struct {
	ParentID string `json:"parent_id"`
}

func (s *Server) faderOr404(w http.ResponseWriter, r *http.Request) *vca.Fader {
	id := chi.URLParam(r, "id")
	f := s.vca.Fader(id)
	if f == nil {
		writeDomainError(w, fmt.Errorf("%w: %s", vca.ErrFaderNotFound, id))
	}
	return f
}

func (s *Server) groupOr404(w http.ResponseWriter, r *http.Request) *vca.Group {
	id := chi.URLParam(r, "id")
	g := s.vca.Group(id)
	if g == nil {
		writeDomainError(w, fmt.Errorf("%w: %s", vca.ErrGroupNotFound, id))
	}
	return g
}

// lookupGroup resolves a group ID from a request body.
func (s *Server) lookupGroup(id string) (*vca.Group, error) {
	g := s.vca.Group(id)
	if g == nil {
		return nil, fmt.Errorf("%w: %s", vca.ErrGroupNotFound, id)
	}
	return g, nil
}

// handleVCAStats returns fader and group counts.
func (s *Server) handleVCAStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.vca.GetStats())
}

// ─── Faders ──────────────────────────────────────────────────────────

func (s *Server) handleListFaders(w http.ResponseWriter, _ *http.Request) {
	faders := s.vca.Faders()
	out := make([]vca.FaderInfo, len(faders))
	for i, f := range faders {
		out[i] = f.Info()
	}
	writeJSON(w, http.StatusOK, map[string]any{"faders": out, "count": len(out)})
}

// handleCreateFader creates a fader at unity (or the given volume) and
// optionally links it to a group.
func (s *Server) handleCreateFader(w http.ResponseWriter, r *http.Request) {
	var req createFaderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var group *vca.Group
	if req.GroupID != "" {
		g, err := s.lookupGroup(req.GroupID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		group = g
	}

	volume := 1.0
	if req.Volume != nil {
		volume = *req.Volume
	}
	f, err := s.vca.CreateFader(req.Name, volume)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if group != nil {
		if err := s.vca.LinkFaderToGroup(f, group); err != nil {
			s.vca.RemoveFader(f.ID())
			writeDomainError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, f.Info())
}

func (s *Server) handleGetFader(w http.ResponseWriter, r *http.Request) {
	if f := s.faderOr404(w, r); f != nil {
		writeJSON(w, http.StatusOK, f.Info())
	}
}

// handleUpdateFader sets the fader's local volume, clamped to [0, 2].
func (s *Server) handleUpdateFader(w http.ResponseWriter, r *http.Request) {
	f := s.faderOr404(w, r)
	if f == nil {
		return
	}

	var req updateFaderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Volume != nil {
		f.SetVolume(*req.Volume)
	}
	writeJSON(w, http.StatusOK, f.Info())
}

func (s *Server) handleDeleteFader(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.vca.RemoveFader(id) {
		writeDomainError(w, fmt.Errorf("%w: %s", vca.ErrFaderNotFound, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLinkFader moves a fader into a group, leaving any previous group.
func (s *Server) handleLinkFader(w http.ResponseWriter, r *http.Request) {
	f := s.faderOr404(w, r)
	if f == nil {
		return
	}

	var req linkFaderRequest
	if err := decodeJSON(r, &req); err != nil || req.GroupID == "" {
		writeBadRequest(w, "group_id is required")
		return
	}
	g, err := s.lookupGroup(req.GroupID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.vca.LinkFaderToGroup(f, g); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f.Info())
}

func (s *Server) handleUnlinkFader(w http.ResponseWriter, r *http.Request) {
	f := s.faderOr404(w, r)
	if f == nil {
		return
	}
	if err := s.vca.UnlinkFader(f); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f.Info())
}

// ─── Groups ──────────────────────────────────────────────────────────

func (s *Server) handleListGroups(w http.ResponseWriter, _ *http.Request) {
	groups := s.vca.Groups()
	out := make([]vca.GroupInfo, len(groups))
	for i, g := range groups {
		out[i] = g.Info()
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": out, "count": len(out)})
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var parent *vca.Group
	if req.ParentID != "" {
		p, err := s.lookupGroup(req.ParentID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		parent = p
	}

	g, err := s.vca.CreateGroup(req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if req.Volume != nil {
		g.SetVolume(*req.Volume)
	}
	if req.Muted {
		g.SetMute(true)
	}
	if parent != nil {
		if err := s.vca.SetGroupParent(g, parent); err != nil {
			s.vca.RemoveGroup(g.ID())
			writeDomainError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, g.Info())
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	if g := s.groupOr404(w, r); g != nil {
		writeJSON(w, http.StatusOK, g.Info())
	}
}

// handleUpdateGroup sets volume and/or mute. Member faders' effective
// volumes follow immediately.
func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	g := s.groupOr404(w, r)
	if g == nil {
		return
	}

	var req updateGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Volume != nil {
		g.SetVolume(*req.Volume)
	}
	if req.Muted != nil {
		g.SetMute(*req.Muted)
	}
	writeJSON(w, http.StatusOK, g.Info())
}

// handleDeleteGroup removes a group; its members become ungrouped.
func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.vca.RemoveGroup(id) {
		writeDomainError(w, fmt.Errorf("%w: %s", vca.ErrGroupNotFound, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetGroupParent(w http.ResponseWriter, r *http.Request) {
	g := s.groupOr404(w, r)
	if g == nil {
		return
	}

	var req setParentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var parent *vca.Group
	if req.ParentID != "" {
		p, err := s.lookupGroup(req.ParentID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		parent = p
	}
	if err := s.vca.SetGroupParent(g, parent); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g.Info())
}
