package api

import (
	"net/http"
)

// handleMatrix returns the source × destination grid as JSON, or as a
// text table with ?format=text.
func (s *Server) handleMatrix(w http.ResponseWriter, r *http.Request) {
	vis := s.matrix.Visualization()

	switch r.URL.Query().Get("format") {
	case "", "json":
		writeJSON(w, http.StatusOK, vis)
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck // Best-effort write to response
		w.Write([]byte(vis.RenderText() + "\n"))
	default:
		writeBadRequest(w, "format must be json or text")
	}
}

// handleMatrixStats returns point and route counts.
func (s *Server) handleMatrixStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.matrix.GetStats())
}

// handleMatrixCycles lists strongly connected components over enabled
// routes. A healthy matrix returns none.
func (s *Server) handleMatrixCycles(w http.ResponseWriter, _ *http.Request) {
	cycles := s.matrix.FindCycles()
	if cycles == nil {
		cycles = [][]string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"cycles": cycles, "count": len(cycles)})
}

// handleMatrixVerify checks the route indices against the route table.
func (s *Server) handleMatrixVerify(w http.ResponseWriter, _ *http.Request) {
	if err := s.matrix.Verify(); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
