package api

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// handleListChains returns every chain snapshot, one-shots included.
func (s *Server) handleListChains(w http.ResponseWriter, _ *http.Request) {
	chains := s.engine.Snapshots()
	writeJSON(w, http.StatusOK, map[string]any{
		"chains": chains,
		"count":  len(chains),
		"stats":  s.engine.Stats(),
	})
}

// handleGetChain returns one chain snapshot.
func (s *Server) handleGetChain(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Snapshot(chi.URLParam(r, "name"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleChainControl arms, disarms or resets a chain and returns its new
// snapshot.
func (s *Server) handleChainControl(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.commands.Control(name, chi.URLParam(r, "op")); err != nil {
		writeDomainError(w, err)
		return
	}

	snap, err := s.engine.Snapshot(name)
	if err != nil {
		// One-shots vanish once they finish; a bare ack is all there is.
		writeJSON(w, http.StatusOK, map[string]string{"chain": name})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleListPins returns every pin ordered by ID.
func (s *Server) handleListPins(w http.ResponseWriter, _ *http.Request) {
	pins := s.engine.Pins()
	writeJSON(w, http.StatusOK, map[string]any{
		"pins":  pins,
		"count": len(pins),
	})
}

// handleAdvancePin steps a pin's pattern by one node.
func (s *Server) handleAdvancePin(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 0 {
		writeBadRequest(w, "pin id must be a non-negative integer")
		return
	}

	snap, dwell, err := s.engine.AdvancePin(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.hub.PinState(snap)
	writeJSON(w, http.StatusOK, map[string]any{
		"pin":      snap,
		"dwell_ms": dwell.Milliseconds(),
	})
}

// commandRequest carries a raw command frame as hex. Whitespace is ignored,
// so "05 01 01f4" and "050101f4" are the same frame.
type commandRequest struct {
	Frame string `json:"frame"`
}

// handleCommand decodes a hex frame and hands it to the bridge.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	frame, err := hex.DecodeString(strings.Join(strings.Fields(req.Frame), ""))
	if err != nil {
		writeBadRequest(w, "frame must be hex: "+err.Error())
		return
	}

	res, err := s.commands.HandleFrame(frame)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

// handleListRuns returns recent runs, optionally for one chain.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeUnavailable(w, "run history is disabled")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	runs, err := s.runs.ListRuns(r.Context(), r.URL.Query().Get("chain"), limit)
	if err != nil {
		s.logger.Error("listing runs failed", "error", err)
		writeInternalError(w, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// handleGetRun returns one run with its faults.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeUnavailable(w, "run history is disabled")
		return
	}
	run, err := s.runs.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}
