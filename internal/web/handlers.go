package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

func (s *Server) handleListPlaces(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.resolveRun(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	places, err := s.store.ListPlaces(runID, q.Get("name"), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": runID.String(),
		"count":  len(places),
		"places": places,
	})
}

func (s *Server) handleGetPlace(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.resolveRun(w, r)
	if !ok {
		return
	}

	placeID := mux.Vars(r)["id"]
	detail, err := s.store.GetPlace(runID, placeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if detail == nil {
		writeError(w, http.StatusNotFound, "place not found")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(runs),
		"runs":  runs,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.resolveRun(w, r)
	if !ok {
		return
	}

	stats, err := s.store.Stats(runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DB().Ping(); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// resolveRun picks the run from the ?run query parameter, defaulting to the
// latest completed run.
func (s *Server) resolveRun(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	if raw := r.URL.Query().Get("run"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid run id")
			return uuid.Nil, false
		}
		return id, true
	}
	id, err := s.store.LatestRunID()
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
