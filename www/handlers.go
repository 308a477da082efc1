package www

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"fdsbridge/scenario"

	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (h *Handlers) apiLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.cfg.AdminPasswordHash == "" {
		writeJSON(w, map[string]string{"status": "ok"})
		return
	}
	if req.Username != h.cfg.AdminUser || !checkPassword(req.Password, h.cfg.AdminPasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	h.beginSession(w, r, req.Username)
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiLogout(w http.ResponseWriter, r *http.Request) {
	h.endSession(w, r)
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"cadConnected": h.bridge.IsConnected(),
		"pending":      h.bridge.PendingRequests(),
	}
	if s := h.bridge.Scenarios().Current(); s != nil {
		acFile, acPath := s.Meta()
		status["scenarioId"] = s.ID
		status["scenarioName"] = s.Name
		status["acFile"] = acFile
		status["acPath"] = acPath
		status["counts"] = s.Counts()
	}
	writeJSON(w, status)
}

func (h *Handlers) apiScenario(w http.ResponseWriter, r *http.Request) {
	s := h.bridge.Scenarios().Current()
	if s == nil {
		writeError(w, http.StatusNotFound, "no scenario loaded")
		return
	}
	writeJSON(w, s)
}

func (h *Handlers) apiScenarioElements(w http.ResponseWriter, r *http.Request) {
	s := h.bridge.Scenarios().Current()
	if s == nil {
		writeError(w, http.StatusNotFound, "no scenario loaded")
		return
	}
	kind := scenario.Kind(chi.URLParam(r, "kind"))
	if !scenario.ValidKind(kind) {
		writeError(w, http.StatusBadRequest, "unknown kind")
		return
	}
	elems := s.Collection(kind)
	if elems == nil {
		// A valid kind that never saw an export is an empty list, not an
		// error.
		elems = []scenario.Element{}
	}
	writeJSON(w, elems)
}

func (h *Handlers) apiLocate(w http.ResponseWriter, r *http.Request) {
	s := h.bridge.Scenarios().Current()
	if s == nil {
		writeError(w, http.StatusNotFound, "no scenario loaded")
		return
	}
	idAC, err := strconv.ParseInt(r.URL.Query().Get("idAC"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid idAC")
		return
	}
	loc, err := s.Locate(idAC)
	if errors.Is(err, scenario.ErrNotFound) {
		writeError(w, http.StatusNotFound, "element not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, loc)
}

// apiSelect tells the CAD side which element is focused in the editor.
func (h *Handlers) apiSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDAC int64 `json:"idAC"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.IDAC == 0 {
		writeError(w, http.StatusBadRequest, "idAC required")
		return
	}
	if err := h.bridge.SelectCAD(req.IDAC); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// apiGeometryRefresh asks CAD to push the drawing's geometry.
func (h *Handlers) apiGeometryRefresh(w http.ResponseWriter, r *http.Request) {
	if !h.bridge.IsConnected() {
		writeError(w, http.StatusConflict, "CAD not connected")
		return
	}
	if err := h.bridge.RequestGeometry(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "requested"})
}

func (h *Handlers) apiJournal(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeError(w, http.StatusNotFound, "persistence disabled")
		return
	}
	s := h.bridge.Scenarios().Current()
	if s == nil {
		writeError(w, http.StatusNotFound, "no scenario loaded")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.db.ListSyncJournal(s.ID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, entries)
}
