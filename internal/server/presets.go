package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geoplot/internal/mapping"
	"github.com/sells-group/geoplot/internal/store"
)

type savePresetRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Config      *mapping.Config `json:"config,omitempty"`
}

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := s.store.ListPresets(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	if presets == nil {
		presets = []store.Preset{}
	}
	writeJSON(w, http.StatusOK, presets)
}

// handleSavePreset stores the supplied config, or the session's current one
// when the body omits it.
func (s *Server) handleSavePreset(w http.ResponseWriter, r *http.Request) {
	var req savePresetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	cfg := s.sess.Config()
	if req.Config != nil {
		cfg = *req.Config
	}
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	p, err := s.store.SavePreset(r.Context(), req.Name, req.Description, cfg)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetPreset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeletePreset(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleApplyPreset(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetPreset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	if err := s.sess.ReplaceConfig(p.Config); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p.Config)
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	if eris.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "preset not found")
		return
	}
	zap.L().Error("server: preset store", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "preset store error")
}
