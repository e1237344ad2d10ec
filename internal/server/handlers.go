package server

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/geoplot/internal/export"
	"github.com/sells-group/geoplot/internal/mapping"
	"github.com/sells-group/geoplot/internal/render"
	"github.com/sells-group/geoplot/internal/scale"
	"github.com/sells-group/geoplot/internal/session"
)

type datasetResponse struct {
	Name    string         `json:"name"`
	Columns []string       `json:"columns"`
	Rows    int            `json:"rows"`
	Config  mapping.Config `json:"config"`
}

type boundaryResponse struct {
	Source       string         `json:"source"`
	PropertyKeys []string       `json:"property_keys"`
	Features     int            `json:"features"`
	Config       mapping.Config `json:"config"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Snapshot())
}

// formFile reads the "file" part of a size-limited multipart upload.
func (s *Server) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, string, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	f, hdr, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", http.StatusRequestEntityTooLarge, eris.Errorf("upload exceeds %d bytes", tooLarge.Limit)
		}
		return nil, "", http.StatusBadRequest, eris.Wrap(err, "multipart field \"file\" is required")
	}
	return f, hdr.Filename, 0, nil
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	f, name, status, err := s.formFile(w, r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	defer f.Close()

	t, err := s.sess.LoadDataset(r.Context(), name, f)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, datasetResponse{
		Name:    t.Name,
		Columns: t.Columns,
		Rows:    t.Len(),
		Config:  s.sess.Config(),
	})
}

func (s *Server) handleBoundaryUpload(w http.ResponseWriter, r *http.Request) {
	f, name, status, err := s.formFile(w, r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	defer f.Close()

	fs, err := s.sess.LoadBoundaries(name, f)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, boundaryResponse{
		Source:       fs.Source,
		PropertyKeys: fs.PropertyKeys,
		Features:     fs.Len(),
		Config:       s.sess.Config(),
	})
}

func (s *Server) handleBoundaryDefault(w http.ResponseWriter, r *http.Request) {
	if err := s.sess.FetchDefaultBoundaries(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeBoundaryState(w)
}

func (s *Server) handleBoundarySource(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source string `json:"source"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Source == "" {
		writeError(w, http.StatusBadRequest, "source is required")
		return
	}
	if _, err := s.sess.LoadBoundarySource(r.Context(), req.Source); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeBoundaryState(w)
}

func (s *Server) writeBoundaryState(w http.ResponseWriter) {
	snap := s.sess.Snapshot()
	writeJSON(w, http.StatusOK, boundaryResponse{
		Source:       snap.Boundary,
		PropertyKeys: snap.PropertyKeys,
		Features:     snap.Features,
		Config:       snap.Config,
	})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Config())
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	cfg := mapping.Default()
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.sess.ReplaceConfig(cfg); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handlePatchConfig(w http.ResponseWriter, r *http.Request) {
	var p mapping.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cfg, err := s.sess.PatchConfig(p)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleSchemes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"schemes": scale.Names()})
}

func (s *Server) handleRedraw(w http.ResponseWriter, _ *http.Request) {
	scene, err := s.sess.Redraw()
	if err != nil {
		writeError(w, redrawStatus(err), err.Error())
		return
	}
	doc, err := export.SVG(scene)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h := w.Header()
	h.Set("Content-Type", "image/svg+xml")
	h.Set(HeaderRows, strconv.Itoa(scene.Stats.Rows))
	h.Set(HeaderPlotted, strconv.Itoa(scene.Stats.Plotted))
	h.Set(HeaderDiscarded, strconv.Itoa(scene.Stats.Discarded))
	h.Set(HeaderUnprojectable, strconv.Itoa(scene.Stats.Unprojectable))
	h.Set(HeaderMatched, strconv.Itoa(scene.Stats.Matched))
	h.Set(HeaderFilled, strconv.Itoa(scene.Stats.FilledRegions))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func redrawStatus(err error) int {
	switch {
	case eris.Is(err, render.ErrNoBoundaries), eris.Is(err, render.ErrNoDataset):
		return http.StatusConflict
	case eris.Is(err, render.ErrMissingColumns):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := session.Format(chi.URLParam(r, "format"))
	if format != session.FormatSVG && format != session.FormatPNG {
		writeError(w, http.StatusNotFound, "unknown export format")
		return
	}

	data, filename, err := s.sess.Export(format)
	if err != nil {
		if eris.Is(err, session.ErrNothingRendered) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	contentType := "image/svg+xml"
	if format == session.FormatPNG {
		contentType = "image/png"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
