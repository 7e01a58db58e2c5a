// Package api exposes the scene state, playback, export and metadata
// toolkit over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/satindergrewal/promoreel/internal/apperr"
	"github.com/satindergrewal/promoreel/internal/audio"
	"github.com/satindergrewal/promoreel/internal/capture"
	"github.com/satindergrewal/promoreel/internal/metadata"
	"github.com/satindergrewal/promoreel/internal/style"
	"github.com/satindergrewal/promoreel/internal/theme"
)

// Player is the playback surface the API drives. *audio.Player implements it.
type Player interface {
	Load(a *audio.Asset)
	HasAsset() bool
	Start() error
	Stop()
	Playing() bool
	Position() time.Duration
	Duration() time.Duration
}

// Deps wires the server to the running components. Toolkit, Portraits,
// Listeners and ResetClock may be nil.
type Deps struct {
	Store      *style.Store
	Player     Player
	Pipeline   *capture.Pipeline
	LoadAudio  func(path string) (*audio.Asset, error)
	Toolkit    *metadata.Client
	OutputDir  string
	Forget     func(src string)
	Listeners  func() (http, webrtc int)
	Frames     func() uint64
	ResetClock func()
}

type Server struct {
	d Deps

	mu      sync.Mutex // serializes state changes that load audio
	toolkit struct {
		sync.Mutex
		last *metadata.Result
	}
}

func New(d Deps) *Server {
	return &Server{d: d}
}

// Routes mounts every /api endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.status)
		r.Get("/options", s.options)
		r.Get("/state", s.getState)
		r.Post("/state", s.postState)
		r.Post("/play", s.play)
		r.Post("/pause", s.pause)
		r.Route("/export", func(r chi.Router) {
			r.Post("/", s.startExport)
			r.Post("/stop", s.stopExport)
			r.Get("/status", s.exportStatus)
			r.Get("/download", s.download)
			r.Post("/save", s.save)
		})
		r.Post("/toolkit", s.runToolkit)
		r.Get("/toolkit/thumbnail", s.thumbnail)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"ok": false, "error": err.Error()})
}

// errorStatus maps the error taxonomy onto HTTP codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, apperr.ErrAssetUnavailable):
		return http.StatusPreconditionFailed
	case errors.Is(err, apperr.ErrConcurrentExport):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrExternalService):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) exporting() bool {
	return s.d.Pipeline.State().Active()
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"has_audio": s.d.Player.HasAsset(),
		"playing":   s.d.Player.Playing(),
		"position":  s.d.Player.Position().Seconds(),
		"duration":  s.d.Player.Duration().Seconds(),
		"export":    s.d.Pipeline.State(),
		"toolkit":   s.d.Toolkit != nil && s.d.Toolkit.Configured(),
	}
	if s.d.Frames != nil {
		out["frames"] = s.d.Frames()
	}
	if s.d.Listeners != nil {
		h, rtc := s.d.Listeners()
		out["http_listeners"] = h
		out["webrtc_listeners"] = rtc
	}
	if unknown := s.d.Store.Snapshot().Unknown(); len(unknown) > 0 {
		out["unknown_styles"] = unknown
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) options(w http.ResponseWriter, r *http.Request) {
	palettes := make(map[theme.ID]theme.Palette)
	for _, id := range theme.Themes() {
		palettes[id] = theme.PaletteFor(id)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"themes":      palettes,
		"templates":   theme.TitleTemplates(),
		"title_anims": theme.TitleAnims(),
		"brand_anims": theme.BrandAnims(),
		"shapes":      theme.Shapes(),
		"mics":        theme.MicStyles(),
	})
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.d.Store.Snapshot())
}

// postState merges the posted fields over the current state. A new audio
// path is decoded before the state is committed; an empty one unloads the
// player.
func (s *Server) postState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.d.Store.Snapshot()
	next := prev
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid state: %w", err))
		return
	}

	if next.Audio != prev.Audio {
		if s.exporting() {
			writeError(w, http.StatusConflict, apperr.ErrConcurrentExport)
			return
		}
		if next.Audio != "" {
			asset, err := s.d.LoadAudio(next.Audio)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, err)
				return
			}
			s.d.Player.Load(asset)
		} else {
			s.d.Player.Load(nil)
		}
	}

	for _, pair := range [][2]string{{prev.Left.Image, next.Left.Image}, {prev.Right.Image, next.Right.Image}} {
		if pair[0] != pair[1] && s.d.Forget != nil {
			s.d.Forget(pair[0])
			s.d.Forget(pair[1])
		}
	}

	st := s.d.Store.Update(func(cur *style.State) { *cur = next })
	if unknown := st.Unknown(); len(unknown) > 0 {
		log.Printf("State: unknown identifiers %v will draw their defaults", unknown)
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) play(w http.ResponseWriter, r *http.Request) {
	if s.exporting() {
		writeError(w, http.StatusConflict, apperr.ErrConcurrentExport)
		return
	}
	fromTop := s.d.Player.Position() == 0 && !s.d.Player.Playing()
	if err := s.d.Player.Start(); err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	if fromTop && s.d.ResetClock != nil {
		s.d.ResetClock()
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "position": s.d.Player.Position().Seconds()})
}

func (s *Server) pause(w http.ResponseWriter, r *http.Request) {
	if s.exporting() {
		writeError(w, http.StatusConflict, apperr.ErrConcurrentExport)
		return
	}
	s.d.Player.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "position": s.d.Player.Position().Seconds()})
}

func (s *Server) startExport(w http.ResponseWriter, r *http.Request) {
	sess, err := s.d.Pipeline.Export(r.Context())
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, sess.Status())
}

func (s *Server) stopExport(w http.ResponseWriter, r *http.Request) {
	if !s.d.Pipeline.Stop() {
		writeError(w, http.StatusConflict, errors.New("no export in progress"))
		return
	}
	writeJSON(w, http.StatusOK, s.d.Pipeline.Current().Status())
}

func (s *Server) exportStatus(w http.ResponseWriter, r *http.Request) {
	sess := s.d.Pipeline.Current()
	if sess == nil {
		writeJSON(w, http.StatusOK, capture.Status{State: capture.Idle})
		return
	}
	writeJSON(w, http.StatusOK, sess.Status())
}

func (s *Server) finished() (*capture.Session, *capture.Blob, error) {
	sess := s.d.Pipeline.Current()
	if sess == nil {
		return nil, nil, errors.New("nothing exported yet")
	}
	blob, err := sess.Result()
	if err != nil {
		return nil, nil, err
	}
	if blob == nil {
		return nil, nil, fmt.Errorf("export %s is %s", sess.ID, sess.State())
	}
	return sess, blob, nil
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	sess, blob, err := s.finished()
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.Header().Set("Content-Type", blob.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, blob.Filename))
	modified := sess.Started
	http.ServeContent(w, r, blob.Filename, modified, bytes.NewReader(blob.Data))
}

func (s *Server) save(w http.ResponseWriter, r *http.Request) {
	sess, _, err := s.finished()
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	path, err := sess.Save(s.d.OutputDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "path": path})
}

// toolkitRequest builds the metadata request from the current scene.
// Unreadable portraits are skipped.
func toolkitRequest(st style.State) metadata.Request {
	req := metadata.Request{Title1: st.Title1, Title2: st.Title2, Theme: st.Theme}
	for _, sp := range []style.Speaker{st.Left, st.Right} {
		if sp.Image == "" {
			continue
		}
		data, mime, err := style.ReadImage(sp.Image)
		if err != nil {
			log.Printf("Toolkit: skipping portrait: %v", err)
			continue
		}
		req.Portraits = append(req.Portraits, metadata.Image{Data: data, MIMEType: mime})
	}
	return req
}

type toolkitResponse struct {
	Assets       metadata.Assets `json:"assets"`
	ThumbnailURL string          `json:"thumbnail"`
}

func (s *Server) runToolkit(w http.ResponseWriter, r *http.Request) {
	if s.d.Toolkit == nil || !s.d.Toolkit.Configured() {
		writeError(w, http.StatusServiceUnavailable, errors.New("metadata service not configured (set GEMINI_API_KEY)"))
		return
	}
	res, err := s.d.Toolkit.Toolkit(r.Context(), toolkitRequest(s.d.Store.Snapshot()))
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	s.toolkit.Lock()
	s.toolkit.last = res
	s.toolkit.Unlock()
	writeJSON(w, http.StatusOK, toolkitResponse{Assets: res.Assets, ThumbnailURL: "/api/toolkit/thumbnail"})
}

func (s *Server) thumbnail(w http.ResponseWriter, r *http.Request) {
	s.toolkit.Lock()
	res := s.toolkit.last
	s.toolkit.Unlock()
	if res == nil {
		writeError(w, http.StatusNotFound, errors.New("no thumbnail generated yet"))
		return
	}
	w.Header().Set("Content-Type", res.Thumbnail.MIMEType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(res.Thumbnail.Data)
}
