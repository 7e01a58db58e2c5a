package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/satindergrewal/promoreel/internal/audio"
	"github.com/satindergrewal/promoreel/internal/capture"
	"github.com/satindergrewal/promoreel/internal/metadata"
	"github.com/satindergrewal/promoreel/internal/render"
	"github.com/satindergrewal/promoreel/internal/stream"
	"github.com/satindergrewal/promoreel/internal/style"
)

type byteEncoder struct {
	mu  sync.Mutex
	out [][]byte
}

func (e *byteEncoder) Start() error { return nil }
func (e *byteEncoder) WriteFrame(img *image.RGBA) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.out = append(e.out, []byte("frame;"))
	return nil
}
func (e *byteEncoder) WriteAudio(pcm []int16) error { return nil }
func (e *byteEncoder) Close() error                 { return nil }
func (e *byteEncoder) Abort()                       {}
func (e *byteEncoder) Chunks() [][]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.out
}

type harness struct {
	srv     *httptest.Server
	store   *style.Store
	player  *audio.Player
	loads   []string
	forgot  []string
	resets  int
	outDir  string
	toolkit *metadata.Client
}

func newHarness(t *testing.T, toolkit *metadata.Client) *harness {
	t.Helper()
	h := &harness{
		store:   style.NewStore(style.Default()),
		player:  audio.NewPlayer(audio.WithPace(200 * time.Microsecond)),
		outDir:  t.TempDir(),
		toolkit: toolkit,
	}
	tap := stream.NewBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())
	go tap.Run(ctx, h.player.Frames())

	pipeline := capture.NewPipeline(h.player, render.NewSurface(8, 8), tap, capture.Config{
		FPS:        30,
		NewEncoder: func(capture.EncoderConfig) capture.Encoder { return &byteEncoder{} },
	})
	srv := New(Deps{
		Store:    h.store,
		Player:   h.player,
		Pipeline: pipeline,
		LoadAudio: func(path string) (*audio.Asset, error) {
			if strings.Contains(path, "missing") {
				return nil, errors.New("decode " + path + ": no such file")
			}
			h.loads = append(h.loads, path)
			return audio.NewAsset(path, make([]int16, audio.SampleRate*audio.Channels/2)), nil
		},
		Toolkit:    toolkit,
		OutputDir:  h.outDir,
		Forget:     func(src string) { h.forgot = append(h.forgot, src) },
		Listeners:  func() (int, int) { return tap.ListenerCount(), 0 },
		ResetClock: func() { h.resets++ },
	})
	r := chi.NewRouter()
	srv.Routes(r)
	h.srv = httptest.NewServer(r)
	t.Cleanup(func() {
		h.srv.Close()
		h.player.Stop()
		cancel()
	})
	return h
}

func (h *harness) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, h.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp, out
}

func TestStateRoundTrip(t *testing.T) {
	h := newHarness(t, nil)

	resp, st := h.do(t, http.MethodGet, "/api/state", "")
	if resp.StatusCode != http.StatusOK || st["theme"] != "midnight" {
		t.Fatalf("GET state = %d %v", resp.StatusCode, st)
	}

	resp, st = h.do(t, http.MethodPost, "/api/state", `{"title1":"নতুন","theme":"plaid","left":{"image":"/tmp/a.png"}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST state = %d", resp.StatusCode)
	}
	if st["title1"] != "নতুন" || st["title2"] != style.Default().Title2 {
		t.Errorf("merge lost fields: %v", st)
	}
	if got := h.store.Snapshot().Theme; got != "plaid" {
		t.Errorf("theme = %q", got)
	}
	if len(h.forgot) != 2 || h.forgot[1] != "/tmp/a.png" {
		t.Errorf("portrait cache not invalidated: %v", h.forgot)
	}

	_, status := h.do(t, http.MethodGet, "/api/status", "")
	if status["unknown_styles"] == nil {
		t.Error("status does not report unknown styles")
	}

	resp, _ = h.do(t, http.MethodPost, "/api/state", `{"title1":`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed POST = %d", resp.StatusCode)
	}
}

func TestStateAudioLoad(t *testing.T) {
	h := newHarness(t, nil)

	resp, _ := h.do(t, http.MethodPost, "/api/state", `{"audio":"/music/missing.mp3"}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("bad audio = %d", resp.StatusCode)
	}
	if h.store.Snapshot().Audio != "" || h.player.HasAsset() {
		t.Error("failed load changed state")
	}

	resp, _ = h.do(t, http.MethodPost, "/api/state", `{"audio":"/music/theme.mp3"}`)
	if resp.StatusCode != http.StatusOK || !h.player.HasAsset() {
		t.Fatalf("audio load = %d, has asset %v", resp.StatusCode, h.player.HasAsset())
	}
	h.do(t, http.MethodPost, "/api/state", `{"title2":"x"}`)
	if len(h.loads) != 1 {
		t.Errorf("audio reloaded on unrelated change: %v", h.loads)
	}
}

func TestClearedAudioBlocksExport(t *testing.T) {
	h := newHarness(t, nil)
	h.do(t, http.MethodPost, "/api/state", `{"audio":"/music/theme.mp3"}`)
	if !h.player.HasAsset() {
		t.Fatal("audio not loaded")
	}

	resp, st := h.do(t, http.MethodPost, "/api/state", `{"audio":""}`)
	if resp.StatusCode != http.StatusOK || st["audio"] != "" {
		t.Fatalf("clear audio = %d %v", resp.StatusCode, st)
	}
	if h.player.HasAsset() {
		t.Error("player still holds the cleared soundtrack")
	}
	if resp, _ := h.do(t, http.MethodPost, "/api/export", ""); resp.StatusCode != http.StatusPreconditionFailed {
		t.Errorf("export after clearing audio = %d, want 412", resp.StatusCode)
	}
	if resp, _ := h.do(t, http.MethodPost, "/api/play", ""); resp.StatusCode != http.StatusPreconditionFailed {
		t.Errorf("play after clearing audio = %d, want 412", resp.StatusCode)
	}
}

func TestPlayWithoutAudio(t *testing.T) {
	h := newHarness(t, nil)
	resp, body := h.do(t, http.MethodPost, "/api/play", "")
	if resp.StatusCode != http.StatusPreconditionFailed {
		t.Errorf("play = %d %v", resp.StatusCode, body)
	}
	resp, _ = h.do(t, http.MethodPost, "/api/export", "")
	if resp.StatusCode != http.StatusPreconditionFailed {
		t.Errorf("export = %d", resp.StatusCode)
	}
	_, st := h.do(t, http.MethodGet, "/api/export/status", "")
	if st["state"] != "idle" {
		t.Errorf("export status = %v", st)
	}
}

func TestPlayPause(t *testing.T) {
	h := newHarness(t, nil)
	h.do(t, http.MethodPost, "/api/state", `{"audio":"/music/theme.mp3"}`)

	resp, _ := h.do(t, http.MethodPost, "/api/play", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("play = %d", resp.StatusCode)
	}
	if h.resets != 1 {
		t.Errorf("clock resets = %d, want 1", h.resets)
	}
	resp, _ = h.do(t, http.MethodPost, "/api/pause", "")
	if resp.StatusCode != http.StatusOK || h.player.Playing() {
		t.Errorf("pause = %d, playing %v", resp.StatusCode, h.player.Playing())
	}
}

func waitExport(t *testing.T, h *harness, want string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		_, st := h.do(t, http.MethodGet, "/api/export/status", "")
		if st["state"] == want {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("export never reached %s", want)
	return nil
}

func TestExportFlow(t *testing.T) {
	h := newHarness(t, nil)
	h.do(t, http.MethodPost, "/api/state", `{"audio":"/music/theme.mp3"}`)

	resp, _ := h.do(t, http.MethodGet, "/api/export/download", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("download before export = %d", resp.StatusCode)
	}

	resp, st := h.do(t, http.MethodPost, "/api/export", "")
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("export = %d %v", resp.StatusCode, st)
	}
	st = waitExport(t, h, "done")
	if st["size"].(float64) <= 0 {
		t.Errorf("status = %v", st)
	}

	resp, err := http.Get(h.srv.URL + "/api/export/download")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.Header.Get("Content-Type") != "video/webm" ||
		!strings.Contains(resp.Header.Get("Content-Disposition"), ".webm") {
		t.Errorf("download headers = %v", resp.Header)
	}

	resp, saved := h.do(t, http.MethodPost, "/api/export/save", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save = %d %v", resp.StatusCode, saved)
	}
	if _, err := os.Stat(saved["path"].(string)); err != nil || filepath.Dir(saved["path"].(string)) != h.outDir {
		t.Errorf("saved to %v (%v)", saved["path"], err)
	}

	resp, _ = h.do(t, http.MethodPost, "/api/export/stop", "")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("stop with nothing running = %d", resp.StatusCode)
	}
}

func TestExportConflicts(t *testing.T) {
	h := newHarness(t, nil)
	h.player.Load(audio.NewAsset("long", make([]int16, 60*audio.SampleRate*audio.Channels)))

	resp, _ := h.do(t, http.MethodPost, "/api/export", "")
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("export = %d", resp.StatusCode)
	}
	for _, path := range []string{"/api/export", "/api/play", "/api/pause"} {
		if resp, _ := h.do(t, http.MethodPost, path, ""); resp.StatusCode != http.StatusConflict {
			t.Errorf("%s during export = %d, want 409", path, resp.StatusCode)
		}
	}
	if resp, _ := h.do(t, http.MethodPost, "/api/state", `{"audio":"/music/other.mp3"}`); resp.StatusCode != http.StatusConflict {
		t.Errorf("audio change during export = %d, want 409", resp.StatusCode)
	}

	resp, _ = h.do(t, http.MethodPost, "/api/export/stop", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("stop = %d", resp.StatusCode)
	}
	waitExport(t, h, "done")
}

func TestToolkitUnconfigured(t *testing.T) {
	h := newHarness(t, metadata.NewClient("http://127.0.0.1:1", "", "t", "i"))
	resp, _ := h.do(t, http.MethodPost, "/api/toolkit", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("toolkit = %d", resp.StatusCode)
	}
	resp, _ = h.do(t, http.MethodGet, "/api/toolkit/thumbnail", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("thumbnail = %d", resp.StatusCode)
	}
}

func TestToolkit(t *testing.T) {
	gemini := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p map[string]any
		if strings.Contains(r.URL.Path, "image-m") {
			p = map[string]any{"inlineData": map[string]string{
				"mimeType": "image/png",
				"data":     base64.StdEncoding.EncodeToString([]byte("png!")),
			}}
		} else {
			p = map[string]any{"text": `{"titles":["t"],"description":"d","hashtags":"#h","keywords":"k"}`}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{"content": map[string]any{"parts": []any{p}}}},
		})
	}))
	defer gemini.Close()

	h := newHarness(t, metadata.NewClient(gemini.URL, "key", "text-m", "image-m"))
	resp, body := h.do(t, http.MethodPost, "/api/toolkit", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("toolkit = %d %v", resp.StatusCode, body)
	}
	assets := body["assets"].(map[string]any)
	if assets["keywords"] != "k" || body["thumbnail"] != "/api/toolkit/thumbnail" {
		t.Errorf("body = %v", body)
	}

	resp, err := http.Get(h.srv.URL + "/api/toolkit/thumbnail")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("Content-Type") != "image/png" {
		t.Errorf("thumbnail type = %q", resp.Header.Get("Content-Type"))
	}
}

func TestOptions(t *testing.T) {
	h := newHarness(t, nil)
	_, body := h.do(t, http.MethodGet, "/api/options", "")
	themes, _ := body["themes"].(map[string]any)
	if len(themes) != 10 {
		t.Errorf("themes = %d, want 10", len(themes))
	}
	if mics, _ := body["mics"].([]any); len(mics) != 7 {
		t.Errorf("mics = %v", body["mics"])
	}
}
