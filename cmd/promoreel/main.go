package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/satindergrewal/promoreel/internal/api"
	"github.com/satindergrewal/promoreel/internal/audio"
	"github.com/satindergrewal/promoreel/internal/capture"
	"github.com/satindergrewal/promoreel/internal/config"
	"github.com/satindergrewal/promoreel/internal/metadata"
	"github.com/satindergrewal/promoreel/internal/render"
	"github.com/satindergrewal/promoreel/internal/stream"
	"github.com/satindergrewal/promoreel/internal/style"
	"github.com/satindergrewal/promoreel/internal/theme"
	"github.com/satindergrewal/promoreel/internal/web"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env loaded (%v), using environment only", err)
	}
	cfg := config.Load()

	styleFile := flag.String("style", cfg.StyleFile, "YAML scene preset")
	audioPath := flag.String("audio", "", "soundtrack file (overrides the preset)")
	export := flag.Bool("export", false, "render one video to the output dir and exit")
	port := flag.Int("port", cfg.Port, "HTTP port")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st := style.Default()
	if *styleFile != "" {
		loaded, err := style.LoadFile(*styleFile)
		if err != nil {
			log.Fatalf("Style preset: %v", err)
		}
		st = loaded
		log.Printf("Loaded style preset %s", *styleFile)
	}
	if *audioPath != "" {
		st.Audio = *audioPath
	}
	if unknown := st.Unknown(); len(unknown) > 0 {
		log.Printf("Style: unknown identifiers %v will draw their defaults", unknown)
	}
	store := style.NewStore(st)

	fonts, err := render.LoadFonts(cfg.FontPath)
	if err != nil {
		log.Fatalf("Fonts: %v", err)
	}
	composer := render.NewComposer(fonts, render.NewPortraitCache(theme.SpeakerSize))
	surface := render.NewSurface(theme.Width, theme.Height)

	player := audio.NewPlayer()
	player.Attach()
	if st.Audio != "" {
		asset, err := audio.LoadAsset(cfg.FFmpegPath, st.Audio)
		switch {
		case err == nil:
			player.Load(asset)
		case *export:
			log.Fatalf("Audio: %v", err)
		default:
			log.Printf("Audio: %v (set one via /api/state)", err)
		}
	}

	broadcaster := stream.NewBroadcaster()
	go broadcaster.Run(ctx, player.Frames())

	loop := render.NewLoop(surface, composer, store.Snapshot, player, cfg.FPS)
	go loop.Run(ctx)

	pipeline := capture.NewPipeline(player, surface, broadcaster, capture.Config{
		FPS:            cfg.FPS,
		FFmpeg:         cfg.FFmpegPath,
		VideoBitrate:   cfg.VideoBitrate,
		BeforePlayback: loop.ResetClock,
	})

	log.Println("promoreel starting up...")

	if *export {
		if err := runExport(ctx, pipeline, cfg.OutputDir); err != nil {
			log.Fatalf("Export: %v", err)
		}
		return
	}

	mjpeg := stream.NewMJPEGHandler(surface, cfg.PreviewFPS, cfg.JPEGQuality, cfg.PreviewWidth(theme.Width))
	webrtcHandler := stream.NewWebRTCHandler(broadcaster, cfg.OpusBitrate)
	toolkit := metadata.NewClient(cfg.GeminiAPIURL, cfg.GeminiAPIKey, cfg.GeminiTextModel, cfg.GeminiImageModel)
	if !toolkit.Configured() {
		log.Println("Gemini not configured (set GEMINI_API_KEY to enable the metadata toolkit)")
	}

	apiServer := api.New(api.Deps{
		Store:    store,
		Player:   player,
		Pipeline: pipeline,
		LoadAudio: func(path string) (*audio.Asset, error) {
			return audio.LoadAsset(cfg.FFmpegPath, path)
		},
		Toolkit:   toolkit,
		OutputDir: cfg.OutputDir,
		Forget:    composer.Portraits().Forget,
		Listeners: func() (int, int) {
			return broadcaster.ListenerCount(), webrtcHandler.PeerCount()
		},
		Frames:     surface.Frames,
		ResetClock: loop.ResetClock,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(web.IndexHTML)
	})
	r.Get("/preview.mjpeg", mjpeg.ServeHTTP)
	r.Get("/preview.jpg", mjpeg.ServeSnapshot)
	r.Handle("/stream", stream.NewHTTPHandler(broadcaster, cfg.FFmpegPath))
	r.Handle("/offer", webrtcHandler)
	apiServer.Routes(r)

	addr := fmt.Sprintf(":%d", *port)
	// Streaming handlers end with their request context, so derive it from ctx.
	server := &http.Server{
		Addr:        addr,
		Handler:     r,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		pipeline.Stop()
		player.Stop()
		webrtcHandler.Close()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := server.Shutdown(shutdownCtx); err != nil {
			server.Close()
		}
	}()

	log.Printf("promoreel live on %s", addr)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("HTTP server error: %v", err)
	}
}

// runExport records one full play-through and saves it. An interrupt stops
// the recording early but still keeps what was captured.
func runExport(ctx context.Context, pipeline *capture.Pipeline, dir string) error {
	sess, err := pipeline.Export(ctx)
	if err != nil {
		return err
	}
	select {
	case <-sess.Done():
	case <-ctx.Done():
		log.Println("Interrupted, finalizing export...")
		sess.Stop()
		<-sess.Done()
	}
	path, err := sess.Save(dir)
	if err != nil {
		return err
	}
	log.Printf("Export written to %s", path)
	return nil
}
