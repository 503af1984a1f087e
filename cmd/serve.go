package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/watchparty/internal/config"
	"github.com/Vovarama1992/watchparty/internal/delivery"
	ws "github.com/Vovarama1992/watchparty/internal/delivery/ws"
	"github.com/Vovarama1992/watchparty/internal/domain"
	"github.com/Vovarama1992/watchparty/internal/domain/encoder"
	"github.com/Vovarama1992/watchparty/internal/infra"
	"github.com/Vovarama1992/watchparty/internal/ports"
	"github.com/Vovarama1992/watchparty/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {

	// CONFIG
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// LOGGER
	zcore := newZap(cfg.LogLevel)
	defer zcore.Sync()
	zl := logger.NewZapLogger(zcore.Sugar())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// STORE
	var (
		mediaRepo ports.MediaRepository
		noteRepo  ports.NoteRepository
	)
	switch cfg.Store {
	case config.StoreMemory:
		repo := infra.NewMemoryRepo()
		mediaRepo, noteRepo = repo, repo
	default:
		pool, err := infra.NewPgxPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := infra.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		repo := infra.NewPostgresMediaRepo(pool)
		mediaRepo, noteRepo = repo, repo
	}

	// ENCODER
	mode, err := encoder.ParseMode(cfg.EncoderMode)
	if err != nil {
		return err
	}
	enc := encoder.NewFFmpeg(cfg.FFmpegPath, mode)

	// WS HUB
	hub := ws.NewHub(zcore.Named("hub"))

	// SERVICES
	// conversions outlive their request; they are killed only on shutdown
	convCtx, cancelConv := context.WithCancel(context.Background())
	defer cancelConv()

	files := infra.NewDirBlobStore(cfg.UploadDir)
	uploads := domain.NewUploadService(convCtx, files, mediaRepo, hub, enc, zl)
	chat := domain.NewChatService(noteRepo, hub, zl)

	// HANDLERS
	hMedia := delivery.NewMediaHandler(uploads, files, cfg.MaxUploadBytes(), zl)
	hNotes := delivery.NewNotesHandler(chat, zl)
	hWS := ws.WSHandler(hub, chat, zl)

	static, err := web.Static()
	if err != nil {
		return err
	}

	// ROUTER
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	delivery.RegisterRoutes(r, hMedia, hNotes, hWS, static)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zl.Log(logger.LogEntry{
			Level:   "info",
			Message: "server started",
			Fields: map[string]any{
				"port":    cfg.Port,
				"store":   cfg.Store,
				"encoder": string(mode),
				"uploads": cfg.UploadDir,
			},
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if err != nil {
		zl.Log(logger.LogEntry{
			Level:   "error",
			Message: "server crashed",
			Error:   err,
		})
	}

	cancelConv()
	uploads.Wait()

	zl.Log(logger.LogEntry{
		Level:   "info",
		Message: "server stopped",
	})
	return err
}
