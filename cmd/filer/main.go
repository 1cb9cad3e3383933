package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	appfiling "github.com/tu-usuario/filing-pro/internal/application/filing"
	lifecycle "github.com/tu-usuario/filing-pro/internal/domain/filing"
	"github.com/tu-usuario/filing-pro/internal/domain/repository"
	"github.com/tu-usuario/filing-pro/internal/infrastructure/bsa"
	"github.com/tu-usuario/filing-pro/internal/infrastructure/jsonsource"
	"github.com/tu-usuario/filing-pro/internal/infrastructure/localfs"
	"github.com/tu-usuario/filing-pro/internal/infrastructure/memory"
	"github.com/tu-usuario/filing-pro/internal/infrastructure/postgres"
	infrarerx "github.com/tu-usuario/filing-pro/internal/infrastructure/rerx"
	httpRouter "github.com/tu-usuario/filing-pro/internal/interfaces/http"
	"github.com/tu-usuario/filing-pro/pkg/config"
	"github.com/tu-usuario/filing-pro/pkg/logger"
)

// sftpTransport adapts the concrete SFTP client to the transport port.
type sftpTransport struct{ c *bsa.Client }

func (t sftpTransport) Connect(ctx context.Context) (appfiling.TransportSession, error) {
	return t.c.Connect(ctx)
}

// localTransport adapts the local-directory dev transport.
type localTransport struct{ t *localfs.Transport }

func (t localTransport) Connect(ctx context.Context) (appfiling.TransportSession, error) {
	return t.t.Connect(ctx)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("load configuration: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("starting application")

	ctx := context.Background()

	var repo repository.SubmissionRepository
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		if cfg.App.Env != "development" {
			log.Fatal().Err(err).Msg("PostgreSQL connection")
		}
		log.Warn().Err(err).Msg("PostgreSQL unavailable, using in-memory store")
		repo = memory.NewSubmissionRepository()
	} else {
		defer pool.Close()
		repo = postgres.NewSubmissionRepository(pool)
	}

	// Transport: real SFTP when a host is configured, local directory tree
	// otherwise. The local mode lets the full pipeline run offline; drop
	// response files into the acknowledgments subdirectory by hand.
	var transport appfiling.Transport
	if cfg.BSA.Host != "" {
		transport = sftpTransport{c: bsa.NewClient(cfg.BSA, log)}
	} else {
		log.Warn().Str("dir", cfg.BSA.LocalDir).
			Msg("BSA_HOST not set, using local directory transport")
		transport = localTransport{t: localfs.New(cfg.BSA.LocalDir, log)}
	}

	source := jsonsource.New(cfg.Source.TransactionsDir)
	builder := infrarerx.NewDocumentBuilder()

	listener := lifecycle.ListenerFunc(func(ev lifecycle.StatusChange) {
		log.Info().
			Str("subject_id", ev.SubjectID).
			Str("from", ev.From).
			Str("to", ev.To).
			Str("receipt_id", ev.ReceiptID).
			Str("rejection_code", ev.RejectionCode).
			Msg("filing status change")
	})

	orch := appfiling.NewOrchestrator(repo, source, transport, builder, cfg.BSA, cfg.Transmitter, listener, log)
	poller := appfiling.NewPoller(repo, transport, cfg.BSA, listener, log)

	pollCtx, stopPoller := context.WithCancel(ctx)
	defer stopPoller()
	go poller.Run(pollCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		Repo:         repo,
		Orchestrator: orch,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutdown signal received, stopping")
	stopPoller()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}

	log.Info().Msg("application stopped")
}
