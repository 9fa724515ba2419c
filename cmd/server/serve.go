package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iliyamo/quote-board/internal/config"
	"github.com/iliyamo/quote-board/internal/database"
	"github.com/iliyamo/quote-board/internal/handler"
	"github.com/iliyamo/quote-board/internal/jobs"
	"github.com/iliyamo/quote-board/internal/queue"
	"github.com/iliyamo/quote-board/internal/repository"
	"github.com/iliyamo/quote-board/internal/router"
)

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "Apply pending migrations before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if autoMigrate {
		if _, err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn("redis unavailable, rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	events := newPublisher(cfg)
	defer closePublisher(events)

	tokens := repository.NewTokenRepo(db)
	sched, err := jobs.NewScheduler(tokens, cfg.TokenCleanupSpec)
	if err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	e := router.New(router.Deps{
		Cfg:    cfg,
		Auth:   handler.NewAuthHandler(cfg, repository.NewUserRepo(db), tokens),
		Quotes: handler.NewQuoteHandler(repository.NewQuoteRepo(db), events),
		Redis:  rdb,
		DB:     db,
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newPublisher(cfg config.Config) queue.Publisher {
	if cfg.RabbitMQURL == "" {
		log.Info("RABBITMQ_URL not set, domain events disabled")
		return queue.NopPublisher{}
	}
	return queue.NewAMQPPublisher(cfg.RabbitMQURL)
}

func closePublisher(p queue.Publisher) {
	if c, ok := p.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}
