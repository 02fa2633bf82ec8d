package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"

	"github.com/go-chi/httplog/v2"
	"github.com/yellowcircle-io/shortlink-service/internal/config"
	"github.com/yellowcircle-io/shortlink-service/internal/database/postgres"
	"github.com/yellowcircle-io/shortlink-service/internal/service"
	"github.com/yellowcircle-io/shortlink-service/internal/session"
	"golang.org/x/sync/errgroup"

	myhttp "github.com/yellowcircle-io/shortlink-service/internal/api/http"
	pkgpostgres "github.com/yellowcircle-io/shortlink-service/pkg/postgres"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx); err != nil {
		panic(err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	db, err := pkgpostgres.New(
		ctx,
		cfg.Postgres.DSN(),
		pkgpostgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		pkgpostgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		pkgpostgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		pkgpostgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
	)
	if err != nil {
		return err
	}
	g.Go(func() error {
		<-ctx.Done()
		return db.Close()
	})

	if err := pkgpostgres.RunMigrations("file://migrations", cfg.Postgres.DSN()); err != nil {
		return err
	}

	var sessions service.SessionStore
	if cfg.Redis.Addr != "" {
		client, err := session.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		g.Go(func() error {
			<-ctx.Done()
			return client.Close()
		})

		sessions = session.NewRedisStore(client, cfg.Redis.SessionTTL)
	} else {
		sessions = session.NewMemoryStore(cfg.Redis.SessionTTL)
	}

	logger := httplog.NewLogger("shortlink-service")

	linkRepo := postgres.NewShortlinkRepository(db)
	linkSvc := service.NewShortlinkService(linkRepo, sessions, logger.Logger, cfg.ShortCodeLength)

	r := myhttp.NewRouter(logger, linkSvc, cfg.DefaultRedirect)

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        r,
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g.Go(func() error {
		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return server.Shutdown(context.Background())
	})

	return g.Wait()
}
