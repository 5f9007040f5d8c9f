// cmd/vapordb-server is VaporDB's HTTP adapter entrypoint: it opens the
// engine, starts the TTL daemon and background compaction, and serves
// POST /cmd and GET /health until told to shut down.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tejxsmore/vapordb-go/internal/api"
	"github.com/tejxsmore/vapordb-go/internal/config"
	"github.com/tejxsmore/vapordb-go/internal/engine"
)

func main() {
	configPath := flag.String("config", "", "Path to a vapordb config file (optional; VAPORDB_* env vars always apply)")
	flag.Parse()

	log := logrus.WithField("component", "vapordb-server")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	e, err := engine.New(cfg.Engine())
	if err != nil {
		log.WithError(err).Fatal("open engine")
	}
	defer func() {
		if err := e.Close(); err != nil {
			log.WithError(err).Error("close engine")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		e.StartTTLDaemon(groupCtx)
		<-groupCtx.Done()
		return nil
	})
	group.Go(func() error {
		if err := e.StartBackgroundCompaction(groupCtx); err != nil {
			return err
		}
		<-groupCtx.Done()
		return nil
	})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(api.Logger(), api.Recovery(), api.CORS(cfg.CORSOrigin))
	api.NewHandler(e).Register(router)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	group.Go(func() error {
		log.WithField("addr", cfg.ListenAddr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.WithField("signal", sig).Info("shutting down")
	case <-groupCtx.Done():
		log.WithError(groupCtx.Err()).Warn("background task exited early, shutting down")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}

	if err := group.Wait(); err != nil {
		log.WithError(err).Error("background task error")
	}
}
