package server

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"vodforge/internal/signal"
)

// Listen serves handler until an interrupt arrives, then drains in-flight
// requests before returning.
func Listen(addr string, handler http.Handler) {
	ctx := signal.WatchInterrupt(context.Background(), 10*time.Second)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("shutdown failed")
		}
	}()

	log.Infof("listening on '%s'", addr)

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("http server failed")
	}

	log.Info("http server stopped")
}
