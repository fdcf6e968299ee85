package server

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/akolanti/docuchat/internal/adapter/utils"
	"github.com/akolanti/docuchat/internal/config"
	"github.com/akolanti/docuchat/internal/handlers"
	"github.com/akolanti/docuchat/internal/middleware"
	"github.com/akolanti/docuchat/internal/worker"
	"github.com/akolanti/docuchat/pkg/logger_i"
)

var (
	server  *http.Server
	_logger *logger_i.Logger
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	StopConsumer     context.CancelFunc
	Consumer         *worker.Consumer
	CloseServices    context.CancelFunc
}

func CreateServer(listenAddr string, h *handlers.Handler) {
	_logger = logger_i.NewLogger("Server")

	r := utils.GetRouter()

	r.Router.Get("/", middleware.Wrap(h.GetHandler))
	r.Router.Post("/upload", middleware.Wrap(h.UploadHandler))
	r.Router.Post("/chat", middleware.Wrap(h.ChatHandler))
	server = &http.Server{
		Addr:         listenAddr,
		Handler:      r.Router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error :", err.Error(), "addr", listenAddr)
	}
}

// ShutDownHandler drains the server first so no new jobs get queued, then
// stops the consumer and waits for in-flight ingestions. Anything still
// unacknowledged at exit is redelivered on the next start.
func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	println("\nServer is shutting down", state)

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		server.SetKeepAlivesEnabled(false)

		if err := server.Shutdown(ctx); err != nil {
			_logger.Error("Could not shutdown gracefully", "error", err)
		}

		//stop consuming, let running jobs finish
		shutdownParams.StopConsumer()
		shutdownParams.Consumer.Wait()
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Gracefully is shutting down")
	case <-ctx.Done():
		_logger.Info("Force Shut down")
		os.Exit(1)
	}
}
