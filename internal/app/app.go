// Package app configures and runs application.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-contrib/cors"
	ginpprof "github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/device-management-toolkit/bmcserver/config"
	"github.com/device-management-toolkit/bmcserver/internal/controller/httpapi"
	v1 "github.com/device-management-toolkit/bmcserver/internal/controller/httpapi/v1"
	wsv1 "github.com/device-management-toolkit/bmcserver/internal/controller/ws/v1"
	"github.com/device-management-toolkit/bmcserver/internal/repository/devicelink"
	"github.com/device-management-toolkit/bmcserver/internal/usecase"
	"github.com/device-management-toolkit/bmcserver/internal/usecase/watch"
	"github.com/device-management-toolkit/bmcserver/pkg/httpserver"
	"github.com/device-management-toolkit/bmcserver/pkg/logger"
	"github.com/device-management-toolkit/bmcserver/pkg/tracing"
)

var Version = "DEVELOPMENT"

// responseMargin is added to the worst case device time when sizing the write timeout.
const responseMargin = 5 * time.Second

// Run creates objects via constructors.
func Run(cfg *config.Config) {
	log, logFile := newLogger(cfg.Log)
	defer closeLogFile(logFile)

	cfg.Version = Version
	log.Info("app - Run - version: " + cfg.Version)
	// route standard and Gin logs through our JSON logger
	logger.SetupStdLog(log)
	logger.SetupGin(log)

	shutdownTracing, err := tracing.Setup(context.Background(), cfg.Name, cfg.Version, cfg.Tracing.Endpoint)
	if err != nil {
		log.Fatal(fmt.Errorf("app - Run - tracing.Setup: %w", err))
	}

	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Error(fmt.Errorf("app - Run - tracing shutdown: %w", err))
		}
	}()

	// Repository
	link, err := devicelink.New(cfg.Device, log)
	if err != nil {
		log.Fatal(fmt.Errorf("app - Run - devicelink.New: %w", err))
	}

	// Use case
	usecases, err := usecase.NewUseCases(cfg, link, log)
	if err != nil {
		log.Fatal(fmt.Errorf("app - Run - usecase.NewUseCases: %w", err))
	}

	log.Info("app - Run - device link %s, initial mode %s", cfg.Device.Link, usecases.State.Snapshot().CurrentMode)

	verifier, err := v1.NewOIDCVerifier(context.Background(), cfg.Auth)
	if err != nil {
		log.Fatal(fmt.Errorf("app - Run - v1.NewOIDCVerifier: %w", err))
	}

	handler := setupHTTPHandler(cfg, log, usecases, verifier)

	httpServer := httpserver.New(
		handler,
		httpserver.Port(cfg.Host, cfg.Port),
		httpserver.TLS(cfg.TLS.Enabled, cfg.TLS.CertFile, cfg.TLS.KeyFile),
		httpserver.WriteTimeout(writeTimeout(cfg.Device)),
		httpserver.Logger(log),
	)

	waitForShutdown(log, httpServer)
	shutdownServers(log, httpServer, usecases.Watch)
}

// newLogger returns the application logger and, when logging to a file, the file to
// close on exit.
func newLogger(cfg config.Log) (logger.Interface, io.Closer) {
	if cfg.File == "" {
		return logger.New(cfg.Level), nil
	}

	return logger.NewWithFile(cfg.Level, logger.FileOptions{
		Path:       cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	})
}

// closeLogFile reports to stderr since writing through the logger would reopen the file.
func closeLogFile(c io.Closer) {
	if c == nil {
		return
	}

	if err := c.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "app - Run - close log file: %v\n", err)
	}
}

func setupHTTPHandler(cfg *config.Config, log logger.Interface, usecases *usecase.Usecases, verifier *oidc.IDTokenVerifier) *gin.Engine {
	if os.Getenv("GIN_MODE") != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := gin.New()

	defaultConfig := cors.DefaultConfig()
	defaultConfig.AllowOrigins = cfg.AllowedOrigins
	defaultConfig.AllowHeaders = cfg.AllowedHeaders
	defaultConfig.ExposeHeaders = []string{"X-Command-ID", "Idempotent-Replayed"}

	handler.Use(cors.New(defaultConfig))
	httpapi.NewRouter(handler, log, *usecases, cfg, verifier)

	// Optionally enable pprof endpoints (e.g., for staging) via env ENABLE_PPROF=true
	if os.Getenv("ENABLE_PPROF") == "true" {
		ginpprof.Register(handler, "debug/pprof")
		log.Info("pprof enabled at /debug/pprof/")
	}

	upgrader := &websocket.Upgrader{
		ReadBufferSize:    4 * 1024,
		WriteBufferSize:   4 * 1024,
		CheckOrigin:       func(_ *http.Request) bool { return true },
		EnableCompression: cfg.WSCompression,
	}

	wsv1.RegisterRoutes(handler, log, usecases.Watch, usecases.State, upgrader)

	return handler
}

// writeTimeout leaves room for every device attempt so a slow command still gets its answer.
func writeTimeout(d config.Device) time.Duration {
	worst := d.Timeout*time.Duration(d.RetryMax+1) + d.SimulatedLatency + responseMargin

	const floor = 15 * time.Second
	if worst < floor {
		return floor
	}

	return worst
}

func waitForShutdown(log logger.Interface, httpServer *httpserver.Server) {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-interrupt:
		log.Info("app - Run - signal: " + s.String())
	case err := <-httpServer.Notify():
		log.Error(fmt.Errorf("app - Run - httpServer.Notify: %w", err))
	}
}

func shutdownServers(log logger.Interface, httpServer *httpserver.Server, hub *watch.Hub) {
	// end state feeds first; hijacked websocket connections are not drained by Shutdown
	hub.Close()

	if err := httpServer.Shutdown(); err != nil {
		log.Error(fmt.Errorf("app - Run - httpServer.Shutdown: %w", err))
	}
}
