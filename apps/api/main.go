package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof" // register the /debug/pprof handlers
	"os"
	"os/signal"
	"syscall"

	echoapi "github.com/ssriya/grader/apps/api/echo"
	"github.com/ssriya/grader/apps/container"
	"github.com/ssriya/grader/core"
	"github.com/ssriya/grader/storage/database"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	c, err := container.New(context.Background(), conf, container.Options{LogPrefix: "API : ", Migrate: true})
	if err != nil {
		container.NewLogger(conf, "API : ").Fatal(fmt.Sprintf("setting up dependencies: %v", err), err)
		return
	}
	defer func() { _ = c.Close() }()

	logger := c.Logger
	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// an in-memory gradebook starts with the demo data
	if conf.Database.Engine == database.EngineMemory {
		if _, err = c.GradebookSvc.Seed(context.Background()); err != nil {
			logger.Fatal(fmt.Sprintf("seeding demo data: %v", err), err)
			return
		}
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(
		&echoapi.Options{
			Conf:         conf,
			Logger:       logger,
			Validate:     c.Validate,
			Translator:   c.Translator,
			UserSvc:      c.UserSvc,
			GradebookSvc: c.GradebookSvc,
			Shutdown: func() {
				select {
				case shutdown <- syscall.SIGTERM:
				default: // already shutting down
				}
			},
		},
	)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address))
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-serverErrors:
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err = server.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}
