package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/zenty/portal/backend"
	"github.com/zenty/portal/backend/backendfake"
	"github.com/zenty/portal/internal/config"
	"github.com/zenty/portal/internal/logger"
	"github.com/zenty/portal/internal/telemetry"
	"github.com/zenty/portal/server"
	"github.com/zenty/portal/sessions"
	"github.com/zenty/portal/storage"
	"github.com/zenty/portal/users"
)

const evictionInterval = time.Minute

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("Error running server, restarting")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := config.Load(ctx)
	if err != nil {
		return err
	}
	logger.Init(logger.Options{Level: c.GetLogLevel(), Pretty: c.GetEnv() == "DEV"})
	displayAppname(c.GetAppName())

	shutdownTracing, err := telemetry.Init(ctx, "zenty-portal", c.GetOTLPEndpoint())
	if err != nil {
		return fmt.Errorf("telemetry.Init: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Err(err).Msg("Failed to flush traces")
		}
	}()

	store, closeStore, err := openStorage(ctx, c)
	if err != nil {
		return err
	}
	defer closeStore()

	backendURL := c.GetBackendURL()
	if c.UseFakeBackend() {
		fakeURL, stopFake, err := startFakeBackend()
		if err != nil {
			return err
		}
		defer stopFake()
		backendURL = fakeURL
	}
	api := backend.New(backendURL, backend.WithTimeout(c.GetBackendTimeout()))

	registry := sessions.NewRegistry(store, api,
		sessions.WithInitTimeout(c.GetBackendTimeout()),
		sessions.WithIdleTTL(c.GetMaxSessionAge()),
	)
	go registry.Run(ctx, evictionInterval)

	portal, err := server.New(c, registry, api)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           otelhttp.NewHandler(portal, "portal"),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

// openStorage picks Redis when REDIS_ADDR is set and process memory otherwise.
func openStorage(ctx context.Context, c config.Config) (storage.Store, func(), error) {
	if c.GetRedisAddr() == "" {
		log.Warn().Msg("REDIS_ADDR not set, device sessions are kept in memory")
		return storage.NewInMemoryStore(), func() {}, nil
	}
	client, err := storage.ConnectRedis(ctx, storage.RedisConfig{Addr: c.GetRedisAddr(), DB: c.GetRedisDB()})
	if err != nil {
		return nil, nil, fmt.Errorf("storage.ConnectRedis: %w", err)
	}
	log.Info().Str("addr", c.GetRedisAddr()).Msg("Device sessions stored in Redis")
	return storage.NewRedisStore(client, c.GetMaxSessionAge()), func() { _ = client.Close() }, nil
}

// startFakeBackend serves an in-process backend with demo accounts, for local development.
func startFakeBackend() (string, func(), error) {
	fake := backendfake.New()
	if _, err := fake.SeedCustomer(users.Customer{
		Email: "demo@zenty.fr", FirstName: "Camille", LastName: "Demo", Phone: "0600000000",
	}, "password123"); err != nil {
		return "", nil, fmt.Errorf("seed demo customer: %w", err)
	}
	if _, err := fake.SeedMerchant(users.Merchant{
		Email: "boutique@zenty.fr", CompanyName: "Boutique Demo", Phone: "0100000000", Address: "1 place de la Bourse, Paris",
	}, "password123"); err != nil {
		return "", nil, fmt.Errorf("seed demo merchant: %w", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("fake backend listen: %w", err)
	}
	srv := &http.Server{Handler: fake, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Err(err).Msg("Fake backend stopped")
		}
	}()

	url := "http://" + listener.Addr().String()
	log.Warn().Str("url", url).Msg("Using in-process fake backend (demo@zenty.fr / boutique@zenty.fr, password123)")
	return url, func() { _ = srv.Close() }, nil
}

func listenAndServe(server *http.Server) {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
