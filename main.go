package main

import (
	"chatrelay/internal/config"
	"chatrelay/internal/http/http_server"
	"chatrelay/internal/logger"
	"chatrelay/internal/redis/presence"
	"chatrelay/internal/redis/redis_client"
	"chatrelay/internal/registry"
	"chatrelay/internal/relay"
	"chatrelay/internal/ws"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const msgMaxClients = "Invalid number of max clients. It must be a positive integer."

var (
	errUsage      = errors.New("usage")
	errMaxClients = errors.New("invalid max clients")
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:            "chatrelay",
		Usage:           "relay every client's messages to all connected clients",
		ArgsUsage:       "<max clients>",
		HideHelpCommand: true,
		Action: func(c *cli.Context) error {
			maxClients, err := parseMaxClients(c.Args().Slice())
			if errors.Is(err, errUsage) {
				return cli.Exit(fmt.Sprintf("Usage: %s <max clients>", c.App.Name), 1)
			}
			if err != nil {
				return cli.Exit(msgMaxClients, 1)
			}
			return run(c.Context, maxClients)
		},
	}
}

func parseMaxClients(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errUsage
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return 0, errMaxClients
	}
	return n, nil
}

func run(ctx context.Context, maxClients int) error {
	// 1. Load configuration
	cfg, err := config.LoadConfig(maxClients)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// 2. Logger
	Log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer Log.Sync()
	zap.ReplaceGlobals(Log)
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 3. Context with signal handling
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Slot table
	reg, err := registry.New(cfg.MaxClients)
	if err != nil {
		return fmt.Errorf("create registry: %w", err)
	}

	// 5. Optional Redis presence
	var notifier relay.Notifier
	if cfg.RedisEnabled {
		redisClient, err := redis_client.NewRedisClient(ctx, cfg.RedisHost, int(cfg.RedisPort))
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisClient.Close()

		pub := presence.NewPublisher(redisClient)
		if err := pub.Reset(ctx); err != nil {
			Log.Warn("presence.reset", zap.Error(err))
		}
		go pub.Run(ctx)
		notifier = pub
	}

	srv := relay.NewServer(reg, relay.Options{
		WriteWait:    cfg.WriteTimeout,
		SessionLimit: cfg.SessionLimit,
		Notifier:     notifier,
	})

	// 6. Listener
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.RelayPort))
	if err != nil {
		return fmt.Errorf("listen on relay port %d: %w", cfg.RelayPort, err)
	}

	// 7. Optional admin HTTP + websocket transport. A failing admin server
	// stops the relay too.
	httpErr := make(chan error, 1)
	if cfg.AdminEnabled {
		httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, ws.NewWsServer(srv, cfg.WriteTimeout), reg)
		go func() {
			if err := httpServer.Start(); err != nil {
				httpErr <- fmt.Errorf("admin http server: %w", err)
				stop()
			}
		}()
		defer httpServer.Dispose()
	}

	// 8. Accept loop; returns once a signal closes the listener. Live
	// connections are dropped when the process exits.
	if err := srv.Serve(ctx, ln); err != nil {
		return err
	}
	select {
	case err := <-httpErr:
		return err
	default:
	}
	Log.Info("relay.shutdown", zap.Int("connected", reg.Occupied()))
	return nil
}
