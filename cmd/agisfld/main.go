// Agisfld is the realtime daemon of the AgisFL security dashboard.
//
// It loads configuration, starts the HTTP/WebSocket server, and runs the
// host metrics feed plus, in demo mode, a simulated detection pipeline.
// Shutdown is handled gracefully on SIGINT or SIGTERM.
package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/agisfl/agisfl/config"
	"github.com/agisfl/agisfl/feed"
	"github.com/agisfl/agisfl/server"
	"github.com/agisfl/agisfl/store"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "/etc/agisfl/agisfl.toml", "Path to config TOML")
		bind       = pflag.String("bind", "", "HTTP bind address (overrides config)")
		withMCP    = pflag.Bool("mcp", false, "Expose dashboard queries over stdio MCP")
	)
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("config load failed: %v", err)
		}
		cfg = config.Default()
	}
	if *bind != "" {
		cfg.Server.Bind = *bind
	}

	setupLogger(cfg.Logging)

	st := store.New()
	var mcpServer *server.MCPServer
	if *withMCP {
		mcpServer = server.NewMCPServer("1.0.0")
	}

	srv := server.New(server.Options{
		Store:     st,
		MCPServer: mcpServer,
	})

	transport := server.NewWSTransport(cfg.Server.Bind)
	transport.SetMaxSessions(cfg.Realtime.MaxSessions)
	srv.RegisterTransport(transport)

	api := server.NewAPI(srv.Coordinator())
	api.Mount(transport.Router())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Discovery.Enabled {
		if port, err := bindPort(cfg.Server.Bind); err != nil {
			slog.Warn("mDNS advertisement disabled, cannot parse bind address", "bind", cfg.Server.Bind, "error", err)
		} else if adv, err := server.Advertise(port); err != nil {
			slog.Warn("mDNS advertisement failed", "error", err)
		} else {
			defer adv.Shutdown()
		}
	}

	if cfg.Metrics.Enabled {
		mf := feed.NewMetricsFeed(srv)
		mf.Interval = time.Duration(cfg.Metrics.IntervalSeconds) * time.Second
		go mf.Run(ctx)
	}
	if cfg.Demo.Enabled {
		df := feed.NewDemoFeed(srv, st)
		df.Interval = time.Duration(cfg.Demo.IntervalSeconds) * time.Second
		go df.Run(ctx)
	}

	if err := srv.Start(ctx); err != nil {
		slog.Error("agisfld failed", "error", err)
		os.Exit(1)
	}
}

func bindPort(bind string) (int, error) {
	_, portStr, err := net.SplitHostPort(bind)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(portStr)
}

func setupLogger(cfg config.LoggingConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}
