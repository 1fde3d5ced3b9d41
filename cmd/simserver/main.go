// Command simserver hosts survivors runs for remote players: the gRPC
// RunService for control and a websocket viewer for renderers.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/cory-johannsen/survivors/internal/config"
	"github.com/cory-johannsen/survivors/internal/frontend/ws"
	"github.com/cory-johannsen/survivors/internal/game/content"
	"github.com/cory-johannsen/survivors/internal/gameserver"
	"github.com/cory-johannsen/survivors/internal/observability"
	"github.com/cory-johannsen/survivors/internal/scripting"
	"github.com/cory-johannsen/survivors/internal/server"
	"github.com/cory-johannsen/survivors/internal/storage"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	logger, err := observability.NewLogger(cfg.Logging, "simserver")
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(context.Background(), cfg, logger, start); err != nil {
		logger.Fatal("simserver failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger, start time.Time) error {
	contentStart := time.Now()
	cat, err := content.Load(cfg.Content.Root, logger)
	if err != nil {
		return fmt.Errorf("loading content: %w", err)
	}
	if err := cat.Check(); err != nil {
		logger.Warn("content cross-references are incomplete; fallbacks will be used", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.String("root", cfg.Content.Root),
		zap.Int("weapons", len(cat.Weapons())),
		zap.Int("enemies", len(cat.Enemies())),
		zap.Int("stages", len(cat.Stages())),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	backend, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	scripts := scripting.NewManager(cfg.Content.ScriptsDir, cfg.Simulation.ScriptInstLimit, logger.Named("scripting"))

	loop := gameserver.NewTickLoop(cfg.Simulation.TickInterval())
	host := gameserver.NewHost(gameserver.HostConfig{
		Sim:              cfg.Simulation.SimConfig(),
		Seed:             cfg.Simulation.Seed,
		DefaultCharacter: cfg.Content.DefaultCharacter,
		DefaultStage:     cfg.Content.DefaultStage,
		OutboxSize:       cfg.GameServer.OutboxSize,
	}, gameserver.HostDeps{
		Content: cat,
		Store:   backend.Store,
		Runs:    backend.Runs,
		Scripts: scripts,
		Loop:    loop,
		Logger:  logger.Named("host"),
	})

	grpcServer := grpc.NewServer()
	gameserver.NewRunService(host, logger.Named("rpc")).Register(grpcServer)
	web := ws.NewServer(cfg.GameServer.WebAddr(),
		ws.NewViewer(host, cfg.GameServer.SnapshotInterval, cfg.GameServer.AllowedOrigins, logger.Named("viewer")), logger)

	lc := server.NewLifecycle(logger)
	lc.Add("tick", &server.FuncService{StartFn: host.Run})
	lc.Add("grpc", &server.FuncService{
		StartFn: func(ctx context.Context) error {
			var lcfg net.ListenConfig
			lis, err := lcfg.Listen(ctx, "tcp", cfg.GameServer.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.GameServer.Addr(), err)
			}
			logger.Info("grpc listening", zap.String("addr", lis.Addr().String()))
			return grpcServer.Serve(lis)
		},
		StopFn: grpcServer.GracefulStop,
	})
	lc.Add("web", web)

	logger.Info("simserver ready",
		zap.Duration("tick", loop.Interval()),
		zap.String("storage", backend.Driver),
		zap.Duration("startup", time.Since(start)),
	)
	return lc.Run(ctx)
}
