package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/vibe-labs/vibe-rewards/internal/config"
	"github.com/vibe-labs/vibe-rewards/internal/logger"
	"github.com/vibe-labs/vibe-rewards/internal/metrics/prometheus"
	"github.com/vibe-labs/vibe-rewards/internal/shutdown"
	"github.com/vibe-labs/vibe-rewards/internal/version"
	"github.com/vibe-labs/vibe-rewards/pkg/rpcServer"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the rewards HTTP API",
	Run: func(cmd *cobra.Command, args []string) {
		bindCommandFlags(cmd)
		cfg := config.NewConfig()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})

		l.Sugar().Infow("vibe-rewards",
			zap.String("version", version.GetVersion()),
			zap.String("commit", version.GetCommit()),
			zap.Uint64("chainId", cfg.ChainConfig.ChainId),
		)

		svc, err := newServices(cfg, l)
		if err != nil {
			l.Sugar().Fatalw("Failed to setup services", zap.Error(err))
		}
		defer svc.Close()

		// the API stays up without a wallet; /ready reports it and claims fail
		if err := svc.initialize(ctx, l); err != nil {
			l.Sugar().Errorw("Wallet is not connected", zap.Error(err))
		}

		promChannel := make(chan bool, 1)
		if cfg.PrometheusConfig.Enabled {
			pServer := prometheus.NewPrometheusServer(&prometheus.PrometheusServerConfig{
				Port: cfg.PrometheusConfig.Port,
			}, l)
			if err := pServer.Start(promChannel); err != nil {
				l.Sugar().Fatalw("Failed to start prometheus server", zap.Error(err))
			}
		}

		server := rpcServer.NewRpcServer(svc.wallet, svc.airQuality, svc.rewards, svc.eventBus, svc.sink, l)
		go func() {
			if err := server.Serve(ctx, cfg.RpcConfig.HttpPort); err != nil {
				l.Sugar().Fatalw("HTTP server stopped", zap.Error(err))
			}
		}()

		l.Sugar().Info("Started vibe-rewards")

		gracefulShutdown := shutdown.CreateGracefulShutdownChannel()

		done := make(chan bool)
		shutdown.ListenForShutdown(gracefulShutdown, done, func() {
			l.Sugar().Info("Shutting down...")
			cancel()
			promChannel <- true
		}, time.Second*5, l)
	},
}
