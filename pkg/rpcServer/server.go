package rpcServer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/vibe-labs/vibe-rewards/internal/metrics"
	"github.com/vibe-labs/vibe-rewards/pkg/airQuality"
	"github.com/vibe-labs/vibe-rewards/pkg/eventBus/eventBusTypes"
	"github.com/vibe-labs/vibe-rewards/pkg/rewardService"
	"github.com/vibe-labs/vibe-rewards/pkg/wallet"
	"go.uber.org/zap"
)

type WalletProvider interface {
	Connect(ctx context.Context) (*wallet.WalletInfo, error)
	IsConnected() bool
	Info() *wallet.WalletInfo
	SwitchNetwork(ctx context.Context) error
	WatchAsset(ctx context.Context, contractAddress string) (bool, error)
}

type ReadingSource interface {
	FetchReading(ctx context.Context, address string) *airQuality.AirQualityReading
}

type RpcServer struct {
	Logger   *zap.Logger
	wallet   WalletProvider
	readings ReadingSource
	rewards  *rewardService.RewardService
	eventBus eventBusTypes.IEventBus
	metrics  *metrics.MetricsSink
}

func NewRpcServer(
	w WalletProvider,
	readings ReadingSource,
	rewards *rewardService.RewardService,
	eb eventBusTypes.IEventBus,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *RpcServer {
	return &RpcServer{
		Logger:   l,
		wallet:   w,
		readings: readings,
		rewards:  rewards,
		eventBus: eb,
		metrics:  ms,
	}
}

func (s *RpcServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)

	mux.HandleFunc("POST /v1/wallet/connect", s.handleConnectWallet)
	mux.HandleFunc("POST /v1/wallet/switch-network", s.handleSwitchNetwork)
	mux.HandleFunc("POST /v1/wallet/watch-asset", s.handleWatchAsset)

	mux.HandleFunc("GET /v1/air-quality/{address}", s.handleAirQuality)

	mux.HandleFunc("POST /v1/rewards/claim", s.handleClaim)
	mux.HandleFunc("GET /v1/rewards/status/{address}", s.handleClaimStatus)
	mux.HandleFunc("GET /v1/rewards/rule", s.handleRewardRule)

	mux.HandleFunc("GET /v1/token/info", s.handleTokenInfo)
	mux.HandleFunc("GET /v1/token/balance/{address}", s.handleTokenBalance)
	mux.HandleFunc("GET /v1/contract", s.handleContract)

	mux.HandleFunc("GET /v1/claims/count", s.handleClaimsCount)
	mux.HandleFunc("DELETE /v1/claims", s.handleClearClaims)
	mux.HandleFunc("DELETE /v1/claims/{address}", s.handleClearClaim)

	mux.HandleFunc("GET /v1/events", s.handleEvents)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.withMetrics(mux))
}

// Serve blocks until ctx is cancelled or the listener fails.
func (s *RpcServer) Serve(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		// no WriteTimeout; /v1/events is a long-lived stream
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Sugar().Infow("Starting HTTP server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.Logger.Sugar().Infow("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil {
			s.Logger.Sugar().Errorw("HTTP server failed", zap.Error(err))
		}
		return err
	}
}
