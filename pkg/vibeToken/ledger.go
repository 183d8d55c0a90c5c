package vibeToken

import (
	"context"
	"crypto/ecdsa"
	"time"

	"github.com/vibe-labs/vibe-rewards/internal/config"
	"github.com/vibe-labs/vibe-rewards/internal/metrics"
	"github.com/vibe-labs/vibe-rewards/internal/metrics/metricsTypes"
	"github.com/vibe-labs/vibe-rewards/pkg/clients/ethereum"
	"go.uber.org/zap"
)

type ClaimStatus struct {
	Claimed bool `json:"claimed"`
	// Timestamp is the claim time in unix seconds as recorded by the registry.
	Timestamp int64 `json:"timestamp"`
	// Amount is the previously granted amount in whole tokens.
	Amount string `json:"amount"`
}

type TokenInfo struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
	Balance  string `json:"balance"`
}

// Ledger is the reward registry, either a deployed contract or a simulation.
type Ledger interface {
	// Claim requests the reward for the signer and returns the transaction hash.
	Claim(ctx context.Context, aqi int) (string, error)
	CheckClaimStatus(ctx context.Context, address string) (*ClaimStatus, error)
	GetBalance(ctx context.Context, address string) (string, error)
	GetTokenInfo(ctx context.Context) (*TokenInfo, error)
	GetContractAddress() string
	IsSimulation() bool
}

const (
	mode_Live      = "live"
	mode_Simulated = "simulated"
)

type LedgerParams struct {
	Deployment      *config.Deployment
	EthereumClient  *ethereum.Client
	Signer          *ecdsa.PrivateKey
	ChainId         uint64
	SimulationDelay time.Duration
}

// NewLedger picks the live ledger when the deployment has a non-zero contract
// address and the simulated one otherwise. The choice is fixed for the ledger's
// lifetime.
func NewLedger(ctx context.Context, p *LedgerParams, ms *metrics.MetricsSink, l *zap.Logger) (Ledger, error) {
	if p.Deployment == nil || !p.Deployment.IsDeployed() {
		l.Sugar().Warnw("Reward contract is not deployed, using simulation mode")
		return NewSimulatedLedger(p.SimulationDelay, ms, l), nil
	}
	return NewLiveLedger(ctx, p, ms, l)
}

func observeCall(ms *metrics.MetricsSink, method string, mode string, start time.Time) {
	_ = ms.Timing(metricsTypes.Metric_Timing_LedgerCall, time.Since(start), []metricsTypes.MetricsLabel{
		{Name: "method", Value: method},
		{Name: "mode", Value: mode},
	})
}
