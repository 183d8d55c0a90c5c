package vibeToken

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/vibe-labs/vibe-rewards/internal/metrics"
	"github.com/vibe-labs/vibe-rewards/pkg/utils"
	"go.uber.org/zap"
)

const (
	DefaultSimulationDelay = 2 * time.Second

	simulatedTokenName = "VIBE Token (not deployed)"
	simulatedSymbol    = "VIBE"
	simulatedDecimals  = 18
)

// SimulatedLedger stands in for the registry when no contract is deployed.
type SimulatedLedger struct {
	delay   time.Duration
	logger  *zap.Logger
	metrics *metrics.MetricsSink

	randRead func(b []byte) (int, error)
}

func NewSimulatedLedger(delay time.Duration, ms *metrics.MetricsSink, l *zap.Logger) *SimulatedLedger {
	if delay <= 0 {
		delay = DefaultSimulationDelay
	}
	return &SimulatedLedger{
		delay:    delay,
		logger:   l,
		metrics:  ms,
		randRead: rand.Read,
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Claim waits for the configured delay and returns a random 32 byte hash. A
// simulated claim never fails on its own; the one exception is ctx being done
// before the delay elapses, in which case ctx.Err() is returned and no claim is
// recorded by the caller.
func (s *SimulatedLedger) Claim(ctx context.Context, aqi int) (string, error) {
	defer observeCall(s.metrics, Method_ClaimTokens, mode_Simulated, time.Now())

	if err := sleepWithContext(ctx, s.delay); err != nil {
		return "", err
	}

	hash := make([]byte, 32)
	if _, err := s.randRead(hash); err != nil {
		s.logger.Sugar().Errorw("Failed to generate simulated hash, using zero hash", zap.Error(err))
		hash = make([]byte, 32)
	}
	txHash := hexutil.Encode(hash)
	s.logger.Sugar().Infow("Simulated claim",
		zap.Int("aqi", aqi),
		zap.String("txHash", txHash),
	)
	return txHash, nil
}

func (s *SimulatedLedger) CheckClaimStatus(ctx context.Context, address string) (*ClaimStatus, error) {
	return &ClaimStatus{Claimed: false, Timestamp: 0, Amount: "0"}, nil
}

func (s *SimulatedLedger) GetBalance(ctx context.Context, address string) (string, error) {
	return "0", nil
}

func (s *SimulatedLedger) GetTokenInfo(ctx context.Context) (*TokenInfo, error) {
	return &TokenInfo{
		Name:     simulatedTokenName,
		Symbol:   simulatedSymbol,
		Decimals: simulatedDecimals,
		Balance:  "0",
	}, nil
}

func (s *SimulatedLedger) GetContractAddress() string {
	return utils.NullEthereumAddressHex
}

func (s *SimulatedLedger) IsSimulation() bool {
	return true
}
