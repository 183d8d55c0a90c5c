package rewardService

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vibe-labs/vibe-rewards/internal/metrics"
	"github.com/vibe-labs/vibe-rewards/internal/metrics/metricsTypes"
	"github.com/vibe-labs/vibe-rewards/pkg/airQuality"
	"github.com/vibe-labs/vibe-rewards/pkg/claimStorage"
	"github.com/vibe-labs/vibe-rewards/pkg/eventBus/eventBusTypes"
	"github.com/vibe-labs/vibe-rewards/pkg/rewardCalculator"
	"github.com/vibe-labs/vibe-rewards/pkg/utils"
	"github.com/vibe-labs/vibe-rewards/pkg/vibeToken"
	"github.com/vibe-labs/vibe-rewards/pkg/wallet"
	"go.uber.org/zap"
)

type NotConnectedError struct{}

func (e *NotConnectedError) Error() string {
	return "wallet is not connected"
}

var ErrNotConnected error = &NotConnectedError{}

// SenderMismatchError is returned when a live claim is requested for an address
// other than the connected wallet. The contract credits the transaction sender.
type SenderMismatchError struct {
	Address string
	Sender  string
}

func (e *SenderMismatchError) Error() string {
	return fmt.Sprintf("rewards can only be claimed for the connected wallet %s, not %s", e.Sender, e.Address)
}

type RewardResult struct {
	Success        bool   `json:"success"`
	Amount         int    `json:"amount"`
	TxHash         string `json:"txHash,omitempty"`
	Message        string `json:"message"`
	AlreadyClaimed bool   `json:"alreadyClaimed"`
}

type ClaimStatusResult struct {
	CanClaim      bool                      `json:"canClaim"`
	PreviousClaim *claimStorage.ClaimRecord `json:"previousClaim,omitempty"`
}

type WalletSession interface {
	IsConnected() bool
	Info() *wallet.WalletInfo
}

type ReadingSource interface {
	FetchReading(ctx context.Context, address string) *airQuality.AirQualityReading
}

// LedgerFactory builds the ledger for the connected wallet. It is called at most
// once successfully; the ledger is reused afterwards.
type LedgerFactory func(ctx context.Context) (vibeToken.Ledger, error)

type RewardService struct {
	wallet    WalletSession
	readings  ReadingSource
	newLedger LedgerFactory
	storage   *claimStorage.ClaimStorage
	eventBus  eventBusTypes.IEventBus
	metrics   *metrics.MetricsSink
	logger    *zap.Logger

	ledgerLock sync.Mutex
	ledger     vibeToken.Ledger

	inFlightLock sync.Mutex
	inFlight     map[string]struct{}
}

func NewRewardService(
	wallet WalletSession,
	readings ReadingSource,
	newLedger LedgerFactory,
	storage *claimStorage.ClaimStorage,
	eb eventBusTypes.IEventBus,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *RewardService {
	return &RewardService{
		wallet:    wallet,
		readings:  readings,
		newLedger: newLedger,
		storage:   storage,
		eventBus:  eb,
		metrics:   ms,
		logger:    l,
		inFlight:  make(map[string]struct{}),
	}
}

func (rs *RewardService) getLedger(ctx context.Context) (vibeToken.Ledger, error) {
	if !rs.wallet.IsConnected() {
		return nil, ErrNotConnected
	}
	rs.ledgerLock.Lock()
	defer rs.ledgerLock.Unlock()

	if rs.ledger != nil {
		return rs.ledger, nil
	}
	ledger, err := rs.newLedger(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create ledger")
	}
	rs.ledger = ledger
	return ledger, nil
}

func (rs *RewardService) acquire(address string) bool {
	rs.inFlightLock.Lock()
	defer rs.inFlightLock.Unlock()
	if _, ok := rs.inFlight[address]; ok {
		return false
	}
	rs.inFlight[address] = struct{}{}
	return true
}

func (rs *RewardService) release(address string) {
	rs.inFlightLock.Lock()
	defer rs.inFlightLock.Unlock()
	delete(rs.inFlight, address)
}

// CheckAndReward runs the claim pipeline for address. It never returns an error;
// every failure is reported through the result.
func (rs *RewardService) CheckAndReward(ctx context.Context, address string) *RewardResult {
	_ = rs.metrics.Incr(metricsTypes.Metric_Incr_ClaimAttempt, nil, 1)

	key := utils.NormalizeAddress(address)
	if !rs.acquire(key) {
		rs.logger.Sugar().Warnw("Rejecting concurrent claim", zap.String("address", key))
		result := &RewardResult{
			Success: false,
			Message: "A claim for this wallet is already in progress",
		}
		rs.recordOutcome(&claimAttempt{address: address}, result)
		return result
	}
	defer rs.release(key)

	attempt := &claimAttempt{address: address}
	result := rs.runPipeline(ctx, attempt)
	rs.recordOutcome(attempt, result)
	return result
}

func (rs *RewardService) runPipeline(ctx context.Context, attempt *claimAttempt) *RewardResult {
	for _, step := range claimPipeline {
		result, err := step.run(rs, ctx, attempt)
		if err != nil {
			rs.logger.Sugar().Errorw("Reward claim failed",
				zap.String("address", attempt.address),
				zap.String("step", step.name),
				zap.Error(err),
			)
			return failureResult(err)
		}
		if result != nil {
			return result
		}
	}
	return rs.successResult(attempt)
}

func failureResult(err error) *RewardResult {
	var alreadyClaimed *vibeToken.AlreadyClaimedError
	return &RewardResult{
		Success:        false,
		Amount:         0,
		AlreadyClaimed: errors.As(err, &alreadyClaimed),
		Message:        fmt.Sprintf("Reward failed: %v", err),
	}
}

func (rs *RewardService) successResult(attempt *claimAttempt) *RewardResult {
	level := airQuality.Classify(attempt.reading.Aqi)
	modeText := ""
	if attempt.ledger.IsSimulation() {
		modeText = " (simulation mode)"
	}
	return &RewardResult{
		Success: true,
		Amount:  attempt.amount,
		TxHash:  attempt.txHash,
		Message: fmt.Sprintf("Current air quality index: %d (%s), claimed %d %s%s!",
			attempt.reading.Aqi, level.Level, attempt.amount, rewardCalculator.TokenSymbol, modeText),
	}
}

func outcomeOf(result *RewardResult) (string, string) {
	switch {
	case result.Success:
		return "success", eventBusTypes.Event_ClaimCompleted
	case result.AlreadyClaimed:
		return "already_claimed", eventBusTypes.Event_ClaimRejected
	default:
		return "failed", eventBusTypes.Event_ClaimFailed
	}
}

func (rs *RewardService) recordOutcome(attempt *claimAttempt, result *RewardResult) {
	outcome, eventName := outcomeOf(result)
	_ = rs.metrics.Incr(metricsTypes.Metric_Incr_ClaimOutcome, []metricsTypes.MetricsLabel{
		{Name: "outcome", Value: outcome},
	}, 1)

	data := &eventBusTypes.ClaimEventData{
		Address:        utils.NormalizeAddress(attempt.address),
		Amount:         result.Amount,
		TxHash:         result.TxHash,
		AlreadyClaimed: result.AlreadyClaimed,
		Message:        result.Message,
		Timestamp:      time.Now().UnixMilli(),
	}
	if attempt.reading != nil {
		data.Aqi = attempt.reading.Aqi
		data.Degraded = attempt.reading.Degraded
	}
	if attempt.ledger != nil {
		data.SimulationMode = attempt.ledger.IsSimulation()
	}
	if rs.eventBus != nil {
		rs.eventBus.Publish(&eventBusTypes.Event{Name: eventName, Data: data})
	}

	rs.logger.Sugar().Infow("Reward claim finished",
		zap.String("address", data.Address),
		zap.String("outcome", outcome),
		zap.Int("amount", result.Amount),
		zap.String("txHash", result.TxHash),
	)
}

// CheckClaimStatus consults only the local cache.
func (rs *RewardService) CheckClaimStatus(address string) *ClaimStatusResult {
	record := rs.storage.GetRecord(address)
	return &ClaimStatusResult{
		CanClaim:      record == nil,
		PreviousClaim: record,
	}
}

// SimulateReward previews the reward for a reading without touching the ledger
// or the cache.
func (rs *RewardService) SimulateReward(reading *airQuality.AirQualityReading) *RewardResult {
	amount := rewardCalculator.CalculateReward(reading.Aqi)
	level := airQuality.Classify(reading.Aqi)
	return &RewardResult{
		Success: true,
		Amount:  amount,
		Message: fmt.Sprintf("Simulated reward: current air quality index %d (%s), you would receive %d %s!",
			reading.Aqi, level.Level, amount, rewardCalculator.TokenSymbol),
	}
}

func (rs *RewardService) GetRewardRule() string {
	return rewardCalculator.RewardRule()
}

// GetTokenBalance returns "0" when the balance cannot be read.
func (rs *RewardService) GetTokenBalance(ctx context.Context, address string) string {
	ledger, err := rs.getLedger(ctx)
	if err != nil {
		rs.logger.Sugar().Debugw("Failed to get ledger for balance", zap.Error(err))
		return "0"
	}
	balance, err := ledger.GetBalance(ctx, address)
	if err != nil {
		rs.logger.Sugar().Errorw("Failed to get token balance", zap.String("address", address), zap.Error(err))
		return "0"
	}
	return balance
}

// GetTokenInfo returns nil when the token metadata cannot be read.
func (rs *RewardService) GetTokenInfo(ctx context.Context) *vibeToken.TokenInfo {
	ledger, err := rs.getLedger(ctx)
	if err != nil {
		rs.logger.Sugar().Debugw("Failed to get ledger for token info", zap.Error(err))
		return nil
	}
	info, err := ledger.GetTokenInfo(ctx)
	if err != nil {
		rs.logger.Sugar().Errorw("Failed to get token info", zap.Error(err))
		return nil
	}
	return info
}

func (rs *RewardService) GetTotalClaimsCount() int {
	return rs.storage.Count()
}

// GetContractAddress returns the zero address when no ledger is available.
func (rs *RewardService) GetContractAddress(ctx context.Context) string {
	ledger, err := rs.getLedger(ctx)
	if err != nil {
		return utils.NullEthereumAddressHex
	}
	return ledger.GetContractAddress()
}

func (rs *RewardService) IsSimulationMode(ctx context.Context) bool {
	return utils.IsNullAddress(rs.GetContractAddress(ctx))
}

func (rs *RewardService) ClearAllClaimRecords() error {
	if err := rs.storage.ClearAll(); err != nil {
		return err
	}
	rs.afterClear("")
	return nil
}

func (rs *RewardService) ClearUserClaimRecord(address string) error {
	if err := rs.storage.ClearOne(address); err != nil {
		return err
	}
	rs.afterClear(utils.NormalizeAddress(address))
	return nil
}

func (rs *RewardService) afterClear(address string) {
	_ = rs.metrics.Gauge(metricsTypes.Metric_Gauge_StoredClaims, float64(rs.storage.Count()), nil)
	if rs.eventBus != nil {
		rs.eventBus.Publish(&eventBusTypes.Event{
			Name: eventBusTypes.Event_ClaimsCleared,
			Data: &eventBusTypes.ClaimsClearedData{Address: address},
		})
	}
	rs.logger.Sugar().Infow("Cleared claim records", zap.String("address", address))
}
