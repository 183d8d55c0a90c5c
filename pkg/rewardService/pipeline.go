package rewardService

import (
	"context"
	"fmt"
	"time"

	"github.com/vibe-labs/vibe-rewards/internal/metrics/metricsTypes"
	"github.com/vibe-labs/vibe-rewards/pkg/airQuality"
	"github.com/vibe-labs/vibe-rewards/pkg/claimStorage"
	"github.com/vibe-labs/vibe-rewards/pkg/rewardCalculator"
	"github.com/vibe-labs/vibe-rewards/pkg/utils"
	"github.com/vibe-labs/vibe-rewards/pkg/vibeToken"
)

// claimAttempt carries the values produced by earlier steps to later ones.
type claimAttempt struct {
	address string
	ledger  vibeToken.Ledger
	reading *airQuality.AirQualityReading
	amount  int
	txHash  string
}

// A claimStep either ends the pipeline with a result or an error, or returns
// (nil, nil) to continue.
type claimStep struct {
	name string
	run  func(rs *RewardService, ctx context.Context, attempt *claimAttempt) (*RewardResult, error)
}

// The contract is authoritative and checked before the local cache. The cache
// check still runs when the contract reports no claim.
var claimPipeline = []claimStep{
	{name: "requireConnection", run: (*RewardService).requireConnection},
	{name: "checkSender", run: (*RewardService).checkSender},
	{name: "checkContract", run: (*RewardService).checkContract},
	{name: "checkCache", run: (*RewardService).checkCache},
	{name: "fetchReading", run: (*RewardService).fetchReading},
	{name: "calculateReward", run: (*RewardService).calculateReward},
	{name: "claim", run: (*RewardService).claim},
	{name: "persist", run: (*RewardService).persist},
}

func alreadyClaimedResult(message string) *RewardResult {
	return &RewardResult{
		Success:        false,
		Amount:         0,
		AlreadyClaimed: true,
		Message:        message,
	}
}

func (rs *RewardService) requireConnection(ctx context.Context, attempt *claimAttempt) (*RewardResult, error) {
	ledger, err := rs.getLedger(ctx)
	if err != nil {
		return nil, err
	}
	attempt.ledger = ledger
	return nil, nil
}

// checkSender rejects live claims for any address but the connected wallet,
// since the claim transaction is always sent from it. Simulated claims move no
// tokens and accept any address.
func (rs *RewardService) checkSender(ctx context.Context, attempt *claimAttempt) (*RewardResult, error) {
	if attempt.ledger.IsSimulation() {
		return nil, nil
	}
	info := rs.wallet.Info()
	if info == nil {
		return nil, ErrNotConnected
	}
	if !utils.AreAddressesEqual(info.Address, attempt.address) {
		return nil, &SenderMismatchError{Address: attempt.address, Sender: info.Address}
	}
	return nil, nil
}

func (rs *RewardService) checkContract(ctx context.Context, attempt *claimAttempt) (*RewardResult, error) {
	status, err := attempt.ledger.CheckClaimStatus(ctx, attempt.address)
	if err != nil {
		return nil, err
	}
	if status.Claimed {
		return alreadyClaimedResult(fmt.Sprintf(
			"This wallet has already claimed %s %s; each wallet can claim only once!",
			status.Amount, rewardCalculator.TokenSymbol,
		)), nil
	}
	return nil, nil
}

func (rs *RewardService) checkCache(ctx context.Context, attempt *claimAttempt) (*RewardResult, error) {
	previous := rs.storage.GetRecord(attempt.address)
	if previous == nil {
		return nil, nil
	}
	return alreadyClaimedResult(fmt.Sprintf(
		"This wallet already claimed %d %s at %s; each wallet can claim only once!",
		previous.Amount, rewardCalculator.TokenSymbol, previous.Time().UTC().Format(time.RFC3339),
	)), nil
}

func (rs *RewardService) fetchReading(ctx context.Context, attempt *claimAttempt) (*RewardResult, error) {
	attempt.reading = rs.readings.FetchReading(ctx, attempt.address)
	return nil, nil
}

func (rs *RewardService) calculateReward(ctx context.Context, attempt *claimAttempt) (*RewardResult, error) {
	attempt.amount = rewardCalculator.CalculateReward(attempt.reading.Aqi)
	return nil, nil
}

func (rs *RewardService) claim(ctx context.Context, attempt *claimAttempt) (*RewardResult, error) {
	txHash, err := attempt.ledger.Claim(ctx, attempt.reading.Aqi)
	if err != nil {
		return nil, err
	}
	attempt.txHash = txHash
	return nil, nil
}

func (rs *RewardService) persist(ctx context.Context, attempt *claimAttempt) (*RewardResult, error) {
	err := rs.storage.AddRecord(&claimStorage.ClaimRecord{
		Address: attempt.address,
		Aqi:     attempt.reading.Aqi,
		Amount:  attempt.amount,
		TxHash:  attempt.txHash,
	})
	if err != nil {
		return nil, err
	}
	_ = rs.metrics.Gauge(metricsTypes.Metric_Gauge_StoredClaims, float64(rs.storage.Count()), nil)
	return nil, nil
}
