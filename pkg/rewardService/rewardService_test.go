package rewardService

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vibe-labs/vibe-rewards/internal/metrics"
	"github.com/vibe-labs/vibe-rewards/pkg/airQuality"
	"github.com/vibe-labs/vibe-rewards/pkg/claimStorage"
	"github.com/vibe-labs/vibe-rewards/pkg/eventBus"
	"github.com/vibe-labs/vibe-rewards/pkg/eventBus/eventBusTypes"
	"github.com/vibe-labs/vibe-rewards/pkg/utils"
	"github.com/vibe-labs/vibe-rewards/pkg/vibeToken"
	"github.com/vibe-labs/vibe-rewards/pkg/wallet"
	"go.uber.org/zap"
)

const (
	testAddress   = "0xABC0000000000000000000000000000000000001"
	deployedToken = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
)

type fakeWallet struct {
	connected bool
	address   string
}

func (f *fakeWallet) IsConnected() bool {
	return f.connected
}

func (f *fakeWallet) Info() *wallet.WalletInfo {
	if !f.connected {
		return nil
	}
	address := f.address
	if address == "" {
		address = testAddress
	}
	return &wallet.WalletInfo{Address: address, ChainId: 10143}
}

type fakeReadings struct {
	mu    sync.Mutex
	aqi   int
	calls int
}

func (f *fakeReadings) FetchReading(ctx context.Context, address string) *airQuality.AirQualityReading {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return &airQuality.AirQualityReading{Aqi: f.aqi, Timestamp: 1700000000000, Location: airQuality.DefaultLocation}
}

type fakeLedger struct {
	mu         sync.Mutex
	status     *vibeToken.ClaimStatus
	statusErr  error
	claimErr   error
	balance    string
	balanceErr error
	info       *vibeToken.TokenInfo
	infoErr    error
	address    string

	// when set, Claim signals started and waits on release
	started chan struct{}
	release chan struct{}

	claimCalls  int
	claimedAqis []int
}

func (f *fakeLedger) Claim(ctx context.Context, aqi int) (string, error) {
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimCalls++
	f.claimedAqis = append(f.claimedAqis, aqi)
	if f.claimErr != nil {
		return "", f.claimErr
	}
	return "0x" + strings.Repeat("ab", 32), nil
}

func (f *fakeLedger) CheckClaimStatus(ctx context.Context, address string) (*vibeToken.ClaimStatus, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if f.status != nil {
		return f.status, nil
	}
	return &vibeToken.ClaimStatus{Amount: "0"}, nil
}

func (f *fakeLedger) GetBalance(ctx context.Context, address string) (string, error) {
	return f.balance, f.balanceErr
}

func (f *fakeLedger) GetTokenInfo(ctx context.Context) (*vibeToken.TokenInfo, error) {
	return f.info, f.infoErr
}

func (f *fakeLedger) GetContractAddress() string {
	return f.address
}

func (f *fakeLedger) IsSimulation() bool {
	return utils.IsNullAddress(f.address)
}

type readOnlySlot struct {
	*claimStorage.MemorySlot
}

func (s *readOnlySlot) Set(key string, value []byte) error {
	return errors.New("quota exceeded")
}

type testHarness struct {
	service  *RewardService
	wallet   *fakeWallet
	readings *fakeReadings
	ledger   *fakeLedger
	storage  *claimStorage.ClaimStorage
	events   *eventBusTypes.Consumer
}

func setup(t *testing.T, slot claimStorage.Slot) *testHarness {
	l := zap.NewNop()
	if slot == nil {
		slot = claimStorage.NewMemorySlot()
	}
	h := &testHarness{
		wallet:   &fakeWallet{connected: true},
		readings: &fakeReadings{aqi: 75},
		ledger:   &fakeLedger{address: deployedToken},
		storage:  claimStorage.NewClaimStorage(slot, l),
	}
	eb := eventBus.NewEventBus(l)
	h.events = eventBusTypes.NewConsumer(context.Background(), 100)
	eb.Subscribe(h.events)

	h.service = NewRewardService(h.wallet, h.readings, func(ctx context.Context) (vibeToken.Ledger, error) {
		return h.ledger, nil
	}, h.storage, eb, metrics.NewNoopSink(), l)
	return h
}

func (h *testHarness) nextEvent(t *testing.T) *eventBusTypes.Event {
	select {
	case e := <-h.events.Channel:
		return e
	case <-time.After(time.Second):
		t.Fatal("no event published")
		return nil
	}
}

func Test_CheckAndReward(t *testing.T) {
	ctx := context.Background()

	t.Run("Should reward a first claim and persist it", func(t *testing.T) {
		h := setup(t, nil)

		result := h.service.CheckAndReward(ctx, testAddress)
		assert.True(t, result.Success)
		assert.False(t, result.AlreadyClaimed)
		assert.Equal(t, 50, result.Amount)
		assert.Equal(t, "0x"+strings.Repeat("ab", 32), result.TxHash)
		assert.Contains(t, result.Message, "75")
		assert.Contains(t, result.Message, "Moderate")
		assert.NotContains(t, result.Message, "simulation")
		assert.Equal(t, []int{75}, h.ledger.claimedAqis)

		status := h.service.CheckClaimStatus(strings.ToLower(testAddress))
		assert.False(t, status.CanClaim)
		assert.Equal(t, 50, status.PreviousClaim.Amount)
		assert.Equal(t, 75, status.PreviousClaim.Aqi)
		assert.Equal(t, result.TxHash, status.PreviousClaim.TxHash)

		e := h.nextEvent(t)
		assert.Equal(t, eventBusTypes.Event_ClaimCompleted, e.Name)
		assert.Equal(t, strings.ToLower(testAddress), e.Data.(*eventBusTypes.ClaimEventData).Address)
	})

	t.Run("Should reject a retry without fetching or claiming again", func(t *testing.T) {
		h := setup(t, nil)

		first := h.service.CheckAndReward(ctx, testAddress)
		assert.True(t, first.Success)

		second := h.service.CheckAndReward(ctx, strings.ToLower(testAddress))
		assert.False(t, second.Success)
		assert.True(t, second.AlreadyClaimed)
		assert.Equal(t, 0, second.Amount)
		assert.Contains(t, second.Message, "50 VIBE")
		assert.Equal(t, 1, h.readings.calls)
		assert.Equal(t, 1, h.ledger.claimCalls)
	})

	t.Run("Should grant the low reward at the threshold", func(t *testing.T) {
		h := setup(t, nil)
		h.readings.aqi = 50

		result := h.service.CheckAndReward(ctx, testAddress)
		assert.True(t, result.Success)
		assert.Equal(t, 20, result.Amount)
	})

	t.Run("Should fail without a wallet connection", func(t *testing.T) {
		h := setup(t, nil)
		h.wallet.connected = false

		result := h.service.CheckAndReward(ctx, testAddress)
		assert.False(t, result.Success)
		assert.False(t, result.AlreadyClaimed)
		assert.Contains(t, result.Message, ErrNotConnected.Error())
		assert.Equal(t, 0, h.readings.calls)
		assert.Equal(t, 0, h.ledger.claimCalls)
	})

	t.Run("Should only claim live rewards for the connected wallet", func(t *testing.T) {
		h := setup(t, nil)
		other := "0x1111111111111111111111111111111111111111"

		result := h.service.CheckAndReward(ctx, other)
		assert.False(t, result.Success)
		assert.False(t, result.AlreadyClaimed)
		assert.Contains(t, result.Message, "connected wallet")
		assert.Equal(t, 0, h.readings.calls)
		assert.Equal(t, 0, h.ledger.claimCalls)
		assert.True(t, h.service.CheckClaimStatus(other).CanClaim)
		assert.Equal(t, 0, h.storage.Count())

		e := h.nextEvent(t)
		assert.Equal(t, eventBusTypes.Event_ClaimFailed, e.Name)

		// the connected wallet itself is still free to claim
		result = h.service.CheckAndReward(ctx, strings.ToLower(testAddress))
		assert.True(t, result.Success)
		assert.Equal(t, 1, h.ledger.claimCalls)
	})

	t.Run("Should trust the contract before the cache", func(t *testing.T) {
		h := setup(t, nil)
		h.ledger.status = &vibeToken.ClaimStatus{Claimed: true, Timestamp: 1700000000, Amount: "50"}

		result := h.service.CheckAndReward(ctx, testAddress)
		assert.False(t, result.Success)
		assert.True(t, result.AlreadyClaimed)
		assert.Contains(t, result.Message, "50 VIBE")
		assert.Equal(t, 0, h.readings.calls)
		assert.Equal(t, 0, h.ledger.claimCalls)
		assert.Equal(t, eventBusTypes.Event_ClaimRejected, h.nextEvent(t).Name)
	})

	t.Run("Should honour a cached claim the contract does not know about", func(t *testing.T) {
		h := setup(t, nil)
		assert.Nil(t, h.storage.AddRecord(&claimStorage.ClaimRecord{Address: testAddress, Aqi: 30, Amount: 20}))

		result := h.service.CheckAndReward(ctx, testAddress)
		assert.False(t, result.Success)
		assert.True(t, result.AlreadyClaimed)
		assert.Contains(t, result.Message, "20 VIBE")
		assert.Equal(t, 0, h.readings.calls)
		assert.Equal(t, 0, h.ledger.claimCalls)
	})

	t.Run("Should convert contract status failures into a result", func(t *testing.T) {
		h := setup(t, nil)
		h.ledger.statusErr = &vibeToken.ContractCallError{Method: vibeToken.Method_CheckClaimStatus, Err: errors.New("rpc down")}

		result := h.service.CheckAndReward(ctx, testAddress)
		assert.False(t, result.Success)
		assert.False(t, result.AlreadyClaimed)
		assert.Contains(t, result.Message, "rpc down")
		assert.Equal(t, 0, h.readings.calls)
	})

	t.Run("Should flag already claimed rejections from the claim call", func(t *testing.T) {
		h := setup(t, nil)
		h.ledger.claimErr = &vibeToken.AlreadyClaimedError{Err: errors.New("execution reverted: already claimed")}

		result := h.service.CheckAndReward(ctx, testAddress)
		assert.False(t, result.Success)
		assert.True(t, result.AlreadyClaimed)
		assert.Equal(t, 0, h.storage.Count())
	})

	t.Run("Should not persist after a failed claim call", func(t *testing.T) {
		h := setup(t, nil)
		h.ledger.claimErr = &vibeToken.ContractCallError{Method: vibeToken.Method_ClaimTokens, Err: errors.New("out of gas")}

		result := h.service.CheckAndReward(ctx, testAddress)
		assert.False(t, result.Success)
		assert.False(t, result.AlreadyClaimed)
		assert.Contains(t, result.Message, "out of gas")
		assert.Equal(t, 0, h.storage.Count())
		assert.True(t, h.service.CheckClaimStatus(testAddress).CanClaim)
		assert.Equal(t, eventBusTypes.Event_ClaimFailed, h.nextEvent(t).Name)
	})

	t.Run("Should fail when the record cannot be persisted", func(t *testing.T) {
		h := setup(t, &readOnlySlot{MemorySlot: claimStorage.NewMemorySlot()})

		result := h.service.CheckAndReward(ctx, testAddress)
		assert.False(t, result.Success)
		assert.False(t, result.AlreadyClaimed)
		assert.Contains(t, result.Message, "quota exceeded")
	})

	t.Run("Should reject a concurrent claim for the same wallet", func(t *testing.T) {
		h := setup(t, nil)
		h.ledger.started = make(chan struct{})
		h.ledger.release = make(chan struct{})

		var first *RewardResult
		done := make(chan struct{})
		go func() {
			defer close(done)
			first = h.service.CheckAndReward(ctx, testAddress)
		}()
		<-h.ledger.started

		second := h.service.CheckAndReward(ctx, strings.ToLower(testAddress))
		assert.False(t, second.Success)
		assert.False(t, second.AlreadyClaimed)
		assert.Contains(t, second.Message, "in progress")

		close(h.ledger.release)
		<-done
		assert.True(t, first.Success)
		assert.Equal(t, 1, h.ledger.claimCalls)
	})
}

func Test_CheckAndReward_Simulation(t *testing.T) {
	ctx := context.Background()
	l := zap.NewNop()

	storage := claimStorage.NewClaimStorage(claimStorage.NewMemorySlot(), l)
	readings := &fakeReadings{aqi: 120}
	simulated := vibeToken.NewSimulatedLedger(time.Millisecond, metrics.NewNoopSink(), l)
	service := NewRewardService(&fakeWallet{connected: true}, readings, func(ctx context.Context) (vibeToken.Ledger, error) {
		return simulated, nil
	}, storage, nil, metrics.NewNoopSink(), l)

	t.Run("Should reward in simulation mode and say so", func(t *testing.T) {
		result := service.CheckAndReward(ctx, testAddress)
		assert.True(t, result.Success)
		assert.Equal(t, 50, result.Amount)
		assert.Regexp(t, `^0x[0-9a-f]{64}$`, result.TxHash)
		assert.Contains(t, result.Message, "simulation mode")
		assert.True(t, service.IsSimulationMode(ctx))
	})

	t.Run("Should be idempotent even though the ledger never reports claims", func(t *testing.T) {
		result := service.CheckAndReward(ctx, testAddress)
		assert.False(t, result.Success)
		assert.True(t, result.AlreadyClaimed)
		assert.Equal(t, 1, readings.calls)
	})

	t.Run("Should accept any address when no tokens move", func(t *testing.T) {
		other := "0x1111111111111111111111111111111111111111"
		result := service.CheckAndReward(ctx, other)
		assert.True(t, result.Success)
		assert.False(t, service.CheckClaimStatus(other).CanClaim)
	})
}

func Test_RewardService_Queries(t *testing.T) {
	ctx := context.Background()

	t.Run("Should preview a reward without side effects", func(t *testing.T) {
		h := setup(t, nil)

		low := h.service.SimulateReward(&airQuality.AirQualityReading{Aqi: 50})
		assert.True(t, low.Success)
		assert.Equal(t, 20, low.Amount)
		assert.Contains(t, low.Message, "Good")

		high := h.service.SimulateReward(&airQuality.AirQualityReading{Aqi: 130})
		assert.Equal(t, 50, high.Amount)

		assert.Equal(t, 0, h.ledger.claimCalls)
		assert.Equal(t, 0, h.storage.Count())
	})

	t.Run("Should allow claims for unknown wallets", func(t *testing.T) {
		h := setup(t, nil)
		status := h.service.CheckClaimStatus(testAddress)
		assert.True(t, status.CanClaim)
		assert.Nil(t, status.PreviousClaim)
	})

	t.Run("Should fall back on balance and token info failures", func(t *testing.T) {
		h := setup(t, nil)
		h.ledger.balanceErr = errors.New("boom")
		h.ledger.infoErr = errors.New("boom")

		assert.Equal(t, "0", h.service.GetTokenBalance(ctx, testAddress))
		assert.Nil(t, h.service.GetTokenInfo(ctx))
	})

	t.Run("Should read balance and token info from the ledger", func(t *testing.T) {
		h := setup(t, nil)
		h.ledger.balance = "70"
		h.ledger.info = &vibeToken.TokenInfo{Name: "VIBE Token", Symbol: "VIBE", Decimals: 18, Balance: "70"}

		assert.Equal(t, "70", h.service.GetTokenBalance(ctx, testAddress))
		assert.Equal(t, "VIBE Token", h.service.GetTokenInfo(ctx).Name)
		assert.Equal(t, deployedToken, h.service.GetContractAddress(ctx))
		assert.False(t, h.service.IsSimulationMode(ctx))
	})

	t.Run("Should report the zero address while disconnected", func(t *testing.T) {
		h := setup(t, nil)
		h.wallet.connected = false

		assert.Equal(t, utils.NullEthereumAddressHex, h.service.GetContractAddress(ctx))
		assert.Equal(t, "0", h.service.GetTokenBalance(ctx, testAddress))
	})

	t.Run("Should surface ledger construction failures", func(t *testing.T) {
		l := zap.NewNop()
		service := NewRewardService(&fakeWallet{connected: true}, &fakeReadings{aqi: 10}, func(ctx context.Context) (vibeToken.Ledger, error) {
			return nil, errors.New("bad abi")
		}, claimStorage.NewClaimStorage(claimStorage.NewMemorySlot(), l), nil, metrics.NewNoopSink(), l)

		result := service.CheckAndReward(ctx, testAddress)
		assert.False(t, result.Success)
		assert.Contains(t, result.Message, "bad abi")
	})

	t.Run("Should count and clear records", func(t *testing.T) {
		h := setup(t, nil)
		assert.Nil(t, h.storage.AddRecord(&claimStorage.ClaimRecord{Address: "0xAA", Amount: 20}))
		assert.Nil(t, h.storage.AddRecord(&claimStorage.ClaimRecord{Address: "0xBB", Amount: 50}))
		assert.Equal(t, 2, h.service.GetTotalClaimsCount())

		assert.Nil(t, h.service.ClearUserClaimRecord("0xaA"))
		assert.Equal(t, 1, h.service.GetTotalClaimsCount())
		assert.True(t, h.service.CheckClaimStatus("0xaa").CanClaim)
		assert.False(t, h.service.CheckClaimStatus("0xbb").CanClaim)

		e := h.nextEvent(t)
		assert.Equal(t, eventBusTypes.Event_ClaimsCleared, e.Name)
		assert.Equal(t, "0xaa", e.Data.(*eventBusTypes.ClaimsClearedData).Address)

		assert.Nil(t, h.service.ClearAllClaimRecords())
		assert.Equal(t, 0, h.service.GetTotalClaimsCount())
	})

	t.Run("Should describe the reward rule", func(t *testing.T) {
		h := setup(t, nil)
		assert.Contains(t, h.service.GetRewardRule(), "50 VIBE")
	})
}
