package rpcServer

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vibe-labs/vibe-rewards/internal/metrics"
	"github.com/vibe-labs/vibe-rewards/pkg/airQuality"
	"github.com/vibe-labs/vibe-rewards/pkg/claimStorage"
	"github.com/vibe-labs/vibe-rewards/pkg/eventBus"
	"github.com/vibe-labs/vibe-rewards/pkg/eventBus/eventBusTypes"
	"github.com/vibe-labs/vibe-rewards/pkg/rewardService"
	"github.com/vibe-labs/vibe-rewards/pkg/utils"
	"github.com/vibe-labs/vibe-rewards/pkg/vibeToken"
	"github.com/vibe-labs/vibe-rewards/pkg/wallet"
	"go.uber.org/zap"
)

const (
	userAddress  = "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"
	tokenAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
)

type stubWallet struct {
	info       *wallet.WalletInfo
	connectErr error
	switchErr  error
	watched    []string
}

func (w *stubWallet) Connect(ctx context.Context) (*wallet.WalletInfo, error) {
	if w.connectErr != nil {
		return nil, w.connectErr
	}
	w.info = &wallet.WalletInfo{Address: userAddress, ChainId: 10143, Balance: "2"}
	return w.info, nil
}

func (w *stubWallet) IsConnected() bool {
	return w.info != nil
}

func (w *stubWallet) Info() *wallet.WalletInfo {
	return w.info
}

func (w *stubWallet) SwitchNetwork(ctx context.Context) error {
	return w.switchErr
}

func (w *stubWallet) WatchAsset(ctx context.Context, contractAddress string) (bool, error) {
	w.watched = append(w.watched, contractAddress)
	return true, nil
}

type stubReadings struct {
	aqi int
}

func (r *stubReadings) FetchReading(ctx context.Context, address string) *airQuality.AirQualityReading {
	return &airQuality.AirQualityReading{Aqi: r.aqi, Timestamp: 1700000000000, Location: airQuality.DefaultLocation}
}

type stubLedger struct {
	address string
}

func (l *stubLedger) Claim(ctx context.Context, aqi int) (string, error) {
	return "0x" + strings.Repeat("cd", 32), nil
}

func (l *stubLedger) CheckClaimStatus(ctx context.Context, address string) (*vibeToken.ClaimStatus, error) {
	return &vibeToken.ClaimStatus{Amount: "0"}, nil
}

func (l *stubLedger) GetBalance(ctx context.Context, address string) (string, error) {
	return "50", nil
}

func (l *stubLedger) GetTokenInfo(ctx context.Context) (*vibeToken.TokenInfo, error) {
	return &vibeToken.TokenInfo{Name: "VIBE Token", Symbol: "VIBE", Decimals: 18, Balance: "50"}, nil
}

func (l *stubLedger) GetContractAddress() string {
	return l.address
}

func (l *stubLedger) IsSimulation() bool {
	return utils.IsNullAddress(l.address)
}

type testServer struct {
	server   *httptest.Server
	wallet   *stubWallet
	storage  *claimStorage.ClaimStorage
	eventBus *eventBus.EventBus
}

func setup(t *testing.T, aqi int, contractAddress string) *testServer {
	l := zap.NewNop()
	ms := metrics.NewNoopSink()
	w := &stubWallet{}
	readings := &stubReadings{aqi: aqi}
	storage := claimStorage.NewClaimStorage(claimStorage.NewMemorySlot(), l)
	eb := eventBus.NewEventBus(l)

	ledger := &stubLedger{address: contractAddress}
	rewards := rewardService.NewRewardService(w, readings, func(ctx context.Context) (vibeToken.Ledger, error) {
		return ledger, nil
	}, storage, eb, ms, l)

	srv := httptest.NewServer(NewRpcServer(w, readings, rewards, eb, ms, l).Handler())
	t.Cleanup(srv.Close)

	return &testServer{server: srv, wallet: w, storage: storage, eventBus: eb}
}

func (ts *testServer) do(t *testing.T, method string, path string, body string) (*http.Response, map[string]any) {
	req, err := http.NewRequest(method, ts.server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()

	decoded := map[string]any{}
	if res.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(res.Body).Decode(&decoded)
	}
	return res, decoded
}

func Test_HealthHandlers(t *testing.T) {
	t.Run("Should report serving", func(t *testing.T) {
		ts := setup(t, 80, tokenAddress)
		res, body := ts.do(t, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, "SERVING", body["status"])
	})

	t.Run("Should not be ready until the wallet connects", func(t *testing.T) {
		ts := setup(t, 80, tokenAddress)
		res, _ := ts.do(t, http.MethodGet, "/ready", "")
		assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)

		res, _ = ts.do(t, http.MethodPost, "/v1/wallet/connect", "")
		assert.Equal(t, http.StatusOK, res.StatusCode)

		res, body := ts.do(t, http.MethodGet, "/ready", "")
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, true, body["ready"])
	})
}

func Test_WalletHandlers(t *testing.T) {
	t.Run("Should return wallet info on connect", func(t *testing.T) {
		ts := setup(t, 80, tokenAddress)
		res, body := ts.do(t, http.MethodPost, "/v1/wallet/connect", "")
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, userAddress, body["address"])
		assert.Equal(t, float64(10143), body["chainId"])
	})

	t.Run("Should map a missing key to 503", func(t *testing.T) {
		ts := setup(t, 80, tokenAddress)
		ts.wallet.connectErr = wallet.ErrWalletNotConfigured
		res, body := ts.do(t, http.MethodPost, "/v1/wallet/connect", "")
		assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
		assert.Equal(t, wallet.ErrWalletNotConfigured.Error(), body["error"])
	})

	t.Run("Should report a failed network switch", func(t *testing.T) {
		ts := setup(t, 80, tokenAddress)
		ts.wallet.switchErr = &wallet.NetworkSwitchError{ChainId: 10143}
		res, _ := ts.do(t, http.MethodPost, "/v1/wallet/switch-network", "")
		assert.Equal(t, http.StatusBadGateway, res.StatusCode)
	})

	t.Run("Should watch the deployed token by default", func(t *testing.T) {
		ts := setup(t, 80, tokenAddress)
		ts.do(t, http.MethodPost, "/v1/wallet/connect", "")

		res, body := ts.do(t, http.MethodPost, "/v1/wallet/watch-asset", "")
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, true, body["added"])
		assert.Equal(t, []string{tokenAddress}, ts.wallet.watched)
	})

	t.Run("Should refuse to watch an undeployed token", func(t *testing.T) {
		ts := setup(t, 80, utils.NullEthereumAddressHex)
		ts.do(t, http.MethodPost, "/v1/wallet/connect", "")

		res, _ := ts.do(t, http.MethodPost, "/v1/wallet/watch-asset", "")
		assert.Equal(t, http.StatusConflict, res.StatusCode)
		assert.Empty(t, ts.wallet.watched)
	})
}

func Test_RewardHandlers(t *testing.T) {
	t.Run("Should preview the reward for a reading", func(t *testing.T) {
		ts := setup(t, 75, tokenAddress)
		res, body := ts.do(t, http.MethodGet, "/v1/air-quality/"+userAddress, "")
		assert.Equal(t, http.StatusOK, res.StatusCode)

		reading := body["reading"].(map[string]any)
		assert.Equal(t, float64(75), reading["aqi"])
		level := body["level"].(map[string]any)
		assert.Equal(t, "Moderate", level["level"])
		preview := body["preview"].(map[string]any)
		assert.Equal(t, float64(50), preview["amount"])
	})

	t.Run("Should reject a malformed address", func(t *testing.T) {
		ts := setup(t, 75, tokenAddress)
		res, _ := ts.do(t, http.MethodGet, "/v1/rewards/status/not-an-address", "")
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("Should claim once and reject the second claim", func(t *testing.T) {
		ts := setup(t, 30, tokenAddress)
		ts.do(t, http.MethodPost, "/v1/wallet/connect", "")

		res, body := ts.do(t, http.MethodPost, "/v1/rewards/claim", `{"address":"`+userAddress+`"}`)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, float64(20), body["amount"])

		res, body = ts.do(t, http.MethodGet, "/v1/rewards/status/"+userAddress, "")
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, false, body["canClaim"])

		_, body = ts.do(t, http.MethodPost, "/v1/rewards/claim", `{"address":"`+userAddress+`"}`)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, true, body["alreadyClaimed"])
	})

	t.Run("Should claim for the connected wallet when no address is given", func(t *testing.T) {
		ts := setup(t, 90, tokenAddress)
		ts.do(t, http.MethodPost, "/v1/wallet/connect", "")

		_, body := ts.do(t, http.MethodPost, "/v1/rewards/claim", "")
		assert.Equal(t, true, body["success"])
		assert.True(t, ts.storage.HasClaimed(userAddress))
	})

	t.Run("Should refuse a live claim for another wallet", func(t *testing.T) {
		ts := setup(t, 90, tokenAddress)
		ts.do(t, http.MethodPost, "/v1/wallet/connect", "")
		other := "0x1111111111111111111111111111111111111111"

		res, body := ts.do(t, http.MethodPost, "/v1/rewards/claim", `{"address":"`+other+`"}`)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, false, body["alreadyClaimed"])
		assert.Contains(t, body["message"], "connected wallet")
		assert.False(t, ts.storage.HasClaimed(other))
		assert.False(t, ts.storage.HasClaimed(userAddress))
	})

	t.Run("Should report a failed claim when disconnected", func(t *testing.T) {
		ts := setup(t, 90, tokenAddress)
		res, body := ts.do(t, http.MethodPost, "/v1/rewards/claim", `{"address":"`+userAddress+`"}`)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, false, body["success"])
		assert.Contains(t, body["message"], "wallet is not connected")
	})

	t.Run("Should serve the rule, token and contract", func(t *testing.T) {
		ts := setup(t, 90, tokenAddress)
		ts.do(t, http.MethodPost, "/v1/wallet/connect", "")

		_, body := ts.do(t, http.MethodGet, "/v1/rewards/rule", "")
		assert.Contains(t, body["rule"], "50 VIBE")

		_, body = ts.do(t, http.MethodGet, "/v1/token/info", "")
		assert.Equal(t, "VIBE", body["symbol"])

		_, body = ts.do(t, http.MethodGet, "/v1/token/balance/"+userAddress, "")
		assert.Equal(t, "50", body["balance"])

		_, body = ts.do(t, http.MethodGet, "/v1/contract", "")
		assert.Equal(t, tokenAddress, body["contractAddress"])
		assert.Equal(t, false, body["simulationMode"])
	})

	t.Run("Should answer 503 for token info without a wallet", func(t *testing.T) {
		ts := setup(t, 90, tokenAddress)
		res, _ := ts.do(t, http.MethodGet, "/v1/token/info", "")
		assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)

		_, body := ts.do(t, http.MethodGet, "/v1/token/balance/"+userAddress, "")
		assert.Equal(t, "0", body["balance"])
	})
}

func Test_ClaimsHandlers(t *testing.T) {
	t.Run("Should count and clear claims", func(t *testing.T) {
		ts := setup(t, 90, tokenAddress)
		other := "0x0000000000000000000000000000000000000abc"
		assert.Nil(t, ts.storage.AddRecord(&claimStorage.ClaimRecord{Address: userAddress, Aqi: 90, Amount: 50}))
		assert.Nil(t, ts.storage.AddRecord(&claimStorage.ClaimRecord{Address: other, Aqi: 10, Amount: 20}))

		_, body := ts.do(t, http.MethodGet, "/v1/claims/count", "")
		assert.Equal(t, float64(2), body["count"])

		res, _ := ts.do(t, http.MethodDelete, "/v1/claims/"+userAddress, "")
		assert.Equal(t, http.StatusNoContent, res.StatusCode)
		assert.False(t, ts.storage.HasClaimed(userAddress))
		assert.True(t, ts.storage.HasClaimed(other))

		res, _ = ts.do(t, http.MethodDelete, "/v1/claims", "")
		assert.Equal(t, http.StatusNoContent, res.StatusCode)
		assert.Equal(t, 0, ts.storage.Count())
	})

	t.Run("Should reject unsupported methods", func(t *testing.T) {
		ts := setup(t, 90, tokenAddress)
		res, _ := ts.do(t, http.MethodPut, "/v1/claims", "")
		assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
	})
}

func Test_EventStream(t *testing.T) {
	t.Run("Should stream published events", func(t *testing.T) {
		ts := setup(t, 90, tokenAddress)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.server.URL+"/v1/events", nil)
		if err != nil {
			t.Fatal(err)
		}
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		defer res.Body.Close()
		assert.Equal(t, "application/x-ndjson", res.Header.Get("Content-Type"))

		// headers are flushed after subscribing
		assert.Eventually(t, func() bool {
			return ts.eventBus.ConsumerCount() == 1
		}, time.Second, 10*time.Millisecond)

		ts.eventBus.Publish(&eventBusTypes.Event{
			Name: eventBusTypes.Event_ClaimsCleared,
			Data: &eventBusTypes.ClaimsClearedData{Address: userAddress},
		})

		line, err := bufio.NewReader(res.Body).ReadString('\n')
		assert.Nil(t, err)

		event := map[string]any{}
		assert.Nil(t, json.Unmarshal([]byte(line), &event))
		assert.Equal(t, eventBusTypes.Event_ClaimsCleared, event["name"])
	})
}
