package ethereum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/vibe-labs/vibe-rewards/internal/config"
	"go.uber.org/zap"
)

type RequestMethod struct {
	Name    string
	Timeout time.Duration
}

type RPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      uint   `json:"id"`
}

// RPCError is the error object of a JSON-RPC response. It is returned as-is by
// Call so callers can branch on Code.
type RPCError struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint           `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

var jsonRPCVersion = "2.0"

type Client struct {
	Logger       *zap.Logger
	httpClient   *http.Client
	clientConfig *EthereumClientConfig
}

type EthereumClientConfig struct {
	BaseUrl string
}

func ConvertGlobalConfigToEthereumConfig(cfg *config.ChainConfig) *EthereumClientConfig {
	return &EthereumClientConfig{
		BaseUrl: cfg.RpcUrl,
	}
}

func NewClient(cfg *EthereumClientConfig, l *zap.Logger) *Client {
	client := &http.Client{
		Timeout: time.Second * 10,
	}

	l.Sugar().Infow("Creating new Ethereum client", zap.String("baseUrl", cfg.BaseUrl))

	return &Client{
		httpClient:   client,
		Logger:       l,
		clientConfig: cfg,
	}
}

func (c *Client) SetHttpClient(client *http.Client) {
	c.httpClient = client
}

func (c *Client) BaseUrl() string {
	return c.clientConfig.BaseUrl
}

// GetEthereumContractCaller dials an ethclient over the same http.Client used for
// raw calls, so transports swapped in with SetHttpClient apply to both.
func (c *Client) GetEthereumContractCaller(ctx context.Context) (*ethclient.Client, error) {
	rc, err := rpc.DialOptions(ctx, c.clientConfig.BaseUrl, rpc.WithHTTPClient(c.httpClient))
	if err != nil {
		c.Logger.Sugar().Errorw("Failed to create new eth client", zap.Error(err))
		return nil, err
	}
	return ethclient.NewClient(rc), nil
}

func (c *Client) GetChainId(ctx context.Context) (uint64, error) {
	res, err := c.Call(ctx, GetChainIdRequest(1))
	if err != nil {
		return 0, err
	}
	chainId, err := RPCMethod_chainId.ResponseParser(res.Result)
	if err != nil {
		return 0, errors.Wrap(err, "failed to parse chain id")
	}
	return hexutil.DecodeUint64(chainId)
}

func (c *Client) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	res, err := c.Call(ctx, GetBalanceRequest(address, 1))
	if err != nil {
		return nil, err
	}
	balance, err := RPCMethod_getBalance.ResponseParser(res.Result)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse balance")
	}
	return hexutil.DecodeBig(balance)
}

func (c *Client) GetCode(ctx context.Context, address string) (string, error) {
	res, err := c.Call(ctx, GetCodeRequest(address, 1))
	if err != nil {
		return "", err
	}
	return RPCMethod_getCode.ResponseParser(res.Result)
}

// Call sends a single JSON-RPC request. An error object in the response is
// returned as *RPCError.
func (c *Client) Call(ctx context.Context, rpcRequest *RPCRequest) (*RPCResponse, error) {
	requestBody, err := json.Marshal(rpcRequest)
	if err != nil {
		return nil, err
	}
	c.Logger.Sugar().Debugw("Request body", zap.String("requestBody", string(requestBody)))

	ctx, cancel := context.WithTimeout(ctx, requestTimeout(rpcRequest.Method))
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.clientConfig.BaseUrl, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("Failed to make request %s", err)
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("Request failed %s", err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("Failed to read body %s", err)
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received http error code %+v", response.StatusCode)
	}

	destination := &RPCResponse{}
	if err := json.Unmarshal(responseBody, destination); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %s", err)
	}

	if destination.Error != nil {
		c.Logger.Sugar().Debugw("Received error response",
			zap.String("method", rpcRequest.Method),
			zap.Int64("code", destination.Error.Code),
			zap.String("message", destination.Error.Message),
		)
		return nil, destination.Error
	}

	return destination, nil
}
