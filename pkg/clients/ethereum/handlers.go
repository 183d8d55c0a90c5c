package ethereum

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

type ResponseParserFunc[T any] func(res json.RawMessage) (T, error)

type RequestResponseHandler[T any] struct {
	RequestMethod  *RequestMethod
	ResponseParser ResponseParserFunc[T]
}

func parseQuotedString(res json.RawMessage) (string, error) {
	return strings.ReplaceAll(string(res), "\"", ""), nil
}

// parseNull accepts the null result wallet_* methods return on success.
func parseNull(res json.RawMessage) (bool, error) {
	return true, nil
}

func parseBool(res json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(res, &b); err != nil {
		return false, err
	}
	return b, nil
}

var (
	RPCMethod_chainId = &RequestResponseHandler[string]{
		RequestMethod: &RequestMethod{
			Name:    "eth_chainId",
			Timeout: time.Second * 5,
		},
		ResponseParser: parseQuotedString,
	}
	RPCMethod_getBalance = &RequestResponseHandler[string]{
		RequestMethod: &RequestMethod{
			Name:    "eth_getBalance",
			Timeout: time.Second * 5,
		},
		ResponseParser: parseQuotedString,
	}
	RPCMethod_getCode = &RequestResponseHandler[string]{
		RequestMethod: &RequestMethod{
			Name:    "eth_getCode",
			Timeout: time.Second * 5,
		},
		ResponseParser: parseQuotedString,
	}
	RPCMethod_switchEthereumChain = &RequestResponseHandler[bool]{
		RequestMethod: &RequestMethod{
			Name:    "wallet_switchEthereumChain",
			Timeout: time.Second * 30,
		},
		ResponseParser: parseNull,
	}
	RPCMethod_addEthereumChain = &RequestResponseHandler[bool]{
		RequestMethod: &RequestMethod{
			Name:    "wallet_addEthereumChain",
			Timeout: time.Second * 30,
		},
		ResponseParser: parseNull,
	}
	RPCMethod_watchAsset = &RequestResponseHandler[bool]{
		RequestMethod: &RequestMethod{
			Name:    "wallet_watchAsset",
			Timeout: time.Second * 30,
		},
		ResponseParser: parseBool,
	}
)

var requestTimeouts = map[string]time.Duration{
	RPCMethod_chainId.RequestMethod.Name:             RPCMethod_chainId.RequestMethod.Timeout,
	RPCMethod_getBalance.RequestMethod.Name:          RPCMethod_getBalance.RequestMethod.Timeout,
	RPCMethod_getCode.RequestMethod.Name:             RPCMethod_getCode.RequestMethod.Timeout,
	RPCMethod_switchEthereumChain.RequestMethod.Name: RPCMethod_switchEthereumChain.RequestMethod.Timeout,
	RPCMethod_addEthereumChain.RequestMethod.Name:    RPCMethod_addEthereumChain.RequestMethod.Timeout,
	RPCMethod_watchAsset.RequestMethod.Name:          RPCMethod_watchAsset.RequestMethod.Timeout,
}

func requestTimeout(method string) time.Duration {
	if t, ok := requestTimeouts[method]; ok {
		return t
	}
	return time.Second * 10
}

func GetChainIdRequest(id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_chainId.RequestMethod.Name,
		ID:      id,
	}
}

func GetBalanceRequest(address string, id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_getBalance.RequestMethod.Name,
		Params:  []interface{}{address, "latest"},
		ID:      id,
	}
}

func GetCodeRequest(address string, id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_getCode.RequestMethod.Name,
		Params:  []interface{}{address, "latest"},
		ID:      id,
	}
}

// ChainParameters is the EIP-3085 payload of wallet_addEthereumChain.
type ChainParameters struct {
	ChainId           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	RpcUrls           []string       `json:"rpcUrls"`
	BlockExplorerUrls []string       `json:"blockExplorerUrls,omitempty"`
}

type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

func SwitchEthereumChainRequest(chainId uint64, id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_switchEthereumChain.RequestMethod.Name,
		Params:  []interface{}{map[string]string{"chainId": hexutil.EncodeUint64(chainId)}},
		ID:      id,
	}
}

func AddEthereumChainRequest(params *ChainParameters, id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_addEthereumChain.RequestMethod.Name,
		Params:  []interface{}{params},
		ID:      id,
	}
}

// WatchAssetOptions is the EIP-747 token description.
type WatchAssetOptions struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
	Image    string `json:"image,omitempty"`
}

func WatchAssetRequest(opts *WatchAssetOptions, id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_watchAsset.RequestMethod.Name,
		Params: map[string]interface{}{
			"type":    "ERC20",
			"options": opts,
		},
		ID: id,
	}
}

func (c *Client) SwitchEthereumChain(ctx context.Context, chainId uint64) error {
	_, err := c.Call(ctx, SwitchEthereumChainRequest(chainId, 1))
	return err
}

func (c *Client) AddEthereumChain(ctx context.Context, params *ChainParameters) error {
	_, err := c.Call(ctx, AddEthereumChainRequest(params, 1))
	return err
}

func (c *Client) WatchAsset(ctx context.Context, opts *WatchAssetOptions) (bool, error) {
	res, err := c.Call(ctx, WatchAssetRequest(opts, 1))
	if err != nil {
		return false, err
	}
	return RPCMethod_watchAsset.ResponseParser(res.Result)
}
