package vibeToken

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/vibe-labs/vibe-rewards/internal/metrics"
	"github.com/vibe-labs/vibe-rewards/pkg/utils"
	"go.uber.org/zap"
)

// BoundContract is the subset of *bind.BoundContract the live ledger uses.
type BoundContract interface {
	Call(opts *bind.CallOpts, results *[]interface{}, method string, params ...interface{}) error
	Transact(opts *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error)
}

type WaitMinedFunc func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)

// LiveLedger talks to the deployed reward registry. Claims are signed by the
// configured wallet key and wait until mined.
type LiveLedger struct {
	contract  BoundContract
	address   common.Address
	transact  *bind.TransactOpts
	waitMined WaitMinedFunc
	logger    *zap.Logger
	metrics   *metrics.MetricsSink
}

func NewLiveLedger(ctx context.Context, p *LedgerParams, ms *metrics.MetricsSink, l *zap.Logger) (*LiveLedger, error) {
	if p.Signer == nil {
		return nil, errors.New("a signer is required for a deployed contract")
	}
	abiJson := VibeTokenAbi
	if len(p.Deployment.Abi) > 0 {
		abiJson = string(p.Deployment.Abi)
	}
	a, err := abi.JSON(strings.NewReader(abiJson))
	if err != nil {
		l.Sugar().Errorw("Failed to parse contract abi", zap.Error(err))
		return nil, errors.Wrap(err, "failed to parse contract abi")
	}

	caller, err := p.EthereumClient.GetEthereumContractCaller(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get contract caller")
	}

	transact, err := bind.NewKeyedTransactorWithChainID(p.Signer, new(big.Int).SetUint64(p.ChainId))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create transactor")
	}

	address := common.HexToAddress(p.Deployment.ContractAddress)
	contract := bind.NewBoundContract(address, a, caller, caller, caller)

	l.Sugar().Infow("Using deployed reward contract",
		zap.String("contractAddress", address.Hex()),
		zap.String("signer", crypto.PubkeyToAddress(p.Signer.PublicKey).Hex()),
	)

	return NewLiveLedgerWithContract(contract, address, transact, func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
		return bind.WaitMined(ctx, caller, tx)
	}, ms, l), nil
}

func NewLiveLedgerWithContract(
	contract BoundContract,
	address common.Address,
	transact *bind.TransactOpts,
	waitMined WaitMinedFunc,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *LiveLedger {
	return &LiveLedger{
		contract:  contract,
		address:   address,
		transact:  transact,
		waitMined: waitMined,
		logger:    l,
		metrics:   ms,
	}
}

func (ll *LiveLedger) call(ctx context.Context, method string, params ...interface{}) ([]interface{}, error) {
	defer observeCall(ll.metrics, method, mode_Live, time.Now())

	results := make([]interface{}, 0)
	if err := ll.contract.Call(&bind.CallOpts{Context: ctx}, &results, method, params...); err != nil {
		ll.logger.Sugar().Errorw("Contract call failed",
			zap.String("method", method),
			zap.Error(err),
		)
		return nil, wrapCallError(method, err)
	}
	return results, nil
}

func (ll *LiveLedger) Claim(ctx context.Context, aqi int) (string, error) {
	defer observeCall(ll.metrics, Method_ClaimTokens, mode_Live, time.Now())

	opts := *ll.transact
	opts.Context = ctx

	tx, err := ll.contract.Transact(&opts, Method_ClaimTokens, big.NewInt(int64(aqi)))
	if err != nil {
		ll.logger.Sugar().Errorw("Failed to submit claim", zap.Int("aqi", aqi), zap.Error(err))
		return "", wrapCallError(Method_ClaimTokens, err)
	}

	receipt, err := ll.waitMined(ctx, tx)
	if err != nil {
		return "", wrapCallError(Method_ClaimTokens, errors.Wrap(err, "failed waiting for claim transaction"))
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", wrapCallError(Method_ClaimTokens, fmt.Errorf("transaction %s reverted", tx.Hash().Hex()))
	}

	ll.logger.Sugar().Infow("Claim transaction mined",
		zap.String("txHash", tx.Hash().Hex()),
		zap.Uint64("blockNumber", receipt.BlockNumber.Uint64()),
	)
	return tx.Hash().Hex(), nil
}

func (ll *LiveLedger) CheckClaimStatus(ctx context.Context, address string) (*ClaimStatus, error) {
	results, err := ll.call(ctx, Method_CheckClaimStatus, common.HexToAddress(address))
	if err != nil {
		return nil, err
	}
	if len(results) != 3 {
		return nil, wrapCallError(Method_CheckClaimStatus, fmt.Errorf("unexpected result count %d", len(results)))
	}
	claimed, ok1 := results[0].(bool)
	timestamp, ok2 := results[1].(*big.Int)
	amount, ok3 := results[2].(*big.Int)
	if !ok1 || !ok2 || !ok3 {
		return nil, wrapCallError(Method_CheckClaimStatus, fmt.Errorf("unexpected result types %T %T %T", results[0], results[1], results[2]))
	}
	return &ClaimStatus{
		Claimed:   claimed,
		Timestamp: timestamp.Int64(),
		Amount:    utils.FormatEther(amount),
	}, nil
}

func (ll *LiveLedger) GetBalance(ctx context.Context, address string) (string, error) {
	balance, err := ll.bigIntCall(ctx, Method_BalanceOf, common.HexToAddress(address))
	if err != nil {
		return "", err
	}
	return utils.FormatEther(balance), nil
}

func (ll *LiveLedger) GetTokenInfo(ctx context.Context) (*TokenInfo, error) {
	name, err := ll.stringCall(ctx, Method_Name)
	if err != nil {
		return nil, err
	}
	symbol, err := ll.stringCall(ctx, Method_Symbol)
	if err != nil {
		return nil, err
	}
	results, err := ll.call(ctx, Method_Decimals)
	if err != nil {
		return nil, err
	}
	decimals, ok := firstResult[uint8](results)
	if !ok {
		return nil, wrapCallError(Method_Decimals, errors.New("unexpected result"))
	}
	balance, err := ll.GetBalance(ctx, ll.transact.From.Hex())
	if err != nil {
		return nil, err
	}
	return &TokenInfo{
		Name:     name,
		Symbol:   symbol,
		Decimals: int(decimals),
		Balance:  balance,
	}, nil
}

func (ll *LiveLedger) GetContractAddress() string {
	return ll.address.Hex()
}

func (ll *LiveLedger) IsSimulation() bool {
	return false
}

func (ll *LiveLedger) stringCall(ctx context.Context, method string) (string, error) {
	results, err := ll.call(ctx, method)
	if err != nil {
		return "", err
	}
	s, ok := firstResult[string](results)
	if !ok {
		return "", wrapCallError(method, errors.New("unexpected result"))
	}
	return s, nil
}

func (ll *LiveLedger) bigIntCall(ctx context.Context, method string, params ...interface{}) (*big.Int, error) {
	results, err := ll.call(ctx, method, params...)
	if err != nil {
		return nil, err
	}
	v, ok := firstResult[*big.Int](results)
	if !ok {
		return nil, wrapCallError(method, errors.New("unexpected result"))
	}
	return v, nil
}

func firstResult[T any](results []interface{}) (T, bool) {
	var zero T
	if len(results) == 0 {
		return zero, false
	}
	v, ok := results[0].(T)
	return v, ok
}
