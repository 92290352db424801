package ledger

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"lendrisk/risk"
)

// ContractCaller is the read-only subset of an Ethereum RPC client used by
// the managed path. *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

const ledgerABIJSON = `[
	{"type":"function","name":"idToMarketParams","stateMutability":"view",
	 "inputs":[{"name":"id","type":"bytes32"}],
	 "outputs":[{"name":"loanToken","type":"address"},{"name":"collateralToken","type":"address"},{"name":"oracle","type":"address"},{"name":"irm","type":"address"},{"name":"lltv","type":"uint256"}]},
	{"type":"function","name":"market","stateMutability":"view",
	 "inputs":[{"name":"id","type":"bytes32"}],
	 "outputs":[{"name":"totalSupplyAssets","type":"uint128"},{"name":"totalSupplyShares","type":"uint128"},{"name":"totalBorrowAssets","type":"uint128"},{"name":"totalBorrowShares","type":"uint128"},{"name":"lastUpdate","type":"uint128"},{"name":"fee","type":"uint128"}]},
	{"type":"function","name":"position","stateMutability":"view",
	 "inputs":[{"name":"id","type":"bytes32"},{"name":"user","type":"address"}],
	 "outputs":[{"name":"supplyShares","type":"uint256"},{"name":"borrowShares","type":"uint128"},{"name":"collateral","type":"uint128"}]}
]`

const oracleABIJSON = `[
	{"type":"function","name":"price","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"lastUpdate","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

const erc20ABIJSON = `[
	{"type":"function","name":"name","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"uint8"}]}
]`

var (
	ledgerABI = mustABI(ledgerABIJSON)
	oracleABI = mustABI(oracleABIJSON)
	erc20ABI  = mustABI(erc20ABIJSON)
)

func mustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("invalid ABI definition: " + err.Error())
	}
	return parsed
}

// ContractReader is the primary read path: ABI-packed calls through a
// managed client.
type ContractReader struct {
	caller ContractCaller
	ledger common.Address
}

// NewContractReader targets the lending contract at the given address.
func NewContractReader(caller ContractCaller, ledger common.Address) *ContractReader {
	return &ContractReader{caller: caller, ledger: ledger}
}

func (r *ContractReader) call(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	input, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	output, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", ErrDecode, err)
	}
	return values, nil
}

// Params implements Reader.
func (r *ContractReader) Params(ctx context.Context, market risk.MarketID) (risk.MarketParams, error) {
	values, err := r.call(ctx, r.ledger, ledgerABI, "idToMarketParams", [32]byte(market))
	if err != nil {
		return risk.MarketParams{}, err
	}
	if len(values) != 5 {
		return risk.MarketParams{}, fmt.Errorf("%w: idToMarketParams returned %d values", ErrDecode, len(values))
	}
	params := risk.MarketParams{ID: market}
	var ok bool
	if params.LoanToken, ok = values[0].(common.Address); !ok {
		return risk.MarketParams{}, fmt.Errorf("%w: loan token", ErrDecode)
	}
	if params.CollateralToken, ok = values[1].(common.Address); !ok {
		return risk.MarketParams{}, fmt.Errorf("%w: collateral token", ErrDecode)
	}
	if params.Oracle, ok = values[2].(common.Address); !ok {
		return risk.MarketParams{}, fmt.Errorf("%w: oracle", ErrDecode)
	}
	if params.IRM, ok = values[3].(common.Address); !ok {
		return risk.MarketParams{}, fmt.Errorf("%w: irm", ErrDecode)
	}
	if params.LLTV, ok = values[4].(*big.Int); !ok {
		return risk.MarketParams{}, fmt.Errorf("%w: lltv", ErrDecode)
	}
	return params, nil
}

// MarketState implements Reader.
func (r *ContractReader) MarketState(ctx context.Context, market risk.MarketID) (risk.MarketState, error) {
	values, err := r.call(ctx, r.ledger, ledgerABI, "market", [32]byte(market))
	if err != nil {
		return risk.MarketState{}, err
	}
	if len(values) != 6 {
		return risk.MarketState{}, fmt.Errorf("%w: market returned %d values", ErrDecode, len(values))
	}
	ints := make([]*big.Int, 6)
	for i, v := range values {
		n, ok := v.(*big.Int)
		if !ok {
			return risk.MarketState{}, fmt.Errorf("%w: market word %d", ErrDecode, i)
		}
		ints[i] = n
	}
	return risk.MarketState{
		TotalSupplyAssets: ints[0],
		TotalSupplyShares: ints[1],
		TotalBorrowAssets: ints[2],
		TotalBorrowShares: ints[3],
		LastUpdate:        ints[4].Uint64(),
		Fee:               ints[5],
	}, nil
}

// Position implements Reader.
func (r *ContractReader) Position(ctx context.Context, market risk.MarketID, account common.Address) (risk.Position, error) {
	values, err := r.call(ctx, r.ledger, ledgerABI, "position", [32]byte(market), account)
	if err != nil {
		return risk.Position{}, err
	}
	if len(values) != 3 {
		return risk.Position{}, fmt.Errorf("%w: position returned %d values", ErrDecode, len(values))
	}
	ints := make([]*big.Int, 3)
	for i, v := range values {
		n, ok := v.(*big.Int)
		if !ok {
			return risk.Position{}, fmt.Errorf("%w: position word %d", ErrDecode, i)
		}
		ints[i] = n
	}
	return risk.Position{
		SupplyShares: ints[0],
		BorrowShares: ints[1],
		Collateral:   ints[2],
	}, nil
}

// Price implements Reader. Feeds that do not expose lastUpdate leave
// UpdatedAt zero; the snapshot service substitutes the pool accrual time.
func (r *ContractReader) Price(ctx context.Context, oracle common.Address) (risk.OraclePrice, error) {
	values, err := r.call(ctx, oracle, oracleABI, "price")
	if err != nil {
		return risk.OraclePrice{}, err
	}
	if len(values) != 1 {
		return risk.OraclePrice{}, fmt.Errorf("%w: price returned %d values", ErrDecode, len(values))
	}
	price, ok := values[0].(*big.Int)
	if !ok {
		return risk.OraclePrice{}, fmt.Errorf("%w: price word", ErrDecode)
	}
	reading := risk.OraclePrice{Price: price}
	if updated, err := r.call(ctx, oracle, oracleABI, "lastUpdate"); err == nil && len(updated) == 1 {
		if ts, ok := updated[0].(*big.Int); ok && ts.IsInt64() && ts.Sign() > 0 {
			reading.UpdatedAt = time.Unix(ts.Int64(), 0)
		}
	}
	return reading, nil
}

// TokenMetadata implements Reader.
func (r *ContractReader) TokenMetadata(ctx context.Context, token common.Address) (TokenMetadata, error) {
	meta := TokenMetadata{}
	nameValues, err := r.call(ctx, token, erc20ABI, "name")
	if err != nil {
		return meta, err
	}
	if len(nameValues) == 1 {
		meta.Name, _ = nameValues[0].(string)
	}
	symbolValues, err := r.call(ctx, token, erc20ABI, "symbol")
	if err != nil {
		return meta, err
	}
	if len(symbolValues) == 1 {
		meta.Symbol, _ = symbolValues[0].(string)
	}
	decimalsValues, err := r.call(ctx, token, erc20ABI, "decimals")
	if err != nil {
		return meta, err
	}
	if len(decimalsValues) == 1 {
		decimals, ok := decimalsValues[0].(uint8)
		if !ok {
			return meta, fmt.Errorf("%w: decimals word", ErrDecode)
		}
		meta.Decimals = decimals
	}
	return meta, nil
}
