package ledger

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"lendrisk/risk"
)

// RawCaller is the JSON-RPC subset the fallback path needs. *rpc.Client
// satisfies it, so the fallback can point at any bare node endpoint.
type RawCaller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

const wordSize = 32

// Function selectors, precomputed from the canonical signatures.
var (
	selMarketParams = selector("idToMarketParams(bytes32)")
	selMarket       = selector("market(bytes32)")
	selPosition     = selector("position(bytes32,address)")
	selPrice        = selector("price()")
	selLastUpdate   = selector("lastUpdate()")
	selName         = selector("name()")
	selSymbol       = selector("symbol()")
	selDecimals     = selector("decimals()")
)

func selector(signature string) []byte {
	return gethcrypto.Keccak256([]byte(signature))[:4]
}

// RawCallReader is the fallback read path: hand-packed eth_call payloads and
// manual fixed-width word decoding. It must land on exactly the same values
// as ContractReader for identical ledger state.
type RawCallReader struct {
	caller RawCaller
	ledger common.Address
}

// NewRawCallReader targets the lending contract at the given address.
func NewRawCallReader(caller RawCaller, ledger common.Address) *RawCallReader {
	return &RawCallReader{caller: caller, ledger: ledger}
}

func (r *RawCallReader) ethCall(ctx context.Context, to common.Address, input []byte) ([]byte, error) {
	var result hexutil.Bytes
	args := map[string]interface{}{
		"to":    to,
		"input": hexutil.Bytes(input),
	}
	if err := r.caller.CallContext(ctx, &result, "eth_call", args, "latest"); err != nil {
		return nil, fmt.Errorf("eth_call: %w", err)
	}
	return result, nil
}

// packCall assembles selector || 32-byte-padded arguments.
func packCall(sel []byte, words ...[]byte) []byte {
	payload := make([]byte, 0, len(sel)+len(words)*wordSize)
	payload = append(payload, sel...)
	for _, word := range words {
		padded := make([]byte, wordSize)
		copy(padded[wordSize-len(word):], word)
		payload = append(payload, padded...)
	}
	return payload
}

// word extracts the i-th 32-byte return word as an unsigned integer.
func word(data []byte, i int) (*big.Int, error) {
	end := (i + 1) * wordSize
	if len(data) < end {
		return nil, fmt.Errorf("%w: want %d bytes, have %d", ErrDecode, end, len(data))
	}
	return new(uint256.Int).SetBytes(data[i*wordSize : end]).ToBig(), nil
}

// wordAddress extracts the i-th return word as a right-aligned address.
func wordAddress(data []byte, i int) (common.Address, error) {
	end := (i + 1) * wordSize
	if len(data) < end {
		return common.Address{}, fmt.Errorf("%w: want %d bytes, have %d", ErrDecode, end, len(data))
	}
	return common.BytesToAddress(data[i*wordSize : end]), nil
}

// decodeABIString decodes a standard ABI-encoded string return value:
// a 32-byte offset word, a 32-byte length word at that offset, then the
// null-padded bytes.
func decodeABIString(data []byte) (string, error) {
	offsetWord, err := word(data, 0)
	if err != nil {
		return "", err
	}
	if !offsetWord.IsInt64() {
		return "", fmt.Errorf("%w: string offset out of range", ErrDecode)
	}
	// Bounds checks subtract from len(data) instead of adding to the decoded
	// words: a hostile node can return words near the int64 maximum, and an
	// addition there wraps around the check.
	offset := int(offsetWord.Int64())
	if offset < 0 || offset > len(data)-wordSize {
		return "", fmt.Errorf("%w: string offset %d beyond %d bytes", ErrDecode, offset, len(data))
	}
	lengthWord := new(uint256.Int).SetBytes(data[offset : offset+wordSize]).ToBig()
	if !lengthWord.IsInt64() {
		return "", fmt.Errorf("%w: string length out of range", ErrDecode)
	}
	length := int(lengthWord.Int64())
	start := offset + wordSize
	if length < 0 || length > len(data)-start {
		return "", fmt.Errorf("%w: string of %d bytes beyond %d", ErrDecode, length, len(data))
	}
	return string(data[start : start+length]), nil
}

// Params implements Reader.
func (r *RawCallReader) Params(ctx context.Context, market risk.MarketID) (risk.MarketParams, error) {
	data, err := r.ethCall(ctx, r.ledger, packCall(selMarketParams, market.Bytes()))
	if err != nil {
		return risk.MarketParams{}, err
	}
	params := risk.MarketParams{ID: market}
	if params.LoanToken, err = wordAddress(data, 0); err != nil {
		return risk.MarketParams{}, err
	}
	if params.CollateralToken, err = wordAddress(data, 1); err != nil {
		return risk.MarketParams{}, err
	}
	if params.Oracle, err = wordAddress(data, 2); err != nil {
		return risk.MarketParams{}, err
	}
	if params.IRM, err = wordAddress(data, 3); err != nil {
		return risk.MarketParams{}, err
	}
	if params.LLTV, err = word(data, 4); err != nil {
		return risk.MarketParams{}, err
	}
	return params, nil
}

// MarketState implements Reader.
func (r *RawCallReader) MarketState(ctx context.Context, market risk.MarketID) (risk.MarketState, error) {
	data, err := r.ethCall(ctx, r.ledger, packCall(selMarket, market.Bytes()))
	if err != nil {
		return risk.MarketState{}, err
	}
	words := make([]*big.Int, 6)
	for i := range words {
		if words[i], err = word(data, i); err != nil {
			return risk.MarketState{}, err
		}
	}
	return risk.MarketState{
		TotalSupplyAssets: words[0],
		TotalSupplyShares: words[1],
		TotalBorrowAssets: words[2],
		TotalBorrowShares: words[3],
		LastUpdate:        words[4].Uint64(),
		Fee:               words[5],
	}, nil
}

// Position implements Reader.
func (r *RawCallReader) Position(ctx context.Context, market risk.MarketID, account common.Address) (risk.Position, error) {
	data, err := r.ethCall(ctx, r.ledger, packCall(selPosition, market.Bytes(), account.Bytes()))
	if err != nil {
		return risk.Position{}, err
	}
	words := make([]*big.Int, 3)
	for i := range words {
		if words[i], err = word(data, i); err != nil {
			return risk.Position{}, err
		}
	}
	return risk.Position{
		SupplyShares: words[0],
		BorrowShares: words[1],
		Collateral:   words[2],
	}, nil
}

// Price implements Reader.
func (r *RawCallReader) Price(ctx context.Context, oracle common.Address) (risk.OraclePrice, error) {
	data, err := r.ethCall(ctx, oracle, packCall(selPrice))
	if err != nil {
		return risk.OraclePrice{}, err
	}
	price, err := word(data, 0)
	if err != nil {
		return risk.OraclePrice{}, err
	}
	reading := risk.OraclePrice{Price: price}
	if tsData, err := r.ethCall(ctx, oracle, packCall(selLastUpdate)); err == nil {
		if ts, err := word(tsData, 0); err == nil && ts.IsInt64() && ts.Sign() > 0 {
			reading.UpdatedAt = time.Unix(ts.Int64(), 0)
		}
	}
	return reading, nil
}

// TokenMetadata implements Reader.
func (r *RawCallReader) TokenMetadata(ctx context.Context, token common.Address) (TokenMetadata, error) {
	meta := TokenMetadata{}
	nameData, err := r.ethCall(ctx, token, packCall(selName))
	if err != nil {
		return meta, err
	}
	if meta.Name, err = decodeABIString(nameData); err != nil {
		return meta, err
	}
	symbolData, err := r.ethCall(ctx, token, packCall(selSymbol))
	if err != nil {
		return meta, err
	}
	if meta.Symbol, err = decodeABIString(symbolData); err != nil {
		return meta, err
	}
	decimalsData, err := r.ethCall(ctx, token, packCall(selDecimals))
	if err != nil {
		return meta, err
	}
	decimals, err := word(decimalsData, 0)
	if err != nil {
		return meta, err
	}
	if !decimals.IsUint64() || decimals.Uint64() > 255 {
		return meta, fmt.Errorf("%w: decimals %s out of range", ErrDecode, decimals)
	}
	meta.Decimals = uint8(decimals.Uint64())
	return meta, nil
}
