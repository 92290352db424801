package ledger

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"
)

func TestSelectorsMatchCanonicalValues(t *testing.T) {
	// Well-known selectors pin the Keccak plumbing down.
	cases := []struct {
		sel  []byte
		want string
	}{
		{selName, "06fdde03"},
		{selSymbol, "95d89b41"},
		{selDecimals, "313ce567"},
		{selPrice, "a035b1fe"},
	}
	for _, tc := range cases {
		if got := hex.EncodeToString(tc.sel); got != tc.want {
			t.Fatalf("selector: got %s want %s", got, tc.want)
		}
	}
}

func TestPackCallLayout(t *testing.T) {
	payload := packCall(selPrice, []byte{0xAA, 0xBB})
	if len(payload) != 4+32 {
		t.Fatalf("payload length: got %d want 36", len(payload))
	}
	if !bytes.Equal(payload[:4], selPrice) {
		t.Fatal("payload must start with the selector")
	}
	// Arguments are right-aligned in their 32-byte word.
	if payload[4+29] != 0 || payload[4+30] != 0xAA || payload[4+31] != 0xBB {
		t.Fatalf("argument not right-aligned: %x", payload[4:])
	}
}

func TestWordDecoding(t *testing.T) {
	data := make([]byte, 64)
	data[31] = 7
	data[63] = 9
	first, err := word(data, 0)
	if err != nil || first.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("word 0: %s %v", first, err)
	}
	second, err := word(data, 1)
	if err != nil || second.Cmp(big.NewInt(9)) != 0 {
		t.Fatalf("word 1: %s %v", second, err)
	}
	if _, err := word(data, 2); !errors.Is(err, ErrDecode) {
		t.Fatalf("short response must be a decode error, got %v", err)
	}
}

func TestDecodeABIString(t *testing.T) {
	encoded := abiString("USD Coin")
	decoded, err := decodeABIString(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != "USD Coin" {
		t.Fatalf("decoded %q", decoded)
	}
}

func TestDecodeABIStringMalformed(t *testing.T) {
	// Truncated after the offset word.
	short := make([]byte, 32)
	short[31] = 32
	if _, err := decodeABIString(short); !errors.Is(err, ErrDecode) {
		t.Fatalf("truncated string must be a decode error, got %v", err)
	}

	// Offset pointing past the end of the payload.
	wild := make([]byte, 64)
	wild[31] = 0xFF
	if _, err := decodeABIString(wild); !errors.Is(err, ErrDecode) {
		t.Fatalf("wild offset must be a decode error, got %v", err)
	}

	// Declared length longer than the data that follows.
	lying := abiString("USDC")
	lying[63] = 200
	if _, err := decodeABIString(lying); !errors.Is(err, ErrDecode) {
		t.Fatalf("overlong length must be a decode error, got %v", err)
	}
}

func TestDecodeABIStringHostileWords(t *testing.T) {
	// Length word at the int64 maximum: adding it to the start offset wraps
	// int, so the decoder must reject it by subtraction, not addition.
	hostileLength := make([]byte, 64)
	hostileLength[31] = 32
	hostileLength[32] = 0x7F
	for i := 33; i < 64; i++ {
		hostileLength[i] = 0xFF
	}
	if _, err := decodeABIString(hostileLength); !errors.Is(err, ErrDecode) {
		t.Fatalf("int64-max length must be a decode error, got %v", err)
	}

	// Same hostile value in the offset word.
	hostileOffset := make([]byte, 64)
	hostileOffset[24] = 0x7F
	for i := 25; i < 32; i++ {
		hostileOffset[i] = 0xFF
	}
	if _, err := decodeABIString(hostileOffset); !errors.Is(err, ErrDecode) {
		t.Fatalf("int64-max offset must be a decode error, got %v", err)
	}
}
