package coprocessor

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var clearValuesArgs = func() abi.Arguments {
	t, err := abi.NewType("uint256[]", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{{Name: "values", Type: t}}
}()

// EncodeClearValues ABI-encodes values as a single uint256[] argument.
func EncodeClearValues(values []uint64) ([]byte, error) {
	ints := make([]*big.Int, len(values))
	for i, v := range values {
		ints[i] = new(big.Int).SetUint64(v)
	}
	b, err := clearValuesArgs.Pack(ints)
	if err != nil {
		return nil, fmt.Errorf("abi encode: %w", err)
	}
	return b, nil
}

// DecodeClearValues reverses EncodeClearValues.
func DecodeClearValues(data []byte) ([]uint64, error) {
	out, err := clearValuesArgs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("abi decode: %w", err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("abi decode: expected 1 value, got %d", len(out))
	}
	ints, ok := out[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("abi decode: unexpected type %T", out[0])
	}

	values := make([]uint64, len(ints))
	for i, n := range ints {
		if !n.IsUint64() {
			return nil, fmt.Errorf("abi decode: value %d overflows uint64", i)
		}
		values[i] = n.Uint64()
	}
	return values, nil
}
