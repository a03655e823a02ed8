package cmcrypto

import (
	"fmt"

	"github.com/holiman/uint256"
)

// CleartextWordBytes is the width of one plaintext field in an oracle
// cleartext buffer: a 32-byte big-endian unsigned integer.
const CleartextWordBytes = 32

// EncodeCleartextWords lays values out as consecutive 32-byte big-endian
// words, the format the oracle returns on fulfillment.
func EncodeCleartextWords(values []uint64) []byte {
	out := make([]byte, len(values)*CleartextWordBytes)
	for i, v := range values {
		b32 := uint256.NewInt(v).Bytes32()
		copy(out[i*CleartextWordBytes:], b32[:])
	}
	return out
}

// DecodeCleartextWords reads n consecutive 32-byte big-endian words from the
// front of buf. Trailing bytes beyond n words are ignored; each word must fit
// a uint64 since all market values are 64-bit on chain.
func DecodeCleartextWords(buf []byte, n int) ([]uint64, error) {
	need := n * CleartextWordBytes
	if len(buf) < need {
		return nil, fmt.Errorf("cleartext: expected at least %d bytes, got %d", need, len(buf))
	}
	out := make([]uint64, n)
	for i := 0; i < n; i++ {
		word := new(uint256.Int).SetBytes(buf[i*CleartextWordBytes : (i+1)*CleartextWordBytes])
		if !word.IsUint64() {
			return nil, fmt.Errorf("cleartext: word %d overflows uint64", i)
		}
		out[i] = word.Uint64()
	}
	return out, nil
}
