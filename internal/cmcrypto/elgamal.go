package cmcrypto

import "fmt"

// HandleBytes is the size of an encoded ciphertext handle: c1(32) || c2(32).
const HandleBytes = 64

type ElGamalCiphertext struct {
	C1 Point
	C2 Point
}

// ElGamal in additive notation:
//   PK = Y = x*G
//   Enc(Y, M; r) = (r*G, M + r*Y)
func ElGamalEncrypt(pk Point, m Point, r Scalar) (ElGamalCiphertext, error) {
	if r.IsZero() {
		// Zero randomness is valid mathematically but leaks the plaintext.
		return ElGamalCiphertext{}, fmt.Errorf("elgamal: r must be non-zero")
	}
	c1 := MulBase(r)
	c2 := PointAdd(m, MulPoint(pk, r))
	return ElGamalCiphertext{C1: c1, C2: c2}, nil
}

// Dec(x, (c1,c2)) = c2 - x*c1
func ElGamalDecrypt(sk Scalar, ct ElGamalCiphertext) Point {
	return PointSub(ct.C2, MulPoint(ct.C1, sk))
}

// ValuePoint maps a plaintext market value to its group embedding v*G.
// The zero value maps to the identity, which is fine: a verifier always
// receives the claimed v alongside, so no discrete log is ever taken.
func ValuePoint(v uint64) Point {
	return MulBase(ScalarFromUint64(v))
}

// EncodeHandle renders a ciphertext as the opaque 64-byte handle stored in
// batch slots: c1 || c2, both canonical.
func EncodeHandle(ct ElGamalCiphertext) []byte {
	return concatBytes(ct.C1.Bytes(), ct.C2.Bytes())
}

func DecodeHandle(b []byte) (ElGamalCiphertext, error) {
	if len(b) != HandleBytes {
		return ElGamalCiphertext{}, fmt.Errorf("handle: expected %d bytes, got %d", HandleBytes, len(b))
	}
	c1, err := PointFromBytesCanonical(b[0:32])
	if err != nil {
		return ElGamalCiphertext{}, fmt.Errorf("handle c1: %w", err)
	}
	c2, err := PointFromBytesCanonical(b[32:64])
	if err != nil {
		return ElGamalCiphertext{}, fmt.Errorf("handle c2: %w", err)
	}
	return ElGamalCiphertext{C1: c1, C2: c2}, nil
}
