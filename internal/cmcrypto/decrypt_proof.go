package cmcrypto

import "fmt"

// DecryptShareProof is a Chaum-Pedersen equal-discrete-log proof that a
// decryption share d = x*c1 was computed with the secret key x behind the
// oracle public key y = x*G. The challenge transcript binds the request id,
// the slot position, the full ciphertext and the claimed plaintext word, so a
// valid proof cannot be replayed for a different request, slot or value.
type DecryptShareProof struct {
	// a = w*G
	A Point
	// b = w*c1
	B Point
	// s = w + e*x
	S Scalar
}

const decryptShareDomain = "cmk/v1/decrypt-share-eqdl"

// DecryptShareProofBytes is the encoded proof size: A(32) || B(32) || s(32 le).
const DecryptShareProofBytes = 96

func decryptShareChallenge(requestID uint64, slot uint8, y Point, ct ElGamalCiphertext, d Point, value uint64, a, b Point) (Scalar, error) {
	tr := NewTranscript(decryptShareDomain)
	_ = tr.AppendMessage("requestId", u64le(requestID))
	_ = tr.AppendMessage("slot", []byte{slot})
	_ = tr.AppendMessage("y", y.Bytes())
	_ = tr.AppendMessage("c1", ct.C1.Bytes())
	_ = tr.AppendMessage("c2", ct.C2.Bytes())
	_ = tr.AppendMessage("d", d.Bytes())
	_ = tr.AppendMessage("value", u64le(value))
	_ = tr.AppendMessage("a", a.Bytes())
	_ = tr.AppendMessage("b", b.Bytes())
	return tr.ChallengeScalar("e")
}

func DecryptShareProve(requestID uint64, slot uint8, y Point, ct ElGamalCiphertext, d Point, value uint64, x Scalar, w Scalar) (DecryptShareProof, error) {
	if w.IsZero() {
		return DecryptShareProof{}, fmt.Errorf("decrypt-share: w must be non-zero")
	}

	a := MulBase(w)
	b := MulPoint(ct.C1, w)

	e, err := decryptShareChallenge(requestID, slot, y, ct, d, value, a, b)
	if err != nil {
		return DecryptShareProof{}, err
	}

	s := ScalarAdd(w, ScalarMul(e, x))
	return DecryptShareProof{A: a, B: b, S: s}, nil
}

// DecryptShareVerify checks the equal-discrete-log relation and that the
// share actually opens the ciphertext to the claimed value:
//   s*G  == a + e*y
//   s*c1 == b + e*d
//   c2 - d == value*G
func DecryptShareVerify(requestID uint64, slot uint8, y Point, ct ElGamalCiphertext, d Point, value uint64, proof DecryptShareProof) (bool, error) {
	e, err := decryptShareChallenge(requestID, slot, y, ct, d, value, proof.A, proof.B)
	if err != nil {
		return false, err
	}

	lhs1 := MulBase(proof.S)
	rhs1 := PointAdd(proof.A, MulPoint(y, e))
	if !PointEq(lhs1, rhs1) {
		return false, nil
	}

	lhs2 := MulPoint(ct.C1, proof.S)
	rhs2 := PointAdd(proof.B, MulPoint(d, e))
	if !PointEq(lhs2, rhs2) {
		return false, nil
	}

	if !PointEq(PointSub(ct.C2, d), ValuePoint(value)) {
		return false, nil
	}
	return true, nil
}

func EncodeDecryptShareProof(p DecryptShareProof) []byte {
	return concatBytes(p.A.Bytes(), p.B.Bytes(), p.S.Bytes())
}

func DecodeDecryptShareProof(b []byte) (DecryptShareProof, error) {
	if len(b) != DecryptShareProofBytes {
		return DecryptShareProof{}, fmt.Errorf("decrypt-share: expected %d bytes", DecryptShareProofBytes)
	}
	a, err := PointFromBytesCanonical(b[0:32])
	if err != nil {
		return DecryptShareProof{}, err
	}
	bp, err := PointFromBytesCanonical(b[32:64])
	if err != nil {
		return DecryptShareProof{}, err
	}
	s, err := ScalarFromBytesCanonical(b[64:96])
	if err != nil {
		return DecryptShareProof{}, err
	}
	return DecryptShareProof{A: a, B: bp, S: s}, nil
}
