package cmcrypto

import "fmt"

// A fulfillment proof bundles one decryption share + proof per slot, in the
// same fixed order as the state commitment. Per slot the encoding is:
//
//   presence(1) || [ d(32) || proof(96) when present ]
//
// Presence tags must mirror the handle set the verifier re-reads from state;
// an absent slot carries no share and must be claimed to decrypt to zero.

const slotOpeningBytes = 1 + PointBytes + DecryptShareProofBytes

// ProveFulfillment decrypts each present handle with x and produces the
// encoded proof bundle for a request. values must already hold the claimed
// plaintext for each slot (zero for absent slots).
func ProveFulfillment(requestID uint64, y Point, x Scalar, handles [][]byte, values []uint64) ([]byte, error) {
	if len(handles) != len(values) {
		return nil, fmt.Errorf("fulfillment: %d handles vs %d values", len(handles), len(values))
	}
	out := make([]byte, 0, len(handles)*slotOpeningBytes)
	for i, hd := range handles {
		if hd == nil {
			if values[i] != 0 {
				return nil, fmt.Errorf("fulfillment: slot %d unset but value non-zero", i)
			}
			out = append(out, 0)
			continue
		}
		ct, err := DecodeHandle(hd)
		if err != nil {
			return nil, fmt.Errorf("fulfillment slot %d: %w", i, err)
		}
		d := MulPoint(ct.C1, x)
		w, err := RandomScalar()
		if err != nil {
			return nil, err
		}
		proof, err := DecryptShareProve(requestID, uint8(i), y, ct, d, values[i], x, w)
		if err != nil {
			return nil, fmt.Errorf("fulfillment slot %d: %w", i, err)
		}
		out = append(out, 1)
		out = append(out, d.Bytes()...)
		out = append(out, EncodeDecryptShareProof(proof)...)
	}
	return out, nil
}

// VerifyFulfillment checks an encoded proof bundle against the request id,
// the oracle public key, the slot handles as they currently stand, and the
// claimed plaintext values. Any structural or cryptographic defect fails the
// whole bundle.
func VerifyFulfillment(requestID uint64, y Point, handles [][]byte, values []uint64, proofBytes []byte) error {
	if len(handles) != len(values) {
		return fmt.Errorf("fulfillment: %d handles vs %d values", len(handles), len(values))
	}
	off := 0
	for i, hd := range handles {
		if off >= len(proofBytes) {
			return fmt.Errorf("fulfillment: truncated at slot %d", i)
		}
		present := proofBytes[off]
		off++
		switch present {
		case 0:
			if hd != nil {
				return fmt.Errorf("fulfillment: slot %d has a handle but no share", i)
			}
			if values[i] != 0 {
				return fmt.Errorf("fulfillment: unset slot %d claims value %d", i, values[i])
			}
		case 1:
			if hd == nil {
				return fmt.Errorf("fulfillment: share supplied for unset slot %d", i)
			}
			if off+PointBytes+DecryptShareProofBytes > len(proofBytes) {
				return fmt.Errorf("fulfillment: truncated share at slot %d", i)
			}
			ct, err := DecodeHandle(hd)
			if err != nil {
				return fmt.Errorf("fulfillment slot %d: %w", i, err)
			}
			d, err := PointFromBytesCanonical(proofBytes[off : off+PointBytes])
			if err != nil {
				return fmt.Errorf("fulfillment slot %d share: %w", i, err)
			}
			off += PointBytes
			proof, err := DecodeDecryptShareProof(proofBytes[off : off+DecryptShareProofBytes])
			if err != nil {
				return fmt.Errorf("fulfillment slot %d proof: %w", i, err)
			}
			off += DecryptShareProofBytes
			ok, err := DecryptShareVerify(requestID, uint8(i), y, ct, d, values[i], proof)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("fulfillment: slot %d proof does not verify", i)
			}
		default:
			return fmt.Errorf("fulfillment: bad presence tag %d at slot %d", present, i)
		}
	}
	if off != len(proofBytes) {
		return fmt.Errorf("fulfillment: %d trailing bytes", len(proofBytes)-off)
	}
	return nil
}
