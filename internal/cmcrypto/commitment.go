package cmcrypto

import (
	"crypto/sha256"
	"hash"
)

const stateCommitDomain = "cmk/v1/state-commit"

func updateLenBytes(h hash.Hash, b []byte) {
	h.Write(u32le(uint32(len(b))))
	h.Write(b)
}

// StateCommitment fingerprints an ordered slot set together with the chain
// instance identity. Each entry is either nil (slot unset) or an opaque
// handle; presence is tagged explicitly so an unset slot can never collide
// with an empty handle. Binding the instance id prevents a proof captured on
// one chain from being replayed against another.
func StateCommitment(instanceID string, handles [][]byte) []byte {
	h := sha256.New()
	updateLenBytes(h, []byte(stateCommitDomain))
	updateLenBytes(h, []byte(instanceID))
	h.Write(u32le(uint32(len(handles))))
	for _, hd := range handles {
		if hd == nil {
			h.Write([]byte{0})
			continue
		}
		h.Write([]byte{1})
		updateLenBytes(h, hd)
	}
	return h.Sum(nil)
}
