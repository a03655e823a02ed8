// Package oracle is the in-process stand-in for the external confidential
// decryption service. It holds the ElGamal secret key, encrypts values for
// clients, and answers decryption requests with a provable fulfillment.
//
// Exponential ElGamal only ever yields v*G on decryption, so the service
// keeps a handle -> plaintext ledger for every ciphertext it mints instead
// of solving discrete logs. Handles it did not mint cannot be fulfilled.
package oracle

import (
	"encoding/hex"
	"fmt"
	"sync"

	"cosmossdk.io/log"

	"ciphermarket/internal/cmcrypto"
	"ciphermarket/internal/state"
)

type Service struct {
	logger log.Logger

	mu      sync.Mutex
	sk      cmcrypto.Scalar
	pk      cmcrypto.Point
	nextID  uint64
	values  map[string]uint64   // hex(handle) -> plaintext
	pending map[uint64][][]byte // requestID -> handle snapshot
}

func NewService(logger log.Logger) (*Service, error) {
	sk, err := cmcrypto.RandomScalar()
	if err != nil {
		return nil, err
	}
	return NewServiceWithKey(logger, sk)
}

// NewServiceWithKey runs the service on a fixed secret key. Deterministic
// keys are for tests and restarts; production keys come from RandomScalar.
func NewServiceWithKey(logger log.Logger, sk cmcrypto.Scalar) (*Service, error) {
	if sk.IsZero() {
		return nil, fmt.Errorf("oracle: zero secret key")
	}
	return &Service{
		logger:  logger,
		sk:      sk,
		pk:      cmcrypto.MulBase(sk),
		nextID:  1,
		values:  map[string]uint64{},
		pending: map[uint64][][]byte{},
	}, nil
}

// PubKey is the 32-byte ristretto encoding of the service public key, the
// value the chain verifies fulfillment proofs against.
func (s *Service) PubKey() []byte {
	return s.pk.Bytes()
}

// EncryptUint64 mints a fresh 64-byte ciphertext handle for v and records
// the plaintext so a later decryption request over it can be answered.
func (s *Service) EncryptUint64(v uint64) ([]byte, error) {
	r, err := cmcrypto.RandomScalar()
	if err != nil {
		return nil, err
	}
	ct, err := cmcrypto.ElGamalEncrypt(s.pk, cmcrypto.ValuePoint(v), r)
	if err != nil {
		return nil, err
	}
	hd := cmcrypto.EncodeHandle(ct)

	s.mu.Lock()
	s.values[hex.EncodeToString(hd)] = v
	s.mu.Unlock()
	return hd, nil
}

// Request implements the chain's oracle gateway: it snapshots the handles
// and issues a fresh, strictly increasing request id.
func (s *Service) Request(handles [][]byte) (uint64, error) {
	if len(handles) != state.NumSlots {
		return 0, fmt.Errorf("oracle: want %d slots, got %d", state.NumSlots, len(handles))
	}
	snap := make([][]byte, len(handles))
	for i, hd := range handles {
		if hd == nil {
			continue
		}
		if len(hd) != cmcrypto.HandleBytes {
			return 0, fmt.Errorf("oracle: slot %d handle is %d bytes", i, len(hd))
		}
		snap[i] = append([]byte(nil), hd...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.pending[id] = snap
	s.logger.Info("decryption request accepted", "requestId", id)
	return id, nil
}

// Fulfill answers a pending request: a 4-word cleartext buffer in slot order
// plus the encoded decryption-share proof bundle. Unset slots decrypt to 0.
// The request stays answerable; replay suppression is the chain's job.
func (s *Service) Fulfill(requestID uint64) (cleartexts []byte, proof []byte, err error) {
	s.mu.Lock()
	handles, ok := s.pending[requestID]
	if !ok {
		s.mu.Unlock()
		return nil, nil, fmt.Errorf("oracle: unknown request %d", requestID)
	}
	values := make([]uint64, len(handles))
	for i, hd := range handles {
		if hd == nil {
			continue
		}
		v, known := s.values[hex.EncodeToString(hd)]
		if !known {
			s.mu.Unlock()
			return nil, nil, fmt.Errorf("oracle: slot %d handle was not minted here", i)
		}
		values[i] = v
	}
	s.mu.Unlock()

	proof, err = cmcrypto.ProveFulfillment(requestID, s.pk, s.sk, handles, values)
	if err != nil {
		return nil, nil, err
	}
	return cmcrypto.EncodeCleartextWords(values), proof, nil
}
