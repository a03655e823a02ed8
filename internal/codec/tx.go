package codec

import (
	"encoding/json"
	"fmt"
)

// TxEnvelope is the v1 localnet transaction container.
//
// CometBFT transactions are opaque bytes; JSON keeps the localnet protocol
// inspectable. This is NOT a final wire encoding.
type TxEnvelope struct {
	// Basic routing.
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`

	// Tx auth:
	// - Nonce: included in the signed message; must strictly increase per signer.
	// - Signer: the acting account address.
	// - Sig: Ed25519 signature over (type, nonce, signer, sha256(value)).
	//
	// oracle/fulfill is the one unsigned tx type: its authenticity comes from
	// the decryption proof, not from a caller identity.
	Nonce  string `json:"nonce,omitempty"`
	Signer string `json:"signer,omitempty"`
	Sig    []byte `json:"sig,omitempty"`
}

func DecodeTxEnvelope(txBytes []byte) (TxEnvelope, error) {
	var env TxEnvelope
	if err := json.Unmarshal(txBytes, &env); err != nil {
		return TxEnvelope{}, fmt.Errorf("invalid tx json: %w", err)
	}
	if env.Type == "" {
		return TxEnvelope{}, fmt.Errorf("missing tx.type")
	}
	return env, nil
}

// ---- Auth ----

// Account pubkey registration for tx authentication.
type AuthRegisterAccountTx struct {
	Account string `json:"account"`
	PubKey  []byte `json:"pubKey"` // base64 (32 bytes)
}

// ---- Admin ----

type AdminTransferOwnershipTx struct {
	NewOwner string `json:"newOwner"`
}

type AdminAddProviderTx struct {
	Addr string `json:"addr"`
}

type AdminRemoveProviderTx struct {
	Addr string `json:"addr"`
}

type AdminSetCooldownTx struct {
	Seconds uint64 `json:"seconds"`
}

// admin/pause, admin/unpause, market/open_batch and market/close_batch carry
// no payload; the envelope signer is the acting account.

// ---- Market ----

type MarketSubmitNewsTx struct {
	Provider   string `json:"provider"`
	NewsHandle []byte `json:"newsHandle"` // base64 (64-byte ciphertext handle)
}

type MarketSubmitTradeTx struct {
	Player        string `json:"player"`
	BalanceHandle []byte `json:"balanceHandle"` // base64 (64-byte ciphertext handle)
	HoldingHandle []byte `json:"holdingHandle"` // base64 (64-byte ciphertext handle)
}

type MarketRequestDecryptionTx struct {
	Caller string `json:"caller"`
}

// ---- Oracle ----

// OracleFulfillTx is the asynchronous decryption callback. Cleartexts holds
// four consecutive 32-byte big-endian words in slot order; Proof is the
// encoded per-slot decryption-share proof bundle.
type OracleFulfillTx struct {
	RequestID  uint64 `json:"requestId"`
	Cleartexts []byte `json:"cleartexts"` // base64 (>= 128 bytes)
	Proof      []byte `json:"proof"`      // base64
}
