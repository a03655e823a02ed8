package state

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// DefaultCooldownSecs is the initial per-account action cooldown.
const DefaultCooldownSecs uint64 = 30

// Slot order used for commitments, oracle requests and cleartext layout.
const (
	SlotStockPrice = iota
	SlotPlayerBalance
	SlotPlayerStockHolding
	SlotNewsImpact
	NumSlots
)

// Slot holds at most one opaque ciphertext handle. Presence is explicit
// rather than inferred from an empty handle.
type Slot struct {
	Present bool   `json:"present"`
	Handle  []byte `json:"handle,omitempty"`
}

func (s *Slot) Write(handle []byte) {
	s.Present = true
	s.Handle = append([]byte(nil), handle...)
}

// BatchSlots is the per-batch encrypted state table: four independent slots,
// each last-write-wins within the batch.
type BatchSlots struct {
	StockPrice         Slot `json:"stockPrice"`
	PlayerBalance      Slot `json:"playerBalance"`
	PlayerStockHolding Slot `json:"playerStockHolding"`
	NewsImpact         Slot `json:"newsImpact"`
}

// HandleList renders the slots in fixed order, nil for unset. This is the
// positional view fed to commitments, the oracle and proof verification.
func (b *BatchSlots) HandleList() [][]byte {
	slots := [NumSlots]*Slot{
		SlotStockPrice:         &b.StockPrice,
		SlotPlayerBalance:      &b.PlayerBalance,
		SlotPlayerStockHolding: &b.PlayerStockHolding,
		SlotNewsImpact:         &b.NewsImpact,
	}
	out := make([][]byte, NumSlots)
	for i, s := range slots {
		if s.Present {
			out[i] = s.Handle
		}
	}
	return out
}

// Account carries the provider role flag and the per-category cooldown
// bookkeeping. Accounts are created on first touch and never destroyed.
type Account struct {
	Provider                bool  `json:"provider,omitempty"`
	LastSubmissionAt        int64 `json:"lastSubmissionAt,omitempty"`
	LastDecryptionRequestAt int64 `json:"lastDecryptionRequestAt,omitempty"`
}

// DecryptionContext is the pending-request record created by a decryption
// request and consumed (Processed=true) by at most one fulfillment. Contexts
// are never deleted; an unfulfilled request stays pending forever.
type DecryptionContext struct {
	RequestID uint64 `json:"requestId"`
	BatchID   uint64 `json:"batchId"`
	StateHash []byte `json:"stateHash"`
	Processed bool   `json:"processed"`
}

type State struct {
	Height int64 `json:"height"`

	// InstanceID is the chain id captured at InitChain; it is bound into
	// every state commitment.
	InstanceID string `json:"instanceId,omitempty"`

	Owner        string `json:"owner,omitempty"`
	Paused       bool   `json:"paused,omitempty"`
	CooldownSecs uint64 `json:"cooldownSecs"`
	OraclePubKey []byte `json:"oraclePubKey,omitempty"`

	Accounts    map[string]*Account `json:"accounts"`
	AccountKeys map[string][]byte   `json:"accountKeys,omitempty"` // addr -> ed25519 pubkey (32 bytes)
	NonceMax    map[string]uint64   `json:"nonceMax,omitempty"`    // signer -> last accepted tx.nonce (u64), for replay protection

	// CurrentBatchID is 0 until the first open; it only ever increases.
	CurrentBatchID uint64 `json:"currentBatchId"`
	BatchOpen      bool   `json:"batchOpen"`

	Batches  map[uint64]*BatchSlots        `json:"batches"`
	Requests map[uint64]*DecryptionContext `json:"requests"`
}

func NewState() *State {
	return &State{
		Height:       0,
		CooldownSecs: DefaultCooldownSecs,
		Accounts:     map[string]*Account{},
		AccountKeys:  map[string][]byte{},
		NonceMax:     map[string]uint64{},
		Batches:      map[uint64]*BatchSlots{},
		Requests:     map[uint64]*DecryptionContext{},
	}
}

func normalize(st *State) {
	if st.Accounts == nil {
		st.Accounts = map[string]*Account{}
	}
	if st.AccountKeys == nil {
		st.AccountKeys = map[string][]byte{}
	}
	if st.NonceMax == nil {
		st.NonceMax = map[string]uint64{}
	}
	if st.Batches == nil {
		st.Batches = map[uint64]*BatchSlots{}
	}
	if st.Requests == nil {
		st.Requests = map[uint64]*DecryptionContext{}
	}
	if st.CooldownSecs == 0 {
		st.CooldownSecs = DefaultCooldownSecs
	}
}

func Load(home string) (*State, error) {
	path := filepath.Join(home, "state.json")
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	normalize(&st)
	return &st, nil
}

func (s *State) Save(home string) error {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return fmt.Errorf("mkdir home: %w", err)
	}
	path := filepath.Join(home, "state.json")
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// Clone returns a deep copy of state suitable for staged tx execution.
func (s *State) Clone() (*State, error) {
	if s == nil {
		return nil, fmt.Errorf("state is nil")
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state clone: %w", err)
	}
	var out State
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode state clone: %w", err)
	}
	normalize(&out)
	return &out, nil
}

func (s *State) AppHash() []byte {
	// Deterministic JSON hash: marshal with stable key ordering by serializing
	// a normalized view.
	//
	// Note: encoding/json does NOT guarantee map key order, so we manually
	// normalize maps into slices.
	type accountKV struct {
		Addr    string   `json:"addr"`
		Account *Account `json:"account"`
	}
	type accountKeyKV struct {
		Addr   string `json:"addr"`
		PubKey []byte `json:"pubKey"`
	}
	type nonceKV struct {
		Signer string `json:"signer"`
		Nonce  uint64 `json:"nonce"`
	}
	type batchKV struct {
		ID    uint64      `json:"id"`
		Slots *BatchSlots `json:"slots"`
	}
	type requestKV struct {
		ID      uint64             `json:"id"`
		Context *DecryptionContext `json:"context"`
	}

	accounts := make([]accountKV, 0, len(s.Accounts))
	for k, v := range s.Accounts {
		accounts = append(accounts, accountKV{Addr: k, Account: v})
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Addr < accounts[j].Addr })

	accountKeys := make([]accountKeyKV, 0, len(s.AccountKeys))
	for k, v := range s.AccountKeys {
		accountKeys = append(accountKeys, accountKeyKV{Addr: k, PubKey: v})
	}
	sort.Slice(accountKeys, func(i, j int) bool { return accountKeys[i].Addr < accountKeys[j].Addr })

	nonces := make([]nonceKV, 0, len(s.NonceMax))
	for k, v := range s.NonceMax {
		nonces = append(nonces, nonceKV{Signer: k, Nonce: v})
	}
	sort.Slice(nonces, func(i, j int) bool { return nonces[i].Signer < nonces[j].Signer })

	batches := make([]batchKV, 0, len(s.Batches))
	for id, b := range s.Batches {
		batches = append(batches, batchKV{ID: id, Slots: b})
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].ID < batches[j].ID })

	requests := make([]requestKV, 0, len(s.Requests))
	for id, r := range s.Requests {
		requests = append(requests, requestKV{ID: id, Context: r})
	}
	sort.Slice(requests, func(i, j int) bool { return requests[i].ID < requests[j].ID })

	normalized := struct {
		Height         int64          `json:"height"`
		InstanceID     string         `json:"instanceId,omitempty"`
		Owner          string         `json:"owner,omitempty"`
		Paused         bool           `json:"paused,omitempty"`
		CooldownSecs   uint64         `json:"cooldownSecs"`
		OraclePubKey   []byte         `json:"oraclePubKey,omitempty"`
		Accounts       []accountKV    `json:"accounts"`
		AccountKeys    []accountKeyKV `json:"accountKeys,omitempty"`
		NonceMax       []nonceKV      `json:"nonceMax,omitempty"`
		CurrentBatchID uint64         `json:"currentBatchId"`
		BatchOpen      bool           `json:"batchOpen"`
		Batches        []batchKV      `json:"batches"`
		Requests       []requestKV    `json:"requests"`
	}{
		Height:         s.Height,
		InstanceID:     s.InstanceID,
		Owner:          s.Owner,
		Paused:         s.Paused,
		CooldownSecs:   s.CooldownSecs,
		OraclePubKey:   s.OraclePubKey,
		Accounts:       accounts,
		AccountKeys:    accountKeys,
		NonceMax:       nonces,
		CurrentBatchID: s.CurrentBatchID,
		BatchOpen:      s.BatchOpen,
		Batches:        batches,
		Requests:       requests,
	}

	b, _ := json.Marshal(normalized)
	sum := sha256.Sum256(b)
	return sum[:]
}

// ---- Accounts ----

// AccountFor returns the account record for addr, creating it on first touch.
func (s *State) AccountFor(addr string) *Account {
	a := s.Accounts[addr]
	if a == nil {
		a = &Account{}
		s.Accounts[addr] = a
	}
	return a
}

func (s *State) IsProvider(addr string) bool {
	a := s.Accounts[addr]
	return a != nil && a.Provider
}

// ---- Batches ----

// SlotsFor returns the slot table for batchID, creating it on first touch.
// Closed batches keep their table readable for decryption.
func (s *State) SlotsFor(batchID uint64) *BatchSlots {
	b := s.Batches[batchID]
	if b == nil {
		b = &BatchSlots{}
		s.Batches[batchID] = b
	}
	return b
}
