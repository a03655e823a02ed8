package app

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	abci "github.com/cometbft/cometbft/abci/types"

	"ciphermarket/internal/codec"
	"ciphermarket/internal/state"
)

const (
	AppVersion uint64 = 1
)

// OracleGateway is the boundary to the external confidential-compute
// service: it accepts the positional slot handles (nil = unset) together
// with the implicit oracle/fulfill callback route and returns a fresh,
// never-reused request id. Decryption results arrive later as an
// oracle/fulfill tx.
type OracleGateway interface {
	Request(handles [][]byte) (uint64, error)
}

// Config seeds a fresh chain state; it is ignored once state exists
// (the on-chain values then rule).
type Config struct {
	Owner        string
	OraclePubKey []byte
	CooldownSecs uint64
}

type MarketApp struct {
	*abci.BaseApplication

	home   string
	logger log.Logger
	oracle OracleGateway

	mu       sync.Mutex
	st       *state.State
	lastHash []byte
}

func New(home string, cfg Config, logger log.Logger, oracle OracleGateway) (*MarketApp, error) {
	if oracle == nil {
		return nil, fmt.Errorf("oracle gateway is nil")
	}
	appHome := filepath.Join(home, "app")
	st, err := state.Load(appHome)
	if err != nil {
		return nil, err
	}
	if st.Owner == "" {
		// Fresh chain: seed the constructor values.
		if cfg.Owner == "" {
			return nil, fmt.Errorf("config: owner is required for a fresh chain")
		}
		if len(cfg.OraclePubKey) != 32 {
			return nil, fmt.Errorf("config: oracle pubkey must be 32 bytes")
		}
		st.Owner = cfg.Owner
		st.OraclePubKey = append([]byte(nil), cfg.OraclePubKey...)
		if cfg.CooldownSecs > 0 {
			st.CooldownSecs = cfg.CooldownSecs
		}
		logger.Info("seeded fresh market state",
			"owner", st.Owner,
			"cooldownSecs", st.CooldownSecs,
			"oraclePubKey", hex.EncodeToString(st.OraclePubKey))
	}
	a := &MarketApp{
		BaseApplication: abci.NewBaseApplication(),
		home:            home,
		logger:          logger,
		oracle:          oracle,
		st:              st,
	}
	a.lastHash = st.AppHash()
	return a, nil
}

func (a *MarketApp) Info(_ context.Context, _ *abci.InfoRequest) (*abci.InfoResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return &abci.InfoResponse{
		Data:             "CipherMarket (v1)",
		Version:          "v1",
		AppVersion:       AppVersion,
		LastBlockHeight:  a.st.Height,
		LastBlockAppHash: a.lastHash,
	}, nil
}

func (a *MarketApp) CheckTx(_ context.Context, req *abci.CheckTxRequest) (*abci.CheckTxResponse, error) {
	_, err := codec.DecodeTxEnvelope(req.Tx)
	if err != nil {
		return &abci.CheckTxResponse{Code: 1, Log: err.Error()}, nil
	}
	// Only structural validation here; guards run at delivery time.
	return &abci.CheckTxResponse{Code: 0}, nil
}

func (a *MarketApp) InitChain(_ context.Context, req *abci.InitChainRequest) (*abci.InitChainResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// The chain id is the contract identity bound into state commitments.
	if a.st.InstanceID == "" {
		a.st.InstanceID = req.ChainId
	}
	return &abci.InitChainResponse{}, nil
}

func (a *MarketApp) FinalizeBlock(_ context.Context, req *abci.FinalizeBlockRequest) (*abci.FinalizeBlockResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.st.Height = req.Height
	nowUnix := req.Time.Unix()

	txResults := make([]*abci.ExecTxResult, 0, len(req.Txs))
	for _, txBytes := range req.Txs {
		res := a.deliverTx(txBytes, req.Height, nowUnix)
		txResults = append(txResults, res)
	}

	a.lastHash = a.st.AppHash()

	return &abci.FinalizeBlockResponse{
		TxResults: txResults,
		AppHash:   a.lastHash,
	}, nil
}

func (a *MarketApp) Commit(_ context.Context, _ *abci.CommitRequest) (*abci.CommitResponse, error) {
	// Persist after each block for devnet durability.
	appHome := filepath.Join(a.home, "app")
	if err := a.st.Save(appHome); err != nil {
		// CometBFT expects Commit to not crash; return error so node halts loudly.
		return nil, err
	}
	return &abci.CommitResponse{}, nil
}

func (a *MarketApp) Query(_ context.Context, req *abci.QueryRequest) (*abci.QueryResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Paths:
	// - /params
	// - /account/<addr>
	// - /batch/<id>
	// - /batches
	// - /request/<id>
	//
	// Reads carry no access control: slot handles are ciphertext, and
	// request contexts hold only commitments and flags.
	path := strings.TrimSpace(req.Path)
	switch {
	case path == "/params":
		b, _ := json.Marshal(map[string]any{
			"owner":          a.st.Owner,
			"paused":         a.st.Paused,
			"cooldownSecs":   a.st.CooldownSecs,
			"currentBatchId": a.st.CurrentBatchID,
			"batchOpen":      a.st.BatchOpen,
			"oraclePubKey":   hex.EncodeToString(a.st.OraclePubKey),
		})
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
	case path == "/batches":
		ids := make([]uint64, 0, len(a.st.Batches))
		for id := range a.st.Batches {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		b, _ := json.Marshal(ids)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
	case strings.HasPrefix(path, "/account/"):
		addr := strings.TrimPrefix(path, "/account/")
		acc := a.st.Accounts[addr]
		if acc == nil {
			acc = &state.Account{}
		}
		b, _ := json.Marshal(map[string]any{"addr": addr, "account": acc})
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
	case strings.HasPrefix(path, "/batch/"):
		raw := strings.TrimPrefix(path, "/batch/")
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return &abci.QueryResponse{Code: 1, Log: "invalid batch id", Height: a.st.Height}, nil
		}
		slots, ok := a.st.Batches[id]
		if !ok {
			return &abci.QueryResponse{Code: 1, Log: "batch not found", Height: a.st.Height}, nil
		}
		b, _ := json.Marshal(slots)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
	case strings.HasPrefix(path, "/request/"):
		raw := strings.TrimPrefix(path, "/request/")
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return &abci.QueryResponse{Code: 1, Log: "invalid request id", Height: a.st.Height}, nil
		}
		ctx, ok := a.st.Requests[id]
		if !ok {
			return &abci.QueryResponse{Code: 1, Log: "request not found", Height: a.st.Height}, nil
		}
		b, _ := json.Marshal(ctx)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
	default:
		return &abci.QueryResponse{Code: 1, Log: "unknown query path", Height: a.st.Height}, nil
	}
}

// deliverTx executes one tx against a staged copy of state: either the
// whole operation commits or nothing does.
func (a *MarketApp) deliverTx(txBytes []byte, height int64, nowUnix int64) *abci.ExecTxResult {
	env, err := codec.DecodeTxEnvelope(txBytes)
	if err != nil {
		return errResult(errorsmod.Wrap(ErrInvalidTx, err.Error()))
	}

	staged, err := a.st.Clone()
	if err != nil {
		return errResult(err)
	}
	staged.Height = height

	res, err := a.routeTx(staged, env, nowUnix)
	if err != nil {
		return errResult(err)
	}
	a.st = staged
	return res
}

func (a *MarketApp) routeTx(st *state.State, env codec.TxEnvelope, nowUnix int64) (*abci.ExecTxResult, error) {
	switch env.Type {
	case "auth/register_account":
		var msg codec.AuthRegisterAccountTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidTx, "bad auth/register_account value")
		}
		return authRegisterAccount(st, env, msg)

	case "admin/transfer_ownership":
		var msg codec.AdminTransferOwnershipTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidTx, "bad admin/transfer_ownership value")
		}
		return adminTransferOwnership(st, env, msg)

	case "admin/add_provider":
		var msg codec.AdminAddProviderTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidTx, "bad admin/add_provider value")
		}
		return adminAddProvider(st, env, msg)

	case "admin/remove_provider":
		var msg codec.AdminRemoveProviderTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidTx, "bad admin/remove_provider value")
		}
		return adminRemoveProvider(st, env, msg)

	case "admin/set_cooldown":
		var msg codec.AdminSetCooldownTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidTx, "bad admin/set_cooldown value")
		}
		return adminSetCooldown(st, env, msg)

	case "admin/pause":
		return adminPause(st, env)

	case "admin/unpause":
		return adminUnpause(st, env)

	case "market/open_batch":
		return marketOpenBatch(st, env)

	case "market/close_batch":
		return marketCloseBatch(st, env)

	case "market/submit_news":
		var msg codec.MarketSubmitNewsTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidTx, "bad market/submit_news value")
		}
		return marketSubmitNews(st, env, msg, nowUnix)

	case "market/submit_trade":
		var msg codec.MarketSubmitTradeTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidTx, "bad market/submit_trade value")
		}
		return marketSubmitTrade(st, env, msg, nowUnix)

	case "market/request_decryption":
		var msg codec.MarketRequestDecryptionTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidTx, "bad market/request_decryption value")
		}
		return marketRequestDecryption(st, env, msg, nowUnix, a.oracle)

	case "oracle/fulfill":
		var msg codec.OracleFulfillTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidTx, "bad oracle/fulfill value")
		}
		return oracleFulfill(st, msg)

	default:
		return nil, errorsmod.Wrapf(ErrInvalidTx, "unknown tx type: %s", env.Type)
	}
}

func errResult(err error) *abci.ExecTxResult {
	codespace, code, logMsg := errorsmod.ABCIInfo(err, false)
	return &abci.ExecTxResult{Code: code, Codespace: codespace, Log: logMsg}
}

func okEvent(typ string, attrs map[string]string) *abci.ExecTxResult {
	ev := abci.Event{Type: typ}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev.Attributes = append(ev.Attributes, abci.EventAttribute{Key: k, Value: attrs[k], Index: true})
	}
	return &abci.ExecTxResult{
		Code:   0,
		Events: []abci.Event{ev},
	}
}

// okNoEvent is for accepted no-op operations (idempotent provider changes).
func okNoEvent() *abci.ExecTxResult {
	return &abci.ExecTxResult{Code: 0}
}
