package app

import (
	"strconv"

	errorsmod "cosmossdk.io/errors"
	abci "github.com/cometbft/cometbft/abci/types"

	"ciphermarket/internal/cmcrypto"
	"ciphermarket/internal/codec"
	"ciphermarket/internal/state"
)

// checkCooldown enforces the per-account throttle for one action category.
// lastAt == 0 means the account has never performed the action.
func checkCooldown(st *state.State, lastAt int64, nowUnix int64, what string) error {
	if lastAt == 0 || st.CooldownSecs == 0 {
		return nil
	}
	readyAt, err := addInt64AndU64Checked(lastAt, st.CooldownSecs)
	if err != nil {
		return errorsmod.Wrap(ErrInvalidTx, err.Error())
	}
	if nowUnix < readyAt {
		return errorsmod.Wrapf(ErrCooldownActive, "%s throttled until t=%d (now t=%d)", what, readyAt, nowUnix)
	}
	return nil
}

func requireBatchOpen(st *state.State) error {
	if !st.BatchOpen {
		return errorsmod.Wrap(ErrBatchNotOpen, "no open batch")
	}
	return nil
}

func requireNotPaused(st *state.State) error {
	if st.Paused {
		return errorsmod.Wrap(ErrSystemPaused, "system is paused")
	}
	return nil
}

func requireHandle(h []byte, field string) error {
	if len(h) != cmcrypto.HandleBytes {
		return errorsmod.Wrapf(ErrInvalidTx, "%s must be %d bytes, got %d", field, cmcrypto.HandleBytes, len(h))
	}
	return nil
}

// marketOpenBatch starts round batchId+1. It is valid from any prior batch
// state: an open previous batch is implicitly abandoned, its slots retained
// read-only under its id.
func marketOpenBatch(st *state.State, env codec.TxEnvelope) (*abci.ExecTxResult, error) {
	if err := requireNotPaused(st); err != nil {
		return nil, err
	}
	if err := requireOwnerAuth(st, env); err != nil {
		return nil, err
	}
	if err := checkAndBumpNonce(st, env); err != nil {
		return nil, err
	}
	next, err := addUint64Checked(st.CurrentBatchID, 1)
	if err != nil {
		return nil, errorsmod.Wrap(ErrInvalidTx, "batch id space exhausted")
	}
	st.CurrentBatchID = next
	st.BatchOpen = true
	st.SlotsFor(next)
	return okEvent(EventTypeBatchOpened, map[string]string{
		"batchId": strconv.FormatUint(next, 10),
	}), nil
}

func marketCloseBatch(st *state.State, env codec.TxEnvelope) (*abci.ExecTxResult, error) {
	if err := requireNotPaused(st); err != nil {
		return nil, err
	}
	if err := requireOwnerAuth(st, env); err != nil {
		return nil, err
	}
	if err := checkAndBumpNonce(st, env); err != nil {
		return nil, err
	}
	if err := requireBatchOpen(st); err != nil {
		return nil, err
	}
	st.BatchOpen = false
	return okEvent(EventTypeBatchClosed, map[string]string{
		"batchId": strconv.FormatUint(st.CurrentBatchID, 10),
	}), nil
}

// marketSubmitNews overwrites the newsImpact slot of the open batch.
// Repeated submissions within a batch are last-write-wins, gated only by
// the submission cooldown.
func marketSubmitNews(st *state.State, env codec.TxEnvelope, msg codec.MarketSubmitNewsTx, nowUnix int64) (*abci.ExecTxResult, error) {
	if err := requireNotPaused(st); err != nil {
		return nil, err
	}
	if err := requireAccountAuth(st, env, msg.Provider); err != nil {
		return nil, err
	}
	if err := checkAndBumpNonce(st, env); err != nil {
		return nil, err
	}
	if !st.IsProvider(msg.Provider) {
		return nil, errorsmod.Wrapf(ErrPermissionDenied, "%q is not a news provider", msg.Provider)
	}
	if err := requireBatchOpen(st); err != nil {
		return nil, err
	}
	if err := requireHandle(msg.NewsHandle, "newsHandle"); err != nil {
		return nil, err
	}
	acc := st.AccountFor(msg.Provider)
	if err := checkCooldown(st, acc.LastSubmissionAt, nowUnix, "submission"); err != nil {
		return nil, err
	}

	slots := st.SlotsFor(st.CurrentBatchID)
	slots.NewsImpact.Write(msg.NewsHandle)
	acc.LastSubmissionAt = nowUnix

	return okEvent(EventTypeNewsSubmitted, map[string]string{
		"batchId":  strconv.FormatUint(st.CurrentBatchID, 10),
		"provider": msg.Provider,
	}), nil
}

// marketSubmitTrade overwrites the playerBalance and playerStockHolding
// slots together; the two handles land atomically or not at all.
func marketSubmitTrade(st *state.State, env codec.TxEnvelope, msg codec.MarketSubmitTradeTx, nowUnix int64) (*abci.ExecTxResult, error) {
	if err := requireNotPaused(st); err != nil {
		return nil, err
	}
	if err := requireAccountAuth(st, env, msg.Player); err != nil {
		return nil, err
	}
	if err := checkAndBumpNonce(st, env); err != nil {
		return nil, err
	}
	if err := requireBatchOpen(st); err != nil {
		return nil, err
	}
	if err := requireHandle(msg.BalanceHandle, "balanceHandle"); err != nil {
		return nil, err
	}
	if err := requireHandle(msg.HoldingHandle, "holdingHandle"); err != nil {
		return nil, err
	}
	acc := st.AccountFor(msg.Player)
	if err := checkCooldown(st, acc.LastSubmissionAt, nowUnix, "submission"); err != nil {
		return nil, err
	}

	slots := st.SlotsFor(st.CurrentBatchID)
	slots.PlayerBalance.Write(msg.BalanceHandle)
	slots.PlayerStockHolding.Write(msg.HoldingHandle)
	acc.LastSubmissionAt = nowUnix

	return okEvent(EventTypeTradeSubmitted, map[string]string{
		"batchId": strconv.FormatUint(st.CurrentBatchID, 10),
		"player":  msg.Player,
	}), nil
}
