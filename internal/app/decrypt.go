package app

import (
	"bytes"
	"encoding/hex"
	"strconv"

	errorsmod "cosmossdk.io/errors"
	abci "github.com/cometbft/cometbft/abci/types"

	"ciphermarket/internal/cmcrypto"
	"ciphermarket/internal/codec"
	"ciphermarket/internal/state"
)

// marketRequestDecryption snapshots the current batch slots into a state
// commitment, hands the handles to the oracle gateway and records the pending
// request under the gateway-issued id. Unset slots are included positionally
// so the commitment pins absence as well as content.
func marketRequestDecryption(st *state.State, env codec.TxEnvelope, msg codec.MarketRequestDecryptionTx, nowUnix int64, oracle OracleGateway) (*abci.ExecTxResult, error) {
	if err := requireNotPaused(st); err != nil {
		return nil, err
	}
	if err := requireAccountAuth(st, env, msg.Caller); err != nil {
		return nil, err
	}
	if err := checkAndBumpNonce(st, env); err != nil {
		return nil, err
	}
	if err := requireBatchOpen(st); err != nil {
		return nil, err
	}
	acc := st.AccountFor(msg.Caller)
	if err := checkCooldown(st, acc.LastDecryptionRequestAt, nowUnix, "decryption request"); err != nil {
		return nil, err
	}

	slots := st.SlotsFor(st.CurrentBatchID)
	handles := slots.HandleList()
	stateHash := cmcrypto.StateCommitment(st.InstanceID, handles)

	requestID, err := oracle.Request(handles)
	if err != nil {
		return nil, errorsmod.Wrap(ErrOracleGateway, err.Error())
	}
	if _, exists := st.Requests[requestID]; exists {
		// The gateway contract promises fresh ids; a collision would let one
		// fulfillment answer two requests.
		return nil, errorsmod.Wrapf(ErrOracleGateway, "gateway reused request id %d", requestID)
	}

	st.Requests[requestID] = &state.DecryptionContext{
		RequestID: requestID,
		BatchID:   st.CurrentBatchID,
		StateHash: stateHash,
	}
	acc.LastDecryptionRequestAt = nowUnix

	return okEvent(EventTypeDecryptionRequested, map[string]string{
		"requestId": strconv.FormatUint(requestID, 10),
		"batchId":   strconv.FormatUint(st.CurrentBatchID, 10),
		"stateHash": hex.EncodeToString(stateHash),
	}), nil
}

// oracleFulfill is the unsigned decryption callback. Order of rejection:
// unknown request, replay, commitment mismatch against the slots as they
// stand now, then proof verification. A rejected attempt leaves the request
// pending, so a later consistent fulfillment still lands.
func oracleFulfill(st *state.State, msg codec.OracleFulfillTx) (*abci.ExecTxResult, error) {
	ctx, ok := st.Requests[msg.RequestID]
	if !ok {
		return nil, errorsmod.Wrapf(ErrUnknownRequest, "request %d", msg.RequestID)
	}
	if ctx.Processed {
		return nil, errorsmod.Wrapf(ErrReplayAttempt, "request %d already fulfilled", msg.RequestID)
	}

	slots := st.SlotsFor(ctx.BatchID)
	handles := slots.HandleList()
	current := cmcrypto.StateCommitment(st.InstanceID, handles)
	if !bytes.Equal(current, ctx.StateHash) {
		return nil, errorsmod.Wrapf(ErrStateMismatch,
			"batch %d slots changed since request %d", ctx.BatchID, msg.RequestID)
	}

	values, err := cmcrypto.DecodeCleartextWords(msg.Cleartexts, state.NumSlots)
	if err != nil {
		return nil, errorsmod.Wrap(ErrInvalidProof, err.Error())
	}

	oracleKey, err := cmcrypto.PointFromBytesCanonical(st.OraclePubKey)
	if err != nil {
		return nil, errorsmod.Wrap(ErrInvalidProof, "bad oracle pubkey in state")
	}
	if err := cmcrypto.VerifyFulfillment(msg.RequestID, oracleKey, handles, values, msg.Proof); err != nil {
		return nil, errorsmod.Wrap(ErrInvalidProof, err.Error())
	}

	ctx.Processed = true

	return okEvent(EventTypeDecryptionCompleted, map[string]string{
		"requestId":          strconv.FormatUint(msg.RequestID, 10),
		"batchId":            strconv.FormatUint(ctx.BatchID, 10),
		"stockPrice":         strconv.FormatUint(values[state.SlotStockPrice], 10),
		"playerBalance":      strconv.FormatUint(values[state.SlotPlayerBalance], 10),
		"playerStockHolding": strconv.FormatUint(values[state.SlotPlayerStockHolding], 10),
		"newsImpact":         strconv.FormatUint(values[state.SlotNewsImpact], 10),
	}), nil
}
