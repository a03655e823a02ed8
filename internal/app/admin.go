package app

import (
	"strconv"

	errorsmod "cosmossdk.io/errors"
	abci "github.com/cometbft/cometbft/abci/types"

	"ciphermarket/internal/codec"
	"ciphermarket/internal/state"
)

// authRegisterAccount binds an ed25519 pubkey to an address. The envelope is
// self-signed by that same key, so registration proves possession. Re-registration
// with the same key is an accepted no-op; key rotation is allowed and signed by
// the NEW key (the address is the identity, the key only authenticates it).
func authRegisterAccount(st *state.State, env codec.TxEnvelope, msg codec.AuthRegisterAccountTx) (*abci.ExecTxResult, error) {
	if err := requireRegisterAccountAuth(env, msg); err != nil {
		return nil, err
	}
	if err := checkAndBumpNonce(st, env); err != nil {
		return nil, err
	}
	st.AccountKeys[msg.Account] = append([]byte(nil), msg.PubKey...)
	st.AccountFor(msg.Account)
	return okEvent(EventTypeAccountRegistered, map[string]string{
		"account": msg.Account,
	}), nil
}

func adminTransferOwnership(st *state.State, env codec.TxEnvelope, msg codec.AdminTransferOwnershipTx) (*abci.ExecTxResult, error) {
	if err := requireOwnerAuth(st, env); err != nil {
		return nil, err
	}
	if err := checkAndBumpNonce(st, env); err != nil {
		return nil, err
	}
	if msg.NewOwner == "" {
		return nil, errorsmod.Wrap(ErrInvalidTx, "missing newOwner")
	}
	prev := st.Owner
	st.Owner = msg.NewOwner
	return okEvent(EventTypeOwnershipTransferred, map[string]string{
		"previousOwner": prev,
		"newOwner":      msg.NewOwner,
	}), nil
}

func adminAddProvider(st *state.State, env codec.TxEnvelope, msg codec.AdminAddProviderTx) (*abci.ExecTxResult, error) {
	if err := requireOwnerAuth(st, env); err != nil {
		return nil, err
	}
	if err := checkAndBumpNonce(st, env); err != nil {
		return nil, err
	}
	if msg.Addr == "" {
		return nil, errorsmod.Wrap(ErrInvalidTx, "missing addr")
	}
	acc := st.AccountFor(msg.Addr)
	if acc.Provider {
		// Already a provider: accepted, no event.
		return okNoEvent(), nil
	}
	acc.Provider = true
	return okEvent(EventTypeProviderAdded, map[string]string{
		"addr": msg.Addr,
	}), nil
}

func adminRemoveProvider(st *state.State, env codec.TxEnvelope, msg codec.AdminRemoveProviderTx) (*abci.ExecTxResult, error) {
	if err := requireOwnerAuth(st, env); err != nil {
		return nil, err
	}
	if err := checkAndBumpNonce(st, env); err != nil {
		return nil, err
	}
	if msg.Addr == "" {
		return nil, errorsmod.Wrap(ErrInvalidTx, "missing addr")
	}
	acc := st.Accounts[msg.Addr]
	if acc == nil || !acc.Provider {
		return okNoEvent(), nil
	}
	acc.Provider = false
	return okEvent(EventTypeProviderRemoved, map[string]string{
		"addr": msg.Addr,
	}), nil
}

// adminSetCooldown applies immediately: in-flight cooldowns are re-evaluated
// against the new window on the next guarded action.
func adminSetCooldown(st *state.State, env codec.TxEnvelope, msg codec.AdminSetCooldownTx) (*abci.ExecTxResult, error) {
	if err := requireOwnerAuth(st, env); err != nil {
		return nil, err
	}
	if err := checkAndBumpNonce(st, env); err != nil {
		return nil, err
	}
	prev := st.CooldownSecs
	st.CooldownSecs = msg.Seconds
	return okEvent(EventTypeCooldownUpdated, map[string]string{
		"previousSeconds": strconv.FormatUint(prev, 10),
		"seconds":         strconv.FormatUint(msg.Seconds, 10),
	}), nil
}

func adminPause(st *state.State, env codec.TxEnvelope) (*abci.ExecTxResult, error) {
	if err := requireOwnerAuth(st, env); err != nil {
		return nil, err
	}
	if err := checkAndBumpNonce(st, env); err != nil {
		return nil, err
	}
	if st.Paused {
		return nil, errorsmod.Wrap(ErrAlreadyPaused, "system is already paused")
	}
	st.Paused = true
	return okEvent(EventTypePaused, map[string]string{
		"by": env.Signer,
	}), nil
}

func adminUnpause(st *state.State, env codec.TxEnvelope) (*abci.ExecTxResult, error) {
	if err := requireOwnerAuth(st, env); err != nil {
		return nil, err
	}
	if err := checkAndBumpNonce(st, env); err != nil {
		return nil, err
	}
	if !st.Paused {
		return nil, errorsmod.Wrap(ErrAlreadyUnpaused, "system is not paused")
	}
	st.Paused = false
	return okEvent(EventTypeUnpaused, map[string]string{
		"by": env.Signer,
	}), nil
}
