package app

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"strconv"

	errorsmod "cosmossdk.io/errors"

	"ciphermarket/internal/codec"
	"ciphermarket/internal/state"
)

const txAuthDomainV1 = "cmk/tx/v1"

func txAuthSignBytes(typ string, value []byte, nonce string, signer string) []byte {
	// signBytes = DOMAIN || 0x00 || type || 0x00 || nonce || 0x00 || signer || 0x00 || sha256(value)
	sum := sha256.Sum256(value)
	out := make([]byte, 0, len(txAuthDomainV1)+1+len(typ)+1+len(nonce)+1+len(signer)+1+sha256.Size)
	out = append(out, []byte(txAuthDomainV1)...)
	out = append(out, 0)
	out = append(out, []byte(typ)...)
	out = append(out, 0)
	out = append(out, []byte(nonce)...)
	out = append(out, 0)
	out = append(out, []byte(signer)...)
	out = append(out, 0)
	out = append(out, sum[:]...)
	return out
}

func requireSignedEnvelope(env codec.TxEnvelope) error {
	if env.Nonce == "" {
		return errorsmod.Wrap(ErrInvalidTx, "missing tx.nonce")
	}
	if env.Signer == "" {
		return errorsmod.Wrap(ErrInvalidTx, "missing tx.signer")
	}
	if len(env.Sig) == 0 {
		return errorsmod.Wrap(ErrInvalidTx, "missing tx.sig")
	}
	if len(env.Sig) != ed25519.SignatureSize {
		return errorsmod.Wrapf(ErrInvalidTx, "invalid tx.sig length: got %d want %d", len(env.Sig), ed25519.SignatureSize)
	}
	return nil
}

// checkAndBumpNonce enforces strictly increasing numeric nonces per signer.
// It must run only after the signature has been verified.
func checkAndBumpNonce(st *state.State, env codec.TxEnvelope) error {
	n, err := strconv.ParseUint(env.Nonce, 10, 64)
	if err != nil {
		return errorsmod.Wrapf(ErrInvalidTx, "invalid tx.nonce (want u64): %q", env.Nonce)
	}
	if last, seen := st.NonceMax[env.Signer]; seen && n <= last {
		return errorsmod.Wrapf(ErrInvalidTx, "replayed tx.nonce: got %d last accepted %d", n, last)
	}
	st.NonceMax[env.Signer] = n
	return nil
}

func requireRegisterAccountAuth(env codec.TxEnvelope, msg codec.AuthRegisterAccountTx) error {
	if msg.Account == "" {
		return errorsmod.Wrap(ErrInvalidTx, "missing account")
	}
	if len(msg.PubKey) != ed25519.PublicKeySize {
		return errorsmod.Wrapf(ErrInvalidTx, "pubKey must be %d bytes", ed25519.PublicKeySize)
	}
	if err := requireSignedEnvelope(env); err != nil {
		return err
	}
	if env.Signer != msg.Account {
		return errorsmod.Wrapf(ErrPermissionDenied, "tx signer mismatch: signer=%q want=%q", env.Signer, msg.Account)
	}
	pub := ed25519.PublicKey(msg.PubKey)
	msgBytes := txAuthSignBytes(env.Type, env.Value, env.Nonce, env.Signer)
	if !ed25519.Verify(pub, msgBytes, env.Sig) {
		return errorsmod.Wrap(ErrPermissionDenied, "invalid signature")
	}
	return nil
}

func requireAccountAuth(st *state.State, env codec.TxEnvelope, account string) error {
	if st == nil {
		return fmt.Errorf("state is nil")
	}
	if account == "" {
		return errorsmod.Wrap(ErrInvalidTx, "missing account")
	}
	if err := requireSignedEnvelope(env); err != nil {
		return err
	}
	if env.Signer != account {
		return errorsmod.Wrapf(ErrPermissionDenied, "tx signer mismatch: signer=%q want=%q", env.Signer, account)
	}
	pub := st.AccountKeys[account]
	if len(pub) != ed25519.PublicKeySize {
		return errorsmod.Wrapf(ErrPermissionDenied, "account %q missing pubKey (auth/register_account required)", account)
	}
	msg := txAuthSignBytes(env.Type, env.Value, env.Nonce, env.Signer)
	if !ed25519.Verify(ed25519.PublicKey(pub), msg, env.Sig) {
		return errorsmod.Wrap(ErrPermissionDenied, "invalid signature")
	}
	return nil
}

// requireOwnerAuth authenticates the envelope as the current contract owner.
func requireOwnerAuth(st *state.State, env codec.TxEnvelope) error {
	if st.Owner == "" {
		return errorsmod.Wrap(ErrPermissionDenied, "no owner configured")
	}
	if env.Signer != st.Owner {
		return errorsmod.Wrapf(ErrPermissionDenied, "owner-only operation: signer=%q owner=%q", env.Signer, st.Owner)
	}
	return requireAccountAuth(st, env, st.Owner)
}
