package app

import errorsmod "cosmossdk.io/errors"

// Codespace for all market tx failures.
const Codespace = "market"

// Sentinel errors, one per failure kind. deliverTx maps these to ABCI codes.
var (
	ErrInvalidTx        = errorsmod.Register(Codespace, 2, "invalid transaction")
	ErrPermissionDenied = errorsmod.Register(Codespace, 3, "permission denied")
	ErrSystemPaused     = errorsmod.Register(Codespace, 4, "system paused")
	ErrAlreadyPaused    = errorsmod.Register(Codespace, 5, "already paused")
	ErrAlreadyUnpaused  = errorsmod.Register(Codespace, 6, "already unpaused")
	ErrCooldownActive   = errorsmod.Register(Codespace, 7, "cooldown active")
	ErrBatchNotOpen     = errorsmod.Register(Codespace, 8, "batch not open")
	ErrUnknownRequest   = errorsmod.Register(Codespace, 9, "unknown decryption request")
	ErrReplayAttempt    = errorsmod.Register(Codespace, 10, "fulfillment already processed")
	ErrStateMismatch    = errorsmod.Register(Codespace, 11, "state hash mismatch")
	ErrInvalidProof     = errorsmod.Register(Codespace, 12, "invalid decryption proof")
	ErrOracleGateway    = errorsmod.Register(Codespace, 13, "oracle gateway failure")
)
