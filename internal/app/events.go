package app

// Event type names, append-only notifications for external observers.
// Nothing on chain depends on these for correctness.
const (
	EventTypeAccountRegistered = "AccountRegistered"

	EventTypeOwnershipTransferred = "OwnershipTransferred"
	EventTypeProviderAdded        = "ProviderAdded"
	EventTypeProviderRemoved      = "ProviderRemoved"
	EventTypeCooldownUpdated      = "CooldownUpdated"
	EventTypePaused               = "Paused"
	EventTypeUnpaused             = "Unpaused"

	EventTypeBatchOpened = "BatchOpened"
	EventTypeBatchClosed = "BatchClosed"

	EventTypeNewsSubmitted  = "NewsSubmitted"
	EventTypeTradeSubmitted = "TradeSubmitted"

	EventTypeDecryptionRequested = "DecryptionRequested"
	EventTypeDecryptionCompleted = "DecryptionCompleted"
)
