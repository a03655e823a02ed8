package app

import (
	"bytes"
	"testing"

	"ciphermarket/internal/cmcrypto"
)

// testHandle is an opaque 64-byte filler; slot writes never inspect content.
func testHandle(fill byte) []byte {
	h := make([]byte, cmcrypto.HandleBytes)
	for i := range h {
		h[i] = fill
	}
	return h
}

func TestOpenBatch_IdsOnlyIncrease(t *testing.T) {
	env := newTestEnv(t)

	if id := env.openBatch(); id != 1 {
		t.Fatalf("first batch id = %d", id)
	}
	// Opening over an open batch abandons it and advances the id.
	if id := env.openBatch(); id != 2 {
		t.Fatalf("second batch id = %d", id)
	}

	env.mustOk(env.signedTx("market/close_batch", map[string]any{}, testOwner), 1)
	if id := env.openBatch(); id != 3 {
		t.Fatalf("post-close batch id = %d", id)
	}
	if len(env.app.st.Batches) != 3 {
		t.Fatalf("abandoned batches must be retained, have %d", len(env.app.st.Batches))
	}
}

func TestCloseBatch_RequiresOpen(t *testing.T) {
	env := newTestEnv(t)

	env.mustFail(env.signedTx("market/close_batch", map[string]any{}, testOwner), 1,
		ErrBatchNotOpen.ABCICode())

	env.openBatch()
	env.mustOk(env.signedTx("market/close_batch", map[string]any{}, testOwner), 1)
	env.mustFail(env.signedTx("market/close_batch", map[string]any{}, testOwner), 1,
		ErrBatchNotOpen.ABCICode())
}

func TestSubmitNews_ProviderGateAndOverwrite(t *testing.T) {
	env := newTestEnv(t)
	env.register(testProvider)
	env.register(testPlayer)
	env.addProvider(testProvider)
	id := env.openBatch()

	// A plain account cannot feed news.
	env.mustFail(env.signedTx("market/submit_news", map[string]any{
		"provider":   testPlayer,
		"newsHandle": testHandle(1),
	}, testPlayer), 100, ErrPermissionDenied.ABCICode())

	env.mustOk(env.signedTx("market/submit_news", map[string]any{
		"provider":   testProvider,
		"newsHandle": testHandle(1),
	}, testProvider), 100)

	// A later submission overwrites; the slot holds exactly one handle.
	env.mustOk(env.signedTx("market/submit_news", map[string]any{
		"provider":   testProvider,
		"newsHandle": testHandle(2),
	}, testProvider), 200)

	slot := env.app.st.Batches[id].NewsImpact
	if !slot.Present || !bytes.Equal(slot.Handle, testHandle(2)) {
		t.Fatalf("newsImpact slot = %+v", slot)
	}
}

func TestSubmitNews_RevokedProviderRejected(t *testing.T) {
	env := newTestEnv(t)
	env.register(testProvider)
	env.addProvider(testProvider)
	env.openBatch()

	env.mustOk(env.signedTx("admin/remove_provider", map[string]any{"addr": testProvider}, testOwner), 1)

	env.mustFail(env.signedTx("market/submit_news", map[string]any{
		"provider":   testProvider,
		"newsHandle": testHandle(1),
	}, testProvider), 100, ErrPermissionDenied.ABCICode())
}

func TestSubmitTrade_WritesBothSlots(t *testing.T) {
	env := newTestEnv(t)
	env.register(testPlayer)
	id := env.openBatch()

	env.mustOk(env.signedTx("market/submit_trade", map[string]any{
		"player":        testPlayer,
		"balanceHandle": testHandle(3),
		"holdingHandle": testHandle(4),
	}, testPlayer), 100)

	slots := env.app.st.Batches[id]
	if !bytes.Equal(slots.PlayerBalance.Handle, testHandle(3)) {
		t.Fatalf("playerBalance slot = %+v", slots.PlayerBalance)
	}
	if !bytes.Equal(slots.PlayerStockHolding.Handle, testHandle(4)) {
		t.Fatalf("playerStockHolding slot = %+v", slots.PlayerStockHolding)
	}
	if slots.StockPrice.Present || slots.NewsImpact.Present {
		t.Fatalf("untouched slots must stay unset")
	}
}

func TestSubmit_RequiresOpenBatchAndUnpaused(t *testing.T) {
	env := newTestEnv(t)
	env.register(testPlayer)

	trade := func() []byte {
		return env.signedTx("market/submit_trade", map[string]any{
			"player":        testPlayer,
			"balanceHandle": testHandle(5),
			"holdingHandle": testHandle(6),
		}, testPlayer)
	}

	env.mustFail(trade(), 100, ErrBatchNotOpen.ABCICode())

	env.openBatch()
	env.mustOk(env.signedTx("market/close_batch", map[string]any{}, testOwner), 1)
	env.mustFail(trade(), 100, ErrBatchNotOpen.ABCICode())

	env.openBatch()
	env.mustOk(env.signedTx("admin/pause", map[string]any{}, testOwner), 1)
	env.mustFail(trade(), 100, ErrSystemPaused.ABCICode())
}

func TestSubmit_CooldownWindow(t *testing.T) {
	env := newTestEnv(t)
	env.register(testPlayer)
	env.openBatch()

	trade := func() []byte {
		return env.signedTx("market/submit_trade", map[string]any{
			"player":        testPlayer,
			"balanceHandle": testHandle(7),
			"holdingHandle": testHandle(8),
		}, testPlayer)
	}

	// Default window is 30s.
	env.mustOk(trade(), 1000)
	env.mustFail(trade(), 1010, ErrCooldownActive.ABCICode())
	env.mustFail(trade(), 1029, ErrCooldownActive.ABCICode())
	env.mustOk(trade(), 1030)
}

func TestSubmit_CooldownChangeAppliesImmediately(t *testing.T) {
	env := newTestEnv(t)
	env.register(testPlayer)
	env.openBatch()

	trade := func() []byte {
		return env.signedTx("market/submit_trade", map[string]any{
			"player":        testPlayer,
			"balanceHandle": testHandle(9),
			"holdingHandle": testHandle(10),
		}, testPlayer)
	}

	env.mustOk(trade(), 1000)

	// Shortening the window mid-cooldown frees the account sooner.
	env.mustOk(env.signedTx("admin/set_cooldown", map[string]any{"seconds": 5}, testOwner), 1)
	env.mustOk(trade(), 1006)

	// Lengthening re-arms it against the fresh timestamp.
	env.mustOk(env.signedTx("admin/set_cooldown", map[string]any{"seconds": 100}, testOwner), 1)
	env.mustFail(trade(), 1050, ErrCooldownActive.ABCICode())
	env.mustOk(trade(), 1106)
}

func TestSubmit_RejectsBadHandleLength(t *testing.T) {
	env := newTestEnv(t)
	env.register(testPlayer)
	env.openBatch()

	env.mustFail(env.signedTx("market/submit_trade", map[string]any{
		"player":        testPlayer,
		"balanceHandle": []byte{1, 2, 3},
		"holdingHandle": testHandle(1),
	}, testPlayer), 100, ErrInvalidTx.ABCICode())
}

func TestSubmit_SignerMustMatchActor(t *testing.T) {
	env := newTestEnv(t)
	env.register(testPlayer)
	env.register(testProvider)
	env.openBatch()

	// alice signs a trade naming prov as the player.
	env.mustFail(env.signedTx("market/submit_trade", map[string]any{
		"player":        testProvider,
		"balanceHandle": testHandle(1),
		"holdingHandle": testHandle(2),
	}, testPlayer), 100, ErrPermissionDenied.ABCICode())
}
