package oracle

import (
	"testing"

	"cosmossdk.io/log"
	"github.com/stretchr/testify/require"

	"ciphermarket/internal/cmcrypto"
	"ciphermarket/internal/state"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(log.NewNopLogger())
	require.NoError(t, err)
	return svc
}

func TestService_RequestIdsAreFreshAndIncreasing(t *testing.T) {
	svc := newTestService(t)

	empty := make([][]byte, state.NumSlots)
	id1, err := svc.Request(empty)
	require.NoError(t, err)
	id2, err := svc.Request(empty)
	require.NoError(t, err)
	require.Greater(t, id2, id1)
}

func TestService_FulfillProvesMintedHandles(t *testing.T) {
	svc := newTestService(t)

	handles := make([][]byte, state.NumSlots)
	want := []uint64{100, 500, 10, 0}
	for i, v := range want[:3] {
		hd, err := svc.EncryptUint64(v)
		require.NoError(t, err)
		handles[i] = hd
	}

	id, err := svc.Request(handles)
	require.NoError(t, err)

	cleartexts, proof, err := svc.Fulfill(id)
	require.NoError(t, err)
	require.Len(t, cleartexts, state.NumSlots*cmcrypto.CleartextWordBytes)

	got, err := cmcrypto.DecodeCleartextWords(cleartexts, state.NumSlots)
	require.NoError(t, err)
	require.Equal(t, want, got)

	pk, err := cmcrypto.PointFromBytesCanonical(svc.PubKey())
	require.NoError(t, err)
	require.NoError(t, cmcrypto.VerifyFulfillment(id, pk, handles, got, proof))
}

func TestService_FulfillRejectsForeignHandles(t *testing.T) {
	svc := newTestService(t)
	other := newTestService(t)

	handles := make([][]byte, state.NumSlots)
	hd, err := other.EncryptUint64(7)
	require.NoError(t, err)
	handles[state.SlotStockPrice] = hd

	id, err := svc.Request(handles)
	require.NoError(t, err)

	_, _, err = svc.Fulfill(id)
	require.Error(t, err)
}

func TestService_FulfillUnknownRequest(t *testing.T) {
	svc := newTestService(t)
	_, _, err := svc.Fulfill(99)
	require.Error(t, err)
}
