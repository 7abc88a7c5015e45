package workflow

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"winekiosk/store"
)

func newTestGuard() (*Unauthorized, *fakeBus, *fakeStore, *recSurface) {
	bus := &fakeBus{}
	st := newFakeStore(testInventory())
	surf := newRecSurface()
	w := NewUnauthorized(bus, st, testCatalog(), surf, 3, 5*time.Millisecond)
	return w, bus, st, surf
}

func guardRemove(w *Unauthorized, drawer string, position int) {
	w.Actions()["bottle_event"](json.RawMessage(
		fmt.Sprintf(`{"event":"removed","drawer":%q,"position":%d}`, drawer, position)))
}

func TestUnauthorizedRemovalStartsCountdown(t *testing.T) {
	w, _, st, surf := newTestGuard()
	guardRemove(w, "drawer1", 1)

	require.True(t, w.CountdownActive())
	require.Equal(t, 1, w.TakenCount())
	w.Stop()

	require.Equal(t, []removedBottle{{"8410415520628", "drawer1", 1}}, st.ledgered)
	require.True(t, surf.hasShown(ModalUnauthorized))
	require.True(t, surf.hasShown(ModalUnauthorizedCountdown))
}

func TestUnauthorizedCountdownExpiryCommitsRemoval(t *testing.T) {
	w, _, st, surf := newTestGuard()
	guardRemove(w, "drawer1", 1)

	require.Eventually(t, func() bool {
		return len(st.removedBottles()) == 1
	}, time.Second, 2*time.Millisecond)
	require.Equal(t, removedBottle{"8410415520628", "drawer1", 1}, st.removedBottles()[0])
	require.False(t, w.CountdownActive())
	require.Eventually(t, func() bool {
		return surf.hasShown(ModalUnauthorizedSuccess)
	}, time.Second, 2*time.Millisecond)
}

func TestUnauthorizedSecondRemovalFinalizesFirst(t *testing.T) {
	w, _, st, _ := newTestGuard()
	guardRemove(w, "drawer1", 1)
	guardRemove(w, "drawer2", 3)

	// The first bottle is committed synchronously, before the second
	// countdown starts.
	removed := st.removedBottles()
	require.Len(t, removed, 1)
	require.Equal(t, removedBottle{"8410415520628", "drawer1", 1}, removed[0])
	require.True(t, w.CountdownActive())
	require.Equal(t, 2, w.TakenCount())

	require.Eventually(t, func() bool {
		return len(st.removedBottles()) == 2
	}, time.Second, 2*time.Millisecond)
	require.Equal(t, removedBottle{"8410415520629", "drawer2", 3}, st.removedBottles()[1])
}

func TestUnauthorizedEmptyPositionIgnored(t *testing.T) {
	w, _, st, _ := newTestGuard()
	guardRemove(w, "drawer1", 2)

	require.False(t, w.CountdownActive())
	require.Equal(t, 0, w.TakenCount())
	require.Empty(t, st.ledgered)
}

func TestUnauthorizedInsertEventIgnored(t *testing.T) {
	w, _, _, _ := newTestGuard()
	w.Actions()["bottle_event"](json.RawMessage(`{"event":"inserted","drawer":"drawer1","position":1}`))
	require.False(t, w.CountdownActive())
}

func TestUnauthorizedOpenModalRebuildsFromLedger(t *testing.T) {
	w, _, st, surf := newTestGuard()
	older := time.Now().Add(-time.Hour)
	newer := time.Now().Add(-time.Minute)
	st.ledger["8410415520628"] = &store.LedgerEntry{Locations: []store.ExtractedLocation{
		{Drawer: "drawer1", Position: 1, Timestamp: older},
	}}
	st.ledger["8410415520629"] = &store.LedgerEntry{Locations: []store.ExtractedLocation{
		{Drawer: "drawer2", Position: 3, Timestamp: newer},
	}}

	w.OpenModal()
	require.Equal(t, 2, w.TakenCount())

	view, ok := surf.shownData(ModalUnauthorized).([]TakenBottle)
	require.True(t, ok)
	require.Len(t, view, 2)
	// Most recent extraction first.
	require.Equal(t, "8410415520629", view[0].Barcode)
	require.Equal(t, "8410415520628", view[1].Barcode)

	// Re-opening without new removals changes nothing.
	w.OpenModal()
	require.Equal(t, 2, w.TakenCount())
}

func TestUnauthorizedStopCancelsWithoutCommit(t *testing.T) {
	w, _, st, _ := newTestGuard()
	guardRemove(w, "drawer1", 1)
	w.Stop()

	require.False(t, w.CountdownActive())
	time.Sleep(30 * time.Millisecond)
	require.Empty(t, st.removedBottles())
}
