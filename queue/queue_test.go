package queue_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harshach55/AssistQR/queue"
)

func openStore(t *testing.T) *queue.Store {
	t.Helper()
	store, err := queue.Open(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEnqueueAndListPending(t *testing.T) {
	store := openStore(t)

	lat, lng := 12.97, 77.59
	id, err := store.Enqueue(queue.QueuedReport{
		QRToken:    "tok123",
		Latitude:   &lat,
		Longitude:  &lng,
		HelperNote: "rear-ended at the junction",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	pending, err := store.ListPending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].ID)
	assert.Equal(t, queue.StatusPending, pending[0].Status)
	assert.Equal(t, 0, pending[0].RetryCount)
	assert.Equal(t, "tok123", pending[0].QRToken)
	if assert.NotNil(t, pending[0].Latitude) {
		assert.Equal(t, 12.97, *pending[0].Latitude)
	}
}

func TestAttachImage_OrderPreserved(t *testing.T) {
	store := openStore(t)

	id, err := store.Enqueue(queue.QueuedReport{QRToken: "tok123"})
	require.NoError(t, err)

	_, err = store.AttachImage(id, []byte("first"), "a.jpg", "image/jpeg")
	require.NoError(t, err)
	_, err = store.AttachImage(id, []byte("second"), "b.png", "image/png")
	require.NoError(t, err)
	_, err = store.AttachImage(id, []byte("third"), "c.jpg", "image/jpeg")
	require.NoError(t, err)

	images, err := store.ImagesFor(id)
	require.NoError(t, err)
	require.Len(t, images, 3)
	assert.Equal(t, []byte("first"), images[0].Body)
	assert.Equal(t, "b.png", images[1].Filename)
	assert.Equal(t, []byte("third"), images[2].Body)
	assert.Equal(t, 2, images[2].Position)
}

func TestAttachImage_RejectsNonImageMIME(t *testing.T) {
	store := openStore(t)

	id, err := store.Enqueue(queue.QueuedReport{QRToken: "tok123"})
	require.NoError(t, err)

	_, err = store.AttachImage(id, []byte("%PDF-1.4"), "doc.pdf", "application/pdf")
	assert.ErrorIs(t, err, queue.ErrInvalidImage)

	// the queue entry is untouched
	images, err := store.ImagesFor(id)
	require.NoError(t, err)
	assert.Empty(t, images)
	entry, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusPending, entry.Status)
}

func TestSetStatus_FailedIncrementsRetryCount(t *testing.T) {
	store := openStore(t)

	id, err := store.Enqueue(queue.QueuedReport{QRToken: "tok123"})
	require.NoError(t, err)

	retries, err := store.SetStatus(id, queue.StatusFailed)
	require.NoError(t, err)
	assert.Equal(t, 1, retries)

	retries, err = store.SetStatus(id, queue.StatusFailed)
	require.NoError(t, err)
	assert.Equal(t, 2, retries)

	// a plain transition does not touch the count
	retries, err = store.SetStatus(id, queue.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, 2, retries)
}

func TestListPending_ExcludesSyncingAndParked(t *testing.T) {
	store := openStore(t)

	syncing, err := store.Enqueue(queue.QueuedReport{QRToken: "a"})
	require.NoError(t, err)
	parked, err := store.Enqueue(queue.QueuedReport{QRToken: "b"})
	require.NoError(t, err)
	waiting, err := store.Enqueue(queue.QueuedReport{QRToken: "c"})
	require.NoError(t, err)

	_, err = store.SetStatus(syncing, queue.StatusSyncing)
	require.NoError(t, err)
	_, err = store.SetStatus(parked, queue.StatusPermanentlyFailed)
	require.NoError(t, err)

	pending, err := store.ListPending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, waiting, pending[0].ID)
}

func TestRemove_DeletesReportAndImagesTogether(t *testing.T) {
	store := openStore(t)

	id, err := store.Enqueue(queue.QueuedReport{QRToken: "tok123"})
	require.NoError(t, err)
	_, err = store.AttachImage(id, []byte("photo"), "a.jpg", "image/jpeg")
	require.NoError(t, err)

	require.NoError(t, store.Remove(id))

	_, err = store.Get(id)
	assert.ErrorIs(t, err, queue.ErrNotFound)
	images, err := store.ImagesFor(id)
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestAcquireLock_SecondOwnerBlockedUntilStale(t *testing.T) {
	store := openStore(t)

	ok, err := store.AcquireLock("tab-1", queue.DefaultLockStaleness)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.AcquireLock("tab-2", queue.DefaultLockStaleness)
	require.NoError(t, err)
	assert.False(t, ok)

	// with a zero staleness ceiling the lock is immediately stealable, as a
	// crashed tab's lock would be after 30s
	ok, err = store.AcquireLock("tab-2", 0)
	require.NoError(t, err)
	assert.True(t, ok)

	// releasing with the wrong owner is a no-op
	require.NoError(t, store.ReleaseLock("tab-1"))
	ok, err = store.AcquireLock("tab-3", queue.DefaultLockStaleness)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.ReleaseLock("tab-2"))
	ok, err = store.AcquireLock("tab-3", queue.DefaultLockStaleness)
	require.NoError(t, err)
	assert.True(t, ok)
}
