package storage

import (
	"context"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// testGridFS connects to MONGO_URI or skips the test.
func testGridFS(t *testing.T) *GridFSStore {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Skipf("failed to ping: %v, skipping integration test", err)
	}
	t.Cleanup(func() { client.Disconnect(context.Background()) })

	database := client.Database("test_equipment_checklist_images")
	require.NoError(t, database.Drop(context.Background()))
	store, err := NewGridFSStore(database, "")
	require.NoError(t, err)
	return store
}

func readAll(t *testing.T, rc io.ReadCloser) []byte {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

func TestGridFSStore_PutOpen(t *testing.T) {
	store := testGridFS(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "checklist-images/engine-a.png", "image/png", pngHeader))

	rc, info, err := store.Open(ctx, "checklist-images/engine-a.png")
	require.NoError(t, err)
	assert.Equal(t, pngHeader, readAll(t, rc))
	assert.Equal(t, "checklist-images/engine-a.png", info.Path)
	assert.Equal(t, "image/png", info.ContentType)
	assert.Equal(t, int64(len(pngHeader)), info.Size)
	assert.False(t, info.UploadedAt.IsZero())
}

func TestGridFSStore_OpenReadsNewestRevision(t *testing.T) {
	store := testGridFS(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "checklist-images/brakes.jpg", "image/jpeg", []byte("first")))
	require.NoError(t, store.Put(ctx, "checklist-images/brakes.jpg", "image/webp", []byte("second")))

	rc, info, err := store.Open(ctx, "checklist-images/brakes.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), readAll(t, rc))
	assert.Equal(t, "image/webp", info.ContentType)
}

func TestGridFSStore_OpenMissing(t *testing.T) {
	store := testGridFS(t)

	_, _, err := store.Open(context.Background(), "checklist-images/missing.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestGridFSStore_CanceledContext(t *testing.T) {
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI("mongodb://127.0.0.1:1"))
	require.NoError(t, err)
	defer client.Disconnect(context.Background())
	store, err := NewGridFSStore(client.Database("unused"), "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.Put(ctx, "a.png", "image/png", pngHeader), context.Canceled)
	_, _, err = store.Open(ctx, "a.png")
	assert.ErrorIs(t, err, context.Canceled)
}

// Concurrent calls must not share deadline state; run with -race.
func TestGridFSStore_ConcurrentPut(t *testing.T) {
	client, err := mongo.Connect(context.Background(), options.Client().
		ApplyURI("mongodb://127.0.0.1:1").
		SetServerSelectionTimeout(100*time.Millisecond))
	require.NoError(t, err)
	defer client.Disconnect(context.Background())
	store, err := NewGridFSStore(client.Database("unused"), "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	putErrs := make([]error, 4)
	openErrs := make([]error, 4)
	for i := range putErrs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(i+1)*time.Second)
			defer cancel()
			putErrs[i] = store.Put(ctx, "checklist-images/engine.png", "image/png", pngHeader)
			_, _, openErrs[i] = store.Open(ctx, "checklist-images/engine.png")
		}(i)
	}
	wg.Wait()

	for i := range putErrs {
		assert.Error(t, putErrs[i], "upload %d should fail without a server", i)
		assert.Error(t, openErrs[i], "read %d should fail without a server", i)
	}
}
