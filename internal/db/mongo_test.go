package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/equipment-checklist/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// testDatabase connects to MONGO_URI or skips the test.
func testDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := ConnectMongo(ctx, uri)
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}
	t.Cleanup(func() { client.Disconnect(context.Background()) })

	database := client.Database("test_equipment_checklist")
	require.NoError(t, database.Drop(context.Background()))
	return database
}

func TestConnectMongo_BadURI(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, err := ConnectMongo(ctx, "mongodb://bad:uri")
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, normalizeLimit(0))
	assert.Equal(t, DefaultListLimit, normalizeLimit(-3))
	assert.Equal(t, 25, normalizeLimit(25))
	assert.Equal(t, MaxListLimit, normalizeLimit(1000))
}

func TestMongoChecklistCollection_NilCollection(t *testing.T) {
	coll := &MongoChecklistCollection{}
	ctx := context.Background()

	_, err := coll.InsertChecklist(ctx, models.Checklist{})
	var pErr *PersistenceError
	assert.True(t, errors.As(err, &pErr))
	assert.ErrorIs(t, err, ErrNilCollection)

	err = coll.InsertChecklistItems(ctx, primitive.NewObjectID(), []models.ChecklistItem{{ItemID: "engine"}})
	assert.ErrorIs(t, err, ErrNilCollection)

	_, err = coll.ListChecklists(ctx, ListOptions{})
	assert.ErrorIs(t, err, ErrNilCollection)

	_, err = coll.FindChecklistItems(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNilCollection)
}

func TestMongoChecklistCollection_Integration(t *testing.T) {
	database := testDatabase(t)
	require.NoError(t, EnsureIndexes(context.Background(), database))
	coll := NewMongoChecklistCollection(database)
	ctx := context.Background()

	var ids []primitive.ObjectID
	for i, user := range []string{"u1", "u2", "u1"} {
		stored, err := coll.InsertChecklist(ctx, models.Checklist{
			UserID:          user,
			ChecklistType:   models.ChecklistGeneral,
			OperatorName:    "Operator",
			EquipmentNumber: string(rune('A' + i)),
			Score:           50,
		})
		require.NoError(t, err)
		assert.False(t, stored.ID.IsZero())
		assert.False(t, stored.CreatedAt.IsZero())
		ids = append(ids, stored.ID)
		time.Sleep(5 * time.Millisecond)
	}

	items := []models.ChecklistItem{
		{Position: 1, CategoryTitle: "B", ItemID: "b1", Status: models.StatusFailed, ImageURL: "http://img/b1.png"},
		{Position: 0, CategoryTitle: "A", ItemID: "a1", Status: models.StatusPassed},
	}
	require.NoError(t, coll.InsertChecklistItems(ctx, ids[0], items))

	found, err := coll.FindChecklistItems(ctx, ids[0])
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "a1", found[0].ItemID)
	assert.Equal(t, ids[0], found[1].ChecklistID)
	assert.Equal(t, "http://img/b1.png", found[1].ImageURL)

	all, err := coll.ListChecklists(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")

	mine, err := coll.ListChecklists(ctx, ListOptions{UserID: "u1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, ids[2], mine[0].ID)

	one, err := coll.FindChecklistByID(ctx, ids[1].Hex())
	require.NoError(t, err)
	assert.Equal(t, "u2", one.UserID)

	_, err = coll.FindChecklistByID(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = coll.FindChecklistByID(ctx, "not-hex")
	assert.ErrorIs(t, err, ErrNotFound)
}
