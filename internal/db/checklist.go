package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/equipment-checklist/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoChecklistCollection implements ChecklistCollection on two collections:
// one document per submitted checklist and one per checklist item.
type MongoChecklistCollection struct {
	Checklists *mongo.Collection
	Items      *mongo.Collection
}

// NewMongoChecklistCollection binds the checklist collections of database.
func NewMongoChecklistCollection(database *mongo.Database) *MongoChecklistCollection {
	return &MongoChecklistCollection{
		Checklists: database.Collection(ChecklistsCollection),
		Items:      database.Collection(ChecklistItemsCollection),
	}
}

// InsertChecklist stores the checklist header and returns it with ID and CreatedAt assigned.
func (c *MongoChecklistCollection) InsertChecklist(ctx context.Context, record models.Checklist) (*models.Checklist, error) {
	if c.Checklists == nil {
		return nil, &PersistenceError{Op: "insert checklist", Err: ErrNilCollection}
	}

	record.ID = primitive.NewObjectID()
	record.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	if _, err := c.Checklists.InsertOne(ctx, record); err != nil {
		return nil, &PersistenceError{Op: "insert checklist", Err: err}
	}
	return &record, nil
}

// InsertChecklistItems stores the items of an already inserted checklist.
func (c *MongoChecklistCollection) InsertChecklistItems(ctx context.Context, checklistID primitive.ObjectID, items []models.ChecklistItem) error {
	if c.Items == nil {
		return &PersistenceError{Op: "insert checklist items", Err: ErrNilCollection}
	}
	if checklistID.IsZero() {
		return &PersistenceError{Op: "insert checklist items", Err: errors.New("checklist id is required")}
	}
	if len(items) == 0 {
		return nil
	}

	docs := make([]interface{}, len(items))
	for i, it := range items {
		it.ID = primitive.NewObjectID()
		it.ChecklistID = checklistID
		docs[i] = it
	}

	if _, err := c.Items.InsertMany(ctx, docs); err != nil {
		return &PersistenceError{Op: "insert checklist items", Err: err}
	}
	return nil
}

// ListChecklists returns the most recent checklists first.
func (c *MongoChecklistCollection) ListChecklists(ctx context.Context, opts ListOptions) ([]models.Checklist, error) {
	if c.Checklists == nil {
		return nil, &PersistenceError{Op: "list checklists", Err: ErrNilCollection}
	}

	filter := bson.M{}
	if opts.UserID != "" {
		filter["user_id"] = opts.UserID
	}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(normalizeLimit(opts.Limit)))

	cursor, err := c.Checklists.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, &PersistenceError{Op: "list checklists", Err: err}
	}
	defer cursor.Close(ctx)

	checklists := []models.Checklist{}
	if err := cursor.All(ctx, &checklists); err != nil {
		return nil, &PersistenceError{Op: "decode checklists", Err: err}
	}
	return checklists, nil
}

// FindChecklistByID finds a checklist by its hex ID.
func (c *MongoChecklistCollection) FindChecklistByID(ctx context.Context, id string) (*models.Checklist, error) {
	if c.Checklists == nil {
		return nil, &PersistenceError{Op: "find checklist", Err: ErrNilCollection}
	}

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid checklist ID: %w", ErrNotFound)
	}

	var checklist models.Checklist
	err = c.Checklists.FindOne(ctx, bson.M{"_id": objectID}).Decode(&checklist)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("checklist %s: %w", id, ErrNotFound)
		}
		return nil, &PersistenceError{Op: "find checklist", Err: err}
	}
	return &checklist, nil
}

// FindChecklistItems returns the items of a checklist in display order.
func (c *MongoChecklistCollection) FindChecklistItems(ctx context.Context, checklistID primitive.ObjectID) ([]models.ChecklistItem, error) {
	if c.Items == nil {
		return nil, &PersistenceError{Op: "find checklist items", Err: ErrNilCollection}
	}

	cursor, err := c.Items.Find(ctx,
		bson.M{"checklist_id": checklistID},
		options.Find().SetSort(bson.D{{Key: "position", Value: 1}}),
	)
	if err != nil {
		return nil, &PersistenceError{Op: "find checklist items", Err: err}
	}
	defer cursor.Close(ctx)

	items := []models.ChecklistItem{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, &PersistenceError{Op: "decode checklist items", Err: err}
	}
	return items, nil
}
