package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/model"
)

const (
	bagsCollection     = "bags"
	countersCollection = "counters"
	settingsCollection = "settings"
)

// bagDocument is the BSON shape of a bag. The integer id doubles as _id.
type bagDocument struct {
	ID        int64     `bson:"_id"`
	Type      string    `bson:"type"`
	Color     string    `bson:"color"`
	Material  string    `bson:"material"`
	Quantity  int       `bson:"quantity"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d bagDocument) bag() *model.Bag {
	return &model.Bag{
		ID:        d.ID,
		Type:      d.Type,
		Color:     d.Color,
		Material:  d.Material,
		Quantity:  d.Quantity,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

// MongoBags stores bags in a MongoDB collection. Ids come from a counter
// document so they stay integral and strictly increasing.
type MongoBags struct {
	client   *mongo.Client
	bags     *mongo.Collection
	counters *mongo.Collection
	settings *mongo.Collection
}

// ConnectMongo connects to uri, verifies the connection and returns a store
// using the named database.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoBags, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	return NewMongoBags(client, client.Database(database)), nil
}

// NewMongoBags returns a store on an existing database handle.
func NewMongoBags(client *mongo.Client, database *mongo.Database) *MongoBags {
	return &MongoBags{
		client:   client,
		bags:     database.Collection(bagsCollection),
		counters: database.Collection(countersCollection),
		settings: database.Collection(settingsCollection),
	}
}

// nextID atomically increments the bag counter.
func (s *MongoBags) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: bagsCollection}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "seq", Value: int64(1)}}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("allocating bag id: %w", err)
	}
	return counter.Seq, nil
}

// CreateBag inserts a new bag document.
func (s *MongoBags) CreateBag(ctx context.Context, in model.CreateBagInput) (*model.Bag, error) {
	id, err := s.nextID(ctx)
	if err != nil {
		return nil, storageError("create", err)
	}

	doc := bagDocument{
		ID:        id,
		Type:      in.Type,
		Color:     in.Color,
		Material:  in.Material,
		Quantity:  in.Quantity,
		CreatedAt: now().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.bags.InsertOne(ctx, doc); err != nil {
		return nil, storageError("create", fmt.Errorf("creating bag: %w", err))
	}
	return doc.bag(), nil
}

// ListBags returns all bags sorted by id.
func (s *MongoBags) ListBags(ctx context.Context) ([]model.Bag, error) {
	cursor, err := s.bags.Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, storageError("list", fmt.Errorf("listing bags: %w", err))
	}
	defer cursor.Close(ctx)

	bags := []model.Bag{}
	for cursor.Next(ctx) {
		var doc bagDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, storageError("list", fmt.Errorf("decoding bag: %w", err))
		}
		bags = append(bags, *doc.bag())
	}
	if err := cursor.Err(); err != nil {
		return nil, storageError("list", fmt.Errorf("listing bags: %w", err))
	}
	return bags, nil
}

// GetBag returns a bag by ID.
func (s *MongoBags) GetBag(ctx context.Context, id int64) (*model.Bag, error) {
	var doc bagDocument
	err := s.bags.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("get", fmt.Errorf("getting bag: %w", err))
	}
	return doc.bag(), nil
}

// UpdateBag sets the supplied fields and returns the updated document.
func (s *MongoBags) UpdateBag(ctx context.Context, in model.UpdateBagInput) (*model.Bag, error) {
	if in.Empty() {
		return s.GetBag(ctx, in.ID)
	}

	set := bson.D{}
	if v, ok := in.Type.Get(); ok {
		set = append(set, bson.E{Key: "type", Value: v})
	}
	if v, ok := in.Color.Get(); ok {
		set = append(set, bson.E{Key: "color", Value: v})
	}
	if v, ok := in.Material.Get(); ok {
		set = append(set, bson.E{Key: "material", Value: v})
	}
	if v, ok := in.Quantity.Get(); ok {
		set = append(set, bson.E{Key: "quantity", Value: v})
	}

	var doc bagDocument
	err := s.bags.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: in.ID}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("update", fmt.Errorf("updating bag: %w", err))
	}
	return doc.bag(), nil
}

// DeleteBag removes a bag document and reports whether it existed.
func (s *MongoBags) DeleteBag(ctx context.Context, id int64) (bool, error) {
	result, err := s.bags.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return false, storageError("delete", fmt.Errorf("deleting bag: %w", err))
	}
	return result.DeletedCount > 0, nil
}

// Close disconnects the client.
func (s *MongoBags) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
