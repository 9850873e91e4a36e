package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"

	bperrors "github.com/matzehuels/bpedit/pkg/errors"
	"github.com/matzehuels/bpedit/pkg/observability"
)

// DefaultMongoCollection is the collection entries are stored in.
const DefaultMongoCollection = "library"

// MongoStore keeps one document per entry, keyed by the library key.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// mongoEntry is the stored document. The library key is the _id.
type mongoEntry struct {
	Key       string    `bson:"_id"`
	ID        string    `bson:"entry_id"`
	Label     string    `bson:"label,omitempty"`
	Kind      string    `bson:"kind"`
	Envelope  string    `bson:"envelope"`
	Hash      string    `bson:"hash"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toMongo(e Entry) mongoEntry {
	return mongoEntry{
		Key:       e.Key,
		ID:        e.ID.String(),
		Label:     e.Label,
		Kind:      e.Kind,
		Envelope:  e.Envelope,
		Hash:      e.Hash,
		UpdatedAt: e.UpdatedAt,
	}
}

func (m mongoEntry) entry() (Entry, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return Entry{}, bperrors.Wrap(bperrors.ErrCodeStoreCorrupt, err, "entry %q id", m.Key)
	}
	return Entry{
		ID:        id,
		Key:       m.Key,
		Label:     m.Label,
		Kind:      m.Kind,
		Envelope:  m.Envelope,
		Hash:      m.Hash,
		UpdatedAt: m.UpdatedAt.UTC(),
	}, nil
}

// NewMongoStore connects to uri and uses database.collection (the
// collection defaults to DefaultMongoCollection).
func NewMongoStore(ctx context.Context, uri, database, collection string, opts ...Option) (*MongoStore, error) {
	if collection == "" {
		collection = DefaultMongoCollection
	}
	client, err := mongo.Connect(ctx, mongoopts.Client().ApplyURI(uri))
	if err != nil {
		return nil, bperrors.Wrap(bperrors.ErrCodeStoreUnavailable, err, "connect mongodb")
	}
	o := buildOptions(opts)
	err = o.connect(ctx, BackendMongo, func(ctx context.Context) error {
		if err := client.Ping(ctx, nil); err != nil {
			return Retryable(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, bperrors.Wrap(bperrors.ErrCodeStoreUnavailable, err, "ping mongodb")
	}
	o.logger.Debug("connected to mongodb", "database", database, "collection", collection)
	return &MongoStore{client: client, coll: client.Database(database).Collection(collection)}, nil
}

// Get fetches the entry for key.
func (s *MongoStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	if err := bperrors.ValidateStoreKey(key); err != nil {
		return Entry{}, false, err
	}
	var doc mongoEntry
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		observability.Store().OnStoreMiss(ctx, BackendMongo)
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, bperrors.Wrap(bperrors.ErrCodeStoreUnavailable, err, "mongodb get %q", key)
	}
	e, err := doc.entry()
	if err != nil {
		return Entry{}, false, err
	}
	observability.Store().OnStoreHit(ctx, BackendMongo)
	return e, true, nil
}

// Set upserts the entry.
func (s *MongoStore) Set(ctx context.Context, e Entry) error {
	e, err := prepare(e)
	if err != nil {
		return err
	}
	_, err = s.coll.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: e.Key}},
		toMongo(e),
		mongoopts.Replace().SetUpsert(true),
	)
	if err != nil {
		return bperrors.Wrap(bperrors.ErrCodeStoreUnavailable, err, "mongodb set %q", e.Key)
	}
	observability.Store().OnStoreSet(ctx, BackendMongo, len(e.Envelope))
	return nil
}

// Delete removes the entry.
func (s *MongoStore) Delete(ctx context.Context, key string) error {
	if err := bperrors.ValidateStoreKey(key); err != nil {
		return err
	}
	if _, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: key}}); err != nil {
		return bperrors.Wrap(bperrors.ErrCodeStoreUnavailable, err, "mongodb delete %q", key)
	}
	return nil
}

// List returns all entries sorted by key.
func (s *MongoStore) List(ctx context.Context) ([]Entry, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, mongoopts.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, bperrors.Wrap(bperrors.ErrCodeStoreUnavailable, err, "mongodb list")
	}
	var docs []mongoEntry
	if err := cur.All(ctx, &docs); err != nil {
		return nil, bperrors.Wrap(bperrors.ErrCodeStoreUnavailable, err, "mongodb list")
	}
	entries := make([]Entry, 0, len(docs))
	for _, d := range docs {
		e, err := d.entry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
