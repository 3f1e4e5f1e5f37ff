// Package mongo implements repository.DocumentStore on MongoDB.
//
// Each repository collection maps to a MongoDB collection of the same name.
// A stored document looks like {_id: <key>, body: {...}, updated_at: <date>},
// so Update can $set individual "body.<field>" paths without reading first.
package mongo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/sweet-shop/internal/apperror"
	"github.com/sakif/sweet-shop/internal/repository"
)

var _ repository.DocumentStore = (*Store)(nil)

// Store is a MongoDB-backed document store.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

type record struct {
	Key       string    `bson:"_id"`
	Body      any       `bson:"body"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Open connects to uri and selects database.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	if uri == "" {
		return nil, errors.New("mongo: URI is empty")
	}

	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connecting: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: pinging: %w", err)
	}

	slog.Info("connected to mongodb", slog.String("database", database))
	return &Store{client: client, db: client.Database(database)}, nil
}

func (s *Store) Get(ctx context.Context, collection, key string) (*repository.Document, error) {
	var rec record
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": key}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound(collection, key)
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: getting %s/%s: %w", collection, key, err)
	}
	return rec.document()
}

func (s *Store) Set(ctx context.Context, collection, key string, body json.RawMessage) error {
	if err := repository.ValidateBody(body); err != nil {
		return err
	}
	value, err := fromJSON(body)
	if err != nil {
		return fmt.Errorf("mongo: converting %s/%s: %w", collection, key, err)
	}

	rec := record{Key: key, Body: value, UpdatedAt: time.Now().UTC()}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": key}, rec, opts); err != nil {
		return fmt.Errorf("mongo: setting %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, collection, key string, body json.RawMessage) error {
	if err := repository.ValidateBody(body); err != nil {
		return err
	}
	value, err := fromJSON(body)
	if err != nil {
		return fmt.Errorf("mongo: converting %s/%s: %w", collection, key, err)
	}

	rec := record{Key: key, Body: value, UpdatedAt: time.Now().UTC()}
	if _, err := s.db.Collection(collection).InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict(collection, key)
		}
		return fmt.Errorf("mongo: creating %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, collection, key string, fields map[string]any) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	for name, v := range fields {
		value, err := toBSONValue(v)
		if err != nil {
			return fmt.Errorf("mongo: converting field %q of %s/%s: %w", name, collection, key, err)
		}
		set["body."+name] = value
	}

	result, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": key}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("mongo: updating %s/%s: %w", collection, key, err)
	}
	if result.MatchedCount == 0 {
		return apperror.NotFound(collection, key)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, collection string) ([]repository.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.db.Collection(collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: querying %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	docs := []repository.Document{}
	for cursor.Next(ctx) {
		var rec record
		if err := cursor.Decode(&rec); err != nil {
			return nil, fmt.Errorf("mongo: decoding %s record: %w", collection, err)
		}
		doc, err := rec.document()
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongo: iterating %s: %w", collection, err)
	}
	return docs, nil
}

func (s *Store) Delete(ctx context.Context, collection, key string) error {
	result, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return fmt.Errorf("mongo: deleting %s/%s: %w", collection, key, err)
	}
	if result.DeletedCount == 0 {
		return apperror.NotFound(collection, key)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo: ping: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (r record) document() (*repository.Document, error) {
	body, err := json.Marshal(toPlain(r.Body))
	if err != nil {
		return nil, fmt.Errorf("mongo: encoding %s body: %w", r.Key, err)
	}
	return &repository.Document{Key: r.Key, Body: body, UpdatedAt: r.UpdatedAt}, nil
}

// toBSONValue routes v through JSON so struct values are stored under their
// json field names rather than the lowercased names bson would pick.
func toBSONValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return fromJSON(raw)
}

// fromJSON decodes JSON into plain Go values with whole numbers kept as
// int64, so an integer price comes back as 120 and not 120.0.
func fromJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return numbers(v), nil
}

func numbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = numbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = numbers(e)
		}
		return t
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		f, _ := t.Float64()
		return f
	default:
		return v
	}
}

// toPlain turns decoded BSON containers back into maps and slices that
// encoding/json renders as objects and arrays.
func toPlain(v any) any {
	switch t := v.(type) {
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = toPlain(e.Value)
		}
		return m
	case bson.M:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = toPlain(e)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = toPlain(e)
		}
		return m
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = toPlain(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = toPlain(e)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	default:
		return v
	}
}
