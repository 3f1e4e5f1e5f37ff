// Package storetest holds a compliance suite every repository.DocumentStore
// backend runs from its own tests.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/xid"

	"github.com/sakif/sweet-shop/internal/apperror"
	"github.com/sakif/sweet-shop/internal/repository"
)

// Run exercises the DocumentStore contract. makeStore must return a clean,
// isolated store; collections are namespaced per run so shared servers work too.
func Run(t *testing.T, makeStore func(t *testing.T) repository.DocumentStore) {
	t.Helper()

	t.Run("get missing returns NotFound", func(t *testing.T) {
		s := makeStore(t)
		_, err := s.Get(context.Background(), collection(), "nope")
		if !errors.Is(err, apperror.ErrNotFound) {
			t.Fatalf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("set then get round-trips", func(t *testing.T) {
		s := makeStore(t)
		ctx := context.Background()
		c := collection()

		if err := s.Set(ctx, c, "k1", json.RawMessage(`{"title":"Cherry Pie","price":120}`)); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		doc, err := s.Get(ctx, c, "k1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if doc.Key != "k1" {
			t.Errorf("Key = %q, want %q", doc.Key, "k1")
		}
		assertJSONEq(t, `{"title":"Cherry Pie","price":120}`, doc.Body)
	})

	t.Run("set overwrites the whole document", func(t *testing.T) {
		s := makeStore(t)
		ctx := context.Background()
		c := collection()

		mustSet(t, s, c, "k1", `{"a":1,"b":2}`)
		mustSet(t, s, c, "k1", `{"c":3}`)

		doc, err := s.Get(ctx, c, "k1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		assertJSONEq(t, `{"c":3}`, doc.Body)
	})

	t.Run("set rejects non-object bodies", func(t *testing.T) {
		s := makeStore(t)
		err := s.Set(context.Background(), collection(), "k1", json.RawMessage(`[1,2,3]`))
		if !errors.Is(err, apperror.ErrValidation) {
			t.Fatalf("Set() error = %v, want ErrValidation", err)
		}
	})

	t.Run("create refuses an existing key", func(t *testing.T) {
		s := makeStore(t)
		ctx := context.Background()
		c := collection()

		if err := s.Create(ctx, c, "k1", json.RawMessage(`{"v":1}`)); err != nil {
			t.Fatalf("first Create() error = %v", err)
		}
		err := s.Create(ctx, c, "k1", json.RawMessage(`{"v":2}`))
		if !errors.Is(err, apperror.ErrConflict) {
			t.Fatalf("second Create() error = %v, want ErrConflict", err)
		}

		doc, err := s.Get(ctx, c, "k1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		assertJSONEq(t, `{"v":1}`, doc.Body)
	})

	t.Run("update merges top-level fields", func(t *testing.T) {
		s := makeStore(t)
		ctx := context.Background()
		c := collection()

		mustSet(t, s, c, "k1", `{"likedItems":["a"],"cart":[{"id":"x"}]}`)

		err := s.Update(ctx, c, "k1", map[string]any{"likedItems": []string{"a", "b"}})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		doc, err := s.Get(ctx, c, "k1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		assertJSONEq(t, `{"likedItems":["a","b"],"cart":[{"id":"x"}]}`, doc.Body)
	})

	t.Run("update missing returns NotFound", func(t *testing.T) {
		s := makeStore(t)
		err := s.Update(context.Background(), collection(), "ghost", map[string]any{"a": 1})
		if !errors.Is(err, apperror.ErrNotFound) {
			t.Fatalf("Update() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("query lists a collection ordered by key", func(t *testing.T) {
		s := makeStore(t)
		ctx := context.Background()
		c := collection()
		other := collection()

		mustSet(t, s, c, "b", `{"n":2}`)
		mustSet(t, s, c, "a", `{"n":1}`)
		mustSet(t, s, other, "z", `{"n":26}`)

		docs, err := s.Query(ctx, c)
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if len(docs) != 2 {
			t.Fatalf("Query() returned %d docs, want 2", len(docs))
		}
		if docs[0].Key != "a" || docs[1].Key != "b" {
			t.Errorf("Query() keys = [%s %s], want [a b]", docs[0].Key, docs[1].Key)
		}
	})

	t.Run("query on empty collection returns empty slice", func(t *testing.T) {
		s := makeStore(t)
		docs, err := s.Query(context.Background(), collection())
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if docs == nil || len(docs) != 0 {
			t.Fatalf("Query() = %v, want empty non-nil slice", docs)
		}
	})

	t.Run("delete removes and then reports NotFound", func(t *testing.T) {
		s := makeStore(t)
		ctx := context.Background()
		c := collection()

		mustSet(t, s, c, "k1", `{"v":1}`)
		if err := s.Delete(ctx, c, "k1"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := s.Get(ctx, c, "k1"); !errors.Is(err, apperror.ErrNotFound) {
			t.Fatalf("Get() after delete error = %v, want ErrNotFound", err)
		}
		if err := s.Delete(ctx, c, "k1"); !errors.Is(err, apperror.ErrNotFound) {
			t.Fatalf("second Delete() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("ping", func(t *testing.T) {
		s := makeStore(t)
		if err := s.Ping(context.Background()); err != nil {
			t.Fatalf("Ping() error = %v", err)
		}
	})
}

func collection() string {
	return "storetest_" + xid.New().String()
}

func mustSet(t *testing.T, s repository.DocumentStore, collection, key, body string) {
	t.Helper()
	if err := s.Set(context.Background(), collection, key, json.RawMessage(body)); err != nil {
		t.Fatalf("Set(%s/%s) error = %v", collection, key, err)
	}
}

func assertJSONEq(t *testing.T, want string, got json.RawMessage) {
	t.Helper()
	var w, g any
	if err := json.Unmarshal([]byte(want), &w); err != nil {
		t.Fatalf("bad expected JSON: %v", err)
	}
	if err := json.Unmarshal(got, &g); err != nil {
		t.Fatalf("stored body is not JSON: %v (%s)", err, got)
	}
	wb, _ := json.Marshal(w)
	gb, _ := json.Marshal(g)
	if string(wb) != string(gb) {
		t.Errorf("body = %s, want %s", gb, wb)
	}
}
