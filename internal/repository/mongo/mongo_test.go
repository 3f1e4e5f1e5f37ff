package mongo

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/sakif/sweet-shop/internal/repository"
	"github.com/sakif/sweet-shop/internal/repository/storetest"
)

func TestFromJSON_KeepsIntegers(t *testing.T) {
	v, err := fromJSON([]byte(`{"price":120,"weight":1.5,"tags":[1,"a"]}`))
	require.NoError(t, err)

	m := v.(map[string]any)
	assert.Equal(t, int64(120), m["price"])
	assert.Equal(t, 1.5, m["weight"])
	assert.Equal(t, []any{int64(1), "a"}, m["tags"])
}

func TestToBSONValue_UsesJSONFieldNames(t *testing.T) {
	type line struct {
		ImageURL string `json:"imageUrl"`
		Quantity int    `json:"quantity"`
	}

	v, err := toBSONValue([]line{{ImageURL: "pie.png", Quantity: 2}})
	require.NoError(t, err)

	first := v.([]any)[0].(map[string]any)
	assert.Equal(t, "pie.png", first["imageUrl"])
	assert.Equal(t, int64(2), first["quantity"])
}

func TestRecordDocument_RendersBSONContainers(t *testing.T) {
	rec := record{
		Key: "u1",
		Body: bson.D{
			{Key: "likedItems", Value: bson.A{"p1", "p2"}},
			{Key: "cart", Value: bson.A{bson.D{{Key: "id", Value: "p3"}, {Key: "price", Value: int64(90)}}}},
		},
	}

	doc, err := rec.document()
	require.NoError(t, err)
	assert.JSONEq(t, `{"likedItems":["p1","p2"],"cart":[{"id":"p3","price":90}]}`, string(doc.Body))
}

func TestOpen_EmptyURI(t *testing.T) {
	_, err := Open(context.Background(), "", "shop")
	assert.Error(t, err)
}

// Runs only against a live server, e.g. MONGODB_TEST_URI=mongodb://localhost:27017
func TestDocumentStoreContract(t *testing.T) {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	storetest.Run(t, func(t *testing.T) repository.DocumentStore {
		s, err := Open(context.Background(), uri, "sweet_shop_test")
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}
