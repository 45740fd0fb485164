package store

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/db"
	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/model"
)

var backpack = model.CreateBagInput{Type: "Backpack", Color: "Blue", Material: "Canvas", Quantity: 5}

func newSQLiteBags(t *testing.T) Bags {
	return NewSQLBags(db.NewTestDB(t), db.SQLite)
}

func newPostgresBags(t *testing.T) Bags {
	return NewSQLBags(db.NewTestPostgres(t), db.Postgres)
}

func newMongoBags(t *testing.T) Bags {
	t.Helper()
	uri := os.Getenv("BAGFACTORY_TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("BAGFACTORY_TEST_MONGODB_URI not set")
	}

	ctx := context.Background()
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}

	database := client.Database(fmt.Sprintf("bagfactory_test_%d", time.Now().UnixNano()))
	s := NewMongoBags(client, database)
	t.Cleanup(func() {
		_ = database.Drop(ctx)
		_ = s.Close()
	})
	return s
}

// backends runs fn against every store implementation that is reachable.
func backends(t *testing.T, fn func(t *testing.T, s Bags)) {
	for name, open := range map[string]func(*testing.T) Bags{
		"sqlite":   newSQLiteBags,
		"postgres": newPostgresBags,
		"mongo":    newMongoBags,
	} {
		t.Run(name, func(t *testing.T) {
			fn(t, open(t))
		})
	}
}

func assertSameBag(t *testing.T, want, got *model.Bag) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Type, got.Type)
	assert.Equal(t, want.Color, got.Color)
	assert.Equal(t, want.Material, got.Material)
	assert.Equal(t, want.Quantity, got.Quantity)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", want.CreatedAt, got.CreatedAt)
}

func TestCreateBag(t *testing.T) {
	backends(t, func(t *testing.T, s Bags) {
		ctx := context.Background()
		start := time.Now().Truncate(time.Millisecond)

		bag, err := s.CreateBag(ctx, backpack)
		require.NoError(t, err)

		assert.Positive(t, bag.ID)
		assert.Equal(t, "Backpack", bag.Type)
		assert.Equal(t, "Blue", bag.Color)
		assert.Equal(t, "Canvas", bag.Material)
		assert.Equal(t, 5, bag.Quantity)
		assert.False(t, bag.CreatedAt.Before(start), "created_at %v before %v", bag.CreatedAt, start)

		got, err := s.GetBag(ctx, bag.ID)
		require.NoError(t, err)
		assertSameBag(t, bag, got)
	})
}

func TestCreateBagAssignsIncreasingIDs(t *testing.T) {
	backends(t, func(t *testing.T, s Bags) {
		ctx := context.Background()

		var last int64
		for i := 0; i < 5; i++ {
			bag, err := s.CreateBag(ctx, backpack)
			require.NoError(t, err)
			assert.Greater(t, bag.ID, last)
			last = bag.ID
		}
	})
}

func TestIDsAreNotReusedAfterDelete(t *testing.T) {
	backends(t, func(t *testing.T, s Bags) {
		ctx := context.Background()

		first, err := s.CreateBag(ctx, backpack)
		require.NoError(t, err)
		deleted, err := s.DeleteBag(ctx, first.ID)
		require.NoError(t, err)
		require.True(t, deleted)

		second, err := s.CreateBag(ctx, backpack)
		require.NoError(t, err)
		assert.Greater(t, second.ID, first.ID)
	})
}

func TestListBags(t *testing.T) {
	backends(t, func(t *testing.T, s Bags) {
		ctx := context.Background()

		bags, err := s.ListBags(ctx)
		require.NoError(t, err)
		assert.NotNil(t, bags)
		assert.Empty(t, bags)

		r1, err := s.CreateBag(ctx, backpack)
		require.NoError(t, err)
		r2, err := s.CreateBag(ctx, model.CreateBagInput{Type: "Clutch", Color: "Gold", Material: "Leather", Quantity: 1})
		require.NoError(t, err)

		bags, err = s.ListBags(ctx)
		require.NoError(t, err)
		require.Len(t, bags, 2)
		assertSameBag(t, r1, &bags[0])
		assertSameBag(t, r2, &bags[1])
	})
}

func TestGetBagNotFound(t *testing.T) {
	backends(t, func(t *testing.T, s Bags) {
		bag, err := s.GetBag(context.Background(), 999)
		require.NoError(t, err)
		assert.Nil(t, bag)
	})
}

func TestUpdateBagPartial(t *testing.T) {
	backends(t, func(t *testing.T, s Bags) {
		ctx := context.Background()
		created, err := s.CreateBag(ctx, backpack)
		require.NoError(t, err)

		updated, err := s.UpdateBag(ctx, model.UpdateBagInput{ID: created.ID, Quantity: model.Some(0)})
		require.NoError(t, err)

		want := *created
		want.Quantity = 0
		assertSameBag(t, &want, updated)

		updated, err = s.UpdateBag(ctx, model.UpdateBagInput{
			ID:       created.ID,
			Type:     model.Some("Tote Bag"),
			Material: model.Some("Leather"),
		})
		require.NoError(t, err)

		want.Type = "Tote Bag"
		want.Material = "Leather"
		assertSameBag(t, &want, updated)

		got, err := s.GetBag(ctx, created.ID)
		require.NoError(t, err)
		assertSameBag(t, &want, got)
	})
}

func TestUpdateBagWithoutFieldsIsNoop(t *testing.T) {
	backends(t, func(t *testing.T, s Bags) {
		ctx := context.Background()
		created, err := s.CreateBag(ctx, backpack)
		require.NoError(t, err)

		updated, err := s.UpdateBag(ctx, model.UpdateBagInput{ID: created.ID})
		require.NoError(t, err)
		assertSameBag(t, created, updated)
	})
}

func TestUpdateBagNotFound(t *testing.T) {
	backends(t, func(t *testing.T, s Bags) {
		ctx := context.Background()

		updated, err := s.UpdateBag(ctx, model.UpdateBagInput{ID: 999, Color: model.Some("Red")})
		require.NoError(t, err)
		assert.Nil(t, updated)

		updated, err = s.UpdateBag(ctx, model.UpdateBagInput{ID: 999})
		require.NoError(t, err)
		assert.Nil(t, updated)
	})
}

func TestDeleteBag(t *testing.T) {
	backends(t, func(t *testing.T, s Bags) {
		ctx := context.Background()
		created, err := s.CreateBag(ctx, backpack)
		require.NoError(t, err)

		deleted, err := s.DeleteBag(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		for i := 0; i < 2; i++ {
			deleted, err = s.DeleteBag(ctx, created.ID)
			require.NoError(t, err)
			assert.False(t, deleted)
		}

		got, err := s.GetBag(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, got)

		updated, err := s.UpdateBag(ctx, model.UpdateBagInput{ID: created.ID, Quantity: model.Some(1)})
		require.NoError(t, err)
		assert.Nil(t, updated)

		deleted, err = s.DeleteBag(ctx, 999)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestConcurrentCreates(t *testing.T) {
	backends(t, func(t *testing.T, s Bags) {
		ctx := context.Background()
		const n = 10

		var wg sync.WaitGroup
		ids := make(chan int64, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				bag, err := s.CreateBag(ctx, backpack)
				if assert.NoError(t, err) {
					ids <- bag.ID
				}
			}()
		}
		wg.Wait()
		close(ids)

		seen := map[int64]bool{}
		for id := range ids {
			assert.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
		}
		assert.Len(t, seen, n)
	})
}

func TestStorageErrorOnClosedDatabase(t *testing.T) {
	s := newSQLiteBags(t)
	require.NoError(t, s.Close())

	_, err := s.CreateBag(context.Background(), backpack)
	assert.True(t, model.IsStorage(err), "expected StorageError, got %v", err)

	_, err = s.ListBags(context.Background())
	assert.True(t, model.IsStorage(err), "expected StorageError, got %v", err)

	_, err = s.DeleteBag(context.Background(), 1)
	assert.True(t, model.IsStorage(err), "expected StorageError, got %v", err)
}

func TestCreatedAtUsesClock(t *testing.T) {
	fixed := time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	s := newSQLiteBags(t)
	bag, err := s.CreateBag(context.Background(), backpack)
	require.NoError(t, err)
	assert.True(t, fixed.Equal(bag.CreatedAt))

	got, err := s.GetBag(context.Background(), bag.ID)
	require.NoError(t, err)
	assert.True(t, fixed.Equal(got.CreatedAt), "stored %v, want %v", got.CreatedAt, fixed)
}
