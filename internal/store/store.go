package store

import (
	"context"
	"time"

	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/model"
)

// Bags persists bag records. Getters return (nil, nil) when no bag matches.
// Every error returned by an implementation is a *model.StorageError.
type Bags interface {
	CreateBag(ctx context.Context, in model.CreateBagInput) (*model.Bag, error)
	ListBags(ctx context.Context) ([]model.Bag, error)
	GetBag(ctx context.Context, id int64) (*model.Bag, error)
	UpdateBag(ctx context.Context, in model.UpdateBagInput) (*model.Bag, error)
	DeleteBag(ctx context.Context, id int64) (bool, error)
	Close() error
}

// now is replaced in tests.
var now = time.Now

func storageError(op string, err error) error {
	return &model.StorageError{Op: op, Err: err}
}
