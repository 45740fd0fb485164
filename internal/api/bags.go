package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/model"
	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/store"
)

// Procedure names.
const (
	ProcCreateBag   = "createBag"
	ProcGetBags     = "getBags"
	ProcGetBag      = "getBag"
	ProcUpdateBag   = "updateBag"
	ProcDeleteBag   = "deleteBag"
	ProcHealthcheck = "healthcheck"
)

// BagsHandler implements the bag procedures on top of a store.
type BagsHandler struct {
	Bags store.Bags
}

// createBagRequest keeps quantity as a pointer so that a missing quantity
// is rejected instead of defaulting to zero.
type createBagRequest struct {
	Type     string `json:"type"`
	Color    string `json:"color"`
	Material string `json:"material"`
	Quantity *int   `json:"quantity"`
}

func (r createBagRequest) input() model.CreateBagInput {
	in := model.CreateBagInput{Type: r.Type, Color: r.Color, Material: r.Material}
	if r.Quantity != nil {
		in.Quantity = *r.Quantity
	}
	return in
}

func (r createBagRequest) Validate() error {
	if err := r.input().Validate(); err != nil {
		return err
	}
	if r.Quantity == nil {
		return &model.ValidationError{Field: "quantity", Message: "required"}
	}
	return nil
}

// updateBagRequest shadows the embedded id with a pointer so that a missing
// id is rejected. Any supplied id reaches the store.
type updateBagRequest struct {
	ID *int64 `json:"id"`
	model.UpdateBagInput
}

func (r updateBagRequest) input() model.UpdateBagInput {
	in := r.UpdateBagInput
	if r.ID != nil {
		in.ID = *r.ID
	}
	return in
}

func (r updateBagRequest) Validate() error {
	if r.ID == nil {
		return &model.ValidationError{Field: "id", Message: "required"}
	}
	return r.UpdateBagInput.Validate()
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Procedures returns the bag procedures in registration order.
func (h *BagsHandler) Procedures() []Procedure {
	return []Procedure{
		NewProcedure(ProcHealthcheck, Query, h.Healthcheck),
		NewProcedure(ProcCreateBag, Mutation, h.Create),
		NewProcedure(ProcGetBags, Query, h.List),
		NewProcedure(ProcGetBag, Query, h.Get),
		NewProcedure(ProcUpdateBag, Mutation, h.Update),
		NewProcedure(ProcDeleteBag, Mutation, h.Delete),
	}
}

// Healthcheck handles the healthcheck query.
func (h *BagsHandler) Healthcheck(_ context.Context, _ model.NoInput) (healthResponse, error) {
	return healthResponse{Status: "ok", Timestamp: time.Now().UTC()}, nil
}

// Create handles the createBag mutation.
func (h *BagsHandler) Create(ctx context.Context, req createBagRequest) (*model.Bag, error) {
	bag, err := h.Bags.CreateBag(ctx, req.input())
	if err != nil {
		return nil, err
	}
	slog.Info("bag created", append(requestAttrs(ctx), "id", bag.ID, "type", bag.Type, "quantity", bag.Quantity)...)
	return bag, nil
}

// List handles the getBags query.
func (h *BagsHandler) List(ctx context.Context, _ model.NoInput) ([]model.Bag, error) {
	return h.Bags.ListBags(ctx)
}

// Get handles the getBag query. A nil bag encodes as null.
func (h *BagsHandler) Get(ctx context.Context, in model.GetBagInput) (*model.Bag, error) {
	return h.Bags.GetBag(ctx, *in.ID)
}

// Update handles the updateBag mutation.
func (h *BagsHandler) Update(ctx context.Context, req updateBagRequest) (*model.Bag, error) {
	in := req.input()
	bag, err := h.Bags.UpdateBag(ctx, in)
	if err != nil {
		return nil, err
	}
	if bag == nil {
		slog.Warn("bag not found for update", append(requestAttrs(ctx), "id", in.ID)...)
		return nil, nil
	}
	slog.Info("bag updated", append(requestAttrs(ctx), "id", bag.ID)...)
	return bag, nil
}

// Delete handles the deleteBag mutation.
func (h *BagsHandler) Delete(ctx context.Context, in model.DeleteBagInput) (bool, error) {
	id := *in.ID
	deleted, err := h.Bags.DeleteBag(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		slog.Info("bag deleted", append(requestAttrs(ctx), "id", id)...)
	}
	return deleted, nil
}
