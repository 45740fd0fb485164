package model

import "time"

// Bag is a stock record for one kind of bag.
type Bag struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Color     string    `json:"color"`
	Material  string    `json:"material"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateBagInput holds the fields of a new bag.
type CreateBagInput struct {
	Type     string `json:"type"`
	Color    string `json:"color"`
	Material string `json:"material"`
	Quantity int    `json:"quantity"`
}

// Validate checks that all text fields are non-empty and quantity is not negative.
func (in CreateBagInput) Validate() error {
	if err := requireText("type", in.Type); err != nil {
		return err
	}
	if err := requireText("color", in.Color); err != nil {
		return err
	}
	if err := requireText("material", in.Material); err != nil {
		return err
	}
	return requireQuantity(in.Quantity)
}

// UpdateBagInput is a partial update. Fields that are not set are left untouched.
type UpdateBagInput struct {
	ID       int64            `json:"id"`
	Type     Optional[string] `json:"type,omitzero"`
	Color    Optional[string] `json:"color,omitzero"`
	Material Optional[string] `json:"material,omitzero"`
	Quantity Optional[int]    `json:"quantity,omitzero"`
}

// Validate checks every field that is present. Any id is accepted; an id
// that matches no bag yields the not-found result.
func (in UpdateBagInput) Validate() error {
	for _, f := range []struct {
		name string
		opt  Optional[string]
	}{
		{"type", in.Type},
		{"color", in.Color},
		{"material", in.Material},
	} {
		if f.opt.IsNull() {
			return &ValidationError{Field: f.name, Message: "must not be null"}
		}
		if v, ok := f.opt.Get(); ok {
			if err := requireText(f.name, v); err != nil {
				return err
			}
		}
	}
	if in.Quantity.IsNull() {
		return &ValidationError{Field: "quantity", Message: "must not be null"}
	}
	if q, ok := in.Quantity.Get(); ok {
		return requireQuantity(q)
	}
	return nil
}

// Empty reports whether the update carries no field changes.
func (in UpdateBagInput) Empty() bool {
	return !in.Type.IsSet() && !in.Color.IsSet() && !in.Material.IsSet() && !in.Quantity.IsSet()
}

// Apply returns a copy of bag with the supplied fields overwritten.
func (in UpdateBagInput) Apply(bag Bag) Bag {
	if v, ok := in.Type.Get(); ok {
		bag.Type = v
	}
	if v, ok := in.Color.Get(); ok {
		bag.Color = v
	}
	if v, ok := in.Material.Get(); ok {
		bag.Material = v
	}
	if v, ok := in.Quantity.Get(); ok {
		bag.Quantity = v
	}
	return bag
}

// GetBagInput selects a single bag. ID is a pointer so that a missing id is
// rejected instead of reading as zero.
type GetBagInput struct {
	ID *int64 `json:"id"`
}

// Validate checks that an id was supplied.
func (in GetBagInput) Validate() error {
	return requireID(in.ID)
}

// DeleteBagInput selects the bag to delete.
type DeleteBagInput struct {
	ID *int64 `json:"id"`
}

// Validate checks that an id was supplied.
func (in DeleteBagInput) Validate() error {
	return requireID(in.ID)
}

// NoInput is the input of procedures that take no arguments.
type NoInput struct{}

// Validate always succeeds.
func (NoInput) Validate() error { return nil }

// Summary aggregates a list of bags.
type Summary struct {
	Records       int `json:"records"`
	TotalQuantity int `json:"total_quantity"`
}

// Summarize counts records and sums their quantities.
func Summarize(bags []Bag) Summary {
	s := Summary{Records: len(bags)}
	for _, b := range bags {
		s.TotalQuantity += b.Quantity
	}
	return s
}

// Text is stored verbatim, so only the empty string is rejected.
func requireText(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Message: "must not be empty"}
	}
	return nil
}

func requireQuantity(q int) error {
	if q < 0 {
		return &ValidationError{Field: "quantity", Message: "must be a non-negative integer"}
	}
	return nil
}

func requireID(id *int64) error {
	if id == nil {
		return &ValidationError{Field: "id", Message: "required"}
	}
	return nil
}
