// Package seed loads bag records from TOML files.
//
// A seed file holds one [[bag]] table per record:
//
//	[[bag]]
//	type = "Backpack"
//	color = "Blue"
//	material = "Canvas"
//	quantity = 5
package seed

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/model"
)

type fileBag struct {
	Type     string `toml:"type"`
	Color    string `toml:"color"`
	Material string `toml:"material"`
	Quantity *int   `toml:"quantity"`
}

type file struct {
	Bags []fileBag `toml:"bag"`
}

// Creator creates bags. Both the store and the RPC client satisfy it.
type Creator interface {
	CreateBag(ctx context.Context, in model.CreateBagInput) (*model.Bag, error)
}

// Load reads and validates the seed file at path.
func Load(path string) ([]model.CreateBagInput, error) {
	var raw file
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("load seed file: %w", err)
	}
	return convert(raw, meta)
}

// Decode reads and validates a seed document from r.
func Decode(r io.Reader) ([]model.CreateBagInput, error) {
	var raw file
	meta, err := toml.NewDecoder(r).Decode(&raw)
	if err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return convert(raw, meta)
}

func convert(raw file, meta toml.MetaData) ([]model.CreateBagInput, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in seed: %s", strings.Join(keys, ", "))
	}

	inputs := make([]model.CreateBagInput, 0, len(raw.Bags))
	for i, b := range raw.Bags {
		if b.Quantity == nil {
			return nil, fmt.Errorf("bag %d: %w", i, &model.ValidationError{Field: "quantity", Message: "required"})
		}
		in := model.CreateBagInput{
			Type:     strings.TrimSpace(b.Type),
			Color:    strings.TrimSpace(b.Color),
			Material: strings.TrimSpace(b.Material),
			Quantity: *b.Quantity,
		}
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("bag %d: %w", i, err)
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// Import creates the inputs in order and returns the created bags. It stops
// at the first failure; bags created before it are kept.
func Import(ctx context.Context, c Creator, inputs []model.CreateBagInput) ([]model.Bag, error) {
	created := make([]model.Bag, 0, len(inputs))
	for i, in := range inputs {
		bag, err := c.CreateBag(ctx, in)
		if err != nil {
			return created, fmt.Errorf("importing bag %d: %w", i, err)
		}
		created = append(created, *bag)
	}
	return created, nil
}
