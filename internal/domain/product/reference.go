package product

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

// Reference identifies the product behind a line item. It is either a
// managed catalog entry or an external, unmanaged reference that is carried
// verbatim without stock tracking.
type Reference struct {
	id      string
	managed bool
}

// Managed returns a reference to a local catalog entry.
func Managed(id string) Reference { return Reference{id: id, managed: true} }

// External returns a reference to a product not tracked by the local catalog.
func External(id string) Reference { return Reference{id: id} }

// ID returns the raw identifier.
func (r Reference) ID() string { return r.id }

// IsManaged reports whether the reference resolved to the local catalog.
func (r Reference) IsManaged() bool { return r.managed }

func (r Reference) String() string {
	if r.managed {
		return "managed:" + r.id
	}
	return "external:" + r.id
}

// NotFoundError is returned by strict resolution when an identifier is not
// in the managed catalog.
type NotFoundError struct {
	ProductID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID)
}

// Is reports ErrNotFound equivalence.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Resolution is the outcome of resolving raw identifiers against the catalog.
type Resolution struct {
	Refs     []Reference
	Products map[string]Product
}

// Product returns the catalog entry for a managed reference.
func (r *Resolution) Product(ref Reference) (Product, bool) {
	if !ref.IsManaged() {
		return Product{}, false
	}
	p, ok := r.Products[ref.ID()]
	return p, ok
}

// Resolve classifies each raw identifier as Managed or External in a single
// batch lookup. With strict set, any identifier missing from the catalog
// fails with *NotFoundError instead of becoming External.
func Resolve(ctx context.Context, repo Repository, ids []string, strict bool) (*Resolution, error) {
	fetched, err := repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}

	res := &Resolution{
		Refs:     make([]Reference, len(ids)),
		Products: make(map[string]Product, len(fetched)),
	}
	for _, p := range fetched {
		res.Products[p.ID] = p
	}
	for i, id := range ids {
		if _, ok := res.Products[id]; ok {
			res.Refs[i] = Managed(id)
			continue
		}
		if strict {
			return nil, &NotFoundError{ProductID: id}
		}
		res.Refs[i] = External(id)
	}
	return res, nil
}
