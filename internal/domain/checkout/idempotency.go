package checkout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/luxe-store/internal/domain/order"
)

// ErrRecordNotFound is returned by an IdempotencyStore for unknown keys.
var ErrRecordNotFound = errors.New("idempotency record not found")

// IdempotencyRecord binds an idempotency key to the order it produced. A
// record without an order id is a claim held by a checkout still running.
type IdempotencyRecord struct {
	OrderID     string `json:"orderId,omitempty"`
	Fingerprint string `json:"fingerprint"`
}

// Pending reports whether the owning checkout has not finished yet.
func (r IdempotencyRecord) Pending() bool { return r.OrderID == "" }

// IdempotencyStore persists idempotency records with expiry. Stores shared
// between replicas make Claim atomic across them.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	// Claim stores rec only if key is absent and reports whether it did.
	Claim(ctx context.Context, key string, rec IdempotencyRecord, ttl time.Duration) (bool, error)
	// Put stores rec, replacing any claim.
	Put(ctx context.Context, key string, rec IdempotencyRecord, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// fingerprint hashes the parts of a request that determine its outcome.
func fingerprint(req Request) string {
	h := sha256.New()
	writeField(h, string(req.PaymentMethod))
	writeField(h, req.PaymentReference)
	for _, it := range req.Items {
		price := ""
		if it.Price != nil {
			price = it.Price.String()
		}
		writeField(h, fmt.Sprintf("%s|%d|%s|%s|%s", it.ProductID, it.Quantity, price, it.Size, it.Color))
	}
	a := req.ShippingAddress.Normalize()
	for _, f := range []string{a.Name, a.Phone, a.Street, a.Area, a.City, a.District, a.State, a.PostalCode, a.Country} {
		writeField(h, f)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, s string) {
	_, _ = io.WriteString(h, s)
	_, _ = h.Write([]byte{0})
}

func scopedKey(userID, key string) string {
	return "checkout:" + userID + ":" + key
}

// gatewayKey derives the key sent with intent creation. Retries of the same
// attempt map to the same gateway intent.
func gatewayKey(req Request) string {
	if req.IdempotencyKey != "" {
		return "intent:" + req.UserID + ":" + req.IdempotencyKey
	}
	sum := sha256.Sum256([]byte(req.UserID + "\x00" + fingerprint(req)))
	return "intent:" + hex.EncodeToString(sum[:16])
}

// idempotent runs place at most once per (user, key). The key is claimed
// before any work starts, so a duplicate arriving at another replica sees
// the claim and does not place a second order. Concurrent duplicates in
// this process share one execution; later duplicates replay the stored
// order.
func (o *Orchestrator) idempotent(
	ctx context.Context,
	userID, key, fp string,
	place func(context.Context) (*order.Order, error),
) (*order.Order, error) {
	if key == "" || o.idem == nil {
		return place(ctx)
	}
	scoped := scopedKey(userID, key)

	v, err, shared := o.inflight.Do(scoped, func() (any, error) {
		claimed, err := o.idem.Claim(ctx, scoped, IdempotencyRecord{Fingerprint: fp}, o.cfg.ClaimTTL)
		if err != nil {
			return nil, errors.Wrap(err, "claim idempotency key")
		}
		if !claimed {
			return o.replay(ctx, scoped, fp)
		}

		ord, err := place(ctx)
		if err != nil {
			if derr := o.idem.Delete(ctx, scoped); derr != nil {
				zctx.From(ctx).Warn("Failed to release idempotency claim", zap.Error(derr))
			}
			return nil, err
		}
		if err := o.idem.Put(ctx, scoped, IdempotencyRecord{OrderID: ord.ID, Fingerprint: fp}, o.cfg.IdempotencyTTL); err != nil {
			zctx.From(ctx).Warn("Failed to store idempotency record",
				zap.String("order_id", ord.ID),
				zap.Error(err),
			)
		}
		return ord, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		zctx.From(ctx).Debug("Collapsed duplicate checkout", zap.String("idempotency_key", key))
	}
	return v.(*order.Order), nil
}

// replay resolves a key claimed by an earlier attempt.
func (o *Orchestrator) replay(ctx context.Context, scoped, fp string) (*order.Order, error) {
	rec, err := o.idem.Get(ctx, scoped)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		// Claim released or expired between the two calls.
		return nil, ErrCheckoutInProgress
	case err != nil:
		return nil, errors.Wrap(err, "get idempotency record")
	case rec.Fingerprint != fp:
		return nil, ErrIdempotencyKeyReused
	case rec.Pending():
		return nil, ErrCheckoutInProgress
	}
	return o.orders.GetByID(ctx, rec.OrderID)
}
