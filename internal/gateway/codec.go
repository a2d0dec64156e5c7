package gateway

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/luxe-store/internal/domain/payment"
)

func decodeIntent(data []byte) (*payment.Intent, error) {
	var (
		in     payment.Intent
		status string
	)
	d := jx.DecodeBytes(data)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		var err error
		switch string(key) {
		case "id":
			in.Reference, err = d.Str()
		case "client_secret":
			in.ClientSecret, err = d.Str()
		case "amount":
			in.AmountMinor, err = d.Int64()
		case "currency":
			in.Currency, err = d.Str()
		case "status":
			status, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		return nil, err
	}
	if in.Reference == "" {
		return nil, errors.New("missing intent id")
	}
	in.Status = mapStatus(status)
	return &in, nil
}

// mapStatus folds the provider's intent lifecycle into three states.
func mapStatus(s string) payment.IntentStatus {
	switch s {
	case "succeeded":
		return payment.IntentSucceeded
	case "canceled", "failed":
		return payment.IntentFailed
	default:
		return payment.IntentRequiresAction
	}
}

func decodeErrorMessage(data []byte) string {
	var msg string
	d := jx.DecodeBytes(data)
	_ = d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "error" || d.Next() != jx.Object {
			return d.Skip()
		}
		return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			if string(key) == "message" && d.Next() == jx.String {
				s, err := d.Str()
				msg = s
				return err
			}
			return d.Skip()
		})
	})
	return msg
}
