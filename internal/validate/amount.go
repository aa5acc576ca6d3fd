package validate

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Amount is a money value read from a request body. Decoding never fails:
// JSON numbers and numeric strings are kept as written, and anything else
// is kept too, so the "numeric" and "amount" rules can report it per field
// instead of the whole body being rejected.
type Amount struct {
	raw string
}

// AmountOf returns an Amount holding s as if it had been sent in a body.
func AmountOf(s string) *Amount {
	return &Amount{raw: s}
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			a.raw = s
			return nil
		}
	}
	a.raw = string(bytes.TrimSpace(b))
	return nil
}

// String returns the value as it was sent.
func (a Amount) String() string { return a.raw }

// Decimal returns the parsed value, or zero when it is not a number. Call
// it only after validation has passed.
func (a *Amount) Decimal() decimal.Decimal {
	if a == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(a.raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
