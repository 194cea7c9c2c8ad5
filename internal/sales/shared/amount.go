// Package shared holds helpers used by the document packages.
package shared

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a decimal accepted from JSON either as a number or as a string
// with thousands separators ("1,250.00"). Set is false when the field was
// absent, null or blank.
type Amount struct {
	Value decimal.Decimal
	Set   bool
}

// NewAmount returns a set Amount.
func NewAmount(v decimal.Decimal) Amount {
	return Amount{Value: v, Set: true}
}

// Or returns the value when set, otherwise def.
func (a Amount) Or(def decimal.Decimal) decimal.Decimal {
	if a.Set {
		return a.Value
	}
	return def
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Amount{}
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = s
	}
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		*a = Amount{}
		return nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid amount %q", raw)
	}
	*a = Amount{Value: v, Set: true}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Set {
		return []byte("null"), nil
	}
	return json.Marshal(a.Value.String())
}
