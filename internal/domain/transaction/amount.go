package transaction

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a decimal money value held as integer cents.
type Amount int64

// MaxAmount is the largest value a NUMERIC(14,2) column holds: 999999999999.99.
const MaxAmount Amount = 99_999_999_999_999

var ErrInvalidAmount = errors.New("invalid amount")

func AmountFromCents(c int64) Amount { return Amount(c) }

func (a Amount) Cents() int64 { return int64(a) }

func (a Amount) IsZero() bool { return a == 0 }

// String renders the amount with two decimals, e.g. "1250.50".
func (a Amount) String() string {
	c := int64(a)
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

func (a Amount) Float64() float64 {
	return float64(a) / 100
}

// ParseAmount converts a decimal string to cents, rounding half away from zero
// past the second decimal. Values beyond MaxAmount in either direction fail.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidAmount
	}

	cents := math.Round(f * 100)
	if math.Abs(cents) > float64(MaxAmount) {
		return 0, ErrInvalidAmount
	}

	return Amount(cents), nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return nil
	}

	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return ErrInvalidAmount
		}
		raw = s
	}

	v, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
