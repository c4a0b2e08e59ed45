package elks

import (
	"bytes"
	"encoding/json"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// moneyScale is the number of implied fractional digits in money values;
// "3500" on the wire is 0.3500.
const moneyScale = 4

// DecodeBool maps the API's "yes"/"no" strings to a bool.
func DecodeBool(text string) (bool, error) {
	switch text {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	}
	return false, &DecodeError{Value: text, Reason: `only "yes" or "no" recognized`}
}

// DecodeMoney parses an integer literal and shifts it four decimal places.
func DecodeMoney(text string) (decimal.Decimal, error) {
	n, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return decimal.Zero, &DecodeError{Value: text, Reason: "not a valid money representation"}
	}
	return decimal.NewFromBigInt(n, -moneyScale), nil
}

// DecodeTimestamp parses a timestamp field.
func DecodeTimestamp(text string) (time.Time, error) {
	return ParseTimestamp(text)
}

// YesNo is a bool encoded as "yes" or "no".
type YesNo bool

func (b *YesNo) UnmarshalJSON(data []byte) error {
	text, ok, err := scalarText(data)
	if err != nil || !ok {
		return err
	}
	v, err := DecodeBool(text)
	if err != nil {
		return err
	}
	*b = YesNo(v)
	return nil
}

func (b YesNo) MarshalJSON() ([]byte, error) {
	if b {
		return []byte(`"yes"`), nil
	}
	return []byte(`"no"`), nil
}

// Money is an exact decimal amount carried on the wire as an integer in
// hundredths of cents. Both JSON strings and numbers are accepted.
type Money struct {
	decimal.Decimal
}

func (m *Money) UnmarshalJSON(data []byte) error {
	text, ok, err := scalarText(data)
	if err != nil || !ok {
		return err
	}
	v, err := DecodeMoney(text)
	if err != nil {
		return err
	}
	m.Decimal = v
	return nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Decimal.Shift(moneyScale).StringFixed(0))
}

// Timestamp is a point in time encoded in the API's GMT timestamp format.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	text, ok, err := scalarText(data)
	if err != nil || !ok {
		return err
	}
	v, err := DecodeTimestamp(text)
	if err != nil {
		return err
	}
	t.Time = v
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	text, err := FormatTimestamp(t.Time)
	if err != nil {
		return nil, err
	}
	return json.Marshal(text)
}

// scalarText returns the textual content of a JSON string or literal.
// ok is false for null.
func scalarText(data []byte) (text string, ok bool, err error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return "", false, nil
	}
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return "", false, err
		}
		return text, true, nil
	}
	return string(data), true, nil
}
