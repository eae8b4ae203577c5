package fiscat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Exact JSON keys of a sale command. encoding/json folds case when it
// fills structs, so keys are looked up by hand.
const (
	keyTotalPrice  = "total_price"
	keyPaymentKind = "payment_kind"
	keyFootnote    = "footnote"
)

// Decoder turns raw text payloads into Commands.
type Decoder struct {
	// Footnote replaces DefaultFootnote when non-nil. An empty, non-nil
	// slice yields commands with no footer lines.
	Footnote []string
}

// Decode parses raw with the built-in default footnote.
func Decode(raw []byte) (Command, error) {
	return Decoder{}.Decode(raw)
}

// Decode parses one JSON object. Keys match exactly; unknown keys are
// ignored. total_price must fit the register's 32-bit signed range.
func (d Decoder) Decode(raw []byte) (Command, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Command{}, &DecodeError{Err: err}
	}
	if fields == nil {
		return Command{}, &DecodeError{Err: fmt.Errorf("payload is not an object")}
	}

	totalRaw, ok := present(fields, keyTotalPrice)
	if !ok {
		return Command{}, &DecodeError{Field: keyTotalPrice, Err: ErrMissingField}
	}
	var total int64
	if err := json.Unmarshal(totalRaw, &total); err != nil {
		return Command{}, &DecodeError{Field: keyTotalPrice, Err: ErrInvalidTotalPrice}
	}
	if total < math.MinInt32 || total > math.MaxInt32 {
		return Command{}, &DecodeError{
			Field: keyTotalPrice,
			Err:   fmt.Errorf("%w: %d out of range", ErrInvalidTotalPrice, total),
		}
	}

	kindRaw, ok := present(fields, keyPaymentKind)
	if !ok {
		return Command{}, &DecodeError{Field: keyPaymentKind, Err: ErrMissingField}
	}
	var kind PaymentKind
	if err := json.Unmarshal(kindRaw, &kind); err != nil {
		return Command{}, &DecodeError{Field: keyPaymentKind, Err: err}
	}

	cmd := Command{TotalPrice: total, PaymentKind: kind}
	footRaw, ok := present(fields, keyFootnote)
	if !ok {
		cmd.Footnote = d.defaultFootnote()
		return cmd, nil
	}
	var footnote []string
	if err := json.Unmarshal(footRaw, &footnote); err != nil {
		return Command{}, &DecodeError{Field: keyFootnote, Err: err}
	}
	cmd.Footnote = append([]string{}, footnote...)
	return cmd, nil
}

// present reports the value under key; an explicit null counts as absent.
func present(fields map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	v, ok := fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil, false
	}
	return v, true
}

func (d Decoder) defaultFootnote() []string {
	if d.Footnote == nil {
		return DefaultFootnote()
	}
	return append([]string{}, d.Footnote...)
}
