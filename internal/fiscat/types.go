package fiscat

import (
	"encoding/json"
	"fmt"
)

// PaymentKind is the tender type printed on the receipt.
type PaymentKind int

const (
	PaymentCash PaymentKind = iota + 1
	PaymentCard
)

// Code maps the payment kind to its one-character register code.
func (p PaymentKind) Code() string {
	switch p {
	case PaymentCash:
		return "P"
	case PaymentCard:
		return "N"
	default:
		return ""
	}
}

func (p PaymentKind) String() string {
	switch p {
	case PaymentCash:
		return "Cash"
	case PaymentCard:
		return "Card"
	default:
		return fmt.Sprintf("PaymentKind(%d)", int(p))
	}
}

// ParsePaymentKind accepts exactly the literals "Cash" and "Card".
func ParsePaymentKind(raw string) (PaymentKind, error) {
	switch raw {
	case "Cash":
		return PaymentCash, nil
	case "Card":
		return PaymentCard, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPaymentKind, raw)
	}
}

func (p *PaymentKind) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownPaymentKind, string(data))
	}
	kind, err := ParsePaymentKind(raw)
	if err != nil {
		return err
	}
	*p = kind
	return nil
}

func (p PaymentKind) MarshalJSON() ([]byte, error) {
	switch p {
	case PaymentCash, PaymentCard:
		return json.Marshal(p.String())
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownPaymentKind, int(p))
	}
}

// Command is one sale transaction requested by the web client.
type Command struct {
	TotalPrice  int64       `json:"total_price"`
	PaymentKind PaymentKind `json:"payment_kind"`
	Footnote    []string    `json:"footnote"`
}

// DefaultFootnote returns a fresh copy of the receipt footer used when a
// command carries no footnote.
func DefaultFootnote() []string {
	return []string{
		"Köszönjük, hogy nálunk vásárolt!",
		"*",
		"www.gardenzilla.hu",
		"Eszelős favágó",
	}
}
