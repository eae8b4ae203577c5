package fiscat

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/gardenzilla/cashregisterbridge/internal/testutil/testlog"
	"github.com/rs/zerolog/log"
)

func TestDecodeAcceptsBothPaymentKinds(t *testing.T) {
	testlog.Start(t)

	for raw, want := range map[string]PaymentKind{
		`{"total_price": 12, "payment_kind":"Cash"}`: PaymentCash,
		`{"total_price": 12, "payment_kind":"Card"}`: PaymentCard,
	} {
		cmd, err := Decode([]byte(raw))
		if err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		if cmd.PaymentKind != want {
			t.Fatalf("unexpected payment kind: got=%v want=%v", cmd.PaymentKind, want)
		}
		if cmd.TotalPrice != 12 {
			t.Fatalf("unexpected total price: %d", cmd.TotalPrice)
		}
		if len(cmd.Footnote) == 0 {
			t.Fatalf("expected default footnote to be applied")
		}
	}
}

func TestDecodeRejectsUnknownPaymentKind(t *testing.T) {
	testlog.Start(t)

	_, err := Decode([]byte(`{"total_price": 12, "payment_kind":"Cashh"}`))
	if !errors.Is(err, ErrUnknownPaymentKind) {
		t.Fatalf("expected ErrUnknownPaymentKind, got %v", err)
	}
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) || decodeErr.Field != "payment_kind" {
		t.Fatalf("expected payment_kind DecodeError, got %#v", err)
	}
	log.Debug().Err(err).Msg("fiscat/decode: unknown payment kind rejected")
}

func TestDecodeFailures(t *testing.T) {
	testlog.Start(t)

	cases := []struct {
		name string
		raw  string
		want error
	}{
		{name: "not json", raw: `total_price=12`, want: ErrDecode},
		{name: "not an object", raw: `[12, "Cash"]`, want: ErrDecode},
		{name: "missing total_price", raw: `{"payment_kind":"Cash"}`, want: ErrMissingField},
		{name: "missing payment_kind", raw: `{"total_price": 12}`, want: ErrMissingField},
		{name: "null total_price", raw: `{"total_price": null, "payment_kind":"Cash"}`, want: ErrMissingField},
		{name: "fractional total_price", raw: `{"total_price": 12.5, "payment_kind":"Cash"}`, want: ErrInvalidTotalPrice},
		{name: "string total_price", raw: `{"total_price": "12", "payment_kind":"Cash"}`, want: ErrInvalidTotalPrice},
		{name: "lowercase payment_kind", raw: `{"total_price": 12, "payment_kind":"cash"}`, want: ErrUnknownPaymentKind},
		{name: "numeric payment_kind", raw: `{"total_price": 12, "payment_kind":1}`, want: ErrUnknownPaymentKind},
		{name: "footnote not strings", raw: `{"total_price": 12, "payment_kind":"Cash", "footnote":[1,2]}`, want: ErrDecode},
		{name: "upper case keys", raw: `{"TOTAL_PRICE": 500, "PAYMENT_KIND": "Cash"}`, want: ErrMissingField},
		{name: "mixed case payment_kind key", raw: `{"total_price": 500, "Payment_Kind": "Cash"}`, want: ErrMissingField},
		{name: "total_price above int32", raw: `{"total_price": 2147483648, "payment_kind":"Cash"}`, want: ErrInvalidTotalPrice},
		{name: "total_price below int32", raw: `{"total_price": -2147483649, "payment_kind":"Cash"}`, want: ErrInvalidTotalPrice},
		{name: "null payload", raw: `null`, want: ErrDecode},
	}
	for _, tc := range cases {
		_, err := Decode([]byte(tc.raw))
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		log.Debug().Str("case", tc.name).Err(err).Msg("fiscat/decode: rejected")
	}
}

func TestDecodeFootnoteDefaults(t *testing.T) {
	testlog.Start(t)

	cmd, err := Decode([]byte(`{"total_price": 1200, "payment_kind":"Card", "footnote": []}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cmd.Footnote == nil || len(cmd.Footnote) != 0 {
		t.Fatalf("expected explicit empty footnote, got %#v", cmd.Footnote)
	}

	cmd, err = Decode([]byte(`{"total_price": 1, "payment_kind":"Cash", "footnote": ["a", "b"]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strings.Join(cmd.Footnote, ",") != "a,b" {
		t.Fatalf("unexpected footnote: %#v", cmd.Footnote)
	}

	dec := Decoder{Footnote: []string{"only line"}}
	cmd, err = dec.Decode([]byte(`{"total_price": 1, "payment_kind":"Cash"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cmd.Footnote) != 1 || cmd.Footnote[0] != "only line" {
		t.Fatalf("unexpected configured footnote: %#v", cmd.Footnote)
	}
	cmd.Footnote[0] = "mutated"
	if dec.Footnote[0] != "only line" {
		t.Fatalf("decoded command shares footnote storage with decoder")
	}
}

func TestDecodeKeysMatchExactly(t *testing.T) {
	testlog.Start(t)

	cmd, err := Decode([]byte(`{"total_price": 500, "payment_kind": "Cash", "FOOTNOTE": []}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cmd.Footnote) != len(DefaultFootnote()) {
		t.Fatalf("wrong-case footnote key must not replace the default, got %#v", cmd.Footnote)
	}

	cmd, err = Decode([]byte(`{"total_price": 2147483647, "payment_kind": "Card"}`))
	if err != nil {
		t.Fatalf("decode int32 max: %v", err)
	}
	if cmd.TotalPrice != 2147483647 {
		t.Fatalf("unexpected total price: %d", cmd.TotalPrice)
	}
	if _, err := Decode([]byte(`{"total_price": -2147483648, "payment_kind": "Card"}`)); err != nil {
		t.Fatalf("decode int32 min: %v", err)
	}
}

func TestFormatDefaultFootnoteCash(t *testing.T) {
	testlog.Start(t)

	cmd, err := Decode([]byte(`{"total_price": 500, "payment_kind": "Cash"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := Format(cmd)
	want := `fiscat/AEE|SLD|||4|Köszönjük, hogy nálunk vásárolt!|*|www.gardenzilla.hu|Eszelős favágó|||""|1|Tételek|8|500|||P`
	if got != want {
		t.Fatalf("unexpected command string:\n got=%s\nwant=%s", got, want)
	}
	if Format(cmd) != got {
		t.Fatalf("format is not deterministic")
	}
	log.Debug().Str("command", got).Msg("fiscat/format: default footnote")
}

func TestFormatEmptyFootnoteCard(t *testing.T) {
	testlog.Start(t)

	cmd := Command{TotalPrice: 1200, PaymentKind: PaymentCard, Footnote: []string{}}
	got := Formatter{ItemLabel: "Termék"}.Format(cmd)
	want := `fiscat/AEE|SLD|||0|||""|1|Termék|8|1200|||N`
	if got != want {
		t.Fatalf("unexpected command string:\n got=%s\nwant=%s", got, want)
	}
}

func TestFormatNegativeTotal(t *testing.T) {
	testlog.Start(t)

	got := Format(Command{TotalPrice: -350, PaymentKind: PaymentCash})
	if !strings.HasSuffix(got, `|8|-350|||P`) {
		t.Fatalf("unexpected command string: %s", got)
	}
}

func TestFootnoteSegmentCountMatchesLines(t *testing.T) {
	testlog.Start(t)

	for n := 0; n < 8; n++ {
		lines := make([]string, n)
		for i := range lines {
			lines[i] = "line " + strconv.Itoa(i)
		}
		parts := strings.Split(FootnoteSegment(lines), "|")
		count, err := strconv.Atoi(parts[0])
		if err != nil {
			t.Fatalf("segment prefix is not numeric: %q", parts[0])
		}
		if count != n || len(parts)-1 != n {
			t.Fatalf("count mismatch: prefix=%d lines=%d want=%d", count, len(parts)-1, n)
		}
	}
}

func TestPaymentKindCodes(t *testing.T) {
	testlog.Start(t)

	if PaymentCash.Code() != "P" || PaymentCard.Code() != "N" {
		t.Fatalf("unexpected payment codes: cash=%q card=%q", PaymentCash.Code(), PaymentCard.Code())
	}
	if _, err := PaymentKind(0).MarshalJSON(); !errors.Is(err, ErrUnknownPaymentKind) {
		t.Fatalf("expected zero payment kind to fail marshal, got %v", err)
	}
}
