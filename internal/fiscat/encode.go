package fiscat

import (
	"strconv"
	"strings"
)

const (
	// DeviceID selects the vendor and model on the serial line.
	DeviceID = "fiscat/AEE"
	// SaleCommand is the command type token for a closed sale.
	SaleCommand = "SLD"
	// DefaultItemLabel is the single sale line name printed on the receipt.
	DefaultItemLabel = "Tételek"

	separator = "|"
)

// Formatter renders Commands into the register's serial command string.
type Formatter struct {
	ItemLabel string
}

// Format renders cmd with DefaultItemLabel.
func Format(cmd Command) string {
	return Formatter{}.Format(cmd)
}

// Format renders cmd as
//
//	fiscat/AEE|SLD|||<n>|<line_1>|...|<line_n>|||""|1|<label>|8|<total>|||<code>
//
// Footnote lines are written verbatim; a separator inside a line is not escaped.
func (f Formatter) Format(cmd Command) string {
	label := f.ItemLabel
	if label == "" {
		label = DefaultItemLabel
	}

	var b strings.Builder
	b.WriteString(DeviceID)
	b.WriteString(separator)
	b.WriteString(SaleCommand)
	b.WriteString(separator + separator + separator)
	b.WriteString(FootnoteSegment(cmd.Footnote))
	b.WriteString(separator + separator + separator)
	b.WriteString(`""`)
	b.WriteString(separator + "1")
	b.WriteString(separator + label)
	b.WriteString(separator + "8")
	b.WriteString(separator + strconv.FormatInt(cmd.TotalPrice, 10))
	b.WriteString(separator + separator + separator)
	b.WriteString(cmd.PaymentKind.Code())
	return b.String()
}

// FootnoteSegment renders the line count followed by each line.
func FootnoteSegment(lines []string) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(len(lines)))
	for _, line := range lines {
		b.WriteString(separator)
		b.WriteString(line)
	}
	return b.String()
}
