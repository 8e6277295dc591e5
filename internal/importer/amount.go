package importer

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parseAmount converts an amount cell into cents. Both "1,234.56" and
// the European "1.234,56" are accepted: when both separators appear,
// the last one is the decimal mark; a lone comma is treated as the
// decimal mark.
func parseAmount(s string) (int64, error) {
	s = strings.ReplaceAll(s, " ", "")

	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")

	switch {
	case comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	default:
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}

	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}
