package inventory

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var vialSizePattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(mg|mcg|iu)`)

// DefaultVialSizeMg cuando el nombre del producto no indica tamaño.
var DefaultVialSizeMg = decimal.NewFromInt(5)

// ParseVialSize extrae el tamaño del vial en mg desde el nombre del producto.
// "BPC-157 5mg" -> 5, "Semaglutide 250mcg" -> 0.25. IU se toma tal cual.
func ParseVialSize(name string) decimal.Decimal {
	m := vialSizePattern.FindStringSubmatch(name)
	if m == nil {
		return DefaultVialSizeMg
	}
	val, err := decimal.NewFromString(m[1])
	if err != nil {
		return DefaultVialSizeMg
	}
	if strings.EqualFold(m[2], "mcg") {
		return val.Div(decimal.NewFromInt(1000))
	}
	return val
}
