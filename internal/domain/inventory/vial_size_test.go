package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/peptide-ledger/internal/domain/inventory"
)

func TestParseVialSize(t *testing.T) {
	cases := map[string]string{
		"BPC-157 5mg":        "5",
		"Semaglutide 250mcg": "0.25",
		"TB-500 10 MG":       "10",
		"HGH 10iu":           "10",
		"Retatrutide 2.5mg":  "2.5",
		"Semax":              "5",
	}
	for name, want := range cases {
		got := inventory.ParseVialSize(name)
		assert.True(t, got.Equal(d(want)), "%s: got %s want %s", name, got, want)
	}
}
