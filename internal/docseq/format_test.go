package docseq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextCode(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		pad      int
		prefix   string
		want     string
	}{
		{"ignores codes without digits", []string{"005", "007", "ABC"}, 4, "", "0008"},
		{"empty set starts at one", nil, 4, "", "0001"},
		{"only non numeric codes", []string{"draft", ""}, 4, "", "0001"},
		{"trailing digits of mixed codes", []string{"BN-0012", "0003"}, 4, "", "0013"},
		{"pad shorter than number", []string{"99999"}, 4, "", "100000"},
		{"other year does not count", []string{"QUO 2024-0099"}, 4, "QUO 2025-", "QUO 2025-0001"},
		{"same year", []string{"QUO 2025-0009", "QUO 2025-0010", "QUO 2024-0500"}, 4, "QUO 2025-", "QUO 2025-0011"},
		{"scoped ignores suffixed codes", []string{"QUO 2025-0010-rev"}, 4, "QUO 2025-", "QUO 2025-0001"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NextCode(tc.existing, tc.pad, tc.prefix))
		})
	}
}

func TestFormatSuffix(t *testing.T) {
	f := Format{Prefix: "QUO 2025-", Pad: 4, Scoped: true}

	n, ok := f.Suffix("QUO 2025-0042")
	assert.True(t, ok)
	assert.EqualValues(t, 42, n)

	_, ok = f.Suffix("QUO 2025-")
	assert.False(t, ok)

	_, ok = f.Suffix("QUO 2024-0042")
	assert.False(t, ok)
}

func TestTaxInvoiceSeriesUsesAllTrailingDigits(t *testing.T) {
	s := TaxInvoiceSeries(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "INV 2026-0008", s.Format.Next([]string{"INV 2025-0007", "manual"}))
}
