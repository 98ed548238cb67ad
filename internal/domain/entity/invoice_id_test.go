package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceIDString(t *testing.T) {
	processedOn := time.Date(2026, 2, 9, 10, 30, 0, 0, time.UTC)

	t.Run("Canonical format", func(t *testing.T) {
		id := NewInvoiceID(DivisionUpperSchool, FormAmazon, processedOn, 1)
		assert.Equal(t, "US-AMZ-0209-01", id.String())
	})

	t.Run("Sequence pads to two digits", func(t *testing.T) {
		id := NewInvoiceID(DivisionLowerSchool, FormWarehouse, processedOn, 7)
		assert.Equal(t, "LS-PCW-0209-07", id.String())
	})

	t.Run("Sequence expands past two digits", func(t *testing.T) {
		id := NewInvoiceID(DivisionKinderhaus, FormFieldTrip, processedOn, 104)
		assert.Equal(t, "KK-FT-0209-104", id.String())
	})

	t.Run("Reprocess prefix", func(t *testing.T) {
		id := NewInvoiceID(DivisionAdmin, FormAdmin, processedOn, 3)
		id.Reprocessed = true
		assert.Equal(t, "REP-AD-AD-0209-03", id.String())
	})
}

func TestInvoiceIDPrefix(t *testing.T) {
	processedOn := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)

	id := NewInvoiceID(DivisionUpperSchool, FormCurriculum, processedOn, 12)
	assert.Equal(t, "US-CI-1102-", id.Prefix())

	id.Reprocessed = true
	assert.Equal(t, "REP-US-CI-1102-", id.Prefix())
}

func TestParseInvoiceID(t *testing.T) {
	t.Run("Round trip", func(t *testing.T) {
		original := NewInvoiceID(DivisionUpperSchool, FormAmazon, time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC), 42)
		parsed, err := ParseInvoiceID(original.String())

		require.NoError(t, err)
		assert.Equal(t, original, parsed)
	})

	t.Run("Reprocessed round trip", func(t *testing.T) {
		parsed, err := ParseInvoiceID("REP-LS-PCW-0415-09")

		require.NoError(t, err)
		assert.True(t, parsed.Reprocessed)
		assert.Equal(t, "LS", parsed.DivisionCode)
		assert.Equal(t, "PCW", parsed.FormCode)
		assert.Equal(t, "0415", parsed.MonthDay)
		assert.Equal(t, 9, parsed.Sequence)
	})

	t.Run("Rejects malformed input", func(t *testing.T) {
		for _, raw := range []string{
			"",
			"US-AMZ-0209",
			"us-amz-0209-01",
			"US-AMZ-029-01",
			"USX-AMZ-0209-01",
			"US-AMZ-0209-1",
		} {
			_, err := ParseInvoiceID(raw)
			assert.Error(t, err, "expected %q to be rejected", raw)
		}
	})
}
