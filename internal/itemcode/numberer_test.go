package itemcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(ps []Placement) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Code
	}
	return out
}

func TestCreateNumbersBaseAndSpecRows(t *testing.T) {
	rows := []Row{
		{Title: "Pump", Quantity: 1},
		{Description: "stainless housing"},
		{Specification: "220V"},
		{Model: "X-2", Quantity: 2},
	}

	got := Create(nil, rows)

	assert.Equal(t, []string{"1", "1.1", "1.2", "2"}, codes(got))
	assert.Equal(t, "", got[1].Description)
	assert.Equal(t, "stainless housing", got[1].Specification)
	assert.Equal(t, "220V", got[2].Specification)
	for _, p := range got {
		assert.Zero(t, p.TargetID)
	}
}

func TestCreateContinuesFromStoredCodes(t *testing.T) {
	got := Create([]string{"1", "1.1", "3", "A-7"}, []Row{{Quantity: 1}, {Description: "note"}})
	assert.Equal(t, []string{"4", "4.1"}, codes(got))
}

func TestCreateSpecRowWithoutParentOpensNumber(t *testing.T) {
	got := Create(nil, []Row{{Description: "orphan"}, {Description: "second"}})
	assert.Equal(t, []string{"1.1", "1.2"}, codes(got))
}

func TestUpdateKeepsCodeOfRowMatchedByRowID(t *testing.T) {
	existing := []Existing{{ID: 10, Code: "1"}, {ID: 11, Code: "1.1"}, {ID: 12, Code: "2"}}
	rows := []Row{
		{RowID: 12, Title: "moved", Quantity: 1},
		{RowID: 10, Title: "first", Quantity: 1},
	}

	got := Update(existing, rows)

	require.Len(t, got, 2)
	assert.Equal(t, int64(12), got[0].TargetID)
	assert.Equal(t, "2", got[0].Code)
	assert.Equal(t, int64(10), got[1].TargetID)
	assert.Equal(t, "1", got[1].Code)
}

func TestUpdateMatchPrecedence(t *testing.T) {
	existing := []Existing{{ID: 1, Code: "1"}, {ID: 2, Code: "2"}, {ID: 3, Code: "3"}}
	rows := []Row{
		{ID: 3, Quantity: 1},
		{Quantity: 1},
		{Description: "spec only"},
		{Quantity: 1},
	}

	got := Update(existing, rows)

	assert.Equal(t, int64(3), got[0].TargetID)
	assert.Equal(t, int64(2), got[1].TargetID, "second row falls back to its position")
	assert.Zero(t, got[2].TargetID, "spec rows never match by position")
	assert.Equal(t, "2.1", got[2].Code)
	assert.Zero(t, got[3].TargetID, "position 3 is beyond stored items")
	assert.Equal(t, "4", got[3].Code)
}

func TestUpdateNewSpecRowAfterStoredChildrenStaysUnique(t *testing.T) {
	existing := []Existing{{ID: 1, Code: "1"}, {ID: 2, Code: "1.1"}, {ID: 3, Code: "1.2"}}
	rows := []Row{
		{RowID: 1, Quantity: 1},
		{RowID: 2, Description: "a"},
		{RowID: 3, Description: "b"},
		{Description: "c"},
	}

	got := Update(existing, rows)

	assert.Equal(t, []string{"1", "1.1", "1.2", "1.3"}, codes(got))
	assert.Zero(t, got[3].TargetID)
}

func TestUpdatePreservesFreeFormCode(t *testing.T) {
	existing := []Existing{{ID: 5, Code: "A"}}
	got := Update(existing, []Row{{RowID: 5, Quantity: 1}, {Description: "detail"}})
	assert.Equal(t, []string{"A", "1.1"}, codes(got))
}

func TestUpdateNeverAssignsSameCodeTwice(t *testing.T) {
	existing := []Existing{{ID: 1, Code: "2"}}
	rows := []Row{{Quantity: 1}, {Quantity: 1}, {Quantity: 1}, {Description: "x"}}

	got := Update(existing, rows)

	seen := map[string]bool{}
	for _, c := range codes(got) {
		assert.False(t, seen[c], "code %s assigned twice", c)
		seen[c] = true
	}
}

func TestIsBase(t *testing.T) {
	assert.True(t, Row{Title: "x"}.IsBase())
	assert.True(t, Row{Model: "m"}.IsBase())
	assert.True(t, Row{Quantity: 0.5}.IsBase())
	assert.False(t, Row{Description: "only text"}.IsBase())
	assert.True(t, IsBaseCode(" 12 "))
	assert.False(t, IsBaseCode("1.2"))
}
