package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validGrid() [][]string {
	return [][]string{
		{"A01", "A02", "A03", "A04", "A05"},
		{"A06", "A07", "A08", "A09", "A10"},
		{"A11", "A12", "A13", "A14", "B01"},
		{"B02", "B03", "B04", "B05", "B06"},
		{"B07", "B08", "B09", "B10", "C01"},
	}
}

func TestBoardValidate(t *testing.T) {
	board := Board{ParticipantName: "Kim", Tier: TierIntermediate, Grid: validGrid()}
	assert.NoError(t, board.Validate())

	short := board
	short.Grid = validGrid()[:4]
	assert.ErrorContains(t, short.Validate(), "4 rows")

	ragged := Board{ParticipantName: "Kim", Grid: validGrid()}
	ragged.Grid[2] = ragged.Grid[2][:3]
	assert.ErrorContains(t, ragged.Validate(), "3 cells")

	unknown := Board{ParticipantName: "Kim", Grid: validGrid()}
	unknown.Grid[0][0] = "Z99"
	assert.ErrorContains(t, unknown.Validate(), "unknown card")

	repeated := Board{ParticipantName: "Kim", Grid: validGrid()}
	repeated.Grid[4][4] = "A01"
	assert.ErrorContains(t, repeated.Validate(), "repeats card")
}

func TestBoardLines(t *testing.T) {
	board := Board{Grid: validGrid()}
	lines := board.Lines()
	require.Len(t, lines, 12)
	for _, line := range lines {
		assert.Len(t, line, BoardSize)
	}
	assert.Contains(t, lines, []string{"A01", "A02", "A03", "A04", "A05"}) // top row
	assert.Contains(t, lines, []string{"A01", "A06", "A11", "B02", "B07"}) // left column
	assert.Contains(t, lines, []string{"A01", "A07", "A13", "B05", "C01"}) // main diagonal
	assert.Contains(t, lines, []string{"A05", "A09", "A13", "B03", "B07"}) // anti-diagonal
}

func TestBoardCountLines(t *testing.T) {
	board := Board{Grid: validGrid()}

	checked := map[string]bool{"A01": true, "A02": true, "A03": true, "A04": true, "A05": true}
	assert.Equal(t, 1, board.CountLines(checked))

	// Add the left column; it shares A01 with the top row.
	for _, code := range []string{"A06", "A11", "B02", "B07"} {
		checked[code] = true
	}
	assert.Equal(t, 2, board.CountLines(checked))

	full := board.Codes()
	assert.Equal(t, 12, board.CountLines(full))

	assert.Equal(t, 0, board.CountLines(nil))
}

func TestBoardHasAndCodes(t *testing.T) {
	board := Board{Grid: validGrid()}
	assert.True(t, board.Has("B05"))
	assert.False(t, board.Has("C09"))
	assert.Len(t, board.Codes(), 25)
}
