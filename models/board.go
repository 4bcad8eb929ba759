// models/board.go
package models

import (
	"fmt"
	"time"
)

// BoardSize is fixed for the season: every card sheet is 5x5.
const BoardSize = 5

// Board is one participant's personal card sheet. Boards are produced by
// the organizers before the season starts and consumed read-only here.
type Board struct {
	ID              string     `json:"id" gorm:"primaryKey"`
	ParticipantName string     `json:"participant_name" gorm:"uniqueIndex;not null"`
	Tier            string     `json:"tier" gorm:"not null"`
	Grid            [][]string `json:"grid" gorm:"serializer:json"` // 5 rows x 5 codes

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the grid shape and that every cell is a known,
// non-repeated catalog code.
func (b *Board) Validate() error {
	if len(b.Grid) != BoardSize {
		return fmt.Errorf("board for %q has %d rows, want %d", b.ParticipantName, len(b.Grid), BoardSize)
	}
	seen := make(map[string]bool, BoardSize*BoardSize)
	for i, row := range b.Grid {
		if len(row) != BoardSize {
			return fmt.Errorf("board for %q row %d has %d cells, want %d", b.ParticipantName, i, len(row), BoardSize)
		}
		for _, code := range row {
			if _, ok := Cards[code]; !ok {
				return fmt.Errorf("board for %q contains unknown card %q", b.ParticipantName, code)
			}
			if seen[code] {
				return fmt.Errorf("board for %q repeats card %q", b.ParticipantName, code)
			}
			seen[code] = true
		}
	}
	return nil
}

// Codes returns the set of card codes on the board.
func (b *Board) Codes() map[string]bool {
	out := make(map[string]bool, BoardSize*BoardSize)
	for _, row := range b.Grid {
		for _, code := range row {
			out[code] = true
		}
	}
	return out
}

// Has reports whether a code sits on this board.
func (b *Board) Has(code string) bool {
	for _, row := range b.Grid {
		for _, c := range row {
			if c == code {
				return true
			}
		}
	}
	return false
}

// Lines returns the 12 bingo lines: 5 rows, 5 columns, both diagonals.
func (b *Board) Lines() [][]string {
	lines := make([][]string, 0, 2*BoardSize+2)
	for i := 0; i < BoardSize; i++ {
		row := make([]string, BoardSize)
		col := make([]string, BoardSize)
		for j := 0; j < BoardSize; j++ {
			row[j] = b.Grid[i][j]
			col[j] = b.Grid[j][i]
		}
		lines = append(lines, row, col)
	}
	diagMain := make([]string, BoardSize)
	diagAnti := make([]string, BoardSize)
	for i := 0; i < BoardSize; i++ {
		diagMain[i] = b.Grid[i][i]
		diagAnti[i] = b.Grid[i][BoardSize-1-i]
	}
	return append(lines, diagMain, diagAnti)
}

// CountLines counts completed bingo lines given the set of checked codes.
func (b *Board) CountLines(checked map[string]bool) int {
	count := 0
	for _, line := range b.Lines() {
		full := true
		for _, code := range line {
			if !checked[code] {
				full = false
				break
			}
		}
		if full {
			count++
		}
	}
	return count
}
