// models/snapshot.go
package models

// SnapshotVersion is bumped when the published JSON shape changes.
const SnapshotVersion = 1

// PlayerProgress is one participant's row in the published snapshot.
type PlayerProgress struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Tier         string   `json:"tier"`
	Checked      int      `json:"checked"`
	Bingo        int      `json:"bingo"`
	Stars        int      `json:"stars"`
	Tokens       int      `json:"tokens,omitempty"` // only published when positive
	LastUpdate   string   `json:"last_update,omitempty"`
	CheckedCodes []string `json:"checked_codes"`
	FiveBingoAt  string   `json:"five_bingo_at,omitempty"`
	FullBoardAt  string   `json:"full_board_at,omitempty"`
}

// SealLogEntry records one approved seal action.
type SealLogEntry struct {
	Time     string `json:"time"`
	Actor    string `json:"actor"`
	Target   string `json:"target"`
	Category string `json:"category"`
}

// ProgressLogEntry is one free-text highlight from a submission.
type ProgressLogEntry struct {
	Time    string `json:"time"`
	Player  string `json:"player"`
	Message string `json:"message"`
}

// Achievements lists everyone tied for first on each season milestone.
type Achievements struct {
	FiveBingoFirst []string `json:"five_bingo_first,omitempty"`
	FullBoardFirst []string `json:"full_board_first,omitempty"`
}

// SnapshotSummary aggregates the whole field.
type SnapshotSummary struct {
	TotalPlayers int `json:"total_players"`
	TotalChecked int `json:"total_checked"`
	TotalStars   int `json:"total_stars"`
}

// Snapshot is the published season progress document. Given the same
// ledger, boards and policy it is byte-identical apart from GeneratedAt.
type Snapshot struct {
	Version      int                `json:"version"`
	Season       string             `json:"season"`
	GeneratedAt  string             `json:"generated_at"`
	Policy       string             `json:"policy"` // approved_only | approved_or_pending
	Summary      SnapshotSummary    `json:"summary"`
	Achievements Achievements       `json:"achievements"`
	AttackLogs   []SealLogEntry     `json:"attack_logs"`
	LatestLogs   []ProgressLogEntry `json:"latest_logs"`
	Players      []PlayerProgress   `json:"players"`
}
