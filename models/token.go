// models/token.go
package models

import "time"

// ActiveSeal is a live restriction on a participant's board: the sealed
// category cannot be honored until the restriction expires. It lapses
// after the target has logged two distinct run-days since activation.
type ActiveSeal struct {
	Target      string    `json:"target"`
	Category    string    `json:"category"` // B | C
	Actor       string    `json:"actor"`
	ActivatedAt time.Time `json:"activated_at"`
	RunDaysSeen []string  `json:"run_days_seen,omitempty"`
}

// SealRunDayLimit is how many of the target's run-days a seal survives.
const SealRunDayLimit = 2

// TokenState is the per-participant token picture, always derived by
// replaying the approved ledger — never stored.
type TokenState struct {
	Participant string `json:"participant"`
	Tier        string `json:"tier"`
	Earned      int    `json:"earned"`
	Spent       int    `json:"spent"`
	Cap         int    `json:"cap"`
	Balance     int    `json:"balance"` // clamped to [0, Cap]
}
