// models/submission.go
package models

import (
	"time"
)

// Review states for a submission (and for individual claimed cards)
const (
	ReviewPending  = "pending"
	ReviewApproved = "approved"
	ReviewRejected = "rejected"
)

// Machine-judging verdicts
const (
	VerdictPassed      = "passed"
	VerdictFailed      = "failed"
	VerdictNeedsReview = "needs_review"
)

// Token economy events attached to a submission
const (
	TokenEventNone   = ""
	TokenEventEarned = "earned"
	TokenEventSeal   = "seal"
	TokenEventShield = "shield"
)

// AutoRejectNote marks rows rejected by same-day supersession.
const AutoRejectNote = "auto: only the latest same-day submission is honored"

// RunAttributes is the self-reported evidence for a single run. Every
// numeric field is optional — a missing value means "unknown", never "no".
type RunAttributes struct {
	DistanceKm     *float64 `json:"distance_km,omitempty"`
	DurationMin    *int     `json:"duration_min,omitempty"`
	TemperatureC   *float64 `json:"temperature_c,omitempty"`
	FeelsLikeC     *float64 `json:"feels_like_c,omitempty"`
	WindMS         *float64 `json:"wind_m_s,omitempty"`
	Precipitation  string   `json:"precipitation,omitempty"` // none | rain | snow
	ElevationGainM *int     `json:"elevation_gain_m,omitempty"`
	HillRepeats    *int     `json:"hill_repeats,omitempty"`

	IsTrack      bool `json:"is_track,omitempty"`
	IsTreadmill  bool `json:"is_treadmill,omitempty"`
	HasLightGear bool `json:"has_light_gear,omitempty"`
	IsSilent     bool `json:"is_silent,omitempty"`

	WithNewRunner bool `json:"with_new_runner,omitempty"`
	DidWarmup     bool `json:"did_warmup,omitempty"`
	DidCooldown   bool `json:"did_cooldown,omitempty"`
	DidFoamRoll   bool `json:"did_foam_roll,omitempty"`
	DidStrength   bool `json:"did_strength,omitempty"`
	DidDrills     bool `json:"did_drills,omitempty"`
	DidLog        bool `json:"did_log,omitempty"`
	IsNewRoute    bool `json:"is_new_route,omitempty"`
	IsBuildUp     bool `json:"is_build_up,omitempty"`

	IsGroup           bool     `json:"is_group,omitempty"`
	GroupSize         *int     `json:"group_size,omitempty"`
	GroupTiers        []string `json:"group_tiers,omitempty" gorm:"serializer:json"`
	DayRunnersCount   *int     `json:"day_runners_count,omitempty"`
	IsThursdayMeeting bool     `json:"is_thursday_meeting,omitempty"`
	IsBungae          bool     `json:"is_bungae,omitempty"` // impromptu community meetup
	IsHost            bool     `json:"is_host,omitempty"`
	AfterSocial       bool     `json:"after_social,omitempty"`
	IsEasy            bool     `json:"is_easy,omitempty"`
}

// Reason is one structured judging reason; Detail is display text only,
// business logic keys off Code.
type Reason struct {
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

// CardVerdict is the machine judgment for one claimed card.
type CardVerdict struct {
	Code    string   `json:"code"`
	Status  string   `json:"status"` // passed | failed | needs_review
	Reasons []Reason `json:"reasons,omitempty"`
}

// EvidenceFile points at an uploaded screenshot/photo.
type EvidenceFile struct {
	FileName    string `json:"file_name"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type,omitempty"`
}

// Submission is one ledger row. The run core is immutable once written;
// only the review block below is ever amended (plus same-day supersession,
// which flips the review block of *older* rows).
type Submission struct {
	ID        string    `json:"id" gorm:"primaryKey"` // time-ordered: 20260301-153000-a1b2c3
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	ParticipantName string     `json:"participant_name" gorm:"not null;index"`
	Tier            string     `json:"tier" gorm:"not null"`
	RunDate         *time.Time `json:"run_date,omitempty" gorm:"type:date"`
	StartTime       *string    `json:"start_time,omitempty"` // HH:MM

	Run          RunAttributes `json:"run" gorm:"embedded"`
	ClaimedCodes []string      `json:"claimed_codes" gorm:"serializer:json"`
	Verdicts     []CardVerdict `json:"verdicts,omitempty" gorm:"serializer:json"`
	Notes        string        `json:"notes,omitempty"`
	LogSummary   string        `json:"log_summary,omitempty"`

	TokenEvent   string `json:"token_event,omitempty"` // "" | earned | seal | shield
	SealTarget   string `json:"seal_target,omitempty"`
	SealCategory string `json:"seal_category,omitempty"` // B | C

	EvidenceFiles []EvidenceFile `json:"evidence_files,omitempty" gorm:"serializer:json"`
	UserAgent     string         `json:"-"`
	ClientIP      string         `json:"-"`

	// Review layer — the only mutable part of the row
	ReviewStatus string            `json:"review_status" gorm:"default:'pending';index"`
	ReviewedAt   *time.Time        `json:"reviewed_at,omitempty"`
	ReviewedBy   string            `json:"reviewed_by,omitempty"`
	ReviewNotes  string            `json:"review_notes,omitempty"`
	ReviewCards  map[string]string `json:"review_cards,omitempty" gorm:"serializer:json"`
}

// EffectiveRunDay is the supersession key: the self-reported run date when
// present, otherwise the submission's local calendar date.
func (s *Submission) EffectiveRunDay(loc *time.Location) string {
	if s.RunDate != nil {
		return s.RunDate.Format("2006-01-02")
	}
	return s.CreatedAt.In(loc).Format("2006-01-02")
}

// CardStatus resolves the review state of one claimed card. A decided
// per-card entry wins; otherwise a decided whole-submission status covers
// the card, so an approved row honors its claims even when the per-card
// map was never settled (imported rows).
func (s *Submission) CardStatus(code string) string {
	if st, ok := s.ReviewCards[code]; ok && st != ReviewPending {
		return st
	}
	if s.ReviewStatus == ReviewApproved || s.ReviewStatus == ReviewRejected {
		return s.ReviewStatus
	}
	return ReviewPending
}

// OverallFromCards folds a non-empty per-card map into the submission
// status: any pending keeps the whole row pending, any approval beats a
// mix of approvals and rejections, all-rejected rejects.
func OverallFromCards(cards map[string]string) string {
	anyApproved := false
	for _, st := range cards {
		switch st {
		case ReviewPending:
			return ReviewPending
		case ReviewApproved:
			anyApproved = true
		}
	}
	if anyApproved {
		return ReviewApproved
	}
	return ReviewRejected
}
