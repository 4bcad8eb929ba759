// services/tokens.go
package services

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"bingo-submit-system/models"
)

// TokenService answers every wildcard-token question by replaying the
// ledger. Nothing here is stored: re-running the derivation over the
// same rows always lands on the same balances and seals.
type TokenService struct {
	DB  *gorm.DB
	Cfg *Config
}

func NewTokenService(db *gorm.DB, cfg *Config) *TokenService {
	return &TokenService{DB: db, Cfg: cfg}
}

// SealTracker replays seal and shield events in submission order.
// Feed it every honored submission oldest-first via Observe.
type SealTracker struct {
	loc    *time.Location
	active map[string][]*models.ActiveSeal // keyed by target participant
}

func NewSealTracker(loc *time.Location) *SealTracker {
	return &SealTracker{loc: loc, active: map[string][]*models.ActiveSeal{}}
}

// Observe processes one submission and returns the categories sealed for
// its participant during this run. The run-day counts toward each active
// seal's expiry; a seal lapses once it has restricted two distinct
// run-days.
func (t *SealTracker) Observe(sub *models.Submission) map[string]bool {
	name := sub.ParticipantName
	blocked := map[string]bool{}

	if seals := t.active[name]; len(seals) > 0 {
		runDay := sub.EffectiveRunDay(t.loc)
		var remaining []*models.ActiveSeal
		for _, seal := range seals {
			blocked[seal.Category] = true
			if !containsDay(seal.RunDaysSeen, runDay) {
				seal.RunDaysSeen = append(seal.RunDaysSeen, runDay)
			}
			if len(seal.RunDaysSeen) < models.SealRunDayLimit {
				remaining = append(remaining, seal)
			}
		}
		t.active[name] = remaining
	}

	switch sub.TokenEvent {
	case models.TokenEventSeal:
		t.activate(sub)
	case models.TokenEventShield:
		t.shield(name, sub.SealCategory)
	}
	return blocked
}

func (t *SealTracker) activate(sub *models.Submission) {
	target := sub.SealTarget
	if target == "" || sub.SealCategory == "" {
		return
	}
	// One live seal per category per target; replays of a duplicate are
	// dropped, mirroring the synchronous guard at submit time.
	for _, seal := range t.active[target] {
		if seal.Category == sub.SealCategory {
			return
		}
	}
	t.active[target] = append(t.active[target], &models.ActiveSeal{
		Target:      target,
		Category:    sub.SealCategory,
		Actor:       sub.ParticipantName,
		ActivatedAt: sub.CreatedAt,
	})
}

// shield removes one live seal from the participant: the named category
// when given and present, otherwise the most recently activated.
func (t *SealTracker) shield(name, category string) {
	seals := t.active[name]
	if len(seals) == 0 {
		return
	}
	idx := -1
	if category != "" {
		for i, seal := range seals {
			if seal.Category == category {
				idx = i
				break
			}
		}
	}
	if idx == -1 {
		idx = 0
		for i, seal := range seals {
			if seal.ActivatedAt.After(seals[idx].ActivatedAt) {
				idx = i
			}
		}
	}
	t.active[name] = append(seals[:idx], seals[idx+1:]...)
}

// ActiveFor lists the live seals currently restricting a participant.
func (t *SealTracker) ActiveFor(target string) []models.ActiveSeal {
	out := make([]models.ActiveSeal, 0, len(t.active[target]))
	for _, seal := range t.active[target] {
		out = append(out, *seal)
	}
	return out
}

func containsDay(days []string, day string) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

// ComputeTokenState is the pure balance derivation over one
// participant's non-rejected rows (oldest first): distinct approved
// wildcard cards mint, approved seal/shield events spend, and the result
// is clamped to [0, tier cap].
func ComputeTokenState(name, tier string, subs []models.Submission) models.TokenState {
	earned := map[string]bool{}
	spent := 0
	for i := range subs {
		sub := &subs[i]
		for _, code := range sub.ClaimedCodes {
			card, ok := models.Cards[code]
			if !ok || card.Category != models.CategoryWild {
				continue
			}
			if sub.CardStatus(code) == models.ReviewApproved {
				earned[code] = true
			}
		}
		if sub.ReviewStatus != models.ReviewApproved {
			continue
		}
		if sub.TokenEvent == models.TokenEventSeal || sub.TokenEvent == models.TokenEventShield {
			spent++
		}
	}

	limit := models.TokenCap(tier)
	balance := len(earned) - spent
	if balance < 0 {
		balance = 0
	}
	if balance > limit {
		balance = limit
	}
	return models.TokenState{
		Participant: name,
		Tier:        tier,
		Earned:      len(earned),
		Spent:       spent,
		Cap:         limit,
		Balance:     balance,
	}
}

// DeriveState loads the participant's ledger rows and computes the
// clamped balance.
func (ts *TokenService) DeriveState(name, tier string) (models.TokenState, error) {
	var subs []models.Submission
	if err := ts.DB.
		Where("participant_name = ? AND (review_status IS NULL OR review_status <> ?)",
			name, models.ReviewRejected).
		Order("created_at ASC").
		Find(&subs).Error; err != nil {
		return models.TokenState{}, err
	}
	return ComputeTokenState(name, tier, subs), nil
}

// replayTracker rebuilds seal state from every approved submission.
func (ts *TokenService) replayTracker() (*SealTracker, error) {
	var subs []models.Submission
	if err := ts.DB.
		Where("review_status = ?", models.ReviewApproved).
		Order("created_at ASC").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	tracker := NewSealTracker(ts.Cfg.Location)
	for i := range subs {
		tracker.Observe(&subs[i])
	}
	return tracker, nil
}

// HasOutstandingSeal guards duplicate seals at submit time: a pending
// seal request against the same target and category, or an approved one
// still live in replay, blocks a new seal.
func (ts *TokenService) HasOutstandingSeal(target, category string) (bool, error) {
	var pending int64
	if err := ts.DB.Model(&models.Submission{}).
		Where("token_event = ? AND seal_target = ? AND seal_category = ? AND review_status = ?",
			models.TokenEventSeal, target, category, models.ReviewPending).
		Count(&pending).Error; err != nil {
		return false, err
	}
	if pending > 0 {
		return true, nil
	}

	tracker, err := ts.replayTracker()
	if err != nil {
		return false, err
	}
	for _, seal := range tracker.ActiveFor(target) {
		if seal.Category == category {
			return true, nil
		}
	}
	return false, nil
}

// GetParticipantTokens reports the derived balance and live seals.
func (ts *TokenService) GetParticipantTokens(c *fiber.Ctx) error {
	name := norm.NFC.String(strings.TrimSpace(c.Params("name")))
	if name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "participant name required"})
	}

	tier, err := ts.tierOf(name)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "tier lookup failed", "details": err.Error()})
	}
	if tier == "" {
		return c.Status(404).JSON(fiber.Map{"error": "unknown participant"})
	}

	state, err := ts.DeriveState(name, tier)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "token derivation failed", "details": err.Error()})
	}
	tracker, err := ts.replayTracker()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "seal derivation failed", "details": err.Error()})
	}
	return c.JSON(fiber.Map{
		"tokens":       state,
		"active_seals": tracker.ActiveFor(name),
	})
}

// tierOf resolves a participant's tier from their board, falling back to
// their most recent submission.
func (ts *TokenService) tierOf(name string) (string, error) {
	var board models.Board
	err := ts.DB.Where("participant_name = ?", name).First(&board).Error
	if err == nil {
		return board.Tier, nil
	}
	if err != gorm.ErrRecordNotFound {
		return "", err
	}
	var sub models.Submission
	err = ts.DB.Where("participant_name = ?", name).Order("created_at DESC").First(&sub).Error
	if err == nil {
		return sub.Tier, nil
	}
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	return "", err
}
