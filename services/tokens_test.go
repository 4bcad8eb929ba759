package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bingo-submit-system/models"
)

func approvedWildcard(id, name, code string, at time.Time) models.Submission {
	return models.Submission{
		ID: id, CreatedAt: at, ParticipantName: name, Tier: models.TierIntermediate,
		ClaimedCodes: []string{code},
		ReviewStatus: models.ReviewApproved,
		ReviewCards:  map[string]string{code: models.ReviewApproved},
	}
}

func sealEvent(id, actor, target, category string, at time.Time) models.Submission {
	return models.Submission{
		ID: id, CreatedAt: at, ParticipantName: actor, Tier: models.TierIntermediate,
		TokenEvent: models.TokenEventSeal, SealTarget: target, SealCategory: category,
		ReviewStatus: models.ReviewApproved,
	}
}

func TestComputeTokenStateCountsDistinctWildcards(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	subs := []models.Submission{
		approvedWildcard("1", "Kim", "W01", at),
		approvedWildcard("2", "Kim", "W01", at.Add(time.Hour)), // same card again
		approvedWildcard("3", "Kim", "W02", at.Add(2*time.Hour)),
	}
	state := ComputeTokenState("Kim", models.TierIntermediate, subs)
	assert.Equal(t, 2, state.Earned, "W01 mints once")
	assert.Equal(t, 2, state.Balance)
}

func TestComputeTokenStateClampsToTierCap(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	subs := []models.Submission{
		approvedWildcard("1", "Kim", "W01", at),
		approvedWildcard("2", "Kim", "W02", at.Add(time.Hour)),
		approvedWildcard("3", "Kim", "W03", at.Add(2*time.Hour)),
	}

	state := ComputeTokenState("Kim", models.TierBeginner, subs)
	assert.Equal(t, 3, state.Earned)
	assert.Equal(t, 1, state.Balance, "beginner cap is 1")

	state = ComputeTokenState("Kim", models.TierAdvanced, subs)
	assert.Equal(t, 3, state.Balance, "advanced cap is 3")
}

func TestComputeTokenStateNeverGoesNegative(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	subs := []models.Submission{
		sealEvent("1", "Kim", "Lee", models.CategoryCondition, at),
		sealEvent("2", "Kim", "Park", models.CategoryCoop, at.Add(time.Hour)),
	}
	state := ComputeTokenState("Kim", models.TierIntermediate, subs)
	assert.Equal(t, 2, state.Spent)
	assert.Equal(t, 0, state.Balance)
}

func TestComputeTokenStateIgnoresPendingSpends(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	pending := sealEvent("2", "Kim", "Lee", models.CategoryCondition, at.Add(time.Hour))
	pending.ReviewStatus = models.ReviewPending
	subs := []models.Submission{
		approvedWildcard("1", "Kim", "W01", at),
		pending,
	}
	state := ComputeTokenState("Kim", models.TierIntermediate, subs)
	assert.Equal(t, 0, state.Spent)
	assert.Equal(t, 1, state.Balance)
}

func TestDeriveStateCoversUnstatusedRows(t *testing.T) {
	db := newTestDB(t)
	ts := NewTokenService(db, testConfig())

	sub := approvedWildcard("20260301-080000-aaaaaa", "Kim", "W01",
		time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	require.NoError(t, db.Create(&sub).Error)
	// Imported rows can arrive without any review status.
	require.NoError(t, db.Exec("UPDATE submissions SET review_status = NULL WHERE id = ?", sub.ID).Error)

	state, err := ts.DeriveState("Kim", models.TierIntermediate)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Earned, "per-card approval on an unstatused row still mints")
	assert.Equal(t, 1, state.Balance)
}

func runBy(id, name, day string, at time.Time) *models.Submission {
	return &models.Submission{
		ID: id, CreatedAt: at, ParticipantName: name, Tier: models.TierIntermediate,
		RunDate: dateOf(day), ClaimedCodes: []string{"B05"},
		ReviewStatus: models.ReviewApproved,
	}
}

func TestSealExpiresAfterTwoRunDays(t *testing.T) {
	tracker := NewSealTracker(time.UTC)
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	seal := sealEvent("s1", "Lee", "Kim", models.CategoryCondition, at)
	tracker.Observe(&seal)

	blocked := tracker.Observe(runBy("1", "Kim", "2026-03-02", at.Add(24*time.Hour)))
	assert.True(t, blocked[models.CategoryCondition], "first run-day is restricted")

	// Second run on the same day does not burn another run-day.
	blocked = tracker.Observe(runBy("2", "Kim", "2026-03-02", at.Add(26*time.Hour)))
	assert.True(t, blocked[models.CategoryCondition])
	require.Len(t, tracker.ActiveFor("Kim"), 1)

	blocked = tracker.Observe(runBy("3", "Kim", "2026-03-03", at.Add(48*time.Hour)))
	assert.True(t, blocked[models.CategoryCondition], "second run-day is still restricted")

	blocked = tracker.Observe(runBy("4", "Kim", "2026-03-04", at.Add(72*time.Hour)))
	assert.False(t, blocked[models.CategoryCondition], "seal lapsed after two run-days")
	assert.Empty(t, tracker.ActiveFor("Kim"))
}

func TestShieldCancelsNamedCategoryFirst(t *testing.T) {
	tracker := NewSealTracker(time.UTC)
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	sealB := sealEvent("s1", "Lee", "Kim", models.CategoryCondition, at)
	sealC := sealEvent("s2", "Park", "Kim", models.CategoryCoop, at.Add(time.Hour))
	tracker.Observe(&sealB)
	tracker.Observe(&sealC)

	shield := models.Submission{
		ID: "s3", CreatedAt: at.Add(2 * time.Hour), ParticipantName: "Kim",
		Tier:       models.TierIntermediate,
		TokenEvent: models.TokenEventShield, SealCategory: models.CategoryCoop,
		ReviewStatus: models.ReviewApproved,
	}
	tracker.Observe(&shield)

	remaining := tracker.ActiveFor("Kim")
	require.Len(t, remaining, 1)
	assert.Equal(t, models.CategoryCondition, remaining[0].Category)
}

func TestShieldFallsBackToMostRecentSeal(t *testing.T) {
	tracker := NewSealTracker(time.UTC)
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	sealB := sealEvent("s1", "Lee", "Kim", models.CategoryCondition, at)
	sealC := sealEvent("s2", "Park", "Kim", models.CategoryCoop, at.Add(time.Hour))
	tracker.Observe(&sealB)
	tracker.Observe(&sealC)

	shield := models.Submission{
		ID: "s3", CreatedAt: at.Add(2 * time.Hour), ParticipantName: "Kim",
		Tier:         models.TierIntermediate,
		TokenEvent:   models.TokenEventShield,
		ReviewStatus: models.ReviewApproved,
	}
	tracker.Observe(&shield)

	remaining := tracker.ActiveFor("Kim")
	require.Len(t, remaining, 1)
	assert.Equal(t, models.CategoryCondition, remaining[0].Category, "the newer C seal went first")
}

func TestDuplicateSealIsDroppedInReplay(t *testing.T) {
	tracker := NewSealTracker(time.UTC)
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	first := sealEvent("s1", "Lee", "Kim", models.CategoryCondition, at)
	second := sealEvent("s2", "Park", "Kim", models.CategoryCondition, at.Add(time.Hour))
	tracker.Observe(&first)
	tracker.Observe(&second)

	remaining := tracker.ActiveFor("Kim")
	require.Len(t, remaining, 1)
	assert.Equal(t, "Lee", remaining[0].Actor, "the original seal survives")
}

func TestHasOutstandingSeal(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	ts := NewTokenService(db, cfg)

	pending := sealEvent("20260301-080000-aaaaaa", "Lee", "Kim", models.CategoryCondition,
		time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	pending.ReviewStatus = models.ReviewPending
	require.NoError(t, db.Create(&pending).Error)

	outstanding, err := ts.HasOutstandingSeal("Kim", models.CategoryCondition)
	require.NoError(t, err)
	assert.True(t, outstanding)

	outstanding, err = ts.HasOutstandingSeal("Kim", models.CategoryCoop)
	require.NoError(t, err)
	assert.False(t, outstanding)

	outstanding, err = ts.HasOutstandingSeal("Park", models.CategoryCondition)
	require.NoError(t, err)
	assert.False(t, outstanding)
}
