package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"bingo-submit-system/models"
)

func newLedgerService(t *testing.T) (*SubmissionService, *gorm.DB) {
	db := newTestDB(t)
	cfg := testConfig()
	tokens := NewTokenService(db, cfg)
	return NewSubmissionService(db, cfg, tokens), db
}

func dateOf(value string) *time.Time {
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return &d
}

func TestSupersedeSameDay(t *testing.T) {
	svc, db := newLedgerService(t)

	older := &models.Submission{
		ID: "20260301-080000-aaaaaa", CreatedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		ParticipantName: "Kim", Tier: models.TierIntermediate,
		RunDate: dateOf("2026-03-01"), ClaimedCodes: []string{"A01"},
		ReviewStatus: models.ReviewPending,
		ReviewCards:  map[string]string{"A01": models.ReviewPending},
	}
	otherDay := &models.Submission{
		ID: "20260302-080000-cccccc", CreatedAt: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
		ParticipantName: "Kim", Tier: models.TierIntermediate,
		RunDate: dateOf("2026-03-02"), ClaimedCodes: []string{"A04"},
		ReviewStatus: models.ReviewPending,
	}
	otherRunner := &models.Submission{
		ID: "20260301-090000-dddddd", CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		ParticipantName: "Lee", Tier: models.TierBeginner,
		RunDate: dateOf("2026-03-01"), ClaimedCodes: []string{"A01"},
		ReviewStatus: models.ReviewPending,
	}
	newer := &models.Submission{
		ID: "20260301-200000-bbbbbb", CreatedAt: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC),
		ParticipantName: "Kim", Tier: models.TierIntermediate,
		RunDate: dateOf("2026-03-01"), ClaimedCodes: []string{"A02"},
		ReviewStatus: models.ReviewPending,
	}
	for _, sub := range []*models.Submission{older, otherDay, otherRunner, newer} {
		mustCreate(t, db, sub)
	}

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.supersedeSameDay(tx, newer)
	}))

	var got models.Submission
	require.NoError(t, db.First(&got, "id = ?", older.ID).Error)
	assert.Equal(t, models.ReviewRejected, got.ReviewStatus)
	assert.Equal(t, "auto", got.ReviewedBy)
	assert.Equal(t, models.AutoRejectNote, got.ReviewNotes)
	assert.Equal(t, models.ReviewRejected, got.ReviewCards["A01"])

	// The kept row, the other day and the other runner are untouched.
	for _, id := range []string{newer.ID, otherDay.ID, otherRunner.ID} {
		got = models.Submission{}
		require.NoError(t, db.First(&got, "id = ?", id).Error)
		assert.Equal(t, models.ReviewPending, got.ReviewStatus, id)
	}
}

func TestSupersedeIsIdempotentAndForwardOnly(t *testing.T) {
	svc, db := newLedgerService(t)

	manual := &models.Submission{
		ID: "20260301-070000-aaaaaa", CreatedAt: time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC),
		ParticipantName: "Kim", Tier: models.TierIntermediate,
		RunDate: dateOf("2026-03-01"), ClaimedCodes: []string{"A01"},
		ReviewStatus: models.ReviewRejected, ReviewedBy: "organizer",
		ReviewNotes: "photo did not match the route",
	}
	older := &models.Submission{
		ID: "20260301-080000-bbbbbb", CreatedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		ParticipantName: "Kim", Tier: models.TierIntermediate,
		RunDate: dateOf("2026-03-01"), ClaimedCodes: []string{"A02"},
		ReviewStatus: models.ReviewPending,
	}
	newer := &models.Submission{
		ID: "20260301-200000-cccccc", CreatedAt: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC),
		ParticipantName: "Kim", Tier: models.TierIntermediate,
		RunDate: dateOf("2026-03-01"), ClaimedCodes: []string{"A03"},
		ReviewStatus: models.ReviewPending,
	}
	for _, sub := range []*models.Submission{manual, older, newer} {
		mustCreate(t, db, sub)
	}

	for i := 0; i < 2; i++ {
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			return svc.supersedeSameDay(tx, newer)
		}))
	}

	var got models.Submission
	require.NoError(t, db.First(&got, "id = ?", older.ID).Error)
	assert.Equal(t, models.AutoRejectNote, got.ReviewNotes)

	// A manual rejection keeps its original reason.
	got = models.Submission{}
	require.NoError(t, db.First(&got, "id = ?", manual.ID).Error)
	assert.Equal(t, "organizer", got.ReviewedBy)
	assert.Equal(t, "photo did not match the route", got.ReviewNotes)

	got = models.Submission{}
	require.NoError(t, db.First(&got, "id = ?", newer.ID).Error)
	assert.Equal(t, models.ReviewPending, got.ReviewStatus, "the kept row is never touched")
}

func TestSupersedeFallsBackToCreationDay(t *testing.T) {
	svc, db := newLedgerService(t)

	older := &models.Submission{
		ID: "20260301-080000-aaaaaa", CreatedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		ParticipantName: "Kim", Tier: models.TierIntermediate,
		ClaimedCodes: []string{"A01"}, ReviewStatus: models.ReviewPending,
	}
	newer := &models.Submission{
		ID: "20260301-210000-bbbbbb", CreatedAt: time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC),
		ParticipantName: "Kim", Tier: models.TierIntermediate,
		ClaimedCodes: []string{"A02"}, ReviewStatus: models.ReviewPending,
	}
	mustCreate(t, db, older)
	mustCreate(t, db, newer)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.supersedeSameDay(tx, newer)
	}))

	var got models.Submission
	require.NoError(t, db.First(&got, "id = ?", older.ID).Error)
	assert.Equal(t, models.ReviewRejected, got.ReviewStatus)
}

func TestBackfillPendingStatus(t *testing.T) {
	svc, db := newLedgerService(t)

	sub := &models.Submission{
		ID: "20260301-080000-aaaaaa", ParticipantName: "Kim", Tier: models.TierBeginner,
		ClaimedCodes: []string{"A01"}, ReviewStatus: models.ReviewPending,
	}
	mustCreate(t, db, sub)
	require.NoError(t, db.Model(&models.Submission{}).Where("id = ?", sub.ID).Update("review_status", "").Error)

	require.NoError(t, svc.BackfillPendingStatus())

	var got models.Submission
	require.NoError(t, db.First(&got, "id = ?", sub.ID).Error)
	assert.Equal(t, models.ReviewPending, got.ReviewStatus)
}

func TestNewSubmissionIDIsTimeOrdered(t *testing.T) {
	a := NewSubmissionID()
	b := NewSubmissionID()
	assert.Regexp(t, `^\d{8}-\d{6}-[0-9a-f]{6}$`, a)
	assert.Regexp(t, `^\d{8}-\d{6}-[0-9a-f]{6}$`, b)
	assert.LessOrEqual(t, a[:15], b[:15])
}

func TestWholeSubmissionApprovalSettlesCards(t *testing.T) {
	svc, db := newLedgerService(t)

	sub := &models.Submission{
		ID: "20260301-080000-aaaaaa", CreatedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		ParticipantName: "Kim", Tier: models.TierIntermediate,
		RunDate: dateOf("2026-03-01"), ClaimedCodes: []string{"A01", "W01"},
		ReviewStatus: models.ReviewPending,
		ReviewCards:  map[string]string{"A01": models.ReviewPending, "W01": models.ReviewPending},
	}
	mustCreate(t, db, sub)

	got, err := svc.applyReview(sub.ID, models.ReviewApproved, "", "organizer", "checked the photos")
	require.NoError(t, err)
	assert.Equal(t, models.ReviewApproved, got.ReviewStatus)
	assert.Equal(t, models.ReviewApproved, got.ReviewCards["A01"])
	assert.Equal(t, models.ReviewApproved, got.ReviewCards["W01"])
	assert.Equal(t, "organizer", got.ReviewedBy)

	// The approved claims reach the snapshot and mint the wildcard token.
	snap := BuildSnapshot(svc.Cfg, []models.Submission{*got}, nil,
		time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	require.Len(t, snap.Players, 1)
	assert.Equal(t, []string{"A01", "W01"}, snap.Players[0].CheckedCodes)
	assert.Equal(t, 1, snap.Players[0].Tokens)

	state := ComputeTokenState("Kim", models.TierIntermediate, []models.Submission{*got})
	assert.Equal(t, 1, state.Balance)
}

func TestPerCardReviewRefoldsOverall(t *testing.T) {
	svc, db := newLedgerService(t)

	sub := &models.Submission{
		ID: "20260301-080000-aaaaaa", CreatedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		ParticipantName: "Kim", Tier: models.TierIntermediate,
		RunDate: dateOf("2026-03-01"), ClaimedCodes: []string{"A01", "B05"},
		ReviewStatus: models.ReviewPending,
		ReviewCards:  map[string]string{"A01": models.ReviewPending, "B05": models.ReviewPending},
	}
	mustCreate(t, db, sub)

	got, err := svc.applyReview(sub.ID, models.ReviewApproved, "A01", "organizer", "")
	require.NoError(t, err)
	assert.Equal(t, models.ReviewPending, got.ReviewStatus, "an undecided card keeps the row pending")
	assert.Equal(t, models.ReviewApproved, got.ReviewCards["A01"])

	got, err = svc.applyReview(sub.ID, models.ReviewRejected, "b5", "organizer", "cropped screenshot")
	require.NoError(t, err)
	assert.Equal(t, models.ReviewApproved, got.ReviewStatus, "one approval beats a mix")
	assert.Equal(t, models.ReviewRejected, got.ReviewCards["B05"])
	assert.Equal(t, models.ReviewRejected, got.CardStatus("B05"))
}

func TestSupersedeCoversUnstatusedRows(t *testing.T) {
	svc, db := newLedgerService(t)

	older := &models.Submission{
		ID: "20260301-080000-aaaaaa", CreatedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		ParticipantName: "Kim", Tier: models.TierIntermediate,
		RunDate: dateOf("2026-03-01"), ClaimedCodes: []string{"A01"},
		ReviewStatus: models.ReviewPending,
	}
	newer := &models.Submission{
		ID: "20260301-200000-bbbbbb", CreatedAt: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC),
		ParticipantName: "Kim", Tier: models.TierIntermediate,
		RunDate: dateOf("2026-03-01"), ClaimedCodes: []string{"A02"},
		ReviewStatus: models.ReviewPending,
	}
	mustCreate(t, db, older)
	mustCreate(t, db, newer)
	// Imported rows can arrive without any review status.
	require.NoError(t, db.Exec("UPDATE submissions SET review_status = NULL WHERE id = ?", older.ID).Error)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.supersedeSameDay(tx, newer)
	}))

	var got models.Submission
	require.NoError(t, db.First(&got, "id = ?", older.ID).Error)
	assert.Equal(t, models.ReviewRejected, got.ReviewStatus)
	assert.Equal(t, models.AutoRejectNote, got.ReviewNotes)
}
