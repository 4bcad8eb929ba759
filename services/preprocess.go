// services/preprocess.go
package services

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"bingo-submit-system/models"
	"bingo-submit-system/utils"
)

// PreprocessService assembles the daily reviewer packet: the last 24h of
// submissions annotated for the organizers, written as one JSON file.
// The annotation hook is a stub until an assistant is wired in.
type PreprocessService struct {
	DB   *gorm.DB
	Cfg  *Config
	Subs *SubmissionService
}

func NewPreprocessService(db *gorm.DB, cfg *Config, subs *SubmissionService) *PreprocessService {
	return &PreprocessService{DB: db, Cfg: cfg, Subs: subs}
}

// annotate is the review-assistant hook. Deliberately a no-op.
func annotate(sub *models.Submission) map[string]string {
	_ = sub
	return map[string]string{"status": "skipped"}
}

type packetItem struct {
	Submission models.Submission `json:"submission"`
	Assistant  map[string]string `json:"assistant"`
}

// Run builds the packet covering the 24 hours up to the configured
// cutoff and backfills missing review statuses along the way.
func (ps *PreprocessService) Run() (string, error) {
	now := time.Now().In(ps.Cfg.Location)
	hour, minute := parseClock(ps.Cfg.PreprocessAt)
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), int(hour), int(minute), 0, 0, ps.Cfg.Location)
	if now.Before(cutoff) {
		cutoff = cutoff.AddDate(0, 0, -1)
	}
	windowStart := cutoff.Add(-24 * time.Hour)

	if err := ps.Subs.BackfillPendingStatus(); err != nil {
		return "", fmt.Errorf("pending backfill: %w", err)
	}

	var subs []models.Submission
	if err := ps.DB.
		Where("created_at >= ? AND created_at < ?", windowStart.UTC(), cutoff.UTC()).
		Order("created_at ASC").
		Find(&subs).Error; err != nil {
		return "", fmt.Errorf("load window: %w", err)
	}

	items := make([]packetItem, 0, len(subs))
	for i := range subs {
		items = append(items, packetItem{Submission: subs[i], Assistant: annotate(&subs[i])})
	}

	doc := map[string]interface{}{
		"generated_at": now.Format(time.RFC3339),
		"window": map[string]string{
			"start": windowStart.Format(time.RFC3339),
			"end":   cutoff.Format(time.RFC3339),
		},
		"items": items,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}

	outPath := filepath.Join(ps.Cfg.StorageDir, "preprocess", windowStart.Format("2006-01-02")+".json")
	if err := utils.WriteFileAtomic(outPath, data); err != nil {
		return "", err
	}
	return outPath, nil
}
