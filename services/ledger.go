// services/ledger.go
package services

import (
	"encoding/json"
	"fmt"
	"log"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"bingo-submit-system/models"
	"bingo-submit-system/utils"
)

const maxEvidenceFiles = 5
const maxEvidenceSize = 10 << 20 // 10 MiB per file

// SubmissionService owns the append-only submission ledger. Rows are
// inserted once; afterwards only the review block is amended (organizer
// decisions, pending backfill, same-day supersession).
type SubmissionService struct {
	DB     *gorm.DB
	Cfg    *Config
	Tokens *TokenService
}

func NewSubmissionService(db *gorm.DB, cfg *Config, tokens *TokenService) *SubmissionService {
	return &SubmissionService{DB: db, Cfg: cfg, Tokens: tokens}
}

// NewSubmissionID returns a time-ordered ledger ID: 20260301-153000-a1b2c3.
// Lexicographic order matches creation order, which keeps directory
// listings and debugging sane.
func NewSubmissionID() string {
	stamp := time.Now().UTC().Format("20060102-150405")
	tail := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s-%s", stamp, tail)
}

// CreateSubmission accepts a run submission: JSON body, or multipart with
// a "payload" JSON field plus "evidence" files.
func (s *SubmissionService) CreateSubmission(c *fiber.Ctx) error {
	type Req struct {
		ParticipantName string               `json:"participant_name"`
		Tier            string               `json:"tier"`
		RunDate         string               `json:"run_date"`
		StartTime       string               `json:"start_time"`
		Claims          []string             `json:"claims"`
		Run             models.RunAttributes `json:"run"`
		Notes           string               `json:"notes"`
		LogSummary      string               `json:"log_summary"`
		TokenEvent      string               `json:"token_event"`
		SealTarget      string               `json:"seal_target"`
		SealCategory    string               `json:"seal_category"`
	}

	var req Req
	var evidence []models.EvidenceFile
	contentType := c.Get(fiber.HeaderContentType)
	if strings.HasPrefix(contentType, fiber.MIMEMultipartForm) {
		payload := c.FormValue("payload")
		if payload == "" {
			return c.Status(400).JSON(fiber.Map{"error": "multipart submissions need a payload field"})
		}
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid payload JSON", "details": err.Error()})
		}
	} else if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body", "details": err.Error()})
	}

	name := norm.NFC.String(strings.TrimSpace(req.ParticipantName))
	if name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "participant_name is required"})
	}
	tier, ok := models.NormalizeTier(req.Tier)
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "invalid tier", "details": req.Tier})
	}

	tokenEvent := strings.ToLower(strings.TrimSpace(req.TokenEvent))
	switch tokenEvent {
	case models.TokenEventNone, models.TokenEventEarned, models.TokenEventSeal, models.TokenEventShield:
	default:
		return c.Status(400).JSON(fiber.Map{"error": "invalid token_event", "details": req.TokenEvent})
	}

	claims := NormalizeClaimCodes(req.Claims)
	if len(claims) == 0 && tokenEvent == models.TokenEventNone {
		return c.Status(400).JSON(fiber.Map{"error": "claim at least one card or declare a token event"})
	}
	if len(claims) > 0 {
		if ok, messages := ValidateClaims(claims); !ok {
			return c.Status(400).JSON(fiber.Map{"error": "invalid claims", "messages": messages})
		}
	}

	var runDate *time.Time
	if strings.TrimSpace(req.RunDate) != "" {
		parsed, err := time.Parse("2006-01-02", strings.TrimSpace(req.RunDate))
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid run_date, want YYYY-MM-DD"})
		}
		runDate = &parsed
	}
	var startTime *string
	if raw := strings.TrimSpace(req.StartTime); raw != "" {
		if _, err := time.Parse("15:04", raw); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid start_time, want HH:MM"})
		}
		startTime = &raw
	}

	// Claims must sit on the participant's board when one exists.
	var board models.Board
	if err := s.DB.Where("participant_name = ?", name).First(&board).Error; err == nil {
		var offBoard []string
		for _, code := range claims {
			if !board.Has(code) {
				offBoard = append(offBoard, code)
			}
		}
		if len(offBoard) > 0 {
			return c.Status(400).JSON(fiber.Map{
				"error":   "claimed cards are not on your board",
				"details": strings.Join(offBoard, ", "),
			})
		}
	} else if err != gorm.ErrRecordNotFound {
		return c.Status(500).JSON(fiber.Map{"error": "board lookup failed", "details": err.Error()})
	}

	sealTarget := norm.NFC.String(strings.TrimSpace(req.SealTarget))
	sealCategory := strings.ToUpper(strings.TrimSpace(req.SealCategory))
	if tokenEvent == models.TokenEventSeal || tokenEvent == models.TokenEventShield {
		if tokenEvent == models.TokenEventSeal {
			if sealTarget == "" {
				return c.Status(400).JSON(fiber.Map{"error": "seal_target is required for a seal"})
			}
			if sealCategory != models.CategoryCondition && sealCategory != models.CategoryCoop {
				return c.Status(400).JSON(fiber.Map{"error": "seal_category must be B or C"})
			}
		}
		state, err := s.Tokens.DeriveState(name, tier)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "token derivation failed", "details": err.Error()})
		}
		if state.Balance <= 0 {
			return c.Status(400).JSON(fiber.Map{"error": "no wildcard token available"})
		}
		if tokenEvent == models.TokenEventSeal {
			outstanding, err := s.Tokens.HasOutstandingSeal(sealTarget, sealCategory)
			if err != nil {
				return c.Status(500).JSON(fiber.Map{"error": "seal lookup failed", "details": err.Error()})
			}
			if outstanding {
				return c.Status(409).JSON(fiber.Map{
					"error": fmt.Sprintf("%s already has an outstanding %s seal", sealTarget, sealCategory),
				})
			}
		}
	} else {
		sealTarget, sealCategory = "", ""
	}

	sub := models.Submission{
		ID:              NewSubmissionID(),
		ParticipantName: name,
		Tier:            tier,
		RunDate:         runDate,
		StartTime:       startTime,
		Run:             req.Run,
		ClaimedCodes:    claims,
		Notes:           strings.TrimSpace(req.Notes),
		LogSummary:      strings.TrimSpace(req.LogSummary),
		TokenEvent:      tokenEvent,
		SealTarget:      sealTarget,
		SealCategory:    sealCategory,
		ReviewStatus:    models.ReviewPending,
		UserAgent:       c.Get(fiber.HeaderUserAgent),
		ClientIP:        c.IP(),
	}

	verdicts, overall, reasons := EvaluateClaims(&sub)
	sub.Verdicts = verdicts
	sub.ReviewCards = map[string]string{}
	for _, code := range claims {
		sub.ReviewCards[code] = models.ReviewPending
	}

	if strings.HasPrefix(contentType, fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid multipart form", "details": err.Error()})
		}
		files := form.File["evidence"]
		if len(files) > maxEvidenceFiles {
			return c.Status(400).JSON(fiber.Map{"error": fmt.Sprintf("at most %d evidence files", maxEvidenceFiles)})
		}
		for _, fh := range files {
			if fh.Size > maxEvidenceSize {
				return c.Status(400).JSON(fiber.Map{"error": fmt.Sprintf("evidence file %s exceeds 10MB", fh.Filename)})
			}
			stored, err := s.storeEvidence(sub.ID, fh)
			if err != nil {
				return c.Status(500).JSON(fiber.Map{"error": "evidence upload failed", "details": err.Error()})
			}
			evidence = append(evidence, stored)
		}
	}
	sub.EvidenceFiles = evidence

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&sub).Error; err != nil {
			return err
		}
		if len(sub.ClaimedCodes) > 0 {
			return s.supersedeSameDay(tx, &sub)
		}
		return nil
	})
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to record submission", "details": err.Error()})
	}

	summary := fiber.Map{"passed": 0, "failed": 0, "needs_review": 0}
	for _, v := range verdicts {
		summary[v.Status] = summary[v.Status].(int) + 1
	}
	log.Printf("📬 Submission %s by %s (%s): %d claim(s), overall %s", sub.ID, name, tier, len(claims), overall)

	return c.Status(201).JSON(fiber.Map{
		"id":             sub.ID,
		"created_at":     sub.CreatedAt,
		"participant":    name,
		"tier":           tier,
		"claims":         claims,
		"verdicts":       verdicts,
		"overall":        overall,
		"reasons":        reasons,
		"summary":        summary,
		"evidence_files": evidence,
	})
}

// storeEvidence puts one uploaded file into object storage, or under the
// local data dir when R2 is not configured.
func (s *SubmissionService) storeEvidence(submissionID string, fh *multipart.FileHeader) (models.EvidenceFile, error) {
	safe := utils.SafeFileName(fh.Filename)
	key := fmt.Sprintf("evidence/%s/%s", submissionID, safe)

	var url string
	if utils.R2Enabled() {
		uploaded, err := utils.UploadFileToR2(fh, key)
		if err != nil {
			return models.EvidenceFile{}, err
		}
		url = uploaded
	} else {
		dest := filepath.Join(s.Cfg.StorageDir, "evidence", submissionID, safe)
		if err := utils.SaveFile(fh, dest); err != nil {
			return models.EvidenceFile{}, err
		}
		url = "/" + filepath.ToSlash(dest)
	}

	return models.EvidenceFile{
		FileName:    safe,
		URL:         url,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
	}, nil
}

// jsonColumn encodes a value for a map-based Updates call, which bypasses
// the model field's serializer.
func jsonColumn(v interface{}) string {
	data, _ := json.Marshal(v)
	return string(data)
}

// supersedeSameDay rejects every older submission by the same participant
// on the same effective run-day. Forward-only: the new row is never
// touched, already-rejected rows keep their original reason.
func (s *SubmissionService) supersedeSameDay(tx *gorm.DB, keep *models.Submission) error {
	runDay := keep.EffectiveRunDay(s.Cfg.Location)
	if runDay == "" {
		return nil
	}

	// NULL statuses (imported rows) must not escape the <> filter.
	var candidates []models.Submission
	if err := tx.
		Where("participant_name = ? AND id <> ? AND (review_status IS NULL OR review_status <> ?)",
			keep.ParticipantName, keep.ID, models.ReviewRejected).
		Find(&candidates).Error; err != nil {
		return err
	}

	now := time.Now().UTC()
	for i := range candidates {
		old := &candidates[i]
		if old.EffectiveRunDay(s.Cfg.Location) != runDay {
			continue
		}
		rejectedCards := map[string]string{}
		for _, code := range old.ClaimedCodes {
			rejectedCards[code] = models.ReviewRejected
		}
		updates := map[string]interface{}{
			"review_status": models.ReviewRejected,
			"reviewed_at":   now,
			"reviewed_by":   "auto",
			"review_notes":  models.AutoRejectNote,
			"review_cards":  jsonColumn(rejectedCards),
		}
		if err := tx.Model(&models.Submission{}).Where("id = ?", old.ID).Updates(updates).Error; err != nil {
			return err
		}
		log.Printf("♻️ Superseded %s (same run-day %s as %s)", old.ID, runDay, keep.ID)
	}
	return nil
}

// ListSubmissions is the organizer review queue, newest first.
// ?status=pending|approved|rejected|all, ?runner=, ?run_date=YYYY-MM-DD
func (s *SubmissionService) ListSubmissions(c *fiber.Ctx) error {
	status := strings.ToLower(c.Query("status", models.ReviewPending))
	limitStr := c.Query("limit", "200")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 2000 {
		limit = 200
	}

	db := s.DB.Model(&models.Submission{}).Order("created_at DESC").Limit(limit)
	switch status {
	case "all":
	case models.ReviewPending:
		// Pending also covers imported rows that never got a status.
		db = db.Where("review_status IS NULL OR review_status = '' OR review_status = ?", models.ReviewPending)
	default:
		db = db.Where("review_status = ?", status)
	}
	if runner := strings.TrimSpace(c.Query("runner")); runner != "" {
		db = db.Where("participant_name = ?", norm.NFC.String(runner))
	}
	if runDate := strings.TrimSpace(c.Query("run_date")); runDate != "" {
		parsed, err := time.Parse("2006-01-02", runDate)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid run_date, want YYYY-MM-DD"})
		}
		db = db.Where("run_date = ?", parsed)
	}

	var subs []models.Submission
	if err := db.Find(&subs).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "listing failed", "details": err.Error()})
	}
	return c.JSON(fiber.Map{"count": len(subs), "submissions": subs})
}

func (s *SubmissionService) GetSubmission(c *fiber.Ctx) error {
	var sub models.Submission
	if err := s.DB.First(&sub, "id = ?", c.Params("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(404).JSON(fiber.Map{"error": "submission not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "lookup failed", "details": err.Error()})
	}
	return c.JSON(sub)
}

// ReviewSubmission records an organizer decision. With card_code set it
// amends a single claimed card and refolds the whole-row status (any
// pending wins, then any approval, else rejected); without it the whole
// submission is decided at once.
func (s *SubmissionService) ReviewSubmission(c *fiber.Ctx) error {
	type Req struct {
		Status   string `json:"status"`
		CardCode string `json:"card_code"`
		Reviewer string `json:"reviewer"`
		Notes    string `json:"notes"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body", "details": err.Error()})
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	switch status {
	case models.ReviewPending, models.ReviewApproved, models.ReviewRejected:
	default:
		return c.Status(400).JSON(fiber.Map{"error": "status must be pending, approved or rejected"})
	}

	sub, err := s.applyReview(c.Params("id"), status, req.CardCode, req.Reviewer, req.Notes)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(404).JSON(fiber.Map{"error": "submission not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "review update failed", "details": err.Error()})
	}
	return c.JSON(sub)
}

// applyReview writes one review decision and returns the reloaded row.
// A whole-submission decision settles every claimed card, so the per-card
// map never contradicts the row status downstream.
func (s *SubmissionService) applyReview(id, status, cardCode, reviewer, notes string) (*models.Submission, error) {
	now := time.Now().UTC()
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var sub models.Submission
		if err := tx.First(&sub, "id = ?", id).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"review_status": status,
			"reviewed_at":   now,
			"reviewed_by":   strings.TrimSpace(reviewer),
			"review_notes":  strings.TrimSpace(notes),
		}
		if code := NormalizeClaimCode(cardCode); code != "" {
			cards := sub.ReviewCards
			if cards == nil {
				cards = map[string]string{}
			}
			cards[code] = status
			updates["review_cards"] = jsonColumn(cards)
			updates["review_status"] = models.OverallFromCards(cards)
		} else if len(sub.ReviewCards) > 0 {
			cards := make(map[string]string, len(sub.ReviewCards))
			for code := range sub.ReviewCards {
				cards[code] = status
			}
			updates["review_cards"] = jsonColumn(cards)
		}
		return tx.Model(&models.Submission{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	var sub models.Submission
	if err := s.DB.First(&sub, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// DeleteSubmission hard-deletes one row. The ledger is otherwise
// append-only; this exists for operator cleanup of junk submissions.
func (s *SubmissionService) DeleteSubmission(c *fiber.Ctx) error {
	res := s.DB.Delete(&models.Submission{}, "id = ?", c.Params("id"))
	if res.Error != nil {
		return c.Status(500).JSON(fiber.Map{"error": "delete failed", "details": res.Error.Error()})
	}
	if res.RowsAffected == 0 {
		return c.Status(404).JSON(fiber.Map{"error": "submission not found"})
	}
	return c.JSON(fiber.Map{"deleted": c.Params("id")})
}

// GetCards serves the season card catalog.
func (s *SubmissionService) GetCards(c *fiber.Ctx) error {
	cards := make([]models.Card, 0, len(models.Cards))
	for _, code := range models.CardCodes() {
		cards = append(cards, models.Cards[code])
	}
	return c.JSON(fiber.Map{"cards": cards, "by_category": models.CardsByCategory()})
}

// BackfillPendingStatus normalizes rows without a review status — the one
// mutation aggregation is allowed to perform.
func (s *SubmissionService) BackfillPendingStatus() error {
	return s.DB.Model(&models.Submission{}).
		Where("review_status IS NULL OR review_status = ''").
		Update("review_status", models.ReviewPending).Error
}
