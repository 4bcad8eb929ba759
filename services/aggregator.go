// services/aggregator.go
package services

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"bingo-submit-system/models"
	"bingo-submit-system/utils"
)

// snapshotLogCap bounds attack/latest logs to the most recent entries.
const snapshotLogCap = 50

// PublishService turns the honored ledger into the published season
// snapshot. The build is a pure replay: same rows, boards and policy in,
// same bytes out (generated_at aside).
type PublishService struct {
	DB   *gorm.DB
	Cfg  *Config
	Subs *SubmissionService
}

func NewPublishService(db *gorm.DB, cfg *Config, subs *SubmissionService) *PublishService {
	return &PublishService{DB: db, Cfg: cfg, Subs: subs}
}

type playerState struct {
	name        string
	tier        string
	codes       map[string]bool
	lastUpdate  time.Time
	fiveBingoAt time.Time
	fullBoardAt time.Time
}

// BuildSnapshot replays non-rejected submissions in creation order.
// Card claims are honored when approved (or still pending, under the
// approved_or_pending policy), clipped to the participant's board, and
// suppressed while a seal restricts their category.
func BuildSnapshot(cfg *Config, subs []models.Submission, boards []models.Board, generatedAt time.Time) *models.Snapshot {
	boardIndex := make(map[string]*models.Board, len(boards))
	for i := range boards {
		boardIndex[boards[i].ParticipantName] = &boards[i]
	}

	tracker := NewSealTracker(cfg.Location)
	players := map[string]*playerState{}
	subsByName := map[string][]models.Submission{}
	var attackLogs []models.SealLogEntry
	var latestLogs []models.ProgressLogEntry

	for i := range subs {
		sub := &subs[i]
		if sub.ReviewStatus == models.ReviewRejected {
			continue
		}
		// Every non-rejected row feeds the token balance derivation.
		subsByName[sub.ParticipantName] = append(subsByName[sub.ParticipantName], *sub)

		approved := sub.ReviewStatus == models.ReviewApproved
		if !approved && !cfg.IncludePending {
			continue
		}

		player := players[sub.ParticipantName]
		if player == nil {
			player = &playerState{name: sub.ParticipantName, tier: sub.Tier, codes: map[string]bool{}}
			players[sub.ParticipantName] = player
		}
		if sub.Tier != "" {
			player.tier = sub.Tier
		}

		var blocked map[string]bool
		if approved {
			blocked = tracker.Observe(sub)
			if sub.TokenEvent == models.TokenEventSeal && sub.SealTarget != "" {
				attackLogs = append(attackLogs, models.SealLogEntry{
					Time:     sub.CreatedAt.In(cfg.Location).Format(time.RFC3339),
					Actor:    sub.ParticipantName,
					Target:   sub.SealTarget,
					Category: sub.SealCategory,
				})
			}
			if sub.LogSummary != "" {
				latestLogs = append(latestLogs, models.ProgressLogEntry{
					Time:    sub.CreatedAt.In(cfg.Location).Format(time.RFC3339),
					Player:  sub.ParticipantName,
					Message: sub.LogSummary,
				})
			}
		}

		board := boardIndex[sub.ParticipantName]
		contributed := false
		for _, code := range sub.ClaimedCodes {
			card, known := models.Cards[code]
			if !known {
				continue
			}
			if board != nil && !board.Has(code) {
				continue
			}
			if blocked[card.Category] {
				continue
			}
			status := sub.CardStatus(code)
			honored := status == models.ReviewApproved ||
				(cfg.IncludePending && status == models.ReviewPending)
			if !honored {
				continue
			}
			player.codes[code] = true
			contributed = true
		}

		if contributed || approved {
			if sub.CreatedAt.After(player.lastUpdate) {
				player.lastUpdate = sub.CreatedAt
			}
		}
		if board != nil && contributed {
			lines := board.CountLines(player.codes)
			if lines >= 5 && player.fiveBingoAt.IsZero() {
				player.fiveBingoAt = sub.CreatedAt
			}
			if player.fullBoardAt.IsZero() {
				full := true
				for code := range board.Codes() {
					if !player.codes[code] {
						full = false
						break
					}
				}
				if full {
					player.fullBoardAt = sub.CreatedAt
				}
			}
		}
	}

	names := make([]string, 0, len(players))
	for name := range players {
		names = append(names, name)
	}
	sort.Strings(names)

	snapshot := &models.Snapshot{
		Version:     models.SnapshotVersion,
		Season:      cfg.Season,
		GeneratedAt: generatedAt.In(cfg.Location).Format(time.RFC3339),
		Policy:      cfg.PolicyName(),
	}

	for _, name := range names {
		player := players[name]
		checked := make([]string, 0, len(player.codes))
		for code := range player.codes {
			checked = append(checked, code)
		}
		sort.Strings(checked)

		stars := 0
		for _, code := range checked {
			stars += models.CardStars(code)
		}
		bingo := 0
		if board := boardIndex[name]; board != nil {
			bingo = board.CountLines(player.codes)
		}

		tokens := ComputeTokenState(name, player.tier, subsByName[name])
		row := models.PlayerProgress{
			ID:           "player-" + slug.Make(name),
			Name:         name,
			Tier:         player.tier,
			Checked:      len(checked),
			Bingo:        bingo,
			Stars:        stars,
			CheckedCodes: checked,
		}
		if tokens.Balance > 0 {
			row.Tokens = tokens.Balance
		}
		if !player.lastUpdate.IsZero() {
			row.LastUpdate = player.lastUpdate.In(cfg.Location).Format(time.RFC3339)
		}
		if !player.fiveBingoAt.IsZero() {
			row.FiveBingoAt = player.fiveBingoAt.In(cfg.Location).Format(time.RFC3339)
		}
		if !player.fullBoardAt.IsZero() {
			row.FullBoardAt = player.fullBoardAt.In(cfg.Location).Format(time.RFC3339)
		}
		snapshot.Players = append(snapshot.Players, row)

		snapshot.Summary.TotalPlayers++
		snapshot.Summary.TotalChecked += row.Checked
		snapshot.Summary.TotalStars += row.Stars
	}

	snapshot.Achievements.FiveBingoFirst = firstToReach(players, func(p *playerState) time.Time { return p.fiveBingoAt })
	snapshot.Achievements.FullBoardFirst = firstToReach(players, func(p *playerState) time.Time { return p.fullBoardAt })

	if len(attackLogs) > snapshotLogCap {
		attackLogs = attackLogs[len(attackLogs)-snapshotLogCap:]
	}
	if len(latestLogs) > snapshotLogCap {
		latestLogs = latestLogs[len(latestLogs)-snapshotLogCap:]
	}
	snapshot.AttackLogs = attackLogs
	snapshot.LatestLogs = latestLogs
	return snapshot
}

// firstToReach returns every participant tied at the earliest timestamp,
// sorted by name.
func firstToReach(players map[string]*playerState, at func(*playerState) time.Time) []string {
	var best time.Time
	for _, p := range players {
		t := at(p)
		if t.IsZero() {
			continue
		}
		if best.IsZero() || t.Before(best) {
			best = t
		}
	}
	if best.IsZero() {
		return nil
	}
	var out []string
	for name, p := range players {
		if at(p).Equal(best) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Publish rebuilds the snapshot from the ledger and writes it with a
// temp-file rename so readers never see a torn document.
func (ps *PublishService) Publish() (string, *models.Snapshot, error) {
	if err := ps.Subs.BackfillPendingStatus(); err != nil {
		return "", nil, fmt.Errorf("pending backfill: %w", err)
	}

	var subs []models.Submission
	if err := ps.DB.
		Where("review_status <> ?", models.ReviewRejected).
		Order("created_at ASC").
		Find(&subs).Error; err != nil {
		return "", nil, fmt.Errorf("load submissions: %w", err)
	}
	var boards []models.Board
	if err := ps.DB.Order("participant_name ASC").Find(&boards).Error; err != nil {
		return "", nil, fmt.Errorf("load boards: %w", err)
	}

	snapshot := BuildSnapshot(ps.Cfg, subs, boards, time.Now())
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", nil, err
	}

	outPath := filepath.Join(ps.Cfg.PublishDir, "progress.json")
	if err := utils.WriteFileAtomic(outPath, data); err != nil {
		return "", nil, err
	}
	if err := ps.markPublished(snapshot.GeneratedAt); err != nil {
		log.Printf("⚠️ publish state update failed: %v", err)
	}
	log.Printf("📣 Published %s: %d player(s), %d checked, %d star(s)",
		outPath, snapshot.Summary.TotalPlayers, snapshot.Summary.TotalChecked, snapshot.Summary.TotalStars)
	return outPath, snapshot, nil
}

// markPublished records the last publish time in state.json.
func (ps *PublishService) markPublished(at string) error {
	statePath := filepath.Join(ps.Cfg.StorageDir, "state.json")
	state := map[string]interface{}{}
	if raw, err := os.ReadFile(statePath); err == nil {
		// A corrupt state file is replaced, not fatal.
		_ = json.Unmarshal(raw, &state)
	}
	state["last_publish"] = at
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(statePath, data)
}

// TriggerPublish lets organizers force a publish run.
func (ps *PublishService) TriggerPublish(c *fiber.Ctx) error {
	path, snapshot, err := ps.Publish()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "publish failed", "details": err.Error()})
	}
	return c.JSON(fiber.Map{"path": path, "summary": snapshot.Summary, "generated_at": snapshot.GeneratedAt})
}

// GetProgress serves the published snapshot, building it first if the
// season has never been published.
func (ps *PublishService) GetProgress(c *fiber.Ctx) error {
	outPath := filepath.Join(ps.Cfg.PublishDir, "progress.json")
	if _, err := os.Stat(outPath); os.IsNotExist(err) {
		if _, _, err := ps.Publish(); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "publish failed", "details": err.Error()})
		}
	}
	return c.SendFile(outPath)
}

// LatestChange is the poll cursor for the publish worker.
func (ps *PublishService) LatestChange() (time.Time, error) {
	var latest time.Time
	row := ps.DB.Model(&models.Submission{}).Select("MAX(updated_at)").Row()
	var value *time.Time
	if err := row.Scan(&value); err != nil {
		return latest, err
	}
	if value != nil {
		latest = *value
	}
	return latest, nil
}
