// services/boards.go
package services

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bingo-submit-system/models"
)

// BoardService imports and serves the per-participant card sheets.
// Boards come from the organizers before the season and are read-only
// input for judging and aggregation.
type BoardService struct {
	DB  *gorm.DB
	Cfg *Config
}

func NewBoardService(db *gorm.DB, cfg *Config) *BoardService {
	return &BoardService{DB: db, Cfg: cfg}
}

// ImportBoards replaces board definitions from an organizer-provided
// JSON document. Existing boards for the same participant are updated.
func (s *BoardService) ImportBoards(c *fiber.Ctx) error {
	type BoardReq struct {
		ParticipantName string     `json:"participant_name"`
		Tier            string     `json:"tier"`
		Grid            [][]string `json:"grid"`
	}
	type Req struct {
		Boards []BoardReq `json:"boards"`
	}

	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body", "details": err.Error()})
	}
	if len(req.Boards) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "no boards in document"})
	}

	boards := make([]models.Board, 0, len(req.Boards))
	for _, raw := range req.Boards {
		name := norm.NFC.String(strings.TrimSpace(raw.ParticipantName))
		if name == "" {
			return c.Status(400).JSON(fiber.Map{"error": "board without participant_name"})
		}
		tier, ok := models.NormalizeTier(raw.Tier)
		if !ok {
			return c.Status(400).JSON(fiber.Map{"error": "invalid tier on board", "details": raw.Tier})
		}
		grid := make([][]string, len(raw.Grid))
		for i, row := range raw.Grid {
			grid[i] = make([]string, len(row))
			for j, code := range row {
				grid[i][j] = NormalizeClaimCode(code)
			}
		}
		board := models.Board{
			ID:              uuid.NewString(),
			ParticipantName: name,
			Tier:            tier,
			Grid:            grid,
		}
		if err := board.Validate(); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid board", "details": err.Error()})
		}
		boards = append(boards, board)
	}

	if err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "participant_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"tier", "grid", "updated_at"}),
	}).Create(&boards).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "board import failed", "details": err.Error()})
	}

	log.Printf("🗂️ Imported %d board(s)", len(boards))
	return c.JSON(fiber.Map{"imported": len(boards)})
}

func (s *BoardService) ListBoards(c *fiber.Ctx) error {
	var boards []models.Board
	if err := s.DB.Order("participant_name ASC").Find(&boards).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "listing failed", "details": err.Error()})
	}
	return c.JSON(fiber.Map{"count": len(boards), "boards": boards})
}

func (s *BoardService) GetBoard(c *fiber.Ctx) error {
	name := norm.NFC.String(strings.TrimSpace(c.Params("name")))
	var board models.Board
	if err := s.DB.Where("participant_name = ?", name).First(&board).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(404).JSON(fiber.Map{"error": "board not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "lookup failed", "details": err.Error()})
	}
	return c.JSON(board)
}
