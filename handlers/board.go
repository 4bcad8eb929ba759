package handlers

import (
	"bingo-submit-system/middleware"
	"bingo-submit-system/services"
	"github.com/gofiber/fiber/v2"
)

func SetupBoardRoutes(app *fiber.App, cfg *services.Config, boards *services.BoardService) {
	api := app.Group("/api/v1")

	// 🔓 Public: look up your own sheet
	api.Get("/boards", boards.ListBoards)
	api.Get("/boards/:name", boards.GetBoard)

	// 🔐 Organizer import
	admin := api.Group("/", middleware.AdminKeyMiddleware(cfg.AdminKey))
	admin.Post("/boards/import", boards.ImportBoards)
}
