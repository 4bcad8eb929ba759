package handlers

import (
	"bingo-submit-system/middleware"
	"bingo-submit-system/services"
	"github.com/gofiber/fiber/v2"
)

func SetupSubmissionRoutes(app *fiber.App, cfg *services.Config, subs *services.SubmissionService, tokens *services.TokenService, publish *services.PublishService) {
	api := app.Group("/api/v1")

	// 🔓 Public routes
	api.Get("/cards", subs.GetCards)
	api.Get("/progress", publish.GetProgress)
	api.Get("/participants/:name/tokens", tokens.GetParticipantTokens)

	// ✍️ Participant routes — shared submit key
	submit := api.Group("/", middleware.SubmitKeyMiddleware(cfg.SubmitKey))
	submit.Post("/submissions", subs.CreateSubmission)

	// 🔐 Organizer routes — admin key
	admin := api.Group("/", middleware.AdminKeyMiddleware(cfg.AdminKey))
	admin.Get("/submissions", subs.ListSubmissions)
	admin.Get("/submissions/:id", subs.GetSubmission)
	admin.Post("/submissions/:id/review", subs.ReviewSubmission)
	admin.Delete("/submissions/:id", subs.DeleteSubmission)
	admin.Post("/publish", publish.TriggerPublish)
}
