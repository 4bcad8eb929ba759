package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bingo-submit-system/handlers"
	"bingo-submit-system/models"
	"bingo-submit-system/services"
	"bingo-submit-system/utils"
	"bingo-submit-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg, err := services.LoadConfig()
	if err != nil {
		log.Fatal("invalid configuration:", err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 64 * 1024 * 1024, // evidence photos, not game bundles
	})

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Submit-Key, X-Admin-Key",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Printf("⚠️  R2 not configured, evidence files go to local disk: %v", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Submission{},
		&models.Board{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	tokenService := services.NewTokenService(db, cfg)
	submissionService := services.NewSubmissionService(db, cfg, tokenService)
	boardService := services.NewBoardService(db, cfg)
	publishService := services.NewPublishService(db, cfg, submissionService)
	preprocessService := services.NewPreprocessService(db, cfg, submissionService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go workers.PollLedger(ctx, publishService, 30*time.Second)

	services.StartScheduler(cfg, publishService, preprocessService)

	handlers.SetupSubmissionRoutes(app, cfg, submissionService, tokenService, publishService)
	handlers.SetupBoardRoutes(app, cfg, boardService)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "season": cfg.Season})
	})

	// Published snapshot dir doubles as the public progress page root.
	if err := os.MkdirAll(cfg.PublishDir, os.ModePerm); err != nil {
		log.Fatal("failed to ensure publish dir:", err)
	}
	app.Use("/publish", filesystem.New(filesystem.Config{
		Root:   http.Dir(cfg.PublishDir),
		MaxAge: 60,
	}))

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":5300"
	}
	go func() {
		if err := app.Listen(listenAddr); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on %s (season %s)", listenAddr, cfg.Season)
	log.Printf("✅ Publish every %s, reviewer packet daily at %s (%s)", cfg.PublishInterval, cfg.PreprocessAt, cfg.Location)
	log.Printf("✅ Aggregation policy: %s", cfg.PolicyName())
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
