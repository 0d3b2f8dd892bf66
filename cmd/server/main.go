package main

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/FriedOkra1/COGnitive/internal/ai"
	"github.com/FriedOkra1/COGnitive/internal/api"
	"github.com/FriedOkra1/COGnitive/internal/config"
	"github.com/FriedOkra1/COGnitive/internal/lecture"
	"github.com/FriedOkra1/COGnitive/internal/media"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode (default to release mode)
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := lecture.NewStore(cfg.DataDir)
	if err != nil {
		logrus.Fatalf("Failed to initialize job store: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go store.RunSweeper(ctx)

	inspector := media.NewInspector(cfg.FFprobePath)
	splitter := media.NewSplitter(cfg.FFmpegPath, inspector)
	client := ai.NewClient(cfg.OpenAIKey)
	pipeline := lecture.NewPipeline(store, inspector, splitter, client, client)
	handler := api.NewHandler(store, pipeline, client, client, cfg.UploadDir)

	r := gin.Default()

	// Add CORS middleware for the web client
	r.Use(corsMiddleware())

	handler.RegisterRoutes(r)

	logrus.Infof("COGnitive backend running on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		logrus.Fatalf("Failed to start server: %v", err)
	}
}

// corsMiddleware adds CORS headers for the web client
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
