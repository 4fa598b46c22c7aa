package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/CUknot/teleconsult_relay/config"
	"github.com/CUknot/teleconsult_relay/controllers"
	"github.com/CUknot/teleconsult_relay/database"
	"github.com/CUknot/teleconsult_relay/docs"
	"github.com/CUknot/teleconsult_relay/logging"
	"github.com/CUknot/teleconsult_relay/middleware"
	"github.com/CUknot/teleconsult_relay/websocket"
)

// @title           Teleconsultation Relay API
// @version         1.0
// @description     Diagnostic endpoints of the teleconsultation signaling relay
// @host            localhost:3001
// @BasePath        /
// @schemes         http
func main() {
	// Load environment variables
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logging.Init(cfg.LogLevel)
	if envErr != nil {
		slog.Info("no .env file found, using system environment variables")
	}

	// Transcript archive
	var (
		db          *gorm.DB
		archiver    *database.Archiver
		hubArchiver websocket.Archiver
		transcripts controllers.TranscriptReader
	)
	if cfg.Archive.Enabled {
		db, err = database.Connect(cfg.Database)
		if err != nil {
			slog.Error("transcript archive unavailable", "error", err)
			os.Exit(1)
		}
		if err := database.Migrate(db); err != nil {
			slog.Error("transcript archive unavailable", "error", err)
			os.Exit(1)
		}
		repo := database.NewTranscriptRepository(db)
		archiver = database.NewArchiver(repo, cfg.Archive.QueueSize)
		hubArchiver = archiver
		transcripts = repo
	}

	archiveCtx, stopArchive := context.WithCancel(context.Background())
	if archiver != nil {
		go archiver.Run(archiveCtx)
	}

	hub := websocket.NewHub(cfg.MaxRoomMessages, hubArchiver)
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	if cfg.AllowAllOrigins() {
		slog.Warn("accepting browser connections from any origin")
	}

	// Set up Swagger info
	docs.SwaggerInfo.Host = "localhost:" + cfg.Port

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: newRouter(cfg, hub, transcripts),
	}

	go func() {
		slog.Info("relay listening", "port", cfg.Port, "origins", cfg.CORSOrigins, "archive", cfg.Archive.Enabled)
		slog.Info("swagger documentation available", "url", "http://localhost:"+cfg.Port+"/swagger/index.html")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				return srv.Shutdown(ctx)
			},
			"hub": func(ctx context.Context) error {
				// Closing every send channel makes the writers say goodbye.
				stopHub()
				return hub.Wait(ctx)
			},
			"archive": func(ctx context.Context) error {
				// Messages relayed while the hub drains still get archived.
				if err := hub.Wait(ctx); err != nil {
					stopArchive()
					return err
				}
				stopArchive()
				if archiver == nil {
					return nil
				}
				if err := archiver.Wait(ctx); err != nil {
					return err
				}
				return database.Close(db)
			},
		},
	)

	exitCode := <-wait
	slog.Info("relay exited", "code", exitCode)
	os.Exit(exitCode)
}

// newRouter wires the HTTP surface. transcripts may be nil.
func newRouter(cfg *config.Config, hub *websocket.Hub, transcripts controllers.TranscriptReader) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(slog.Default()))
	router.Use(middleware.CORS(cfg.CORSOrigins))

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	rooms := controllers.NewRoomController(hub)
	messages := controllers.NewMessageController(transcripts)

	router.GET("/health", rooms.Health)
	api := router.Group("/api")
	{
		api.GET("/rooms", rooms.ListRooms)
		api.GET("/rooms/:roomId", rooms.GetRoom)
		api.GET("/rooms/:roomId/transcript", messages.GetTranscript)
	}

	// WebSocket route
	router.GET("/ws", websocket.NewHandler(hub, websocket.ClientOptions{
		WriteWait:      cfg.WebSocket.WriteWait,
		PongWait:       cfg.WebSocket.PongWait,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		SendBuffer:     cfg.WebSocket.SendBuffer,
	}, cfg.CORSOrigins))

	return router
}
