package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "teamwear/api/swagger"
	"teamwear/internal/config"
	"teamwear/internal/database"
	"teamwear/internal/handler"
	"teamwear/internal/metrics"
	"teamwear/internal/middleware"
	"teamwear/internal/repository"
	"teamwear/internal/service"
	"teamwear/internal/storage"
	"teamwear/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, db, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer closeDB(db)

		if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
			if err := database.Migrate(db); err != nil {
				return err
			}
		}

		router, err := buildRouter(cmd.Context(), cfg, db, log)
		if err != nil {
			return err
		}

		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{Addr: addr, Handler: router}

		go func() {
			log.WithField("addr", addr).Info("server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Fatal("server failed")
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		log.Info("server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("migrate", false, "Run migrations before serving")
}

// buildRouter wires repositories, services and handlers (Repository -> Service -> Handler).
func buildRouter(ctx context.Context, cfg *config.Config, db *gorm.DB, log *logrus.Logger) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	wsHub := websocket.NewHub()
	go wsHub.Run()

	var store storage.ObjectStore
	if cfg.Storage.Bucket != "" {
		s3Store, err := storage.NewS3Store(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to init attachment storage: %w", err)
		}
		store = s3Store
	} else {
		log.Warn("storage.bucket not set, attachment uploads disabled")
	}

	tokenTTL := time.Duration(cfg.JWT.TTLHours) * time.Hour
	auth := middleware.NewAuth(cfg.JWT.Secret, db, cfg.IsProduction())
	repos := repository.NewRepositories(db)

	userService := service.NewUserService(repos.Users, cfg.JWT.Secret, tokenTTL)
	approvalService := service.NewApprovalService(repos, wsHub)
	requestService := service.NewRequestService(repos, wsHub)
	attachmentService := service.NewAttachmentService(repos, store)
	taskService := service.NewTaskService(repos, wsHub)
	returnedService := service.NewReturnedTaskService(repos, wsHub)
	notificationService := service.NewNotificationService(repos.Notifications)
	auditService := service.NewAuditService(repos.Audit)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLog())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Request-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK", "ws_clients": wsHub.ClientCount()})
	})
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, auth.Secret())
	})

	submitLimit := middleware.RateLimit(cfg.RateLimit.SubmitRPS, cfg.RateLimit.SubmitBurst)

	api := router.Group("")
	handler.NewUserHandler(userService, auth, tokenTTL).RegisterRoutes(api)
	handler.NewApprovalHandler(approvalService, auth).RegisterRoutes(api)
	handler.NewRequestHandler(requestService, attachmentService, auth, submitLimit).RegisterRoutes(api)
	handler.NewTaskHandler(taskService, returnedService, auth).RegisterRoutes(api)
	handler.NewReturnedTaskHandler(returnedService, auth).RegisterRoutes(api)
	handler.NewNotificationHandler(notificationService, auth).RegisterRoutes(api)
	handler.NewAuditHandler(auditService, auth).RegisterRoutes(api)

	return router, nil
}
