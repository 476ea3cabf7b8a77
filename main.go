// @title           MEP Portal API
// @version         1.0
// @description     MEP project portal backend - electrical load calculations, RFI and drawing delivery workflows.

// @contact.name   API Support

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @schemes http https
package main

import (
	_ "backend/docs"
	"backend/handlers"
	"backend/services"
	"backend/storage"
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

var cronRunning int32

func CORSConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{
		"http://localhost:9000",
		"http://localhost:8080",
		"http://localhost:3000",
	}
	if origin := os.Getenv("FRONTEND_ORIGIN"); origin != "" {
		corsConfig.AllowOrigins = append(corsConfig.AllowOrigins, origin)
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Content-Type", "Content-Length", "Accept-Encoding",
		"Accept", "Origin", "X-Requested-With", "Authorization", "User-Agent",
		"Cache-Control", "Referer",
		"Access-Control-Request-Method", "Access-Control-Request-Headers",
	}
	corsConfig.AllowMethods = []string{
		"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD", "PATCH",
	}
	corsConfig.ExposeHeaders = []string{
		"Content-Length", "Authorization", "Content-Type", "Content-Disposition",
	}
	corsConfig.MaxAge = 12 * time.Hour
	return corsConfig
}

func main() {
	db := storage.InitDB()
	gormDB := storage.InitGormDB()

	emailService := services.NewEmailService(db)

	credentialsPath := os.Getenv("FCM_CREDENTIALS_PATH")
	if credentialsPath == "" {
		credentialsPath = "firebase-credentials.json"
	}
	fcmService, err := services.NewFCMService(credentialsPath, db)
	if err != nil {
		log.Printf("Warning: Failed to initialize FCM service: %v. Push notifications will be disabled.", err)
		fcmService = nil
	} else {
		log.Println("FCM service initialized successfully")
	}

	// Nightly maintenance: drop expired sessions.
	c := cron.New(
		cron.WithLogger(cron.VerbosePrintfLogger(log.New(os.Stdout, "cron: ", log.LstdFlags))),
	)
	_, err = c.AddFunc("30 2 * * *", func() {
		if !atomic.CompareAndSwapInt32(&cronRunning, 0, 1) {
			log.Println("Previous cron still running. Skipping this run.")
			return
		}
		defer atomic.StoreInt32(&cronRunning, 0)

		log.Println("Starting nightly session cleanup")
		if err := storage.CleanupExpiredSessions(db); err != nil {
			log.Printf("Session cleanup failed: %v", err)
		}
		log.Println("Nightly maintenance completed")
	})
	if err != nil {
		log.Fatalf("Failed to schedule maintenance cron job: %v", err)
	}
	c.Start()

	r := setupRouter(db, gormDB, emailService, fcmService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "9000"
	}
	portInt, err := strconv.Atoi(port)
	if err != nil || portInt < 0 || portInt > 65535 {
		log.Fatalf("Invalid PORT environment variable: %s", port)
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c.Stop()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exiting")
}

func setupRouter(db *sql.DB, gormDB *gorm.DB, emailService *services.EmailService, fcmService *services.FCMService) *gin.Engine {
	r := gin.Default()
	r.MaxMultipartMemory = 8 << 20

	r.Use(cors.New(CORSConfig()))

	// ==================== 1. AUTH & SESSIONS ====================
	r.POST("/api/login", handlers.LoginHandler(db))
	r.POST("/api/refresh-token", handlers.RefreshTokenHandler(db))
	r.POST("/api/validate-session", handlers.ValidateSession(db))
	r.POST("/api/logout", handlers.LogoutHandler(db))
	r.POST("/api/auth/forgot-password", handlers.ForgetPasswordHandler(db, os.Getenv("PASSWORD_RESET_URL")))
	r.POST("/api/auth/reset-password/:token", handlers.ResetPasswordHandler(db))
	r.POST("/api/change_password", handlers.ChangePasswordHandler(db))

	// ==================== 2. USERS ====================
	r.POST("/api/users", handlers.CreateUserHandler(db, emailService))
	r.GET("/api/users", handlers.GetUsersHandler(db))
	r.GET("/api/users/:id", handlers.GetUserHandler(db))
	r.PUT("/api/users/:id", handlers.UpdateUserHandler(db))
	r.POST("/api/users/:id/suspend", handlers.SuspendUserHandler(db))
	r.POST("/api/save_fcm_token", handlers.SaveFCMTokenHandler(fcmService))

	// ==================== 3. PROJECTS ====================
	r.POST("/api/projects", handlers.CreateProjectHandler(db))
	r.GET("/api/projects", handlers.GetProjectsHandler(db))
	r.GET("/api/projects/:id", handlers.GetProjectHandler(db))
	r.PUT("/api/projects/:id", handlers.UpdateProjectHandler(db))
	r.DELETE("/api/projects/:id", handlers.DeleteProjectHandler(db))
	r.GET("/api/projects/:id/dashboard", handlers.GetProjectDashboardHandler(db))

	// ==================== 4. BUILDINGS & SOCIETIES ====================
	r.POST("/api/buildings", handlers.CreateBuildingHandler(db))
	r.GET("/api/projects/:id/buildings", handlers.GetProjectBuildingsHandler(db))
	r.GET("/api/buildings/:building_id", handlers.GetBuildingHandler(db))
	r.PUT("/api/buildings/:building_id", handlers.UpdateBuildingHandler(db))
	r.DELETE("/api/buildings/:building_id", handlers.DeleteBuildingHandler(db))
	r.POST("/api/buildings/:building_id/twin", handlers.SetTwinBuildingHandler(db))
	r.POST("/api/buildings/:building_id/society", handlers.AssignSocietyHandler(db))
	r.POST("/api/societies", handlers.CreateSocietyHandler(db))
	r.GET("/api/projects/:id/societies", handlers.GetSocietiesHandler(db))
	r.GET("/api/generate_building_qr/:id", handlers.GenerateBuildingQRCode(db))
	r.GET("/api/floor_schedule_template", handlers.DownloadFloorScheduleTemplate)
	r.POST("/api/buildings/:building_id/import_floor_schedule", handlers.ImportFloorScheduleCSV(db))

	// ==================== 5. ELECTRICAL LOAD CALCULATION ====================
	r.POST("/api/electrical_load_calculate", handlers.ElectricalLoadCalculateHandler(db, gormDB))
	r.GET("/api/projects/:id/saved_calculations", handlers.GetSavedCalculationsHandler(gormDB))
	r.GET("/api/saved_calculations/:id", handlers.GetSavedCalculationHandler(gormDB))
	r.DELETE("/api/saved_calculations/:id", handlers.DeleteSavedCalculationHandler(gormDB))
	r.GET("/api/export_csv_load_schedule/:id", handlers.ExportCSVLoadSchedule(gormDB))
	r.GET("/api/export_excel_load_schedule/:id", handlers.ExportExcelLoadSchedule(gormDB))
	r.GET("/api/load_calculation_pdf/:id", handlers.GenerateLoadCalculationPDF(gormDB))

	// ==================== 6. CALCULATION STANDARDS ====================
	r.GET("/api/standards", handlers.GetStandardsHandler(gormDB))
	r.POST("/api/standards", handlers.CreateStandardHandler(gormDB))
	r.PUT("/api/standards/:id", handlers.UpdateStandardHandler(gormDB))
	r.DELETE("/api/standards/:id", handlers.DeleteStandardHandler(gormDB))
	r.POST("/api/standards/seed", handlers.SeedStandardsHandler(gormDB))

	// ==================== 7. RFI ====================
	r.POST("/api/rfi", handlers.CreateRFIHandler(db, emailService, fcmService))
	r.GET("/api/projects/:id/rfi", handlers.GetProjectRFIsHandler(db))
	r.POST("/api/rfi_respond/:rfi_id", handlers.RespondRFIHandler(db, emailService))
	r.POST("/api/rfi/:rfi_id/attachments", handlers.UploadRFIAttachment(db))
	r.GET("/api/rfi/:rfi_id/attachments", handlers.GetRFIAttachmentsHandler(db))

	// ==================== 8. DRAWING DELIVERY SCHEDULE ====================
	r.POST("/api/dds", handlers.CreateDDSHandler(db))
	r.GET("/api/projects/:id/dds", handlers.GetProjectDDSHandler(db))
	r.POST("/api/dds_approve/:dds_id", handlers.ApproveDDSHandler(db, emailService, fcmService))

	// ==================== 9. EMAIL TEMPLATES ====================
	r.POST("/api/email_templates", handlers.CreateEmailTemplateHandler(db, emailService))
	r.GET("/api/email_templates", handlers.GetEmailTemplatesHandler(db))
	r.GET("/api/email_templates/variables", handlers.GetTemplateVariablesHandler(emailService))
	r.GET("/api/email_templates/:id", handlers.GetEmailTemplateHandler(db))
	r.PUT("/api/email_templates/:id", handlers.UpdateEmailTemplateHandler(db, emailService))
	r.DELETE("/api/email_templates/:id", handlers.DeleteEmailTemplateHandler(db))
	r.POST("/api/email_templates/:id/preview", handlers.PreviewEmailTemplateHandler(db, emailService))

	// ==================== 10. NOTIFICATIONS & LOGS ====================
	r.GET("/api/users/:id/notifications", handlers.GetNotificationsHandler(db))
	r.POST("/api/notifications/:id/read", handlers.MarkNotificationReadHandler(db))
	r.POST("/api/users/:id/notifications/read_all", handlers.MarkAllNotificationsReadHandler(db))
	r.GET("/api/logs", handlers.GetActivityLogsHandler(db))
	r.GET("/api/log/search", handlers.SearchActivityLogsHandler(db))

	// ==================== 11. FILES & DOCS ====================
	r.GET("/api/get-file", handlers.ServeFile)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
