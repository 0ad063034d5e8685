package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/malipravin2580/Data-Manager/internal/auth"
	"github.com/malipravin2580/Data-Manager/internal/config"
	"github.com/malipravin2580/Data-Manager/internal/handler"
	"github.com/malipravin2580/Data-Manager/internal/repository"
	"github.com/malipravin2580/Data-Manager/internal/service"
	"github.com/malipravin2580/Data-Manager/internal/storage/s3"
	"github.com/malipravin2580/Data-Manager/internal/tabular"
)

func connectWithRetry(cfg *config.Config, maxAttempts int, delay time.Duration) (*sqlx.DB, error) {
	dsn := cfg.Database.GetDSN()

	// Сначала подключаемся к системной базе postgres и при необходимости
	// создаем рабочую базу
	pgDSN := strings.Replace(dsn, "dbname="+cfg.Database.Name, "dbname=postgres", 1)
	pgDB, err := sqlx.Connect("postgres", pgDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres database: %v", err)
	}
	defer pgDB.Close()

	var exists bool
	err = pgDB.Get(&exists, "SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1)", cfg.Database.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check database existence: %v", err)
	}

	if !exists {
		log.Printf("Database %s does not exist, creating...", cfg.Database.Name)
		_, err = pgDB.Exec(fmt.Sprintf("CREATE DATABASE %q", cfg.Database.Name))
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	var db *sqlx.DB
	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			return db, nil
		}

		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, maxAttempts, err)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %v", maxAttempts, err)
}

func runMigrations(cfg *config.Config) error {
	databaseURL := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	var m *migrate.Migrate
	var err error

	for i := 0; i < 5; i++ {
		m, err = migrate.New("file://migrations", databaseURL)
		if err == nil {
			break
		}
		log.Printf("Failed to create migrate instance (attempt %d/5): %v", i+1, err)
		time.Sleep(time.Second * 5)
	}

	if err != nil {
		return fmt.Errorf("failed to create migrate instance after retries: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		log.Printf("Found dirty database state at version %d, attempting to force version", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func main() {
	// Загружаем конфигурации
	appConfig, err := config.NewConfig(".app.env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := connectWithRetry(appConfig, 5, time.Second*5)
	if err != nil {
		log.Fatalf("Failed to connect to database after retries: %v", err)
	}
	defer db.Close()

	if err := runMigrations(appConfig); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	// Инициализация S3 клиента
	s3Config, err := s3.NewConfig(".s3.env")
	if err != nil {
		log.Fatalf("Failed to load S3 config: %v", err)
	}

	s3Client, err := s3.NewClient(s3Config)
	if err != nil {
		log.Fatalf("Failed to create S3 client: %v", err)
	}

	tokenManager := auth.NewManager(
		appConfig.Auth.SecretKey,
		appConfig.Auth.AccessTTL(),
		appConfig.Auth.RefreshTTL(),
	)

	// Инициализация репозиториев
	userRepo := repository.NewUserRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	permissionRepo := repository.NewPermissionRepository(db)
	shareRepo := repository.NewShareLinkRepository(db)
	provenanceRepo := repository.NewProvenanceRepository(db)

	tableStore := tabular.NewObjectBackedStore(s3Client)

	// Инициализация сервисов
	authService := service.NewAuthService(userRepo, provenanceRepo, tokenManager)
	permissionService := service.NewPermissionService(db, permissionRepo, provenanceRepo)
	shareService := service.NewShareService(shareRepo, appConfig.Server.FrontendURL, appConfig.Share.ExpireDays)
	provenanceService := service.NewProvenanceService(provenanceRepo)
	activityService := service.NewActivityService(provenanceRepo, userRepo)
	teamService := service.NewTeamService(teamRepo)
	fileService := service.NewFileService(
		db,
		s3Client,
		tableStore,
		permissionService,
		permissionRepo,
		provenanceRepo,
		appConfig.Upload.MaxFileSizeBytes,
	)

	// Инициализация хендлеров
	authHandler := handler.NewAuthHandler(authService)
	fileHandler := handler.NewFileHandler(fileService, appConfig.Upload.MaxFileSizeBytes)
	permissionHandler := handler.NewPermissionHandler(permissionService)
	shareHandler := handler.NewShareHandler(shareService, permissionService)
	provenanceHandler := handler.NewProvenanceHandler(provenanceService, permissionService)
	auditHandler := handler.NewAuditHandler(provenanceService, authService)
	activityHandler := handler.NewActivityHandler(activityService)
	teamHandler := handler.NewTeamHandler(teamService)

	// Настройка HTTP роутера
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{appConfig.Server.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// HTTP маршруты
	r.Route("/v1", func(r chi.Router) {
		// Публичные маршруты
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.Refresh)
		r.Post("/shares/validate", shareHandler.Validate)

		// Маршруты под токеном
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokenManager))

			r.Get("/auth/me", authHandler.Me)
			r.Get("/users", authHandler.ListUsers)

			r.Route("/files", func(r chi.Router) {
				r.Get("/", fileHandler.List)
				r.Post("/upload", fileHandler.Upload)
				r.Post("/transform", fileHandler.Transform)
				r.Get("/preview/*", fileHandler.Preview)
				r.Get("/download/*", fileHandler.Download)
				r.Get("/info/*", fileHandler.Info)
				r.Delete("/*", fileHandler.Delete)
			})

			r.Route("/permissions", func(r chi.Router) {
				r.Post("/", permissionHandler.Grant)
				r.Delete("/{id}", permissionHandler.Revoke)
				r.Get("/file/*", permissionHandler.ListForFile)
				r.Get("/my/*", permissionHandler.MyLevel)
			})

			r.Route("/shares", func(r chi.Router) {
				r.Post("/", shareHandler.Create)
				r.Get("/", shareHandler.MyLinks)
				r.Delete("/{id}", shareHandler.Delete)
			})

			r.Route("/provenance", func(r chi.Router) {
				r.Get("/lineage/*", provenanceHandler.Lineage)
				r.Get("/graph/*", provenanceHandler.LineageGraph)
				r.Get("/access/*", provenanceHandler.AccessHistory)
				r.Get("/audit/*", provenanceHandler.PermissionAuditHistory)
			})

			r.Get("/audit/permissions", auditHandler.PermissionAuditFeed)

			r.Route("/activity", func(r chi.Router) {
				r.Get("/", activityHandler.Feed)
				r.Get("/me", activityHandler.MyActivity)
			})

			r.Route("/teams", func(r chi.Router) {
				r.Post("/", teamHandler.Create)
				r.Get("/", teamHandler.ListMine)
				r.Post("/{id}/members", teamHandler.AddMember)
				r.Get("/{id}/members", teamHandler.ListMembers)
			})
		})
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler: r,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting HTTP server on port %s", appConfig.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down servers...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Servers stopped")
}
