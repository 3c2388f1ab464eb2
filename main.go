package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/robertfedus/natours/config"
	"github.com/robertfedus/natours/handlers"
	"github.com/robertfedus/natours/middleware"
	"github.com/robertfedus/natours/models"
	"github.com/robertfedus/natours/service"
	"github.com/robertfedus/natours/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config:", err)
	}

	ctx := context.Background()
	db, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		log.Fatal("mongodb:", err)
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			log.Println("mongodb disconnect:", err)
		}
	}()

	var s3Service *service.S3Service
	if cfg.S3Bucket != "" {
		s3Service, err = service.NewS3Service(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3AccessKeyID, cfg.S3SecretKey)
		if err != nil {
			log.Fatal("s3:", err)
		}
	} else {
		log.Println("warning: AWS_S3_BUCKET not set; image uploads will fail")
	}

	mailer := service.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	if !mailer.Configured() {
		log.Println("warning: SMTP_HOST not set; password-reset mail will fail")
	}

	toursHandler := &handlers.ToursHandler{Store: db}
	uploadHandler := &handlers.UploadHandler{
		Store:    db,
		MaxBytes: cfg.MaxUploadMB * 1024 * 1024,
	}
	if s3Service != nil {
		// a typed nil inside the interface would defeat the handler's
		// configured check
		uploadHandler.S3 = s3Service
	}
	authHandler := &handlers.AuthHandler{
		Store:     db,
		Mailer:    mailer,
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  time.Duration(cfg.JWTExpiresDays) * 24 * time.Hour,
	}
	usersHandler := &handlers.UsersHandler{Store: db}

	r := chi.NewRouter()
	r.Use(middleware.AllowAll())
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tours", func(r chi.Router) {
			// public reads; an admin token widens them to secret tours
			r.Group(func(r chi.Router) {
				r.Use(middleware.OptionalAuth(cfg.JWTSecret, db))
				r.Get("/", toursHandler.List)
				r.Get("/top-5-cheap", toursHandler.TopCheap)
				r.Get("/stats", toursHandler.Stats)
				r.Get("/monthly-plan/{year}", toursHandler.MonthlyPlan)
				r.Get("/{id}", toursHandler.Get)
			})
			// writes require a login
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWTSecret, db))
				r.Use(middleware.RequireRole(models.RoleAdmin, models.RoleLeadGuide))
				r.Post("/", toursHandler.Create)
				r.Patch("/{id}", toursHandler.Update)
				r.Delete("/{id}", toursHandler.Delete)
				r.Post("/{id}/images", uploadHandler.TourImages)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Patch("/reset-password/{token}", authHandler.ResetPassword)
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWTSecret, db))
				r.Get("/me", usersHandler.Me)
				r.With(middleware.RequireRole(models.RoleAdmin)).Get("/", usersHandler.List)
			})
		})
	})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Println("server listening on :" + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("shutdown:", err)
	}
}
