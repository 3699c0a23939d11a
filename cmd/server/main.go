package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"

	"github.com/corebank/backend/internal/database"
	"github.com/corebank/backend/internal/handlers"
	mW "github.com/corebank/backend/internal/middleware"
	"github.com/corebank/backend/internal/services"
	"github.com/corebank/backend/internal/store/postgres"
)

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize storage
	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	accountStore := postgres.NewAccountStore(db)
	ledgerStore := postgres.NewLedgerStore(db)
	customerStore := postgres.NewCustomerStore(db)

	// Initialize services
	engine := services.NewLedgerEngine(db, accountStore, ledgerStore)
	guard := services.NewAccessGuard(accountStore)
	customerService := services.NewCustomerService(customerStore)

	accountHandler := handlers.NewAccountHandler(engine, customerService, guard)
	transactionHandler := handlers.NewTransactionHandler(engine)
	customerHandler := handlers.NewCustomerHandler(customerService)
	sessionHandler := handlers.NewSessionHandler(guard, redisClient)

	// Initialize auth middleware with Redis
	mW.InitAuthMiddleware(redisClient)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/session", sessionHandler.CreateSession)
		r.Post("/auth/logout", sessionHandler.DeleteSession)
		r.Post("/customers", customerHandler.CreateCustomer)
		r.Post("/accounts", accountHandler.OpenAccount)
		r.Post("/accounts/{accountNumber}/verify-pin", accountHandler.VerifyPin)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/customers", customerHandler.ListCustomers)
			r.Get("/customers/{customerId}", customerHandler.GetCustomer)

			r.Get("/accounts", accountHandler.ListAccounts)
			r.Get("/accounts/{accountNumber}", accountHandler.GetAccount)
			r.Get("/accounts/{accountNumber}/balance", accountHandler.GetBalance)
			r.Get("/accounts/{accountNumber}/history", accountHandler.GetHistory)
			r.Put("/accounts/{accountNumber}/pin", accountHandler.ChangePin)

			r.Post("/transactions/deposit", transactionHandler.Deposit)
			r.Post("/transactions/withdraw", transactionHandler.Withdraw)
			r.Post("/transactions/transfer", transactionHandler.Transfer)
			r.Get("/transactions", transactionHandler.ListTransactions)
			r.Get("/transactions/recent", transactionHandler.RecentTransactions)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
