package main

import (
	"crypto/tls"
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/thucosta0/financepro/backend/src/config"
	"github.com/thucosta0/financepro/backend/src/database"
	"github.com/thucosta0/financepro/backend/src/handlers"
	"github.com/thucosta0/financepro/backend/src/logger"
	"github.com/thucosta0/financepro/backend/src/processors"
	"github.com/thucosta0/financepro/backend/src/security"
	"github.com/thucosta0/financepro/backend/src/services"
	"golang.org/x/time/rate"
)

func proxyHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-Proto") == "https" {
			r.URL.Scheme = "https"
			r.TLS = &tls.ConnectionState{}
		}
		next.ServeHTTP(w, r)
	})
}

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000":    true,
			config.Cfg.FrontendBaseURL: true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Requested-With, Cookie, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "X-CSRF-Token, ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("FinancePRO backend server starting...")

	if config.Cfg.JWTSecret == "" || len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	appCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)

	handlers.InitializeGoogleOAuthConfig()

	authService := security.NewAuthService(config.Cfg.JWTSecret)
	emailService := services.NewEmailService()

	planner := processors.NewInstallmentPlanner()
	grouper := processors.NewInstallmentGrouper()
	aggregator := processors.NewStatusAggregator()

	transactionService := services.NewTransactionService(database.DB, planner, grouper, aggregator, appCache)
	categoryService := services.NewCategoryService(database.DB)
	cardService := services.NewCardService(database.DB)
	budgetService := services.NewBudgetService(database.DB)
	reportService := services.NewReportService(database.DB, appCache)
	billingService := services.NewBillingService(database.DB)

	userHandler := handlers.NewUserHandler(authService, emailService)
	txHandler := handlers.NewTransactionHandler(transactionService, reportService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	cardHandler := handlers.NewCardHandler(cardService)
	budgetHandler := handlers.NewBudgetHandler(budgetService)
	dashboardHandler := handlers.NewDashboardHandler(reportService)
	billingHandler := handlers.NewBillingHandler(database.DB, billingService)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(proxyHeadersMiddleware)
	r.Use(enableCORS)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "FinancePRO Backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Group(func(r chi.Router) {
			r.Get("/auth/csrf", handlers.GetCSRFToken)
			r.Get("/auth/verify-email", userHandler.VerifyEmailHandler)
			r.Get("/auth/google/login", userHandler.HandleGoogleLogin)
			r.Get("/auth/google/callback", userHandler.HandleGoogleCallback)
			r.Post("/billing/webhook", billingHandler.HandleStripeWebhook)
		})

		// Auth routes (CSRF protected)
		r.Group(func(r chi.Router) {
			r.Use(handlers.CSRFMiddleware(config.Cfg.CSRFAuthKey))
			r.Post("/auth/login", userHandler.LoginUserHandler)
			r.Post("/auth/register", userHandler.RegisterUserHandler)
			r.Post("/auth/refresh", userHandler.RefreshTokenHandler)
			r.With(userHandler.AuthMiddleware).Post("/auth/logout", userHandler.LogoutUserHandler)
		})

		// Protected routes (auth + CSRF)
		r.Group(func(r chi.Router) {
			r.Use(handlers.CSRFMiddleware(config.Cfg.CSRFAuthKey))
			r.Use(userHandler.AuthMiddleware)

			r.Get("/user/profile", userHandler.GetProfileHandler)
			r.Post("/user/change-password", userHandler.ChangePasswordHandler)
			r.Post("/user/delete-account", userHandler.DeleteAccountHandler)

			r.Get("/transactions", txHandler.HandleGetTransactions)
			r.Get("/transactions/grouped", txHandler.HandleGetGroupedTransactions)
			r.Post("/transactions", txHandler.HandleCreateTransaction)
			r.Post("/transactions/installments", txHandler.HandleCreateInstallmentPlan)
			r.Put("/transactions/{id}", txHandler.HandleUpdateTransaction)
			r.Patch("/transactions/{id}/status", txHandler.HandleSetTransactionStatus)
			r.Delete("/transactions/{id}", txHandler.HandleDeleteTransaction)
			r.Post("/transactions/status/bulk", txHandler.HandleBulkSetStatus)
			r.Post("/transactions/groups/{groupID}/status", txHandler.HandleSetGroupStatus)
			r.Delete("/transactions/groups/{groupID}", txHandler.HandleDeleteInstallmentGroup)

			r.Get("/categories", categoryHandler.HandleGetCategories)
			r.Post("/categories", categoryHandler.HandleCreateCategory)
			r.Put("/categories/{id}", categoryHandler.HandleUpdateCategory)
			r.Delete("/categories/{id}", categoryHandler.HandleDeleteCategory)

			r.Get("/cards", cardHandler.HandleGetCards)
			r.Post("/cards", cardHandler.HandleCreateCard)
			r.Put("/cards/{id}", cardHandler.HandleUpdateCard)
			r.Delete("/cards/{id}", cardHandler.HandleDeleteCard)

			r.Get("/budgets", budgetHandler.HandleGetBudgets)
			r.Get("/budgets/progress", budgetHandler.HandleGetBudgetProgress)
			r.Post("/budgets", budgetHandler.HandleCreateBudget)
			r.Put("/budgets/{id}", budgetHandler.HandleUpdateBudget)
			r.Delete("/budgets/{id}", budgetHandler.HandleDeleteBudget)

			r.Get("/dashboard/summary", dashboardHandler.HandleGetSummary)
			r.Get("/dashboard/categories", dashboardHandler.HandleGetCategoryBreakdown)
			r.Get("/dashboard/upcoming", dashboardHandler.HandleGetUpcomingInstallments)

			r.Post("/billing/checkout", billingHandler.HandleCreateCheckoutSession)
			r.Post("/billing/portal", billingHandler.HandleCreatePortalSession)
			r.Get("/billing/subscription", billingHandler.HandleGetSubscription)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
		}
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
