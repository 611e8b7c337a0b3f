package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/wealth_backend/config"
	"bitbucket.org/mmdatafocus/wealth_backend/middlewares"
	"bitbucket.org/mmdatafocus/wealth_backend/models"
	"bitbucket.org/mmdatafocus/wealth_backend/models/reports"
	"bitbucket.org/mmdatafocus/wealth_backend/scanner"
	"bitbucket.org/mmdatafocus/wealth_backend/utils"
	"bitbucket.org/mmdatafocus/wealth_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("wealth-backend")

const maxReceiptBytes = 5 << 20

// Define a struct to represent the rate limiter.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func getRedisClient(redisAddress string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddress,
	})
	return client
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, err error) {
	var rl *utils.RateLimitedError
	if errors.As(err, &rl) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"success":          false,
			"error":            "too many requests, please try again later",
			"remaining":        rl.Remaining,
			"reset_in_seconds": int64(rl.ResetIn.Seconds()),
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, utils.ErrorUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, utils.ErrorUserNotFound), errors.Is(err, utils.ErrorRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, utils.ErrorInvalidAmount):
		status = http.StatusBadRequest
	case errors.Is(err, utils.ErrorRequestBlocked):
		status = http.StatusForbidden
	case errors.Is(err, utils.ErrorReceiptParse):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		logger := config.GetLogger()
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		logger.WithFields(logrus.Fields{
			"field":          "respondError",
			"path":           c.Request.URL.Path,
			"correlation_id": cid,
		}).Error(err.Error())
		c.JSON(status, gin.H{"success": false, "error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
}

func syncUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBadRequest(c, err)
			return
		}
		user, err := models.SyncUser(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, user)
	}
}

func createAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewAccount
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBadRequest(c, err)
			return
		}
		account, err := models.CreateAccount(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		respondCreated(c, account)
	}
}

func listAccountsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accounts, err := models.GetUserAccounts(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, accounts)
	}
}

func getAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		account, err := models.GetAccountWithTransactions(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, account)
	}
}

func updateDefaultAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		account, err := models.UpdateDefaultAccount(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, account)
	}
}

func accountStatementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		fromDate, err := time.Parse("2006-01-02", c.Query("from"))
		if err != nil {
			respondBadRequest(c, errors.New("from must be a YYYY-MM-DD date"))
			return
		}
		toDate, err := time.Parse("2006-01-02", c.Query("to"))
		if err != nil {
			respondBadRequest(c, errors.New("to must be a YYYY-MM-DD date"))
			return
		}
		// Include the whole closing day.
		toDate = toDate.AddDate(0, 0, 1).Add(-time.Nanosecond)

		ctx, span := tracer.Start(c.Request.Context(), "accountStatement")
		defer span.End()

		statement, err := reports.GetAccountStatement(ctx, c.Param("id"), fromDate, toDate)
		if err != nil {
			respondError(c, err)
			return
		}

		if c.Query("format") == "json" {
			respondOK(c, statement)
			return
		}

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=statement.xlsx")
		if err := reports.WriteStatementXlsx(statement, c.Writer); err != nil {
			config.LogError(config.GetLogger(), "server.go", "accountStatementHandler", "WriteStatementXlsx", nil, err)
		}
	}
}

func createTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewTransaction
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBadRequest(c, err)
			return
		}
		transaction, err := models.CreateTransaction(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		respondCreated(c, transaction)
	}
}

func getTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		transaction, err := models.GetTransaction(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, transaction)
	}
}

type bulkDeleteRequest struct {
	Ids []string `json:"ids" binding:"required"`
}

func bulkDeleteTransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req bulkDeleteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}
		if err := models.BulkDeleteTransactions(c.Request.Context(), req.Ids); err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, gin.H{"deleted": true})
	}
}

func scanReceiptHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		// Require an authenticated caller before touching the model API.
		if _, err := models.ResolveUser(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			respondBadRequest(c, errors.New("file is required"))
			return
		}
		if fileHeader.Size > maxReceiptBytes {
			respondBadRequest(c, errors.New("file size should be less than 5MB"))
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			respondError(c, err)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxReceiptBytes+1))
		if err != nil {
			respondError(c, err)
			return
		}
		if len(data) > maxReceiptBytes {
			respondBadRequest(c, errors.New("file size should be less than 5MB"))
			return
		}

		mimeType := fileHeader.Header.Get("Content-Type")
		ctx, span := tracer.Start(c.Request.Context(), "scanReceipt")
		defer span.End()
		draft, err := scanner.ScanReceipt(ctx, data, mimeType)
		if err != nil {
			respondError(c, err)
			return
		}

		// Archive is best-effort; a storage hiccup must not fail the scan.
		var receiptUrl string
		if os.Getenv("GCS_BUCKET") != "" && !draft.Empty() {
			objectName := "receipts/" + uuid.NewString() + "_" + fileHeader.Filename
			receiptUrl, err = utils.SaveReceiptToGCS(ctx, objectName, data, mimeType)
			if err != nil {
				config.LogError(logger, "server.go", "scanReceiptHandler", "SaveReceiptToGCS", nil, err)
				receiptUrl = ""
			}
		}

		respondOK(c, gin.H{
			"receipt":     draft,
			"receipt_url": receiptUrl,
		})
	}
}

func getBudgetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountId := c.Query("accountId")
		if accountId == "" {
			respondBadRequest(c, errors.New("accountId is required"))
			return
		}
		status, err := models.GetCurrentBudget(c.Request.Context(), accountId)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, status)
	}
}

type updateBudgetRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

func updateBudgetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateBudgetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}
		budget, err := models.UpdateBudget(c.Request.Context(), req.Amount)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, budget)
	}
}

// internalOpsAuth gates ops endpoints on a shared token. These routes are
// meant for schedulers and operators, not end users.
func internalOpsAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := strings.TrimSpace(os.Getenv("INTERNAL_OPS_TOKEN"))
		if expected == "" || c.GetHeader("x-internal-token") != expected {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func budgetAlertsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		fired, err := models.CheckBudgetAlerts(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, gin.H{"alerts_fired": fired})
	}
}

func seedDemoHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		inserted, err := models.SeedDemoTransactions(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, gin.H{"transactions": inserted})
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "route not found"})
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Shutdown coordination.
	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB/Redis are ready, we return 503 for app endpoints.
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		// Always allow Cloud Run startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate critical endpoints on dependency readiness.
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))

	// Optional IP-level rate limiting (recommended for production). The
	// per-user write quota in guard/ is separate and always on.
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := getRedisClient(os.Getenv("REDIS_ADDRESS"))
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(middlewares.AuthMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.POST("/users/sync", syncUserHandler())

	r.POST("/accounts", createAccountHandler())
	r.GET("/accounts", listAccountsHandler())
	r.GET("/accounts/:id", getAccountHandler())
	r.PUT("/accounts/:id/default", updateDefaultAccountHandler())
	r.GET("/accounts/:id/statement", accountStatementHandler())

	r.POST("/transactions", createTransactionHandler())
	r.GET("/transactions/:id", getTransactionHandler())
	r.DELETE("/transactions", bulkDeleteTransactionsHandler())

	r.POST("/receipts/scan", scanReceiptHandler())

	r.GET("/budget", getBudgetHandler())
	r.PUT("/budget", updateBudgetHandler())

	// Ops tooling: scheduler-driven budget alert sweep and demo data reset.
	internal := r.Group("/internal", internalOpsAuth())
	internal.POST("/ops/budget-alerts", budgetAlertsHandler())
	internal.POST("/ops/seed-demo", seedDemoHandler())

	r.NoRoute(customNotFoundHandler)

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	// Now DB is ready; run migrations.
	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// IMPORTANT: AutoMigrate can run DDL that blocks tables and causes 504/502 timeouts.
	// Allow disabling migrations on startup (run them as a separate job instead).
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Start outbox dispatcher (publishes AFTER commit).
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	go workflow.NewOutboxDispatcher(db, logger).Run(dispatcherCtx)

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<minInt(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port, "/")
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work while we're draining.
	cancelDispatcher()

	// Drain HTTP requests.
	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

// Initialize a new RateLimiter instance.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Middleware function to check rate limits.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	// Get the IP address or user identifier from the request.
	key := c.ClientIP() // Assuming IP-based rate limiting

	// Check if the key exists in Redis.
	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// If the key doesn't exist, create it and set expiry.
	if exists == 0 {
		err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	// If the key exists, get the current count.
	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// If the count exceeds the limit, return an error response.
	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
