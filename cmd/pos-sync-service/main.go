package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/YassinSalah100/Goha-System-sub001/config"
	"github.com/YassinSalah100/Goha-System-sub001/models"
	"github.com/YassinSalah100/Goha-System-sub001/ordersync"
	"github.com/YassinSalah100/Goha-System-sub001/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func main() {
	port := os.Getenv("POS_SYNC_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	remote, err := ordersync.NewRemoteOrderSource(os.Getenv("POS_API_KEY"))
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "pos_client"}).Fatal(err)
	}

	ledger := ordersync.NewLocalLedger(ordersync.DefaultStore())
	coordinator := ordersync.NewFetchCoordinator(remote, ledger)
	bus := ordersync.NewBus()
	workflow := ordersync.NewCancellationWorkflow(remote, ledger, coordinator)
	workflow.BindBus(bus)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if userId := strings.TrimSpace(c.GetHeader("x-user-id")); userId != "" {
			c.Request = c.Request.WithContext(utils.SetUserIdInContext(c.Request.Context(), userId))
		}
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetRedisDB() == nil && config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization", "x-user-id", "x-correlation-id")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))
	r.Use(requestLogger(logger))
	r.Use(gin.Recovery())

	// API endpoints (cashier order view + cancellation workflow)
	r.GET("/api/shifts/:shiftId/orders", ordersync.GetOrdersHandler(coordinator))
	r.GET("/api/shifts/:shiftId/stats", ordersync.GetStatsHandler(coordinator))
	r.POST("/api/orders", ordersync.OrderAddedHandler(ledger, bus))
	r.POST("/api/orders/:orderId/cancellation-requests", ordersync.RequestCancellationHandler(workflow))
	r.POST("/api/cancellations/approve", ordersync.ApproveCancellationHandler(bus))
	r.POST("/api/cancellations/reject", ordersync.RejectCancellationHandler(bus))

	// Pub/Sub push endpoint for decisions made on other instances.
	r.POST("/pubsub/order-events", ordersync.PubSubPushHandler(bus))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectRedisWithRetry()
	if config.DatabaseConfigured() {
		config.ConnectDatabaseWithRetry()
		if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
			models.MigrateTable()
		} else {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
		}
	}

	go pollLoop(sigCtx, coordinator, remote)

	select {
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	case err := <-serverErrCh:
		if err != nil && err != http.ErrServerClosed {
			logger.WithFields(logrus.Fields{"field": "server"}).Error(err)
		}
	}
}

// pollLoop is the periodic non-forced refresh for every shift this
// instance has served. Closed shifts drop out of the tracked set; the
// debounce window absorbs overlap with manual refreshes and
// decision-triggered fetches.
func pollLoop(ctx context.Context, coordinator *ordersync.FetchCoordinator, remote *ordersync.RemoteOrderSource) {
	ticker := time.NewTicker(config.SyncPollInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, shiftId := range coordinator.TrackedShifts() {
				refreshCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
				if shift, err := remote.FetchShift(refreshCtx, shiftId); err == nil && !shift.IsOpen() {
					coordinator.ForgetShift(shiftId)
					cancel()
					continue
				}
				_, _ = coordinator.Refresh(refreshCtx, shiftId, false)
				cancel()
			}
		}
	}
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

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		logger.WithFields(logrus.Fields{
			"status":         c.Writer.Status(),
			"method":         c.Request.Method,
			"path":           c.Request.URL.Path,
			"latency":        latency.String(),
			"correlation_id": cid,
		}).Info("request")
	}
}
