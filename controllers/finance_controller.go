package controllers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lachong-dev/agiletech_backend/config"
	"github.com/lachong-dev/agiletech_backend/models"
)

const (
	financeDashboardCacheKey = "finance:dashboard"
	financeDashboardCacheTTL = 5 * time.Minute
)

// FinanceDashboard is the agency-wide revenue view.
type FinanceDashboard struct {
	TotalRevenue     int64            `json:"totalRevenue"`
	TotalRefunded    int64            `json:"totalRefunded"`
	NetRevenue       int64            `json:"netRevenue"`
	PendingAmount    int64            `json:"pendingAmount"`
	RevenueByType    map[string]int64 `json:"revenueByType"`
	RevenueByMonth   map[string]int64 `json:"revenueByMonth"`
	TransactionCount int64            `json:"transactionCount"`
	ProjectsByStatus map[string]int64 `json:"projectsByStatus"`
	GeneratedAt      time.Time        `json:"generatedAt"`
}

// FinanceController serves the revenue dashboard. Results are cached in
// Redis for a few minutes; without Redis every request recomputes.
type FinanceController struct {
	DB     *mongo.Client
	Redis  *redis.Client
	logger *log.Logger
}

func NewFinanceController(db *mongo.Client, redisClient *redis.Client) *FinanceController {
	return &FinanceController{
		DB:     db,
		Redis:  redisClient,
		logger: log.New(os.Stdout, "[FINANCE] ", log.LstdFlags),
	}
}

// Dashboard returns agency-wide revenue figures, computed from completed
// ledger entries and grouped by type and month.
func (fc *FinanceController) Dashboard(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if fc.Redis != nil {
		cached, err := fc.Redis.Get(ctx, financeDashboardCacheKey).Result()
		if err == nil {
			var dashboard FinanceDashboard
			if err := json.Unmarshal([]byte(cached), &dashboard); err == nil {
				return ok(c, http.StatusOK, "Dashboard retrieved (cached)", dashboard)
			}
		}
	}

	dashboard, err := fc.computeDashboard(ctx)
	if err != nil {
		fc.logger.Printf("Failed to compute dashboard: %v", err)
		return fail(c, err)
	}

	if fc.Redis != nil {
		if payload, err := json.Marshal(dashboard); err == nil {
			if err := fc.Redis.Set(ctx, financeDashboardCacheKey, payload, financeDashboardCacheTTL).Err(); err != nil {
				fc.logger.Printf("Failed to cache dashboard: %v", err)
			}
		}
	}

	return ok(c, http.StatusOK, "Dashboard retrieved successfully", dashboard)
}

func (fc *FinanceController) computeDashboard(ctx context.Context) (*FinanceDashboard, error) {
	dashboard := &FinanceDashboard{
		RevenueByType:    map[string]int64{},
		RevenueByMonth:   map[string]int64{},
		ProjectsByStatus: map[string]int64{},
		GeneratedAt:      time.Now(),
	}

	cursor, err := config.GetCollection(fc.DB, "transactions").Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var transactions []models.Transaction
	if err := cursor.All(ctx, &transactions); err != nil {
		return nil, err
	}

	for _, t := range transactions {
		dashboard.TransactionCount++
		switch t.Status {
		case models.TransactionCompleted:
			if t.Type == models.TransactionRefund {
				dashboard.TotalRefunded += t.Amount
			} else {
				dashboard.TotalRevenue += t.Amount
				dashboard.RevenueByType[string(t.Type)] += t.Amount
				dashboard.RevenueByMonth[t.CreatedAt.Format("2006-01")] += t.Amount
			}
		case models.TransactionPending:
			dashboard.PendingAmount += t.Amount
		}
	}
	dashboard.NetRevenue = dashboard.TotalRevenue - dashboard.TotalRefunded

	// Project counts come from an aggregation instead of a full scan
	pipeline := []bson.M{
		{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
	}
	statusCursor, err := config.GetCollection(fc.DB, "projects").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer statusCursor.Close(ctx)

	var groups []struct {
		ID    string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := statusCursor.All(ctx, &groups); err != nil {
		return nil, err
	}
	for _, g := range groups {
		dashboard.ProjectsByStatus[g.ID] = g.Count
	}

	return dashboard, nil
}

// InvalidateCache drops the cached dashboard, for use after corrections.
func (fc *FinanceController) InvalidateCache(c echo.Context) error {
	if fc.Redis == nil {
		return ok(c, http.StatusOK, "Cache not configured", nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := fc.Redis.Del(ctx, financeDashboardCacheKey).Err(); err != nil {
		fc.logger.Printf("Failed to invalidate dashboard cache: %v", err)
		return fail(c, err)
	}

	return ok(c, http.StatusOK, "Dashboard cache invalidated", nil)
}
