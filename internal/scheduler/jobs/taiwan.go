package jobs

import (
	"context"
	"fmt"

	"github.com/joywufn/portfolio-insight/backend/internal/twstock"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

// LimitRefresher rescans limit stocks, replacing any cached scan
type LimitRefresher interface {
	RefreshLimitStocks(ctx context.Context) *twstock.LimitScanResult
}

// LimitScanJob keeps the Taiwan limit scan warm during the session
// ⭐ SSOT: scheduled limit scans run here only
type LimitScanJob struct {
	market LimitRefresher
	logger *logger.Logger
}

// NewLimitScanJob creates a new limit scan job
func NewLimitScanJob(market LimitRefresher, log *logger.Logger) *LimitScanJob {
	return &LimitScanJob{
		market: market,
		logger: log.WithField("job", "taiwan_limit_scan"),
	}
}

// Name returns the job name
func (j *LimitScanJob) Name() string {
	return "taiwan_limit_scan"
}

// Description returns the job summary
func (j *LimitScanJob) Description() string {
	return "Rescan TWSE limit-up/limit-down stocks and refresh the cache"
}

// Schedule returns the cron schedule: every 5 minutes, 09:00-14:55
// on weekdays (scheduler location is Asia/Taipei)
func (j *LimitScanJob) Schedule() string {
	return "0 */5 9-14 * * MON-FRI"
}

// Run executes the scan; an unavailable upstream table is an error so
// the scheduler retries
func (j *LimitScanJob) Run(ctx context.Context) error {
	result := j.market.RefreshLimitStocks(ctx)
	if !result.Available {
		return fmt.Errorf("limit scan unavailable: %s", result.Error)
	}

	j.logger.WithFields(map[string]interface{}{
		"scanned":    result.Summary.TotalScanned,
		"limit_up":   result.Summary.LimitUpFound,
		"limit_down": result.Summary.LimitDownFound,
	}).Info("Scheduled limit scan completed")
	return nil
}
