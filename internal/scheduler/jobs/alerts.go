package jobs

import (
	"context"

	"github.com/joywufn/portfolio-insight/backend/internal/alerts"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

// AlertChecker evaluates every active alert once
type AlertChecker interface {
	Check(ctx context.Context) (*alerts.CheckResult, error)
}

// AlertCheckJob fires price alerts
type AlertCheckJob struct {
	checker AlertChecker
	logger  *logger.Logger
}

// NewAlertCheckJob creates a new alert check job
func NewAlertCheckJob(checker AlertChecker, log *logger.Logger) *AlertCheckJob {
	return &AlertCheckJob{
		checker: checker,
		logger:  log.WithField("job", "price_alert_check"),
	}
}

// Name returns the job name
func (j *AlertCheckJob) Name() string {
	return "price_alert_check"
}

// Description returns the job summary
func (j *AlertCheckJob) Description() string {
	return "Evaluate active price alerts against the latest quotes"
}

// Schedule returns the cron schedule (every minute)
func (j *AlertCheckJob) Schedule() string {
	return "0 * * * * *"
}

// Run executes one alert pass
func (j *AlertCheckJob) Run(ctx context.Context) error {
	result, err := j.checker.Check(ctx)
	if err != nil {
		return err
	}

	if len(result.Triggered) > 0 || result.Failed > 0 {
		j.logger.WithFields(map[string]interface{}{
			"checked":   result.Checked,
			"triggered": len(result.Triggered),
			"failed":    result.Failed,
		}).Info("Alert check completed")
	}
	return nil
}
