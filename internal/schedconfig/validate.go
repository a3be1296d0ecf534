package schedconfig

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// parser matches the scheduler's cron.WithSeconds()
var parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidationError names the offending field
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks timezone, retry bounds and every cron spec
func Validate(cfg *Config) error {
	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			return ValidationError{"timezone", err.Error()}
		}
	}

	if cfg.Retry != nil {
		if cfg.Retry.Max < 0 || cfg.Retry.Max > 10 {
			return ValidationError{"retry.max", "must be in [0, 10]"}
		}
		if cfg.Retry.Delay < 0 {
			return ValidationError{"retry.delay", "must not be negative"}
		}
	}

	for name, job := range cfg.Jobs {
		if job.Schedule == "" {
			if job.Enabled == nil {
				return ValidationError{"jobs." + name, "needs schedule or enabled"}
			}
			continue
		}
		if _, err := parser.Parse(job.Schedule); err != nil {
			return ValidationError{"jobs." + name + ".schedule", err.Error()}
		}
	}
	return nil
}
