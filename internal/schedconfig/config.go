package schedconfig

import (
	"time"

	"github.com/joywufn/portfolio-insight/backend/internal/scheduler"
)

// Config overrides the built-in job schedules
//
//	timezone: Asia/Taipei
//	retry:
//	  max: 2
//	  delay: 30s
//	jobs:
//	  taiwan_limit_scan:
//	    schedule: "0 */10 9-13 * * MON-FRI"
//	  watchlist_sync:
//	    enabled: false
type Config struct {
	Timezone string               `yaml:"timezone" json:"timezone"`
	Retry    *Retry               `yaml:"retry" json:"retry,omitempty"`
	Jobs     map[string]JobConfig `yaml:"jobs" json:"jobs"`
}

// Retry replaces the scheduler retry defaults
type Retry struct {
	Max   int           `yaml:"max" json:"max"`
	Delay time.Duration `yaml:"delay" json:"delay"`
}

// JobConfig overrides one job; a nil Enabled keeps the job on
type JobConfig struct {
	Schedule string `yaml:"schedule" json:"schedule,omitempty"`
	Enabled  *bool  `yaml:"enabled" json:"enabled,omitempty"`
}

// Location resolves Timezone, falling back to def when unset
func (c *Config) Location(def *time.Location) (*time.Location, error) {
	if c == nil || c.Timezone == "" {
		return def, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Options returns the scheduler options the file asks for
func (c *Config) Options() []scheduler.Option {
	if c == nil || c.Retry == nil {
		return nil
	}
	return []scheduler.Option{scheduler.WithRetry(c.Retry.Max, c.Retry.Delay)}
}

// Apply drops disabled jobs and swaps overridden schedules. Overrides
// naming an unregistered job are an error.
func (c *Config) Apply(jobs []scheduler.Job) ([]scheduler.Job, error) {
	if c == nil {
		return jobs, nil
	}

	known := make(map[string]bool, len(jobs))
	for _, job := range jobs {
		known[job.Name()] = true
	}
	for name := range c.Jobs {
		if !known[name] {
			return nil, ValidationError{"jobs." + name, "unknown job"}
		}
	}

	out := make([]scheduler.Job, 0, len(jobs))
	for _, job := range jobs {
		override, ok := c.Jobs[job.Name()]
		if !ok {
			out = append(out, job)
			continue
		}
		if override.Enabled != nil && !*override.Enabled {
			continue
		}
		if override.Schedule != "" {
			job = rescheduled{Job: job, schedule: override.Schedule}
		}
		out = append(out, job)
	}
	return out, nil
}

// rescheduled runs a job on a different cron spec
type rescheduled struct {
	scheduler.Job
	schedule string
}

func (r rescheduled) Schedule() string {
	return r.schedule
}
