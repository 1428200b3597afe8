package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Default candidate queries: open sub-tasks and open bugs assigned to the
// token owner.
const (
	DefaultSubtaskQuery = `assignee = currentUser() AND status NOT IN (Closed, Done, Rejected, Resolved, "Deployed to production") AND type IN (Sub-task, Subtask) ORDER BY created DESC`
	DefaultBugQuery     = `assignee = currentUser() AND status NOT IN (Closed, Done, Rejected, Resolved, "Deployed to production") AND type IN (Bug, "Implementation bug") ORDER BY created DESC`

	DefaultEndDateField = "customfield_11145"
)

// FileConfig is the automation config file. It is also the source of the
// JSON schema printed by `updater schema`.
type FileConfig struct {
	Repositories    []string         `mapstructure:"repositories" json:"repositories" jsonschema:"description=Repository slugs searched for branches and merge requests"`
	RunTimes        []string         `mapstructure:"run_times" json:"run_times,omitempty" jsonschema:"description=Explicit daily run times as HHMM (3 or 4 digits)"`
	RunOnInterval   bool             `mapstructure:"run_status_updater_on_interval" json:"run_status_updater_on_interval" jsonschema:"default=true"`
	IntervalMinutes int              `mapstructure:"status_updater_interval" json:"status_updater_interval" jsonschema:"minimum=1,default=60"`
	AlertUsersAt    string           `mapstructure:"alert_users_at" json:"alert_users_at" jsonschema:"description=Daily due-date alert time as HHMM,default=1000"`
	Users           []AlertUser      `mapstructure:"users" json:"users,omitempty"`
	EndDateField    string           `mapstructure:"end_date_field" json:"end_date_field,omitempty" jsonschema:"default=customfield_11145"`
	Watch           WatchConfig      `mapstructure:"watch" json:"watch"`
	Scheduler       SchedulerConfig  `mapstructure:"scheduler" json:"scheduler"`
	Automation      AutomationConfig `mapstructure:"automation" json:"automation"`
}

// AlertUser maps a person to their issue tracker and chat identities.
type AlertUser struct {
	Name    string `mapstructure:"name" json:"name"`
	JiraID  string `mapstructure:"jira_id" json:"jira_id" jsonschema:"required"`
	SlackID string `mapstructure:"slack_id" json:"slack_id" jsonschema:"required"`
}

type WatchConfig struct {
	BatchSize    int           `mapstructure:"batch_size" json:"batch_size" jsonschema:"minimum=1,default=5"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout" json:"batch_timeout" jsonschema:"type=string,default=30s"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" json:"fetch_timeout" jsonschema:"type=string,default=8s"`
	BatchDelay   time.Duration `mapstructure:"batch_delay" json:"batch_delay" jsonschema:"type=string,default=1s"`
	PollInterval time.Duration `mapstructure:"poll_interval" json:"poll_interval" jsonschema:"type=string,default=5m"`
}

type SchedulerConfig struct {
	TickInterval             time.Duration `mapstructure:"tick_interval" json:"tick_interval" jsonschema:"type=string,default=60s"`
	Tolerance                time.Duration `mapstructure:"tolerance" json:"tolerance" jsonschema:"type=string,default=60s"`
	ErrorBackoff             time.Duration `mapstructure:"error_backoff" json:"error_backoff" jsonschema:"type=string,default=300s"`
	ReminderInterval         time.Duration `mapstructure:"reminder_interval" json:"reminder_interval" jsonschema:"type=string,default=1m"`
	MaintenanceInterval      time.Duration `mapstructure:"maintenance_interval" json:"maintenance_interval" jsonschema:"type=string,default=24h"`
	MaxConcurrentUnits       int           `mapstructure:"max_concurrent_units" json:"max_concurrent_units" jsonschema:"minimum=1,default=4"`
	IntervalYieldsToExplicit bool          `mapstructure:"interval_yields_to_explicit" json:"interval_yields_to_explicit" jsonschema:"default=true"`
}

type AutomationConfig struct {
	Concurrency   int           `mapstructure:"concurrency" json:"concurrency" jsonschema:"minimum=1,default=3"`
	Queries       []string      `mapstructure:"queries" json:"queries,omitempty" jsonschema:"description=JQL queries that select candidate tickets"`
	ParentTimeout time.Duration `mapstructure:"parent_timeout" json:"parent_timeout" jsonschema:"type=string,default=15s"`
}

// Interval returns the recurring interval as a duration.
func (c FileConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// LoadFile reads the automation config file. A missing file yields the
// defaults; a present but invalid file is an error.
func LoadFile(path string) (FileConfig, error) {
	v := viper.New()
	setFileDefaults(v)

	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("json")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			slog.Warn("automation config file not found, using defaults", "path", path)
		} else {
			return FileConfig{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg FileConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("decoding config file %s: %w", path, err)
	}

	if len(cfg.Automation.Queries) == 0 {
		cfg.Automation.Queries = []string{DefaultSubtaskQuery, DefaultBugQuery}
	}

	if err := cfg.Validate(); err != nil {
		return FileConfig{}, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the settings that cannot be recovered from at runtime.
// Individual run_times entries are not checked here; the scheduler skips
// malformed entries with a warning.
func (c FileConfig) Validate() error {
	if c.IntervalMinutes <= 0 {
		return fmt.Errorf("status_updater_interval must be positive, got %d", c.IntervalMinutes)
	}
	if !validClock(c.AlertUsersAt) {
		return fmt.Errorf("alert_users_at %q is not a valid HHMM time", c.AlertUsersAt)
	}
	if c.Watch.BatchSize <= 0 {
		return fmt.Errorf("watch.batch_size must be positive, got %d", c.Watch.BatchSize)
	}
	if c.Scheduler.TickInterval <= 0 {
		return fmt.Errorf("scheduler.tick_interval must be positive")
	}
	if c.Automation.Concurrency <= 0 {
		return fmt.Errorf("automation.concurrency must be positive, got %d", c.Automation.Concurrency)
	}
	for i, u := range c.Users {
		if u.JiraID == "" || u.SlackID == "" {
			return fmt.Errorf("users[%d] needs both jira_id and slack_id", i)
		}
	}
	return nil
}

func setFileDefaults(v *viper.Viper) {
	v.SetDefault("repositories", []string{})
	v.SetDefault("run_times", []string{})
	v.SetDefault("run_status_updater_on_interval", true)
	v.SetDefault("status_updater_interval", 60)
	v.SetDefault("alert_users_at", "1000")
	v.SetDefault("end_date_field", DefaultEndDateField)

	v.SetDefault("watch.batch_size", 5)
	v.SetDefault("watch.batch_timeout", 30*time.Second)
	v.SetDefault("watch.fetch_timeout", 8*time.Second)
	v.SetDefault("watch.batch_delay", time.Second)
	v.SetDefault("watch.poll_interval", 5*time.Minute)

	v.SetDefault("scheduler.tick_interval", 60*time.Second)
	v.SetDefault("scheduler.tolerance", 60*time.Second)
	v.SetDefault("scheduler.error_backoff", 300*time.Second)
	v.SetDefault("scheduler.reminder_interval", time.Minute)
	v.SetDefault("scheduler.maintenance_interval", 24*time.Hour)
	v.SetDefault("scheduler.max_concurrent_units", 4)
	v.SetDefault("scheduler.interval_yields_to_explicit", true)

	v.SetDefault("automation.concurrency", 3)
	v.SetDefault("automation.parent_timeout", 15*time.Second)
}

// validClock mirrors the scheduler's clock format: 3 or 4 digits, HMM or HHMM.
func validClock(s string) bool {
	if len(s) != 3 && len(s) != 4 {
		return false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
		n = n*10 + int(r-'0')
	}
	return n/100 <= 23 && n%100 <= 59
}
