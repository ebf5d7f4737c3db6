package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/oceanops/fleetwatch/pkg/models"
)

type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

// Header represents a custom HTTP header.
type Header struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// WebhookConfig represents a webhook notification configuration.
type WebhookConfig struct {
	Enabled  bool     `json:"enabled"`
	URL      string   `json:"url"`
	Cooldown Duration `json:"cooldown"`
	Template string   `json:"template"`
	Headers  []Header `json:"headers,omitempty"` // Optional custom headers
}

// StoreConfig points at the remote ping-result store queried per unit.
type StoreConfig struct {
	BaseURL   string   `json:"base_url"`
	Database  string   `json:"database"`
	Username  string   `json:"username,omitempty"`
	Password  string   `json:"password,omitempty"`
	Timeout   Duration `json:"timeout"`
	RateLimit float64  `json:"rate_limit"` // outbound queries per second
	RateBurst int      `json:"rate_burst"`
}

// SLAConfig holds the compliance parameters.
type SLAConfig struct {
	UptimeThreshold float64  `json:"uptime_threshold"`
	Window          Duration `json:"window"`
	EscalationAge   Duration `json:"escalation_age"`
}

// SchedulerConfig controls sweep cadence and the retry policy.
type SchedulerConfig struct {
	Interval    Duration `json:"interval"`
	Concurrency int      `json:"concurrency"`
	MaxAttempts int      `json:"max_attempts"`
	BackoffBase Duration `json:"backoff_base"`
}

// JiraConfig holds ticketing system connection settings.
type JiraConfig struct {
	BaseURL   string `json:"base_url"`
	Project   string `json:"project"`
	Username  string `json:"username"`
	APIToken  string `json:"api_token"`
	IssueType string `json:"issue_type,omitempty"`
}

// ApprovalConfig controls the human-approval channel.
type ApprovalConfig struct {
	SlackWebhookURL string   `json:"slack_webhook_url"`
	Channel         string   `json:"channel,omitempty"`
	Timeout         Duration `json:"timeout"`
}

// Config is the top-level fleetwatch configuration.
type Config struct {
	Units      []models.Unit   `json:"units"`
	Store      StoreConfig     `json:"store"`
	SLA        SLAConfig       `json:"sla"`
	Scheduler  SchedulerConfig `json:"scheduler"`
	Ticketing  JiraConfig      `json:"ticketing"`
	Approval   ApprovalConfig  `json:"approval"`
	Webhooks   []WebhookConfig `json:"webhooks,omitempty"`
	DBPath     string          `json:"db_path"`
	ListenAddr string          `json:"listen_addr"`
	Retention  Duration        `json:"retention,omitempty"`
}

// Validate implements the Validator interface and applies defaults.
func (c *Config) Validate() error {
	if len(c.Units) == 0 {
		return fmt.Errorf("at least one unit is required")
	}

	for i := range c.Units {
		if c.Units[i].ID == "" {
			return fmt.Errorf("unit at index %d has no id", i)
		}
	}

	if c.Store.BaseURL == "" {
		return fmt.Errorf("store.base_url is required")
	}

	if c.SLA.UptimeThreshold == 0 {
		c.SLA.UptimeThreshold = 95
	}

	if c.SLA.UptimeThreshold < 0 || c.SLA.UptimeThreshold > 100 {
		return fmt.Errorf("sla.uptime_threshold must be within (0, 100]")
	}

	if time.Duration(c.SLA.Window) == 0 {
		c.SLA.Window = Duration(24 * time.Hour)
	}

	if time.Duration(c.SLA.EscalationAge) == 0 {
		c.SLA.EscalationAge = Duration(72 * time.Hour)
	}

	if time.Duration(c.Scheduler.Interval) == 0 {
		c.Scheduler.Interval = Duration(24 * time.Hour)
	}

	if c.Scheduler.Concurrency < 0 {
		return fmt.Errorf("scheduler.concurrency must be positive")
	}

	if c.Scheduler.Concurrency == 0 {
		c.Scheduler.Concurrency = 10
	}

	if c.Scheduler.MaxAttempts == 0 {
		c.Scheduler.MaxAttempts = 3
	}

	if time.Duration(c.Scheduler.BackoffBase) == 0 {
		c.Scheduler.BackoffBase = Duration(time.Second)
	}

	if time.Duration(c.Approval.Timeout) == 0 {
		c.Approval.Timeout = Duration(60 * time.Minute)
	}

	if time.Duration(c.Store.Timeout) == 0 {
		c.Store.Timeout = Duration(30 * time.Second)
	}

	if c.DBPath == "" {
		c.DBPath = "fleetwatch.db"
	}

	if c.ListenAddr == "" {
		c.ListenAddr = ":8090"
	}

	return nil
}
