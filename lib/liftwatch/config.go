package liftwatch

import (
	"fmt"
	"time"

	"liftwatch/lib/configutil"
	"liftwatch/lib/liftwatch/extract"
	"liftwatch/lib/liftwatch/retrieve"
	"liftwatch/lib/liftwatch/schedule"
	"liftwatch/lib/timezone"
)

// SourceConfig is the declarative description of one monitored resort:
// where the report lives, how to recognize a rendered page, how to
// pull rows out of it, and when the mountain is worth asking at all.
type SourceConfig struct {
	Url       string `json:"url"`
	Landmark  string `json:"landmark"`
	UserAgent string `json:"user_agent"`

	Rules extract.RuleSet     `json:"rules"`
	Sniff extract.SniffConfig `json:"sniff"`

	Hours struct {
		Open     int    `json:"open"`
		Close    int    `json:"close"`
		Timezone string `json:"timezone"`
	} `json:"hours"`

	Backoff struct {
		ActiveMinMinutes        int `json:"active_min_minutes"`
		ActiveMaxMinutes        int `json:"active_max_minutes"`
		IdleMinMinutes          int `json:"idle_min_minutes"`
		IdleMaxMinutes          int `json:"idle_max_minutes"`
		ActivityThresholdMinute int `json:"activity_threshold_minutes"`
	} `json:"backoff"`
}

// FromConfigFile builds a Monitor from a json5 source definition
// (with the usual .local override merge).
func FromConfigFile(path string) (*Monitor, error) {
	cfg, err := configutil.Load[SourceConfig](path)
	if err != nil {
		return nil, err
	}
	return FromConfig(cfg)
}

func FromConfig(cfg SourceConfig) (*Monitor, error) {
	if cfg.Url == "" {
		return nil, fmt.Errorf("source config: url is required")
	}

	var strategies []extract.Strategy
	if cfg.Rules.Rows != "" {
		rules, err := extract.NewRules(cfg.Rules)
		if err != nil {
			return nil, fmt.Errorf("source config: rules: %w", err)
		}
		strategies = append(strategies, rules)
	}
	if cfg.Sniff.Rows != "" {
		sniff, err := extract.NewSniff(cfg.Sniff)
		if err != nil {
			return nil, fmt.Errorf("source config: sniff: %w", err)
		}
		strategies = append(strategies, sniff)
	}
	if len(strategies) == 0 {
		return nil, fmt.Errorf("source config: at least one of rules/sniff is required")
	}

	// the gate only understands same-day windows; a reversed pair would
	// permanently decline every fetch after the bootstrap one
	if cfg.Hours.Open != 0 || cfg.Hours.Close != 0 {
		if cfg.Hours.Open < 0 || cfg.Hours.Close > 24 || cfg.Hours.Open >= cfg.Hours.Close {
			return nil, fmt.Errorf("source config: hours: open (%d) must be before close (%d)",
				cfg.Hours.Open, cfg.Hours.Close)
		}
	}

	loc := timezone.Location
	if cfg.Hours.Timezone != "" {
		l, err := time.LoadLocation(cfg.Hours.Timezone)
		if err != nil {
			return nil, fmt.Errorf("source config: timezone: %w", err)
		}
		loc = l
	}

	chain := retrieve.NewChain(
		retrieve.NewDirect(retrieve.DirectOptions{
			UserAgent: cfg.UserAgent,
		}),
		retrieve.NewBrowser(retrieve.BrowserOptions{
			Landmark:  cfg.Landmark,
			UserAgent: cfg.UserAgent,
		}),
	)

	sched := schedule.New(schedule.Options{
		ActiveMin:         time.Duration(cfg.Backoff.ActiveMinMinutes) * time.Minute,
		ActiveMax:         time.Duration(cfg.Backoff.ActiveMaxMinutes) * time.Minute,
		IdleMin:           time.Duration(cfg.Backoff.IdleMinMinutes) * time.Minute,
		IdleMax:           time.Duration(cfg.Backoff.IdleMaxMinutes) * time.Minute,
		ActivityThreshold: time.Duration(cfg.Backoff.ActivityThresholdMinute) * time.Minute,
		OpenHour:          cfg.Hours.Open,
		CloseHour:         cfg.Hours.Close,
		Location:          loc,
	})

	return New(Options{
		URL:        cfg.Url,
		Strategies: strategies,
		Retriever:  chain,
		Scheduler:  sched,
	}), nil
}
