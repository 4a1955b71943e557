package config

import (
	yamlenv "github.com/ifuryst/go-yaml-env"

	"github.com/ok-landscape/syndicate/pkg/logger"
)

type Config struct {
	Server       ServerConfig            `yaml:"server"`
	Database     DatabaseConfig          `yaml:"database"`
	Logger       logger.Config           `yaml:"logger"`
	Auth         AuthConfig              `yaml:"auth"`
	Catalog      CatalogConfig           `yaml:"catalog"`
	Destinations []DestinationConfig     `yaml:"destinations"`
	Scheduler    SchedulerConfig         `yaml:"scheduler"`
	Duplicate    DuplicateConfig         `yaml:"duplicate"`
	Dispatcher   DispatcherConfig        `yaml:"dispatcher"`
	RateLimits   map[string]RateLimit    `yaml:"rate_limits"`
	Publisher    PublisherConfig         `yaml:"publisher"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	Mode     string `yaml:"mode"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type DatabaseConfig struct {
	// Type selects the queue persistence backend: "postgres" or "file".
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	TimeZone string `yaml:"timezone"`
	// Directory for the file backend's queue and history documents.
	DataDir string `yaml:"data_dir"`
}

type AuthConfig struct {
	Enabled    bool   `yaml:"enabled"`
	TOTPSecret string `yaml:"totp_secret"`
}

type CatalogConfig struct {
	IndexFile string `yaml:"index_file"`
}

type DestinationConfig struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Default bool   `yaml:"default"`

	Platforms []string `yaml:"platforms"`

	// Acceptance predicate inputs for specialized destinations. A destination
	// accepts a source when any of these match.
	Categories   []string `yaml:"categories"`
	Capabilities []string `yaml:"capabilities"`
	Keywords     []string `yaml:"keywords"`

	// Audience tailoring applied to duplicated copies.
	Framing  map[string][]string `yaml:"framing"`
	AddTags  []string            `yaml:"add_tags"`
	DropTags []string            `yaml:"drop_tags"`
}

type SchedulerConfig struct {
	Enabled                   bool                `yaml:"enabled"`
	HorizonDays               int                 `yaml:"horizon_days"`
	PostsPerDayPerDestination int                 `yaml:"posts_per_day_per_destination"`
	RecencyWindow             int                 `yaml:"recency_window"`
	RefillSpec                string              `yaml:"refill_spec"`
	OptimalTimes              map[string][]string `yaml:"optimal_times"`
	Themes                    map[string][]string `yaml:"themes"`
}

type DuplicateConfig struct {
	MinDayGap int `yaml:"min_day_gap"`
}

type DispatcherConfig struct {
	Enabled          bool   `yaml:"enabled"`
	PollInterval     string `yaml:"poll_interval"`
	DueWindow        string `yaml:"due_window"`
	ThrottleBackoff  string `yaml:"throttle_backoff"`
	PublishTimeout   string `yaml:"publish_timeout"`
	RescheduleDelay  string `yaml:"reschedule_delay"`
	PublishesPerSec  float64 `yaml:"publishes_per_sec"`
}

type RateLimit struct {
	Capacity int    `yaml:"capacity"`
	Window   string `yaml:"window"`
}

type PublisherConfig struct {
	Graph GraphConfig `yaml:"graph"`
}

type GraphConfig struct {
	Enabled            bool   `yaml:"enabled"`
	BaseURL            string `yaml:"base_url"`
	AccessToken        string `yaml:"access_token"`
	InstagramAccountID string `yaml:"instagram_account_id"`
}

func LoadConfig(configPath string) (*Config, error) {
	cfg, err := yamlenv.LoadConfig[Config](configPath)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// ApplyDefaults fills in unset fields. Exported so tests and subcommands can
// build configs without a file on disk.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5420
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.TimeZone == "" {
		cfg.Database.TimeZone = "UTC"
	}
	if cfg.Database.DataDir == "" {
		cfg.Database.DataDir = "data"
	}
	if cfg.Catalog.IndexFile == "" {
		cfg.Catalog.IndexFile = "data/content_index.json"
	}
	if cfg.Scheduler.HorizonDays == 0 {
		cfg.Scheduler.HorizonDays = 7
	}
	if cfg.Scheduler.PostsPerDayPerDestination == 0 {
		cfg.Scheduler.PostsPerDayPerDestination = 2
	}
	if cfg.Scheduler.RecencyWindow == 0 {
		cfg.Scheduler.RecencyWindow = 30
	}
	if cfg.Scheduler.RefillSpec == "" {
		// Sunday midnight, matches the weekly horizon
		cfg.Scheduler.RefillSpec = "0 0 * * 0"
	}
	if len(cfg.Scheduler.OptimalTimes) == 0 {
		cfg.Scheduler.OptimalTimes = map[string][]string{
			"facebook":  {"09:00", "13:00", "19:00"},
			"threads":   {"11:00", "16:00"},
			"instagram": {"10:00", "18:00"},
		}
	}
	if cfg.Duplicate.MinDayGap == 0 {
		cfg.Duplicate.MinDayGap = 2
	}
	if cfg.Dispatcher.PollInterval == "" {
		cfg.Dispatcher.PollInterval = "30s"
	}
	if cfg.Dispatcher.DueWindow == "" {
		cfg.Dispatcher.DueWindow = "5m"
	}
	if cfg.Dispatcher.ThrottleBackoff == "" {
		cfg.Dispatcher.ThrottleBackoff = "60s"
	}
	if cfg.Dispatcher.PublishTimeout == "" {
		cfg.Dispatcher.PublishTimeout = "30s"
	}
	if cfg.Dispatcher.RescheduleDelay == "" {
		cfg.Dispatcher.RescheduleDelay = "1h"
	}
	if cfg.Dispatcher.PublishesPerSec == 0 {
		cfg.Dispatcher.PublishesPerSec = 2
	}
	if len(cfg.RateLimits) == 0 {
		cfg.RateLimits = map[string]RateLimit{
			"facebook":  {Capacity: 200, Window: "1h"},
			"instagram": {Capacity: 50, Window: "1h"},
			"threads":   {Capacity: 100, Window: "1h"},
		}
	}
	if cfg.Publisher.Graph.BaseURL == "" {
		cfg.Publisher.Graph.BaseURL = "https://graph.facebook.com/v24.0"
	}
	if len(cfg.Destinations) == 0 {
		cfg.Destinations = DefaultDestinations()
	}
}

// DefaultDestinations is the operator registry shipped out of the box: a
// catch-all destination plus a mathematics-focused one.
func DefaultDestinations() []DestinationConfig {
	return []DestinationConfig{
		{
			ID:        "cocalc",
			Name:      "CoCalc",
			Default:   true,
			Platforms: []string{"facebook"},
			Framing: map[string][]string{
				"document": {
					"New computational template available!",
					"Reproducible research made easy.",
					"Professional LaTeX templates for scientists.",
					"Computational science templates on CoCalc.",
				},
				"notebook": {
					"Computational notebook showcase!",
					"Interactive research in the cloud.",
					"Explore this computational workflow.",
					"Reproducible science with CoCalc notebooks.",
				},
			},
			AddTags: []string{"CoCalc", "ComputationalScience", "ReproducibleResearch"},
		},
		{
			ID:        "sagemath",
			Name:      "SageMath",
			Platforms: []string{"facebook"},
			Categories: []string{
				"mathematics", "pure-mathematics", "algebra", "number-theory",
				"topology", "combinatorics", "graph-theory", "symbolic-computation",
			},
			Capabilities: []string{"symbolic-math"},
			Keywords: []string{
				"sage", "sagetex", "sagemath", "symbolic", "algebra",
				"number theory", "combinatorics", "topology", "pure math",
				"abstract algebra", "group theory", "ring theory",
			},
			Framing: map[string][]string{
				"document": {
					"Mathematical computation at its finest!",
					"Symbolic mathematics made easy with SageMath.",
					"Explore pure mathematics with computational power.",
					"Advanced mathematical templates for serious researchers.",
				},
				"notebook": {
					"Mathematical exploration with SageMath!",
					"Dive into computational mathematics.",
					"Symbolic computation in action.",
					"Mathematical insights powered by SageMath.",
				},
			},
			AddTags:  []string{"SageMath", "SymbolicMath", "PureMath", "MathematicalComputing"},
			DropTags: []string{"Engineering", "Physics", "DataScience"},
		},
	}
}
