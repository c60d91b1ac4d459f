package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"rewario/internal/domain"
)

// Config models rewario.yml.
type Config struct {
	Rewards struct {
		ConversionRate float64 `yaml:"conversion_rate" json:"conversion_rate"`
		SignupBonus    int     `yaml:"signup_bonus" json:"signup_bonus"`
		MinWithdrawal  int     `yaml:"min_withdrawal" json:"min_withdrawal"`
	} `yaml:"rewards" json:"rewards"`
	Referral struct {
		BaseURL string `yaml:"base_url" json:"base_url"`
		Bonus   int    `yaml:"bonus" json:"bonus"`
	} `yaml:"referral" json:"referral"`
	Levels    []domain.LevelTier `yaml:"levels" json:"levels"`
	Offerwall struct {
		TasksPerProvider int                        `yaml:"tasks_per_provider" json:"tasks_per_provider"`
		Providers        []domain.OfferwallProvider `yaml:"providers" json:"providers"`
	} `yaml:"offerwall" json:"offerwall"`
	Storage StorageConfig `yaml:"storage" json:"storage"`
	Fetch   struct {
		ListLatency time.Duration `yaml:"list_latency" json:"list_latency"`
		GetLatency  time.Duration `yaml:"get_latency" json:"get_latency"`
	} `yaml:"fetch" json:"fetch"`
	Log LogConfig `yaml:"log" json:"log"`
}

type StorageConfig struct {
	Backend string `yaml:"backend" json:"backend"`
	Redis   struct {
		Addr     string `yaml:"addr" json:"addr"`
		Password string `yaml:"password" json:"-"`
		DB       int    `yaml:"db" json:"db"`
		Prefix   string `yaml:"prefix" json:"prefix"`
	} `yaml:"redis" json:"redis"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Rewards.ConversionRate <= 0 || c.Rewards.ConversionRate > 1 {
		return fmt.Errorf("config.rewards.conversion_rate must be in (0,1]")
	}
	if c.Rewards.SignupBonus < 0 {
		return fmt.Errorf("config.rewards.signup_bonus must not be negative")
	}
	if c.Rewards.MinWithdrawal < 0 {
		return fmt.Errorf("config.rewards.min_withdrawal must not be negative")
	}
	if c.Referral.BaseURL == "" {
		return fmt.Errorf("config.referral.base_url is required")
	}
	if c.Referral.Bonus < 0 {
		return fmt.Errorf("config.referral.bonus must not be negative")
	}
	if len(c.Levels) == 0 {
		return fmt.Errorf("config.levels is required")
	}
	for i, lvl := range c.Levels {
		if lvl.Level < 1 {
			return fmt.Errorf("level %d: level must be positive", i)
		}
		if i > 0 && lvl.TasksRequired < c.Levels[i-1].TasksRequired {
			return fmt.Errorf("level %d: levels must be sorted by tasks_required", lvl.Level)
		}
	}
	if c.Offerwall.TasksPerProvider < 0 {
		return fmt.Errorf("config.offerwall.tasks_per_provider must not be negative")
	}
	seen := map[string]bool{}
	for _, p := range c.Offerwall.Providers {
		if p.ID == "" {
			return fmt.Errorf("offerwall provider with empty id")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate offerwall provider %s", p.ID)
		}
		seen[p.ID] = true
	}
	switch c.Storage.Backend {
	case BackendSQLite:
	case BackendRedis:
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("config.storage.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("config.storage.backend must be sqlite or redis")
	}
	if c.Fetch.ListLatency < 0 || c.Fetch.GetLatency < 0 {
		return fmt.Errorf("config.fetch latencies must not be negative")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "rewario.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Missing sections fall back to defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	levels, providers := cfg.Levels, cfg.Offerwall.Providers
	cfg.Levels, cfg.Offerwall.Providers = nil, nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if cfg.Levels == nil {
		cfg.Levels = levels
	}
	if cfg.Offerwall.Providers == nil {
		cfg.Offerwall.Providers = providers
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `rewards:
  conversion_rate: 0.8
  signup_bonus: 100
  min_withdrawal: 500

referral:
  base_url: https://rewario.com/ref/
  bonus: 50

levels:
  - level: 1
    tasks_required: 0
    max_tasks_per_day: 5
    benefits: ["Access to basic tasks", "Up to $1 per task", "Referral program access"]
  - level: 2
    tasks_required: 10
    max_tasks_per_day: 10
    benefits: ["Access to medium tasks", "Up to $3 per task", "Bonus coins on weekends"]
  - level: 3
    tasks_required: 25
    max_tasks_per_day: 15
    benefits: ["Access to premium tasks", "Up to $5 per task", "Weekly bonus rewards"]
  - level: 4
    tasks_required: 50
    max_tasks_per_day: 20
    benefits: ["Access to all tasks", "Up to $10 per task", "Priority support", "Early access to new features"]
  - level: 5
    tasks_required: 100
    max_tasks_per_day: 30
    benefits: ["VIP tasks", "Up to $20 per task", "Lower withdrawal threshold", "Personal account manager"]

offerwall:
  tasks_per_provider: 5
  providers:
    - {id: tapjoy, name: Tapjoy, logo: /icons/tapjoy.png, description: "Complete surveys, play games, and more", active: true, background_color: "#F2FCE2", text_color: "#4B9E5F"}
    - {id: fyber, name: Fyber, logo: /icons/fyber.png, description: "App installs and premium surveys", active: true, background_color: "#D3E4FD", text_color: "#3B7DD8"}
    - {id: chartboost, name: Chartboost, logo: /icons/chartboost.png, description: "Game offers and app installs", active: true, background_color: "#E5DEFF", text_color: "#6B5ED9"}
    - {id: ironsource, name: IronSource, logo: /icons/ironsource.png, description: "Video ads and app promotions", active: true, background_color: "#FEF7CD", text_color: "#D9A52B"}
    - {id: offertoro, name: OfferToro, logo: /icons/offertoro.png, description: "Surveys and trial offers", active: true, background_color: "#FDE1D3", text_color: "#E87941"}
    - {id: monlix, name: Monlix, logo: /icons/monlix.png, description: "Premium surveys and CPA offers", active: true, background_color: "#FFDEE2", text_color: "#D9516B"}
    - {id: admantum, name: AdMantum, logo: /icons/admantum.png, description: "App installs and video ads", active: true, background_color: "#F1F0FB", text_color: "#5B5A6B"}
    - {id: cpalead, name: CPALead, logo: /icons/cpalead.png, description: "Global survey network", active: true, background_color: "#D3E4FD", text_color: "#3B7DD8"}
    - {id: adgem, name: AdGem, logo: /icons/adgem.png, description: "Mobile offers and surveys", active: true, background_color: "#F2FCE2", text_color: "#4B9E5F"}

storage:
  backend: sqlite
  redis:
    addr: localhost:6379
    db: 0
    prefix: "rewario:"

fetch:
  list_latency: 800ms
  get_latency: 500ms

log:
  level: info
  format: console
`
