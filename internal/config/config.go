package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"mastery-quiz-service/internal/engine"
)

type Config struct {
	Server struct {
		Port         string `yaml:"port"`
		TickInterval string `yaml:"tick_interval"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	RabbitMQ struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
	} `yaml:"rabbitmq"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Rewards RewardsConfig `yaml:"rewards"`
}

// RewardsConfig is the speed bonus table. Empty means the built-in default.
type RewardsConfig struct {
	Tiers []struct {
		Under string `yaml:"under"`
		Bonus int    `yaml:"bonus"`
	} `yaml:"tiers"`
	Floor int `yaml:"floor"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if _, err := cfg.Rewards.SpeedBonus(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SpeedBonus converts the rewards section into a validated engine policy.
func (r RewardsConfig) SpeedBonus() (engine.SpeedBonus, error) {
	if len(r.Tiers) == 0 && r.Floor == 0 {
		return engine.DefaultSpeedBonus(), nil
	}
	policy := engine.SpeedBonus{Floor: r.Floor}
	for i, tier := range r.Tiers {
		d, err := time.ParseDuration(tier.Under)
		if err != nil {
			return engine.SpeedBonus{}, fmt.Errorf("rewards tier %d: %w", i, err)
		}
		policy.Tiers = append(policy.Tiers, engine.SpeedTier{
			UnderSeconds: int(d / time.Second),
			Bonus:        tier.Bonus,
		})
	}
	if err := policy.Validate(); err != nil {
		return engine.SpeedBonus{}, err
	}
	return policy, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
