package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"liquidityLock/internal/liquidity"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	ChainsFile     string
	Chains         []string
	SignerKey      string
	PGDSN          string
	Out            string
	ConfirmTimeout time.Duration
	DeadlineWindow time.Duration
	PollAttempts   int
	PollDelay      time.Duration
	ReceiptPoll    time.Duration
	ReadRetries    int
	ReadBackoff    time.Duration
	Concurrency    int
	MetricsAddr    string
	LogLevel       string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ChainsFile:     v.GetString("chains-file"),
		Chains:         getStringSlice(v, "chains"),
		SignerKey:      v.GetString("signer-key"),
		PGDSN:          v.GetString("pg-dsn"),
		Out:            v.GetString("out"),
		ConfirmTimeout: v.GetDuration("confirm-timeout"),
		DeadlineWindow: v.GetDuration("deadline-window"),
		PollAttempts:   v.GetInt("poll-attempts"),
		PollDelay:      v.GetDuration("poll-delay"),
		ReceiptPoll:    v.GetDuration("receipt-poll"),
		ReadRetries:    v.GetInt("read-retries"),
		ReadBackoff:    v.GetDuration("read-backoff"),
		Concurrency:    v.GetInt("concurrency"),
		MetricsAddr:    v.GetString("metrics-addr"),
		LogLevel:       v.GetString("log-level"),
	}
	if cfg.ChainsFile == "" {
		return Config{}, fmt.Errorf("chains-file is required")
	}
	if cfg.ConfirmTimeout <= 0 {
		return Config{}, fmt.Errorf("confirm-timeout must be positive")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return cfg, nil
}

// Pipeline returns the liquidity pipeline settings. Poll settings given
// here override every chain profile.
func (c Config) Pipeline() liquidity.Config {
	return liquidity.Config{
		ConfirmTimeout: c.ConfirmTimeout,
		DeadlineWindow: c.DeadlineWindow,
		ReadRetries:    c.ReadRetries,
		ReadBackoff:    c.ReadBackoff,
		PollAttempts:   c.PollAttempts,
		PollDelay:      c.PollDelay,
	}
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("LAUNCHCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("chains-file", "./chains.yaml")
	v.SetDefault("out", "./data/outcomes.jsonl")
	v.SetDefault("confirm-timeout", 3*time.Minute)
	v.SetDefault("deadline-window", 1200*time.Second)
	v.SetDefault("receipt-poll", 2*time.Second)
	v.SetDefault("read-retries", 3)
	v.SetDefault("read-backoff", 500*time.Millisecond)
	v.SetDefault("concurrency", 4)
	v.SetDefault("slippage-bps", 100)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
