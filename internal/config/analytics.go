package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AnalyticsConfig carries the tunable constants of the analysis pipeline.
// Everything here has a validated default so the service is usable without
// any config file.
type AnalyticsConfig struct {
	Clustering ClusteringConfig  `mapstructure:"clustering"`
	Basket     BasketConfig      `mapstructure:"basket"`
	Lifecycle  LifecycleConfig   `mapstructure:"lifecycle"`
	Budget     []ChannelBudget   `mapstructure:"budget"`
}

type ClusteringConfig struct {
	Iterations int `mapstructure:"iterations"`
}

type BasketConfig struct {
	MinLift    float64 `mapstructure:"minLift"`
	MinSupport float64 `mapstructure:"minSupport"`
	MaxRules   int     `mapstructure:"maxRules"`
}

type LifecycleConfig struct {
	NewSilverScale float64 `mapstructure:"newSilverScale"`
	NewBronzeScale float64 `mapstructure:"newBronzeScale"`
	// SumTolerance bounds how far a state's outgoing probabilities may drift
	// from 1.0 before the modeler reports them.
	SumTolerance float64              `mapstructure:"sumTolerance"`
	Transitions  []TransitionConstant `mapstructure:"transitions"`
}

type TransitionConstant struct {
	From        string  `mapstructure:"from"`
	To          string  `mapstructure:"to"`
	Probability float64 `mapstructure:"probability"`
}

type ChannelBudget struct {
	Channel        string  `mapstructure:"channel"`
	CurrentSpend   float64 `mapstructure:"currentSpend"`
	CAC            float64 `mapstructure:"cac"`
	ROAS           float64 `mapstructure:"roas"`
	SuggestedSpend float64 `mapstructure:"suggestedSpend"`
}

func DefaultAnalyticsConfig() AnalyticsConfig {
	return AnalyticsConfig{
		Clustering: ClusteringConfig{Iterations: 10},
		Basket: BasketConfig{
			MinLift:    1.1,
			MinSupport: 0.02,
			MaxRules:   8,
		},
		Lifecycle: LifecycleConfig{
			NewSilverScale: 0.8,
			NewBronzeScale: 0.9,
			SumTolerance:   0.01,
			Transitions: []TransitionConstant{
				{From: "Silver", To: "Gold", Probability: 0.25},
				{From: "Silver", To: "Silver", Probability: 0.55},
				{From: "Silver", To: "Churn", Probability: 0.20},
				{From: "Gold", To: "Gold", Probability: 0.85},
				{From: "Gold", To: "Silver", Probability: 0.10},
				{From: "Gold", To: "Churn", Probability: 0.05},
				{From: "Bronze", To: "Churn", Probability: 0.60},
				{From: "Bronze", To: "Silver", Probability: 0.35},
				{From: "Bronze", To: "Gold", Probability: 0.05},
			},
		},
		Budget: []ChannelBudget{
			{Channel: "Google Ads", CurrentSpend: 4000, CAC: 45, ROAS: 2.8, SuggestedSpend: 3200},
			{Channel: "Facebook", CurrentSpend: 3000, CAC: 35, ROAS: 3.5, SuggestedSpend: 4500},
			{Channel: "Email", CurrentSpend: 1000, CAC: 5, ROAS: 12.0, SuggestedSpend: 2000},
			{Channel: "TikTok", CurrentSpend: 2000, CAC: 25, ROAS: 4.2, SuggestedSpend: 300},
			{Channel: "Instagram", CurrentSpend: 1500, CAC: 30, ROAS: 3.8, SuggestedSpend: 1800},
		},
	}
}

// AnalyticsConfigHolder serves the current analytics config and swaps it
// atomically on file change.
type AnalyticsConfigHolder struct {
	current atomic.Value // holds AnalyticsConfig
}

func NewAnalyticsConfigHolder() (*AnalyticsConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("analytics")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/insight/config") // Volume-mounted config
	v.AddConfigPath("/etc/insight")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("INSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg, err := unmarshalAnalytics(v)
	if err != nil {
		return nil, err
	}

	holder := &AnalyticsConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := unmarshalAnalytics(v)
		if err != nil {
			log.Printf("[analytics-config] reload failed: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[analytics-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticAnalyticsConfigHolder wraps a fixed config with no file
// watching. Used by tests and the offline generator.
func NewStaticAnalyticsConfigHolder(cfg AnalyticsConfig) *AnalyticsConfigHolder {
	holder := &AnalyticsConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *AnalyticsConfigHolder) Get() AnalyticsConfig {
	return h.current.Load().(AnalyticsConfig)
}

func unmarshalAnalytics(v *viper.Viper) (AnalyticsConfig, error) {
	cfg := DefaultAnalyticsConfig()
	if err := v.UnmarshalKey("analytics", &cfg); err != nil {
		return AnalyticsConfig{}, err
	}
	if err := validateAnalyticsConfig(cfg); err != nil {
		return AnalyticsConfig{}, err
	}
	return cfg, nil
}

func validateAnalyticsConfig(cfg AnalyticsConfig) error {
	if cfg.Clustering.Iterations <= 0 {
		return errors.New("analytics.clustering.iterations must be positive")
	}
	if cfg.Basket.MaxRules <= 0 {
		return errors.New("analytics.basket.maxRules must be positive")
	}
	if cfg.Basket.MinSupport < 0 || cfg.Basket.MinSupport > 1 {
		return errors.New("analytics.basket.minSupport must be in [0,1]")
	}
	if len(cfg.Lifecycle.Transitions) == 0 {
		return errors.New("analytics.lifecycle.transitions cannot be empty")
	}
	for _, t := range cfg.Lifecycle.Transitions {
		if t.Probability < 0 || t.Probability > 1 {
			return errors.New("analytics.lifecycle.transitions probabilities must be in [0,1]")
		}
	}
	if len(cfg.Budget) == 0 {
		return errors.New("analytics.budget cannot be empty")
	}
	for _, ch := range cfg.Budget {
		if ch.CurrentSpend < 0 || ch.CAC < 0 || ch.ROAS < 0 || ch.SuggestedSpend < 0 {
			return errors.New("analytics.budget amounts must be non-negative")
		}
	}
	return nil
}
