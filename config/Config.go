// Package config loads the bot's configuration: connection settings,
// agent selection, and hyperparameter overrides from an optional YAML
// file layered over the built-in defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/trustpvp/botgo/agent/ppo"
	"github.com/trustpvp/botgo/agent/qlearning"
)

// Agent kinds selectable in the configuration
const (
	AgentPPO       = "ppo"
	AgentQLearning = "qlearning"
)

// Config is the bot's full configuration
type Config struct {
	Server       string `yaml:"server"`
	PlayerName   string `yaml:"playerName"`
	Agent        string `yaml:"agent"`
	ModelsDir    string `yaml:"modelsDir"`
	PlotDir      string `yaml:"plotDir"`
	SaveInterval int    `yaml:"saveInterval"` // In games
	LogLevel     string `yaml:"logLevel"`
	MetricsAddr  string `yaml:"metricsAddr"` // Empty disables metrics

	PPO       PPO       `yaml:"ppo"`
	QLearning QLearning `yaml:"qlearning"`
}

// PPO mirrors the PPO hyperparameters for the YAML file
type PPO struct {
	Gamma       float64 `yaml:"gamma"`
	Lambda      float64 `yaml:"lambda"`
	Clip        float64 `yaml:"clip"`
	StepSize    float64 `yaml:"stepSize"`
	BatchSize   int     `yaml:"batchSize"`
	Epochs      int     `yaml:"epochs"`
	HiddenSizes []int   `yaml:"hiddenSizes"`
	Seed        uint64  `yaml:"seed"`
}

// QLearning mirrors the tabular hyperparameters for the YAML file
type QLearning struct {
	LearningRate float64 `yaml:"learningRate"`
	Gamma        float64 `yaml:"gamma"`
	Epsilon      float64 `yaml:"epsilon"`
	EpsilonDecay float64 `yaml:"epsilonDecay"`
	MinEpsilon   float64 `yaml:"minEpsilon"`
	Seed         uint64  `yaml:"seed"`
}

// Default returns the built-in configuration
func Default() Config {
	p := ppo.DefaultConfig()
	q := qlearning.DefaultConfig()

	return Config{
		Server:       "http://localhost:3000",
		PlayerName:   "botgo",
		Agent:        AgentPPO,
		ModelsDir:    "models",
		PlotDir:      "logs/plots",
		SaveInterval: 10,
		LogLevel:     "info",

		PPO: PPO{
			Gamma:       p.Gamma,
			Lambda:      p.Lambda,
			Clip:        p.Clip,
			StepSize:    p.StepSize,
			BatchSize:   p.BatchSize,
			Epochs:      p.Epochs,
			HiddenSizes: p.HiddenSizes,
		},
		QLearning: QLearning{
			LearningRate: q.LearningRate,
			Gamma:        q.Gamma,
			Epsilon:      q.Epsilon,
			EpsilonDecay: q.EpsilonDecay,
			MinEpsilon:   q.MinEpsilon,
		},
	}
}

// Load reads a YAML configuration file layered over the defaults. An
// empty path returns the defaults unchanged.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load: %v", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("load: could not parse %v: %v", path, err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("load: %v", err)
	}
	return c, nil
}

// Validate returns an error describing the first invalid setting, if
// any.
func (c Config) Validate() error {
	if c.Server == "" {
		return fmt.Errorf("validate: server must be set")
	}
	if c.PlayerName == "" {
		return fmt.Errorf("validate: player name must be set")
	}
	if c.Agent != AgentPPO && c.Agent != AgentQLearning {
		return fmt.Errorf("validate: unknown agent %q", c.Agent)
	}
	if c.SaveInterval < 1 {
		return fmt.Errorf("validate: save interval must be positive, got %v",
			c.SaveInterval)
	}
	if err := c.PPOConfig().Validate(); err != nil {
		return fmt.Errorf("validate: ppo: %v", err)
	}
	if err := c.QLearningConfig().Validate(); err != nil {
		return fmt.Errorf("validate: qlearning: %v", err)
	}
	return nil
}

// PPOConfig converts the YAML hyperparameters to the agent's Config
func (c Config) PPOConfig() ppo.Config {
	return ppo.Config{
		Gamma:       c.PPO.Gamma,
		Lambda:      c.PPO.Lambda,
		Clip:        c.PPO.Clip,
		StepSize:    c.PPO.StepSize,
		BatchSize:   c.PPO.BatchSize,
		Epochs:      c.PPO.Epochs,
		HiddenSizes: c.PPO.HiddenSizes,
		Seed:        c.PPO.Seed,
	}
}

// QLearningConfig converts the YAML hyperparameters to the agent's
// Config.
func (c Config) QLearningConfig() qlearning.Config {
	return qlearning.Config{
		LearningRate: c.QLearning.LearningRate,
		Gamma:        c.QLearning.Gamma,
		Epsilon:      c.QLearning.Epsilon,
		EpsilonDecay: c.QLearning.EpsilonDecay,
		MinEpsilon:   c.QLearning.MinEpsilon,
		Seed:         c.QLearning.Seed,
	}
}
