package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/trustpvp/botgo/agent"
	"github.com/trustpvp/botgo/agent/ppo"
	"github.com/trustpvp/botgo/agent/qlearning"
	"github.com/trustpvp/botgo/bot"
	"github.com/trustpvp/botgo/client"
	"github.com/trustpvp/botgo/config"
	"github.com/trustpvp/botgo/game"
	"github.com/trustpvp/botgo/stats"
)

var rootCmd = &cobra.Command{
	Use:   "botgo",
	Short: "botgo plays the TrustPVP trust game with a learning agent",
	Long: `botgo connects to a TrustPVP game server and plays the repeated
cooperate/betray trust game, training its policy as it goes. Progress
is persisted between runs and reported through logs, plots, and
optional Prometheus metrics.`,
	SilenceUsage: true,
	RunE:         runBot,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.Flags()
	flags.String("config", "", "YAML configuration file")
	flags.String("server", "", "Game server URL")
	flags.String("name", "", "Player name")
	flags.String("agent", "", "Agent kind: ppo or qlearning")
	flags.String("models-dir", "", "Directory for saved model parameters")
	flags.String("plot-dir", "", "Directory for progress plots")
	flags.Int("save-interval", 0, "Games between model saves")
	flags.String("log-level", "", "Log level: debug, info, warn, or error")
	flags.String("metrics-addr", "",
		"Listen address for Prometheus metrics, e.g. :2112")
	flags.Bool("no-load", false, "Skip loading saved models at startup")
}

// protocolSender adapts the game protocol to the bot's choice sink.
// The protocol is wired in after both sides exist.
type protocolSender struct {
	protocol *client.TrustPVP
}

func (s *protocolSender) MakeChoice(ctx context.Context,
	choice game.Choice) error {
	return s.protocol.MakeChoice(ctx, choice)
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	log.SetLevel(level)

	var metrics *stats.Metrics
	if cfg.MetricsAddr != "" {
		metrics = stats.NewMetrics(prometheus.DefaultRegisterer)
		stats.Serve(cfg.MetricsAddr, log)
	}
	tracker := stats.NewTracker(log, cfg.PlotDir, metrics)

	a, err := newAgent(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt,
		syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	conn, err := client.Dial(dialCtx, cfg.Server, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	sender := &protocolSender{}
	b := bot.New(a, sender, tracker, cfg.ModelsDir, cfg.SaveInterval, log)
	sender.protocol = client.NewTrustPVP(conn, cfg.PlayerName, b.Callbacks(),
		log)

	if noLoad, _ := cmd.Flags().GetBool("no-load"); !noLoad {
		b.LoadModels()
	}

	log.WithFields(logrus.Fields{
		"server": cfg.Server,
		"name":   cfg.PlayerName,
		"agent":  cfg.Agent,
	}).Info("starting")

	if err := sender.protocol.JoinGame(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case <-conn.Done():
		if err := conn.Err(); err != nil {
			log.WithError(err).Error("connection lost")
		}
	}

	b.SaveModels()
	tracker.Report()
	return nil
}

// loadConfig layers the command-line flags over the configuration file
// and the defaults.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.Server, _ = flags.GetString("server")
	}
	if flags.Changed("name") {
		cfg.PlayerName, _ = flags.GetString("name")
	}
	if flags.Changed("agent") {
		cfg.Agent, _ = flags.GetString("agent")
	}
	if flags.Changed("models-dir") {
		cfg.ModelsDir, _ = flags.GetString("models-dir")
	}
	if flags.Changed("plot-dir") {
		cfg.PlotDir, _ = flags.GetString("plot-dir")
	}
	if flags.Changed("save-interval") {
		cfg.SaveInterval, _ = flags.GetInt("save-interval")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr, _ = flags.GetString("metrics-addr")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newAgent builds the configured learning agent
func newAgent(cfg config.Config) (agent.Agent, error) {
	switch cfg.Agent {
	case config.AgentPPO:
		a, err := ppo.New(game.StateDim, game.NumActions, cfg.PPOConfig())
		if err != nil {
			return nil, err
		}
		return a, nil
	case config.AgentQLearning:
		a, err := qlearning.New(game.StateDim, game.NumActions,
			cfg.QLearningConfig())
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown agent %q", cfg.Agent)
	}
}
