package stats

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Metrics holds the Prometheus collectors mirroring the Tracker
type Metrics struct {
	decisions  *prometheus.CounterVec
	archetypes *prometheus.CounterVec
	rounds     prometheus.Counter
	games      prometheus.Counter
	finalScore prometheus.Gauge
	meanReward prometheus.Gauge
}

// NewMetrics creates and registers the collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_decisions_total",
				Help: "Decisions made, by choice",
			},
			[]string{"choice"},
		),
		archetypes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_archetype_observations_total",
				Help: "Opponent archetype classifications, by archetype",
			},
			[]string{"archetype"},
		),
		rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_rounds_total",
			Help: "Completed rounds",
		}),
		games: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_games_total",
			Help: "Finished games",
		}),
		finalScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_last_final_score",
			Help: "Final score of the most recent game",
		}),
		meanReward: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_mean_reward_last_100",
			Help: "Mean shaped reward over the last 100 rounds",
		}),
	}

	reg.MustRegister(m.decisions, m.archetypes, m.rounds, m.games,
		m.finalScore, m.meanReward)
	return m
}

// Serve exposes the default registry's metrics on addr under /metrics.
// The server runs in its own goroutine; errors are logged, not fatal.
func Serve(addr string, log logrus.FieldLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("serving metrics")
		if err := server.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server failed")
		}
	}()
}
