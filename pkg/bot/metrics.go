package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Replies       *prometheus.CounterVec
	Posts         *prometheus.CounterVec
	Follows       *prometheus.CounterVec
	LoopErrors    *prometheus.CounterVec
	ProcessedURIs prometheus.Gauge
}

// NewMetrics registers the bot's collectors on reg. A nil reg leaves them
// unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Replies: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "therapypunch_replies_total",
			Help: "Notifications handled, by outcome.",
		}, []string{"outcome"}),
		Posts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "therapypunch_posts_total",
			Help: "Scheduled post attempts, by result.",
		}, []string{"result"}),
		Follows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "therapypunch_follows_total",
			Help: "Follow-back attempts, by result.",
		}, []string{"result"}),
		LoopErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "therapypunch_loop_errors_total",
			Help: "Failed or panicked loop iterations.",
		}, []string{"loop"}),
		ProcessedURIs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "therapypunch_processed_uris",
			Help: "Size of the processed URI set.",
		}),
	}
}
