package liquidity

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"liquidityLock/internal/model"
)

// Metrics holds the Prometheus collectors of the pipeline. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	StageDuration *prometheus.HistogramVec
	Outcomes      *prometheus.CounterVec
	TxSubmitted   *prometheus.CounterVec
	QueueWait     *prometheus.HistogramVec
	InFlight      *prometheus.GaugeVec
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	return &Metrics{
		StageDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "liquidity_stage_duration_seconds",
			Help:      "Time spent in each liquidity pipeline stage.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"chain", "stage"}),

		Outcomes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "liquidity_outcomes_total",
			Help:      "Liquidity outcomes by chain and error kind (empty kind is success).",
		}, []string{"chain", "kind"}),

		TxSubmitted: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "liquidity_transactions_submitted_total",
			Help:      "State-changing transactions accepted by the node.",
		}, []string{"chain", "method"}),

		QueueWait: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "liquidity_signer_queue_wait_seconds",
			Help:      "Time a request waited for its chain signer.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"chain"}),

		InFlight: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "liquidity_requests_in_flight",
			Help:      "Requests currently holding a chain signer.",
		}, []string{"chain"}),
	}
}

func (m *Metrics) observeStage(chain, stage string, started time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(chain, stage).Observe(time.Since(started).Seconds())
}

func (m *Metrics) outcome(chain string, kind model.ErrorKind) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(chain, string(kind)).Inc()
}

func (m *Metrics) txSubmitted(chain, method string) {
	if m == nil {
		return
	}
	m.TxSubmitted.WithLabelValues(chain, method).Inc()
}

func (m *Metrics) queueWait(chain string, started time.Time) {
	if m == nil {
		return
	}
	m.QueueWait.WithLabelValues(chain).Observe(time.Since(started).Seconds())
}

func (m *Metrics) inFlight(chain string, delta float64) {
	if m == nil {
		return
	}
	m.InFlight.WithLabelValues(chain).Add(delta)
}
