package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for the assistant.
type ConversationMetrics struct {
	turnsTotal      *prometheus.CounterVec
	turnLatency     *prometheus.HistogramVec
	providerCalls   *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	indexChunks     prometheus.Gauge
	indexReloads    *prometheus.CounterVec
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hmo",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Total conversation turns by branch",
		}, []string{"branch"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hmo",
			Subsystem: "conversation",
			Name:      "turn_latency_seconds",
			Help:      "Latency of a full conversation turn",
			Buckets:   prometheus.DefBuckets,
		}, []string{"branch"}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hmo",
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Total completion/embedding provider calls",
		}, []string{"provider", "op", "status"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hmo",
			Subsystem: "provider",
			Name:      "call_latency_seconds",
			Help:      "Latency of completion/embedding provider calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "op"}),
		indexChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hmo",
			Subsystem: "knowledge",
			Name:      "index_chunks",
			Help:      "Number of chunks in the active knowledge index",
		}),
		indexReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hmo",
			Subsystem: "knowledge",
			Name:      "index_reloads_total",
			Help:      "Knowledge index reload attempts",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.turnLatency, m.providerCalls, m.providerLatency, m.indexChunks, m.indexReloads)
	return m
}

func (m *ConversationMetrics) ObserveTurn(branch string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(branch).Inc()
	m.turnLatency.WithLabelValues(branch).Observe(seconds)
}

func (m *ConversationMetrics) ObserveProviderCall(provider, op string, err error, seconds float64) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.providerCalls.WithLabelValues(provider, op, status).Inc()
	m.providerLatency.WithLabelValues(provider, op).Observe(seconds)
}

func (m *ConversationMetrics) SetIndexChunks(n int) {
	if m == nil {
		return
	}
	m.indexChunks.Set(float64(n))
}

func (m *ConversationMetrics) ObserveIndexReload(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.indexReloads.WithLabelValues(status).Inc()
}
