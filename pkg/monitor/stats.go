package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// WorkloadStats counts index traffic on a private Prometheus registry, so
// several instances can live in one process (tests, embedded servers).
type WorkloadStats struct {
	registry *prometheus.Registry

	reads      prometheus.Counter
	writes     prometheus.Counter
	hits       prometheus.Counter
	divergence prometheus.Counter
}

func NewWorkloadStats() *WorkloadStats {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &WorkloadStats{
		registry: reg,
		reads: factory.NewCounter(prometheus.CounterOpts{
			Name: "contactdb_reads_total",
			Help: "Index reads: listings, searches and store lookups",
		}),
		writes: factory.NewCounter(prometheus.CounterOpts{
			Name: "contactdb_writes_total",
			Help: "Contact creates, updates and deletes",
		}),
		hits: factory.NewCounter(prometheus.CounterOpts{
			Name: "contactdb_hits_total",
			Help: "Name searches answered by the index",
		}),
		divergence: factory.NewCounter(prometheus.CounterOpts{
			Name: "contactdb_divergence_total",
			Help: "Store writes the index could not mirror",
		}),
	}
}

// IndexGauges is what the gauge funcs sample.
type IndexGauges interface {
	Len() int
	Height() int
	Rotations() uint64
}

// RegisterIndexGauges exposes the size, height and rotation count of idx.
func (ws *WorkloadStats) RegisterIndexGauges(idx IndexGauges) {
	factory := promauto.With(ws.registry)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "contactdb_index_records",
		Help: "Contacts resident in the index",
	}, func() float64 { return float64(idx.Len()) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "contactdb_index_height",
		Help: "Height of the index tree",
	}, func() float64 { return float64(idx.Height()) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "contactdb_index_rotations",
		Help: "Rotations performed by the index tree",
	}, func() float64 { return float64(idx.Rotations()) })
}

func (ws *WorkloadStats) RecordRead() {
	ws.reads.Inc()
}

func (ws *WorkloadStats) RecordWrite() {
	ws.writes.Inc()
}

func (ws *WorkloadStats) RecordHit() {
	ws.hits.Inc()
}

func (ws *WorkloadStats) RecordDivergence() {
	ws.divergence.Inc()
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Reads      uint64 `json:"reads"`
	Writes     uint64 `json:"writes"`
	Hits       uint64 `json:"hits"`
	Divergence uint64 `json:"divergence"`
}

func (ws *WorkloadStats) Snapshot() Snapshot {
	return Snapshot{
		Reads:      counterValue(ws.reads),
		Writes:     counterValue(ws.writes),
		Hits:       counterValue(ws.hits),
		Divergence: counterValue(ws.divergence),
	}
}

func (ws *WorkloadStats) GetReadWriteRatio() float64 {
	s := ws.Snapshot()
	if s.Writes == 0 {
		if s.Reads > 0 {
			return 100.0
		}
		return 0.0
	}
	return float64(s.Reads) / float64(s.Writes)
}

// Handler serves the registry in the Prometheus exposition format.
func (ws *WorkloadStats) Handler() http.Handler {
	return promhttp.HandlerFor(ws.registry, promhttp.HandlerOpts{Registry: ws.registry})
}

func (ws *WorkloadStats) Registry() *prometheus.Registry {
	return ws.registry
}

func counterValue(c prometheus.Counter) uint64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return uint64(m.GetCounter().GetValue())
}
