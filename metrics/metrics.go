package metrics

import (
	"fmt"
	"net/http"

	"github.com/VictoriaMetrics/metrics"
)

var metricSet = metrics.NewSet()

// Handler serves the process and coordinator metrics in Prometheus text
// format.
func Handler(w http.ResponseWriter, _ *http.Request) {
	metricSet.WritePrometheus(w)
	metrics.WriteProcessMetrics(w)
}

func RebalanceTriggered(cache string) {
	metricSet.GetOrCreateCounter(fmt.Sprintf(`loom_rebalances_triggered_total{cache=%q}`, cache)).Inc()
}

func RebalanceCompleted(cache string) {
	metricSet.GetOrCreateCounter(fmt.Sprintf(`loom_rebalances_completed_total{cache=%q}`, cache)).Inc()
}

func TopologyInstalled(cache string, topologyID int) {
	metricSet.GetOrCreateCounter(fmt.Sprintf(`loom_topology_id{cache=%q}`, cache)).Set(uint64(topologyID))
}
