package coordinator

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"go.loomcache.dev/loom/metrics"
	"go.loomcache.dev/loom/spec/topology"
)

type topologyView struct {
	TopologyID     int                `json:"topologyId"`
	Members        []topology.Address `json:"members"`
	CurrentMembers []topology.Address `json:"currentMembers,omitempty"`
	PendingMembers []topology.Address `json:"pendingMembers,omitempty"`
	Balanced       bool               `json:"balanced"`
}

func adminRouter(policy topology.RebalancePolicy) http.Handler {
	r := chi.NewRouter()
	r.Get("/metrics", metrics.Handler)
	r.Get("/topology/{cache}", func(w http.ResponseWriter, req *http.Request) {
		t := policy.GetTopology(chi.URLParam(req, "cache"))
		if t == nil {
			http.Error(w, "cache not found", http.StatusNotFound)
			return
		}
		view := topologyView{
			TopologyID: t.TopologyID,
			Members:    t.Members(),
			Balanced:   topology.IsBalanced(t.CurrentCH),
		}
		if t.CurrentCH != nil {
			view.CurrentMembers = t.CurrentCH.Members()
		}
		if t.PendingCH != nil {
			view.PendingMembers = t.PendingCH.Members()
		}
		w.Header().Set("content-type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(&view)
	})
	return r
}
