package api

import (
	"fmt"
	"net/http"
	"os"
	"runtime"

	"riacoin.node/rcn/internal/types"
)

// @Title: Get Health
// @Route: GET /api/health
// @Description: Returns server health status
// @Response: {"status": "ok"}
func (s *Service) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// @Title: Get Version
// @Route: GET /api/version
// @Description: Returns rcn version and this node's wallet address
// @Response: {"version": "...", "status": "ok", "address": "..."}
func (s *Service) HandleVersion(w http.ResponseWriter, r *http.Request) {
	hostname, _ := os.Hostname()

	s.writeJSON(w, http.StatusOK, map[string]string{
		"version":    types.Version,
		"build_time": types.BuildTime,
		"status":     "ok",
		"hostname":   hostname,
		"address":    s.node.Address(),
		"go_ver":     runtime.Version(),
		"os_arch":    fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	})
}

// @Title: Get Status
// @Route: GET /api/status
// @Description: Returns wallet address, balance, pending count, chain height, head hash and peer count
// @Response: {"address": "...", "balance": "10.5", "pending": 0, "height": 3, "head_hash": "...", "peers": 2}
func (s *Service) HandleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.node.Status())
}

type peerView struct {
	ID        string   `json:"id"`
	Addrs     []string `json:"addrs"`
	Source    string   `json:"source"`
	FirstSeen string   `json:"first_seen"`
}

// @Title: List Peers
// @Route: GET /api/peers
// @Description: Returns the peers this node is connected to
// @Response: [{"id": "12D3Koo...", "addrs": ["/ip4/..."], "source": "mdns", "first_seen": "..."}]
func (s *Service) HandlePeers(w http.ResponseWriter, r *http.Request) {
	peers := s.node.Peers()
	out := make([]peerView, 0, len(peers))
	for _, p := range peers {
		v := peerView{
			ID:        p.ID.String(),
			Source:    string(p.Source),
			FirstSeen: p.FirstSeen.UTC().Format("2006-01-02T15:04:05Z"),
			Addrs:     make([]string, 0, len(p.Addrs)),
		}
		for _, a := range p.Addrs {
			v.Addrs = append(v.Addrs, a.String())
		}
		out = append(out, v)
	}
	s.writeJSON(w, http.StatusOK, out)
}
