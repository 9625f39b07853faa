// Package discovery finds other rcn nodes on the local network with libp2p
// mDNS and keeps a thread-safe PeerStore of the peers this node is
// connected to. Discovered peers are dialed immediately; once connected,
// the gossip layer exchanges topic subscriptions with them.
package discovery

import (
	"sort"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// Source records how a peer became known.
type Source string

const (
	SourceMDNS      Source = "mdns"
	SourceBootstrap Source = "bootstrap"
	SourceInbound   Source = "inbound"
)

// Peer represents a known remote node.
type Peer struct {
	ID        peer.ID
	Addrs     []ma.Multiaddr
	Source    Source
	FirstSeen time.Time
}

// PeerStore is a thread-safe store of peers keyed by peer ID.
type PeerStore struct {
	mtx   sync.RWMutex
	peers map[peer.ID]*Peer
}

// NewPeerStore creates an empty PeerStore.
func NewPeerStore() *PeerStore {
	return &PeerStore{peers: make(map[peer.ID]*Peer)}
}

// Add records a peer, or refreshes its addresses if it is already known.
// The first recorded source and first-seen time are kept.
func (ps *PeerStore) Add(info peer.AddrInfo, source Source) {
	ps.mtx.Lock()
	defer ps.mtx.Unlock()

	if p, ok := ps.peers[info.ID]; ok {
		if len(info.Addrs) > 0 {
			p.Addrs = append([]ma.Multiaddr(nil), info.Addrs...)
		}
		return
	}
	ps.peers[info.ID] = &Peer{
		ID:        info.ID,
		Addrs:     append([]ma.Multiaddr(nil), info.Addrs...),
		Source:    source,
		FirstSeen: time.Now(),
	}
}

// Remove removes a peer by ID.
func (ps *PeerStore) Remove(id peer.ID) {
	ps.mtx.Lock()
	defer ps.mtx.Unlock()
	delete(ps.peers, id)
}

// Has reports whether id is known.
func (ps *PeerStore) Has(id peer.ID) bool {
	ps.mtx.RLock()
	defer ps.mtx.RUnlock()
	_, ok := ps.peers[id]
	return ok
}

// Len returns the number of known peers.
func (ps *PeerStore) Len() int {
	ps.mtx.RLock()
	defer ps.mtx.RUnlock()
	return len(ps.peers)
}

// List returns a snapshot of known peers ordered by ID.
func (ps *PeerStore) List() []Peer {
	ps.mtx.RLock()
	defer ps.mtx.RUnlock()
	out := make([]Peer, 0, len(ps.peers))
	for _, p := range ps.peers {
		cp := *p
		cp.Addrs = append([]ma.Multiaddr(nil), p.Addrs...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Addresses returns full /p2p multiaddr strings usable as bootstrap peers,
// one per known address.
func (ps *PeerStore) Addresses() []string {
	var out []string
	for _, p := range ps.List() {
		addrs, err := peer.AddrInfoToP2pAddrs(&peer.AddrInfo{ID: p.ID, Addrs: p.Addrs})
		if err != nil {
			continue
		}
		for _, a := range addrs {
			out = append(out, a.String())
		}
	}
	return out
}
