package discovery

import (
	"context"
	"log"
	"time"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
)

// DefaultServiceName is the mDNS service tag rcn nodes announce and browse.
const DefaultServiceName = "riacoin-mdns"

const connectTimeout = 10 * time.Second

// DiscoveryService announces the local host over mDNS, dials every peer it
// finds and tracks connected peers in a PeerStore. Peers are removed when
// their last connection closes.
type DiscoveryService struct {
	host        host.Host
	serviceName string
	peerStore   *PeerStore
	mdns        mdns.Service
	notifiee    *network.NotifyBundle
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewDiscoveryService creates a discovery service for h. It does nothing
// until Start is called.
func NewDiscoveryService(h host.Host, serviceName string) *DiscoveryService {
	if serviceName == "" {
		serviceName = DefaultServiceName
	}
	return &DiscoveryService{
		host:        h,
		serviceName: serviceName,
		peerStore:   NewPeerStore(),
	}
}

// Start begins tracking connections and, when enableMDNS is set, announces
// the host and browses for other nodes.
func (s *DiscoveryService) Start(ctx context.Context, enableMDNS bool) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.notifiee = &network.NotifyBundle{
		ConnectedF: func(_ network.Network, c network.Conn) {
			s.peerStore.Add(peer.AddrInfo{ID: c.RemotePeer()}, SourceInbound)
		},
		DisconnectedF: func(n network.Network, c network.Conn) {
			if n.Connectedness(c.RemotePeer()) != network.Connected {
				log.Printf("mDNS: Peer disconnected: %s", c.RemotePeer())
				s.peerStore.Remove(c.RemotePeer())
			}
		},
	}
	s.host.Network().Notify(s.notifiee)
	for _, c := range s.host.Network().Conns() {
		s.peerStore.Add(peer.AddrInfo{ID: c.RemotePeer()}, SourceInbound)
	}

	if !enableMDNS {
		log.Println("mDNS: Discovery disabled; relying on bootstrap peers")
		return nil
	}

	s.mdns = mdns.NewMdnsService(s.host, s.serviceName, s)
	if err := s.mdns.Start(); err != nil {
		return err
	}
	log.Printf("mDNS: Announced service %s for peer %s", s.serviceName, s.host.ID())
	return nil
}

// HandlePeerFound is called by the mDNS service for every discovered peer.
func (s *DiscoveryService) HandlePeerFound(info peer.AddrInfo) {
	if info.ID == s.host.ID() {
		return
	}
	log.Printf("mDNS: Peer discovered: %s (%d addrs)", info.ID, len(info.Addrs))
	s.Connect(info, SourceMDNS)
}

// Connect records info under source and dials it. Peers that cannot be
// reached are dropped from the store.
func (s *DiscoveryService) Connect(info peer.AddrInfo, source Source) {
	s.peerStore.Add(info, source)
	go func() {
		parent := s.ctx
		if parent == nil {
			parent = context.Background()
		}
		ctx, cancel := context.WithTimeout(parent, connectTimeout)
		defer cancel()
		if err := s.host.Connect(ctx, info); err != nil {
			log.Printf("mDNS: Failed to connect to %s: %v", info.ID, err)
			if s.host.Network().Connectedness(info.ID) != network.Connected {
				s.peerStore.Remove(info.ID)
			}
		}
	}()
}

// GetPeers returns a snapshot of connected peers.
func (s *DiscoveryService) GetPeers() []Peer {
	return s.peerStore.List()
}

// PeerStore returns the underlying store.
func (s *DiscoveryService) PeerStore() *PeerStore {
	return s.peerStore
}

// Stop shuts down mDNS and stops tracking connections.
func (s *DiscoveryService) Stop() {
	log.Println("mDNS: Stopping service discovery...")
	if s.cancel != nil {
		s.cancel()
	}
	if s.mdns != nil {
		if err := s.mdns.Close(); err != nil {
			log.Printf("mDNS: close: %v", err)
		}
	}
	if s.notifiee != nil {
		s.host.Network().StopNotify(s.notifiee)
	}
}
