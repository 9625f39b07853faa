package discovery

import (
	"fmt"

	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// ParsePeerAddr parses a full /ip4/.../tcp/.../p2p/<id> multiaddr.
func ParsePeerAddr(addr string) (*peer.AddrInfo, error) {
	maddr, err := ma.NewMultiaddr(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid multiaddr %q: %w", addr, err)
	}
	info, err := peer.AddrInfoFromP2pAddr(maddr)
	if err != nil {
		return nil, fmt.Errorf("multiaddr %q has no peer id: %w", addr, err)
	}
	return info, nil
}

// Bootstrap dials every configured peer address in the background. It
// returns an error for the first address that cannot be parsed; addresses
// before it have already been dialed.
func (s *DiscoveryService) Bootstrap(addrs []string) error {
	for _, addr := range addrs {
		info, err := ParsePeerAddr(addr)
		if err != nil {
			return err
		}
		if info.ID == s.host.ID() {
			continue
		}
		s.Connect(*info, SourceBootstrap)
	}
	return nil
}
