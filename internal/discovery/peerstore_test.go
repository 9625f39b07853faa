package discovery

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	mocknet "github.com/libp2p/go-libp2p/p2p/net/mock"
	ma "github.com/multiformats/go-multiaddr"
)

func TestPeerStoreAddAndList(t *testing.T) {
	ps := NewPeerStore()

	addr := ma.StringCast("/ip4/192.0.2.10/tcp/4001")
	ps.Add(peer.AddrInfo{ID: peer.ID("node-1"), Addrs: []ma.Multiaddr{addr}}, SourceMDNS)

	peers := ps.List()
	if len(peers) != 1 {
		t.Fatalf("expected 1 peer, got %d", len(peers))
	}
	p := peers[0]
	if p.ID != peer.ID("node-1") {
		t.Errorf("unexpected id: %s", p.ID)
	}
	if p.Source != SourceMDNS {
		t.Errorf("unexpected source: %s", p.Source)
	}
	if len(p.Addrs) != 1 || !p.Addrs[0].Equal(addr) {
		t.Errorf("unexpected address: %+v", p.Addrs)
	}
	if p.FirstSeen.IsZero() {
		t.Error("first seen not set")
	}
}

func TestPeerStoreKeepsSourceOnRefresh(t *testing.T) {
	ps := NewPeerStore()
	id := peer.ID("node-1")
	ps.Add(peer.AddrInfo{ID: id}, SourceBootstrap)

	fresh := ma.StringCast("/ip4/192.0.2.11/tcp/4002")
	ps.Add(peer.AddrInfo{ID: id, Addrs: []ma.Multiaddr{fresh}}, SourceInbound)

	p := ps.List()[0]
	if p.Source != SourceBootstrap {
		t.Errorf("source overwritten: %s", p.Source)
	}
	if len(p.Addrs) != 1 || !p.Addrs[0].Equal(fresh) {
		t.Errorf("addresses not refreshed: %v", p.Addrs)
	}

	// An address-less refresh keeps what is known.
	ps.Add(peer.AddrInfo{ID: id}, SourceInbound)
	if len(ps.List()[0].Addrs) != 1 {
		t.Error("address-less refresh dropped addresses")
	}
}

func TestPeerStoreConcurrency(t *testing.T) {
	ps := NewPeerStore()
	var wg sync.WaitGroup
	add := func(id string) {
		defer wg.Done()
		ps.Add(peer.AddrInfo{ID: peer.ID(id)}, SourceMDNS)
	}
	remove := func(id string) {
		defer wg.Done()
		ps.Remove(peer.ID(id))
	}

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go add(fmt.Sprintf("node-%d", i))
	}
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go remove(fmt.Sprintf("node-%d", i))
	}
	wg.Wait()

	// Removes may land before or after their adds.
	if n := ps.Len(); n < 25 || n > 50 {
		t.Fatalf("expected between 25 and 50 peers remaining, got %d", n)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDiscoveryTracksConnections(t *testing.T) {
	mn := mocknet.New()
	defer mn.Close()

	a, err := mn.GenPeer()
	if err != nil {
		t.Fatal(err)
	}
	b, err := mn.GenPeer()
	if err != nil {
		t.Fatal(err)
	}
	if err := mn.LinkAll(); err != nil {
		t.Fatal(err)
	}

	svc := NewDiscoveryService(a, "")
	if err := svc.Start(context.Background(), false); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Stop()

	// Finding ourselves is ignored.
	svc.HandlePeerFound(peer.AddrInfo{ID: a.ID(), Addrs: a.Addrs()})
	if svc.PeerStore().Has(a.ID()) {
		t.Fatal("self added to peer store")
	}

	svc.HandlePeerFound(peer.AddrInfo{ID: b.ID(), Addrs: b.Addrs()})
	waitFor(t, "connection", func() bool { return len(a.Network().ConnsToPeer(b.ID())) > 0 })

	peers := svc.GetPeers()
	if len(peers) != 1 || peers[0].ID != b.ID() || peers[0].Source != SourceMDNS {
		t.Fatalf("unexpected peers %+v", peers)
	}
	if len(svc.PeerStore().Addresses()) == 0 {
		t.Fatal("no p2p addresses for connected peer")
	}

	if err := mn.DisconnectPeers(a.ID(), b.ID()); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	waitFor(t, "removal", func() bool { return !svc.PeerStore().Has(b.ID()) })
}
