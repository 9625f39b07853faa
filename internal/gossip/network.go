// Package gossip carries transactions and blocks between rcn nodes over
// libp2p floodsub. Every node joins the "blocks" and "transactions" topics;
// payloads are JSON Envelopes. Delivery is best effort: there is no
// acknowledgement, retry, ordering or history sync for late joiners.
package gossip

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"sync"

	libp2p "github.com/libp2p/go-libp2p"
	crypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	pubsub "github.com/libp2p/go-libp2p-pubsub"

	"riacoin.node/rcn/internal/types"
)

const (
	TopicBlocks       = "blocks"
	TopicTransactions = "transactions"
)

// Handler receives decoded messages published by other nodes.
type Handler interface {
	HandleTransaction(ctx context.Context, tx *types.Transaction)
	HandleBlock(ctx context.Context, block *types.Block)
}

// NewHost starts a libp2p host listening on listenAddrs with a fresh
// ed25519 transport key. The transport key is unrelated to the wallet key.
func NewHost(listenAddrs []string) (host.Host, error) {
	priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate transport key: %w", err)
	}
	opts := []libp2p.Option{libp2p.Identity(priv)}
	if len(listenAddrs) > 0 {
		opts = append(opts, libp2p.ListenAddrStrings(listenAddrs...))
	}
	h, err := libp2p.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start libp2p host: %w", err)
	}
	return h, nil
}

// Network is a node's membership in the two gossip topics.
type Network struct {
	host   host.Host
	ps     *pubsub.PubSub
	blocks *pubsub.Topic
	txs    *pubsub.Topic

	blockSub *pubsub.Subscription
	txSub    *pubsub.Subscription
}

// New attaches floodsub to h and joins both topics. Subscriptions are
// opened immediately so nothing published after New returns is missed;
// messages are buffered until Run is called.
func New(ctx context.Context, h host.Host) (*Network, error) {
	ps, err := pubsub.NewFloodSub(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("failed to start floodsub: %w", err)
	}
	n := &Network{host: h, ps: ps}

	if n.blocks, err = ps.Join(TopicBlocks); err != nil {
		return nil, fmt.Errorf("failed to join %s: %w", TopicBlocks, err)
	}
	if n.txs, err = ps.Join(TopicTransactions); err != nil {
		return nil, fmt.Errorf("failed to join %s: %w", TopicTransactions, err)
	}
	if n.blockSub, err = n.blocks.Subscribe(); err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", TopicBlocks, err)
	}
	if n.txSub, err = n.txs.Subscribe(); err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", TopicTransactions, err)
	}
	return n, nil
}

// PublishTransaction publishes tx on the transactions topic.
func (n *Network) PublishTransaction(ctx context.Context, tx *types.Transaction) error {
	return n.publish(ctx, n.txs, &Envelope{Transaction: tx})
}

// PublishBlock publishes block on the blocks topic.
func (n *Network) PublishBlock(ctx context.Context, block *types.Block) error {
	return n.publish(ctx, n.blocks, &Envelope{Block: block})
}

func (n *Network) publish(ctx context.Context, topic *pubsub.Topic, env *Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return err
	}
	if err := topic.Publish(ctx, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic.String(), err)
	}
	return nil
}

// Run delivers inbound messages to h until ctx is cancelled. Messages this
// node published itself are skipped, as are payloads that fail to decode.
func (n *Network) Run(ctx context.Context, h Handler) {
	var wg sync.WaitGroup
	for _, sub := range []*pubsub.Subscription{n.blockSub, n.txSub} {
		wg.Add(1)
		go func(sub *pubsub.Subscription) {
			defer wg.Done()
			n.consume(ctx, sub, h)
		}(sub)
	}
	wg.Wait()
}

func (n *Network) consume(ctx context.Context, sub *pubsub.Subscription, h Handler) {
	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, pubsub.ErrSubscriptionCancelled) {
				log.Printf("gossip: %s subscription ended: %v", sub.Topic(), err)
			}
			return
		}
		if msg.ReceivedFrom == n.host.ID() {
			continue
		}

		env, err := DecodeEnvelope(msg.Data)
		if err != nil {
			log.Printf("gossip: dropping message from %s on %s: %v", msg.ReceivedFrom, sub.Topic(), err)
			continue
		}
		if env.Transaction != nil {
			h.HandleTransaction(ctx, env.Transaction)
		} else {
			h.HandleBlock(ctx, env.Block)
		}
	}
}

// Peers lists the peers currently subscribed to either topic.
func (n *Network) Peers() []peer.ID {
	seen := make(map[peer.ID]struct{})
	var out []peer.ID
	for _, topic := range []string{TopicBlocks, TopicTransactions} {
		for _, p := range n.ps.ListPeers(topic) {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				out = append(out, p)
			}
		}
	}
	return out
}

// Close cancels both subscriptions. The host is left running and must be
// closed by its owner.
func (n *Network) Close() {
	n.blockSub.Cancel()
	n.txSub.Cancel()
}
