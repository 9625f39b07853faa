package gossip

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	mocknet "github.com/libp2p/go-libp2p/p2p/net/mock"

	"riacoin.node/rcn/internal/identity"
	"riacoin.node/rcn/internal/types"
)

func TestEnvelopeShape(t *testing.T) {
	tx := types.NewTransactionAt(identity.Generate(), "bob", types.NewAmount(1), 0, nil, 42)

	data, err := (&Envelope{Transaction: tx}).Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.HasPrefix(string(data), `{"Transaction":{`) {
		t.Fatalf("unexpected wire form: %s", data)
	}

	env, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Block != nil || env.Transaction == nil || env.Transaction.ID != tx.ID || !env.Transaction.IsValid() {
		t.Fatalf("decoded envelope does not carry the transaction: %+v", env)
	}

	block := types.NewBlockAt(1, []types.Transaction{*tx}, "prev", "v", 7)
	data, err = (&Envelope{Block: block}).Encode()
	if err != nil {
		t.Fatalf("encode block: %v", err)
	}
	if !strings.HasPrefix(string(data), `{"Block":{`) {
		t.Fatalf("unexpected wire form: %s", data)
	}
	env, err = DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("decode block: %v", err)
	}
	if env.Block == nil || env.Block.Hash != block.Hash || env.Block.CalculateHash() != block.Hash {
		t.Fatal("block hash did not survive the wire")
	}
}

func TestEnvelopeRejectsBadShapes(t *testing.T) {
	if _, err := (&Envelope{}).Encode(); !errors.Is(err, ErrEmptyEnvelope) {
		t.Fatalf("empty encode: %v", err)
	}
	both := &Envelope{Block: &types.Block{}, Transaction: &types.Transaction{}}
	if _, err := both.Encode(); !errors.Is(err, ErrAmbiguousEnvelope) {
		t.Fatalf("ambiguous encode: %v", err)
	}

	for _, raw := range []string{`{}`, `not json`, `{"Block":{},"Transaction":{}}`, `{"Vote":{}}`} {
		if _, err := DecodeEnvelope([]byte(raw)); err == nil {
			t.Errorf("decode %q succeeded", raw)
		}
	}
}

type recorder struct {
	mu     sync.Mutex
	txs    []*types.Transaction
	blocks []*types.Block
}

func (r *recorder) HandleTransaction(_ context.Context, tx *types.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs = append(r.txs, tx)
}

func (r *recorder) HandleBlock(_ context.Context, b *types.Block) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks = append(r.blocks, b)
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.txs), len(r.blocks)
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

func TestGossipBetweenTwoHosts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mn := mocknet.New()
	defer mn.Close()
	ha, err := mn.GenPeer()
	if err != nil {
		t.Fatal(err)
	}
	hb, err := mn.GenPeer()
	if err != nil {
		t.Fatal(err)
	}
	if err := mn.LinkAll(); err != nil {
		t.Fatal(err)
	}
	if err := mn.ConnectAllButSelf(); err != nil {
		t.Fatal(err)
	}

	a, err := New(ctx, ha)
	if err != nil {
		t.Fatalf("network a: %v", err)
	}
	defer a.Close()
	b, err := New(ctx, hb)
	if err != nil {
		t.Fatalf("network b: %v", err)
	}
	defer b.Close()

	recA, recB := &recorder{}, &recorder{}
	go a.Run(ctx, recA)
	go b.Run(ctx, recB)

	waitFor(t, "topic peers", func() bool { return len(a.Peers()) == 1 && len(b.Peers()) == 1 })

	w := identity.Generate()
	tx := types.NewTransaction(w, "bob", types.NewAmount(3), 1, nil)
	if err := a.PublishTransaction(ctx, tx); err != nil {
		t.Fatalf("publish tx: %v", err)
	}
	block := types.NewBlock(1, []types.Transaction{*tx}, "prev", "v")
	if err := a.PublishBlock(ctx, block); err != nil {
		t.Fatalf("publish block: %v", err)
	}

	// Garbage is logged and dropped without stopping the consumer.
	if err := a.txs.Publish(ctx, []byte("garbage")); err != nil {
		t.Fatalf("publish garbage: %v", err)
	}

	waitFor(t, "delivery to b", func() bool {
		txs, blocks := recB.counts()
		return txs == 1 && blocks == 1
	})
	recB.mu.Lock()
	if recB.txs[0].ID != tx.ID || recB.blocks[0].Hash != block.Hash {
		t.Error("b received different payloads than were published")
	}
	recB.mu.Unlock()

	// b's consumer is still alive after the garbage message.
	tx2 := types.NewTransaction(w, "carol", types.NewAmount(1), 0, nil)
	if err := a.PublishTransaction(ctx, tx2); err != nil {
		t.Fatalf("publish second tx: %v", err)
	}
	waitFor(t, "second delivery", func() bool {
		txs, _ := recB.counts()
		return txs == 2
	})

	// The publisher never receives its own messages.
	time.Sleep(100 * time.Millisecond)
	if txs, blocks := recA.counts(); txs != 0 || blocks != 0 {
		t.Fatalf("publisher received its own messages: %d txs, %d blocks", txs, blocks)
	}
}
