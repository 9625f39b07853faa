package node

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"riacoin.node/rcn/internal/discovery"
	"riacoin.node/rcn/internal/identity"
	"riacoin.node/rcn/internal/ledger"
	"riacoin.node/rcn/internal/logger"
	"riacoin.node/rcn/internal/types"
)

// bus is an in-memory gossip stand-in: everything one member publishes is
// delivered synchronously to every other member.
type bus struct {
	members []*Node
}

type busPort struct {
	bus  *bus
	self *Node
	txs  int
	blks int
	fail error
}

func (p *busPort) PublishTransaction(ctx context.Context, tx *types.Transaction) error {
	if p.fail != nil {
		return p.fail
	}
	p.txs++
	for _, m := range p.bus.members {
		if m != p.self {
			m.HandleTransaction(ctx, tx)
		}
	}
	return nil
}

func (p *busPort) PublishBlock(ctx context.Context, block *types.Block) error {
	if p.fail != nil {
		return p.fail
	}
	p.blks++
	for _, m := range p.bus.members {
		if m != p.self {
			m.HandleBlock(ctx, block)
		}
	}
	return nil
}

func (b *bus) join(t *testing.T, validate bool) (*Node, *busPort) {
	t.Helper()
	lg := logger.New(100)
	port := &busPort{bus: b}
	n := New(Options{
		Identity:       identity.Generate(),
		Ledger:         NewLedger(lg),
		Publisher:      port,
		Logger:         lg,
		ValidateBlocks: validate,
	})
	port.self = n
	b.members = append(b.members, n)
	return n, port
}

// fundAll applies the same funding block to every member.
func (b *bus) fundAll(t *testing.T, address string, amount types.Amount) {
	t.Helper()
	head := b.members[0].Ledger().Head()
	block := types.NewBlock(head.Index+1, []types.Transaction{*types.NewCoinbase(address, amount)}, head.Hash, "funder")
	for _, m := range b.members {
		m.Ledger().Apply(block)
	}
}

type memArchive struct {
	mu     sync.Mutex
	blocks []*types.Block
}

func (a *memArchive) Record(_ context.Context, b *types.Block) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.blocks = append(a.blocks, b)
	return nil
}

type staticPeers []discovery.Peer

func (s staticPeers) GetPeers() []discovery.Peer { return s }

func TestTransferReplicatesAcrossNodes(t *testing.T) {
	ctx := context.Background()
	b := &bus{}
	alice, alicePort := b.join(t, false)
	bob, _ := b.join(t, false)
	b.fundAll(t, alice.Address(), types.NewAmount(100))

	tx, err := alice.Transfer(ctx, bob.Address(), types.NewAmount(10), types.NewAmount(1))
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if alicePort.txs != 1 {
		t.Fatalf("published %d transactions, want 1", alicePort.txs)
	}
	if bob.Ledger().PendingCount() != 1 || bob.Ledger().Pending()[0].ID != tx.ID {
		t.Fatal("bob did not admit the gossiped transaction")
	}

	block, err := alice.Mine(ctx)
	if err != nil || block == nil {
		t.Fatalf("mine: %v (%v)", err, block)
	}
	if alicePort.blks != 1 {
		t.Fatalf("published %d blocks, want 1", alicePort.blks)
	}

	for _, n := range []*Node{alice, bob} {
		l := n.Ledger()
		if l.Head().Hash != block.Hash {
			t.Fatalf("%s head = %s, want %s", types.ShortAddress(n.Address()), l.Head().Hash, block.Hash)
		}
		// 100 - 11 spent + 11 reward
		if got := l.BalanceOf(alice.Address()); got != types.NewAmount(100) {
			t.Errorf("alice balance = %s", got)
		}
		if got := l.BalanceOf(bob.Address()); got != types.NewAmount(10) {
			t.Errorf("bob balance = %s", got)
		}
	}

	// Applying a remote block leaves the receiver's pool untouched.
	if bob.Ledger().PendingCount() != 1 {
		t.Fatalf("bob pending = %d, want 1", bob.Ledger().PendingCount())
	}
}

func TestRejectedTransferIsNotPublished(t *testing.T) {
	b := &bus{}
	alice, port := b.join(t, false)
	bob, _ := b.join(t, false)

	_, err := alice.Transfer(context.Background(), bob.Address(), types.NewAmount(1), 0)
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}
	if port.txs != 0 || bob.Ledger().PendingCount() != 0 {
		t.Fatal("rejected transaction reached the network")
	}
	if msgs := alice.Logger().GetRecent(1); len(msgs) != 1 || msgs[0].Level != "warning" {
		t.Fatalf("rejection not logged: %+v", msgs)
	}
}

func TestPublishFailureKeepsLocalAdmission(t *testing.T) {
	b := &bus{}
	alice, port := b.join(t, false)
	b.fundAll(t, alice.Address(), types.NewAmount(5))
	port.fail = errors.New("no peers")

	tx, err := alice.Transfer(context.Background(), "bob", types.NewAmount(1), 0)
	if !errors.Is(err, ErrPublish) || tx == nil {
		t.Fatalf("got tx=%v err=%v, want tx and ErrPublish", tx, err)
	}
	if alice.Ledger().PendingCount() != 1 {
		t.Fatal("locally admitted transaction lost")
	}
}

func TestMintNFTAndVote(t *testing.T) {
	ctx := context.Background()
	b := &bus{}
	alice, _ := b.join(t, false)
	bob, _ := b.join(t, false)
	b.fundAll(t, alice.Address(), types.NewAmount(1))

	if _, err := alice.MintNFT(ctx, "Monkey_#88"); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := alice.Vote(ctx, "proposal-1", "yes"); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := alice.Mine(ctx); err != nil {
		t.Fatalf("mine: %v", err)
	}

	for _, n := range []*Node{alice, bob} {
		owner, ok := n.Ledger().NFTOwner("Monkey_#88")
		if !ok || owner != alice.Address() {
			t.Fatalf("owner on %s = %q (%v)", types.ShortAddress(n.Address()), owner, ok)
		}
	}
	// 1 - 0.1 mint fee + 10.1 reward
	if got, want := alice.Ledger().BalanceOf(alice.Address()), types.NewAmount(11); got != want {
		t.Fatalf("alice balance = %s, want %s", got, want)
	}

	var sawNotice bool
	for _, m := range alice.Logger().GetAll() {
		if strings.HasPrefix(m.Text, "contract: ") && strings.Contains(m.Text, "Monkey_#88") {
			sawNotice = true
		}
	}
	if !sawNotice {
		t.Fatal("contract notice not routed to the operator log")
	}
}

func TestMineEmptyPool(t *testing.T) {
	b := &bus{}
	alice, port := b.join(t, false)
	block, err := alice.Mine(context.Background())
	if block != nil || err != nil {
		t.Fatalf("got %v, %v; want nil, nil", block, err)
	}
	if port.blks != 0 {
		t.Fatal("empty mine published a block")
	}
}

func TestValidatingNodeDropsUnlinkedBlocks(t *testing.T) {
	ctx := context.Background()
	b := &bus{}
	alice, _ := b.join(t, false)
	carol, _ := b.join(t, true)

	// Only alice knows about this funding block, so her next block does not
	// extend carol's head.
	head := alice.Ledger().Head()
	alice.Ledger().Apply(types.NewBlock(head.Index+1,
		[]types.Transaction{*types.NewCoinbase(alice.Address(), types.NewAmount(5))}, head.Hash, "funder"))

	if _, err := alice.Transfer(ctx, "bob", types.NewAmount(1), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := alice.Mine(ctx); err != nil {
		t.Fatal(err)
	}

	if carol.Ledger().Height() != 1 {
		t.Fatalf("validating node applied an unlinked block (height %d)", carol.Ledger().Height())
	}
	if msgs := carol.Logger().GetRecent(1); len(msgs) != 1 || !strings.Contains(msgs[0].Text, "Dropped network block") {
		t.Fatalf("drop not logged: %+v", msgs)
	}
}

func TestInboundBlocksAreArchived(t *testing.T) {
	ctx := context.Background()
	arch := &memArchive{}
	lg := logger.New(10)
	n := New(Options{Identity: identity.Generate(), Ledger: NewLedger(lg), Logger: lg, Archive: arch})

	head := n.Ledger().Head()
	n.HandleBlock(ctx, types.NewBlock(head.Index+1,
		[]types.Transaction{*types.NewCoinbase(n.Address(), types.NewAmount(1))}, head.Hash, "remote"))
	if _, err := n.Transfer(ctx, "bob", 1, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := n.Mine(ctx); err != nil {
		t.Fatal(err)
	}
	if len(arch.blocks) != 2 {
		t.Fatalf("archived %d blocks, want 2", len(arch.blocks))
	}
}

func TestStatus(t *testing.T) {
	lg := logger.New(10)
	n := New(Options{
		Identity: identity.Generate(),
		Ledger:   NewLedger(lg),
		Logger:   lg,
		Peers:    staticPeers{{ID: "peer-a"}, {ID: "peer-b"}},
	})
	n.HandleTransaction(context.Background(), types.NewCoinbase(n.Address(), types.NewAmount(3)))

	st := n.Status()
	if st.Address != n.Address() || st.Pending != 1 || st.Height != 1 || st.Peers != 2 {
		t.Fatalf("unexpected status %+v", st)
	}
	if st.HeadHash != ledger.GenesisBlock().Hash {
		t.Fatalf("head hash = %s", st.HeadHash)
	}
	if st.Balance != 0 {
		t.Fatalf("balance = %s before mining", st.Balance)
	}
}
