// Package node ties a wallet identity, a ledger replica and the gossip
// network into one explicit context. Operator surfaces (the shell and the
// dashboard) call its entry points; the gossip layer delivers inbound
// transactions and blocks to its handlers.
package node

import (
	"context"
	"errors"
	"fmt"
	"log"

	"riacoin.node/rcn/internal/discovery"
	"riacoin.node/rcn/internal/identity"
	"riacoin.node/rcn/internal/ledger"
	"riacoin.node/rcn/internal/logger"
	"riacoin.node/rcn/internal/types"
	"riacoin.node/rcn/internal/vm"
)

// NFTMintFee is the fee attached to an NFT mint from the operator surface.
var NFTMintFee = types.Coin / 10

// ErrPublish is returned, wrapped, when a transaction or block was applied
// locally but could not be handed to the network.
var ErrPublish = errors.New("publish failed")

// Publisher hands local transactions and blocks to other nodes.
type Publisher interface {
	PublishTransaction(ctx context.Context, tx *types.Transaction) error
	PublishBlock(ctx context.Context, block *types.Block) error
}

// Archiver records applied blocks outside the process.
type Archiver interface {
	Record(ctx context.Context, block *types.Block) error
}

// PeerLister reports the peers this node is connected to.
type PeerLister interface {
	GetPeers() []discovery.Peer
}

// Options configures a Node. Identity and Ledger are required; the rest may
// be nil.
type Options struct {
	Identity  *identity.Identity
	Ledger    *ledger.Ledger
	Publisher Publisher
	Peers     PeerLister
	Archive   Archiver
	Logger    *logger.Logger
	// ValidateBlocks makes inbound blocks pass linkage, merkle, hash and
	// signature checks before they are applied.
	ValidateBlocks bool
}

// Node is one participant in the network.
type Node struct {
	id             *identity.Identity
	ledger         *ledger.Ledger
	pub            Publisher
	peers          PeerLister
	archive        Archiver
	log            *logger.Logger
	validateBlocks bool
}

// Status is a point-in-time summary of the node.
type Status struct {
	Address  string       `json:"address"`
	Balance  types.Amount `json:"balance"`
	Pending  int          `json:"pending"`
	Height   int          `json:"height"`
	HeadHash string       `json:"head_hash"`
	Peers    int          `json:"peers"`
	Version  string       `json:"version"`
}

// NewLedger returns a ledger whose contract notices go to lg.
func NewLedger(lg *logger.Logger) *ledger.Ledger {
	return ledger.New(vm.NewStore(vm.WithNotifier(func(msg string) {
		log.Printf("VM: %s", msg)
		if lg != nil {
			lg.Info("contract: " + msg)
		}
	})))
}

// New builds a node from opts.
func New(opts Options) *Node {
	lg := opts.Logger
	if lg == nil {
		lg = logger.New(100)
	}
	return &Node{
		id:             opts.Identity,
		ledger:         opts.Ledger,
		pub:            opts.Publisher,
		peers:          opts.Peers,
		archive:        opts.Archive,
		log:            lg,
		validateBlocks: opts.ValidateBlocks,
	}
}

// Address returns the node's wallet address.
func (n *Node) Address() string {
	return n.id.Address()
}

// Ledger returns the node's ledger replica.
func (n *Node) Ledger() *ledger.Ledger {
	return n.ledger
}

// Logger returns the node's operator log.
func (n *Node) Logger() *logger.Logger {
	return n.log
}

// Transfer signs a transfer from the node's wallet, admits it locally and,
// only if admission succeeds, publishes it.
func (n *Node) Transfer(ctx context.Context, recipient string, amount, fee types.Amount) (*types.Transaction, error) {
	return n.submit(ctx, types.NewTransaction(n.id, recipient, amount, fee, nil))
}

// CallContract sends call as a zero-amount transaction to the node's own
// address paying fee.
func (n *Node) CallContract(ctx context.Context, call types.ContractCall, fee types.Amount) (*types.Transaction, error) {
	return n.submit(ctx, types.NewTransaction(n.id, n.id.Address(), 0, fee, &call))
}

// MintNFT registers tokenID to the node's own address.
func (n *Node) MintNFT(ctx context.Context, tokenID string) (*types.Transaction, error) {
	return n.CallContract(ctx, types.ContractCall{
		Contract: vm.NFTRegistryName,
		Function: "mint",
		Args:     []string{tokenID, n.id.Address()},
	}, NFTMintFee)
}

// Vote casts choice on proposal through the governance contract.
func (n *Node) Vote(ctx context.Context, proposal, choice string) (*types.Transaction, error) {
	return n.CallContract(ctx, types.ContractCall{
		Contract: vm.GovernanceName,
		Function: "vote",
		Args:     []string{proposal, choice},
	}, 0)
}

func (n *Node) submit(ctx context.Context, tx *types.Transaction) (*types.Transaction, error) {
	if err := n.ledger.Admit(*tx); err != nil {
		n.log.Warningf("Transaction %s rejected: %v", types.ShortAddress(tx.ID), err)
		return nil, err
	}
	n.log.Infof("Transaction %s admitted: %s -> %s (%s RIA, fee %s)",
		types.ShortAddress(tx.ID), types.ShortAddress(tx.Sender), types.ShortAddress(tx.Recipient), tx.Amount, tx.Fee)

	if n.pub == nil {
		return tx, nil
	}
	if err := n.pub.PublishTransaction(ctx, tx); err != nil {
		n.log.Warningf("Transaction %s not broadcast: %v", types.ShortAddress(tx.ID), err)
		return tx, fmt.Errorf("%w: %v", ErrPublish, err)
	}
	return tx, nil
}

// Mine drains the pending pool into a block rewarding this node, archives
// and publishes it. It returns a nil block when there is nothing to mine.
func (n *Node) Mine(ctx context.Context) (*types.Block, error) {
	block := n.ledger.Mine(n.id.Address())
	if block == nil {
		return nil, nil
	}
	n.log.Infof("Mined block #%d (%d txs, fees %s, reward %s)",
		block.Index, len(block.Transactions), block.TotalFees(), block.Transactions[len(block.Transactions)-1].Amount)
	n.record(ctx, block)

	if n.pub == nil {
		return block, nil
	}
	if err := n.pub.PublishBlock(ctx, block); err != nil {
		n.log.Warningf("Block #%d not broadcast: %v", block.Index, err)
		return block, fmt.Errorf("%w: %v", ErrPublish, err)
	}
	return block, nil
}

// HandleTransaction admits a transaction received from the network.
// Rejected transactions are logged and dropped.
func (n *Node) HandleTransaction(_ context.Context, tx *types.Transaction) {
	if err := n.ledger.Admit(*tx); err != nil {
		n.log.Warningf("Dropped network transaction %s: %v", types.ShortAddress(tx.ID), err)
		return
	}
	n.log.Infof("Received transaction %s: %s -> %s (%s RIA)",
		types.ShortAddress(tx.ID), types.ShortAddress(tx.Sender), types.ShortAddress(tx.Recipient), tx.Amount)
}

// HandleBlock applies a block received from the network. With validation
// enabled, blocks that do not extend the local head are dropped.
func (n *Node) HandleBlock(ctx context.Context, block *types.Block) {
	if n.validateBlocks {
		if err := n.ledger.ApplyValidated(block); err != nil {
			n.log.Warningf("Dropped network block #%d: %v", block.Index, err)
			return
		}
	} else {
		n.ledger.Apply(block)
	}
	n.log.Infof("Applied network block #%d from %s", block.Index, types.ShortAddress(block.Validator))
	n.record(ctx, block)
}

func (n *Node) record(ctx context.Context, block *types.Block) {
	if n.archive == nil {
		return
	}
	if err := n.archive.Record(ctx, block); err != nil {
		log.Printf("WARNING: failed to archive block #%d: %v", block.Index, err)
	}
}

// Peers returns the connected peers, or nil without a network.
func (n *Node) Peers() []discovery.Peer {
	if n.peers == nil {
		return nil
	}
	return n.peers.GetPeers()
}

// Status summarizes the node's wallet and ledger.
func (n *Node) Status() Status {
	head := n.ledger.Head()
	return Status{
		Address:  n.id.Address(),
		Balance:  n.ledger.BalanceOf(n.id.Address()),
		Pending:  n.ledger.PendingCount(),
		Height:   n.ledger.Height(),
		HeadHash: head.Hash,
		Peers:    len(n.Peers()),
		Version:  types.Version,
	}
}
