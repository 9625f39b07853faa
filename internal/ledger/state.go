// Package ledger provides the in-memory replicated ledger held by every rcn
// node: the chain of applied blocks, the pending transaction pool, per
// address balances and the contract store. Every mutation goes through one
// mutex so gossip ingestion and operator commands never interleave.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"riacoin.node/rcn/internal/types"
	"riacoin.node/rcn/internal/vm"
)

// BaseReward is minted to the validator of every block on top of the fees.
var BaseReward = types.NewAmount(10)

var (
	ErrInvalidSignature  = errors.New("invalid transaction signature")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNegativeAmount    = errors.New("negative amount or fee")
)

// Ledger is one node's replica of chain state.
type Ledger struct {
	mu        sync.RWMutex
	chain     []*types.Block
	pending   []types.Transaction
	balances  map[string]types.Amount
	contracts *vm.Store
}

// New returns a ledger holding only the genesis block. contracts may be nil,
// in which case a store with the default contracts is used.
func New(contracts *vm.Store) *Ledger {
	if contracts == nil {
		contracts = vm.NewStore()
	}
	l := &Ledger{
		balances:  make(map[string]types.Amount),
		contracts: contracts,
	}
	l.applyLocked(GenesisBlock())
	return l
}

// Admit adds tx to the pending pool after checking its signature and that
// the sender's last applied balance covers amount plus fee. Other pending
// transactions from the same sender are not taken into account, so a pool
// can hold transactions that together overdraw an account.
func (l *Ledger) Admit(tx types.Transaction) error {
	if !tx.IsValid() {
		return fmt.Errorf("%w from %s", ErrInvalidSignature, types.ShortAddress(tx.Sender))
	}
	if tx.Amount < 0 || tx.Fee < 0 {
		return fmt.Errorf("%w: amount=%s fee=%s", ErrNegativeAmount, tx.Amount, tx.Fee)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !tx.IsCoinbase() {
		balance := l.balances[tx.Sender]
		if tx.Amount > types.MaxAmount-tx.Fee || balance < tx.Total() {
			return fmt.Errorf("%w for %s: has %s, needs %s+%s",
				ErrInsufficientFunds, types.ShortAddress(tx.Sender), balance, tx.Amount, tx.Fee)
		}
	}

	l.pending = append(l.pending, tx)
	return nil
}

// Mine drains the pending pool into a new block rewarding validator with
// BaseReward plus the pool's fees, applies it and returns it. The reward
// transaction is the block's last entry. Mine returns nil when the pool is
// empty.
func (l *Ledger) Mine(validator string) *types.Block {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.pending) == 0 {
		return nil
	}

	reward := types.NewCoinbase(validator, BaseReward+types.TotalFees(l.pending))

	txs := make([]types.Transaction, 0, len(l.pending)+1)
	txs = append(txs, l.pending...)
	txs = append(txs, *reward)

	head := l.chain[len(l.chain)-1]
	block := types.NewBlock(head.Index+1, txs, head.Hash, validator)

	l.applyLocked(block)
	l.pending = nil
	return block
}

// Apply applies every transaction of block in order and appends it to the
// chain. No linkage, merkle or signature checks are made, and applying the
// same block twice applies its effects twice. Contract call failures do not
// undo the transaction's balance changes.
func (l *Ledger) Apply(block *types.Block) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.applyLocked(block)
}

func (l *Ledger) applyLocked(block *types.Block) {
	for i := range block.Transactions {
		tx := &block.Transactions[i]
		if !tx.IsCoinbase() {
			l.balances[tx.Sender] -= tx.Total()
		}
		l.balances[tx.Recipient] += tx.Amount

		if tx.Call != nil {
			// Failures leave balances applied; see Apply.
			_ = l.contracts.Execute(*tx.Call)
		}
	}
	l.chain = append(l.chain, block)
}

// BalanceOf returns the address's balance, zero if it was never seen.
func (l *Ledger) BalanceOf(address string) types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[address]
}

// Balances returns a copy of every known balance.
func (l *Ledger) Balances() map[string]types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]types.Amount, len(l.balances))
	for k, v := range l.balances {
		out[k] = v
	}
	return out
}

// PendingCount returns the number of transactions waiting to be mined.
func (l *Ledger) PendingCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.pending)
}

// Pending returns a copy of the pending pool in admission order.
func (l *Ledger) Pending() []types.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]types.Transaction(nil), l.pending...)
}

// Chain returns the applied blocks in order. Blocks are shared, not copied,
// and must not be modified.
func (l *Ledger) Chain() []*types.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*types.Block(nil), l.chain...)
}

// Head returns the most recently applied block.
func (l *Ledger) Head() *types.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.chain[len(l.chain)-1]
}

// Height returns the number of applied blocks, genesis included.
func (l *Ledger) Height() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.chain)
}

// NFTOwner returns the recorded owner of tokenID.
func (l *Ledger) NFTOwner(tokenID string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.contracts.OwnerOf(tokenID)
}

// Contracts lists the names of the registered contracts.
func (l *Ledger) Contracts() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.contracts.Contracts()
}

// ContractSnapshot returns a copy of the whole contract state.
func (l *Ledger) ContractSnapshot() map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.contracts.Snapshot()
}
