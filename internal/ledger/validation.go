package ledger

import (
	"errors"
	"fmt"

	"riacoin.node/rcn/internal/types"
)

var (
	ErrBadIndex           = errors.New("block index does not follow chain head")
	ErrBrokenLink         = errors.New("previous hash does not match chain head")
	ErrBadMerkleRoot      = errors.New("merkle root is not correct")
	ErrBadHash            = errors.New("block hash is not correct")
	ErrInvalidTransaction = errors.New("block contains an invalid transaction")
)

// ValidateBlock checks that block extends the current head and is
// internally consistent. It does not check balances: a block may overdraw
// accounts exactly as the pending pool allows.
func (l *Ledger) ValidateBlock(block *types.Block) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.validateLocked(block)
}

// ApplyValidated validates block against the current head and applies it
// under the same lock, so no other block can be applied in between.
func (l *Ledger) ApplyValidated(block *types.Block) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.validateLocked(block); err != nil {
		return err
	}
	l.applyLocked(block)
	return nil
}

func (l *Ledger) validateLocked(block *types.Block) error {
	head := l.chain[len(l.chain)-1]

	// 1. Linkage
	if block.Index != head.Index+1 {
		return fmt.Errorf("%w: got %d, head is %d", ErrBadIndex, block.Index, head.Index)
	}
	if block.PreviousHash != head.Hash {
		return fmt.Errorf("%w: %s", ErrBrokenLink, types.ShortAddress(block.PreviousHash))
	}

	// 2. Merkle root and header hash
	if types.MerkleRoot(block.Transactions) != block.MerkleRoot {
		return ErrBadMerkleRoot
	}
	if block.CalculateHash() != block.Hash {
		return ErrBadHash
	}

	// 3. Signatures
	for i := range block.Transactions {
		if !block.Transactions[i].IsValid() {
			return fmt.Errorf("%w: index %d (%s)", ErrInvalidTransaction, i, types.ShortAddress(block.Transactions[i].ID))
		}
	}
	return nil
}
