package types

import (
	"fmt"
	"strings"
	"time"
)

// Block is an ordered batch of transactions linked to its predecessor by
// PreviousHash.
type Block struct {
	Index        uint64        `json:"index"`
	Timestamp    int64         `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
	PreviousHash string        `json:"previous_hash"`
	Hash         string        `json:"hash"`
	Validator    string        `json:"validator"`
	MerkleRoot   string        `json:"merkle_root"`
}

// NewBlock assembles a block stamped with the current time.
func NewBlock(index uint64, txs []Transaction, previousHash, validator string) *Block {
	return NewBlockAt(index, txs, previousHash, validator, time.Now().Unix())
}

// NewBlockAt is NewBlock with an explicit unix timestamp. The transaction
// slice is copied.
func NewBlockAt(index uint64, txs []Transaction, previousHash, validator string, timestamp int64) *Block {
	b := &Block{
		Index:        index,
		Timestamp:    timestamp,
		Transactions: append([]Transaction(nil), txs...),
		PreviousHash: previousHash,
		Validator:    validator,
	}
	b.MerkleRoot = MerkleRoot(b.Transactions)
	b.Hash = b.CalculateHash()
	return b
}

// CalculateHash hashes the block header fields: index, timestamp, merkle
// root, previous hash and validator. Transactions contribute only through
// the merkle root.
func (b *Block) CalculateHash() string {
	header := fmt.Sprintf("%d|%d|%s|%s|%s", b.Index, b.Timestamp, b.MerkleRoot, b.PreviousHash, b.Validator)
	return hashHex([]byte(header))
}

// TotalFees sums the fee field over txs.
func TotalFees(txs []Transaction) Amount {
	var fees Amount
	for i := range txs {
		fees += txs[i].Fee
	}
	return fees
}

// TotalFees sums the fee field over the block's transactions.
func (b *Block) TotalFees() Amount {
	return TotalFees(b.Transactions)
}

func (b *Block) String() string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Block #%d", b.Index))
	builder.WriteString(fmt.Sprintf("\n\tTimestamp: %s", time.Unix(b.Timestamp, 0).UTC().Format("2006-01-02 15:04:05")))
	builder.WriteString(fmt.Sprintf("\n\tPrevious: %s", b.PreviousHash))
	builder.WriteString(fmt.Sprintf("\n\tMerkleRoot: %s", b.MerkleRoot))
	builder.WriteString(fmt.Sprintf("\n\tValidator: %s", b.Validator))
	builder.WriteString(fmt.Sprintf("\n\tTransactions: %d", len(b.Transactions)))
	builder.WriteString(fmt.Sprintf("\n\tHash: %s", b.Hash))
	return builder.String()
}

// MerkleRoot reduces the ordered transaction ids pairwise until one digest
// remains. Each pass hashes the concatenation of neighbouring hex digests;
// an unpaired digest is paired with itself. At least one pass always runs,
// so a single transaction yields hash(id ++ id). No transactions yield
// EmptyMerkleRoot.
func MerkleRoot(txs []Transaction) string {
	if len(txs) == 0 {
		return EmptyMerkleRoot
	}

	level := make([]string, len(txs))
	for i := range txs {
		level[i] = txs[i].ID
	}

	for {
		next := make([]string, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left, right := level[i], level[i]
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, hashHex([]byte(left+right)))
		}
		level = next
		if len(level) == 1 {
			return level[0]
		}
	}
}
