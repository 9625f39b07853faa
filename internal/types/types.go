// Package types defines the core domain models for riacoin nodes (rcn):
// fixed-point amounts, signed transactions, contract calls and blocks,
// together with the deterministic hashing that links them. Values of these
// types are treated as immutable once constructed.
package types

import (
	"crypto/sha256"
	"encoding/hex"
)

// Version is the current version of rcn
const Version = "0.1.0"

// BuildTime is set at build time via -ldflags
var BuildTime = "dev"

const (
	// MintSender is the sender of coinbase transactions. Transactions from
	// this sender carry no real signature and are never verified.
	MintSender = "NETWORK_MINT"
	// CoinbaseSignature is the fixed signature placed on coinbase transactions.
	CoinbaseSignature = "COINBASE"
	// EmptyMerkleRoot is the merkle root of a block with no transactions.
	EmptyMerkleRoot = "0"
)

// Signer produces signatures attributable to an address.
type Signer interface {
	Address() string
	Sign(payload []byte) []byte
}

func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
