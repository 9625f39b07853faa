// Package identity manages wallet keypairs and signing utilities. Each rcn
// node holds one ed25519 keypair derived from a 32-byte seed. The hex encoding
// of the public key is the node's ledger address; transactions are signed
// with the private key and verified against that address by every replica.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
)

// SeedSize is the length of the private seed an Identity is derived from.
const SeedSize = ed25519.SeedSize

// Identity represents a wallet's cryptographic identity. It is immutable
// once constructed.
type Identity struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	address    string
}

// Generate creates an Identity from a fresh random seed.
func Generate() *Identity {
	var seed [SeedSize]byte
	// crypto/rand.Read does not fail on supported platforms.
	_, _ = rand.Read(seed[:])
	return FromSeed(seed)
}

// FromSeed restores the Identity deterministically derived from seed.
func FromSeed(seed [SeedSize]byte) *Identity {
	return NewIdentity(ed25519.NewKeyFromSeed(seed[:]))
}

// NewIdentity creates a new Identity from a private key
func NewIdentity(privKey ed25519.PrivateKey) *Identity {
	pubKey := privKey.Public().(ed25519.PublicKey)
	return &Identity{
		privateKey: privKey,
		publicKey:  pubKey,
		address:    hex.EncodeToString(pubKey),
	}
}

// Address returns the hex-encoded public key. This is the canonical
// account identifier on the ledger.
func (i *Identity) Address() string {
	return i.address
}

// Seed returns the 32-byte private seed the keypair was derived from.
func (i *Identity) Seed() [SeedSize]byte {
	var seed [SeedSize]byte
	copy(seed[:], i.privateKey.Seed())
	return seed
}

// Sign signs payload with the identity's private key. ed25519 signatures are
// deterministic for a given key and payload.
func (i *Identity) Sign(payload []byte) []byte {
	return ed25519.Sign(i.privateKey, payload)
}

// PrivateKey returns the raw private key
func (i *Identity) PrivateKey() ed25519.PrivateKey {
	return i.privateKey
}

// Verify reports whether signatureHex is a valid signature of payload by the
// key whose hex encoding is address. Malformed hex, wrong key or signature
// lengths and cryptographic mismatches all yield false.
func Verify(address string, payload []byte, signatureHex string) bool {
	pub, err := hex.DecodeString(address)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	sig, err := hex.DecodeString(signatureHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), payload, sig)
}
