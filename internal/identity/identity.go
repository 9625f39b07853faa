// Package identity handles loading, generating, and persisting wallet
// identities. Only the keypair is ever written to disk: the key file lets an
// operator keep the same address across restarts while the ledger itself
// always starts again from genesis.
package identity

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// LoadOrCreateIdentity loads the identity stored at keyPath, generating and
// saving a new one when the file is missing or empty.
//
// The key file is stored in PEM format with PKCS8 encoding and is created
// with 0600 permissions.
func LoadOrCreateIdentity(keyPath string) (*Identity, error) {
	info, err := os.Stat(keyPath)
	if os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		id := Generate()
		if err := SaveIdentity(keyPath, id); err != nil {
			return nil, err
		}
		return id, nil
	}
	if err != nil {
		return nil, err
	}

	privKey, err := loadKeyPair(keyPath)
	if err != nil {
		return nil, err
	}
	return NewIdentity(privKey), nil
}

// SaveIdentity writes id's private key to keyPath, replacing any existing file.
func SaveIdentity(keyPath string, id *Identity) error {
	x509Encoded, err := x509.MarshalPKCS8PrivateKey(id.PrivateKey())
	if err != nil {
		return fmt.Errorf("marshal private key: %w", err)
	}

	file, err := os.OpenFile(keyPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	return pem.Encode(file, &pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: x509Encoded,
	})
}

func loadKeyPair(keyPath string) (ed25519.PrivateKey, error) {
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}

	pemBlock, _ := pem.Decode(keyData)
	if pemBlock == nil {
		return nil, errors.New("failed to decode PEM block from key file")
	}

	genericKey, err := x509.ParsePKCS8PrivateKey(pemBlock.Bytes)
	if err != nil {
		return nil, err
	}

	privKey, ok := genericKey.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("key is not an ed25519 private key")
	}

	return privKey, nil
}
