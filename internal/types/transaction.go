package types

import (
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"riacoin.node/rcn/internal/identity"
)

// ContractCall is an instruction carried by a transaction and interpreted
// by the contract store when the enclosing block is applied.
type ContractCall struct {
	Contract string   `json:"contract"` // e.g. "nft_registry"
	Function string   `json:"function"` // e.g. "mint"
	Args     []string `json:"args"`
}

// canonical returns the call's contribution to a signing payload. A nil
// call contributes nothing.
func (c *ContractCall) canonical() string {
	if c == nil {
		return ""
	}
	// Marshalling a struct of strings cannot fail.
	b, _ := json.Marshal(c)
	return string(b)
}

// Transaction is a signed intent to move value from Sender to Recipient,
// optionally invoking a contract call. ID is the hash of the signing
// payload, so two transactions with identical fields and timestamp share an
// ID.
type Transaction struct {
	ID        string        `json:"id"`
	Sender    string        `json:"sender"`
	Recipient string        `json:"recipient"`
	Amount    Amount        `json:"amount"`
	Fee       Amount        `json:"fee"`
	Timestamp int64         `json:"timestamp"`
	Signature string        `json:"signature"`
	Call      *ContractCall `json:"call,omitempty"`
}

// NewTransaction builds and signs a transaction from signer's address,
// stamped with the current time. Amount and fee are not range checked here;
// the ledger rejects negative values at admission.
func NewTransaction(signer Signer, recipient string, amount, fee Amount, call *ContractCall) *Transaction {
	return NewTransactionAt(signer, recipient, amount, fee, call, time.Now().Unix())
}

// NewTransactionAt is NewTransaction with an explicit unix timestamp.
func NewTransactionAt(signer Signer, recipient string, amount, fee Amount, call *ContractCall, timestamp int64) *Transaction {
	tx := &Transaction{
		Sender:    signer.Address(),
		Recipient: recipient,
		Amount:    amount,
		Fee:       fee,
		Timestamp: timestamp,
		Call:      call.clone(),
	}
	payload := tx.SigningPayload()
	tx.ID = hashHex(payload)
	tx.Signature = hex.EncodeToString(signer.Sign(payload))
	return tx
}

// NewCoinbase builds an unsigned reward transaction minting amount to
// recipient.
func NewCoinbase(recipient string, amount Amount) *Transaction {
	return NewCoinbaseAt(recipient, amount, time.Now().Unix())
}

// NewCoinbaseAt is NewCoinbase with an explicit unix timestamp.
func NewCoinbaseAt(recipient string, amount Amount, timestamp int64) *Transaction {
	tx := &Transaction{
		Sender:    MintSender,
		Recipient: recipient,
		Amount:    amount,
		Timestamp: timestamp,
		Signature: CoinbaseSignature,
	}
	tx.ID = hashHex(tx.SigningPayload())
	return tx
}

// SigningPayload returns the canonical bytes that are hashed into ID and
// signed by the sender. The signature itself is excluded.
func (tx *Transaction) SigningPayload() []byte {
	var b strings.Builder
	b.WriteString(tx.Sender)
	b.WriteByte('|')
	b.WriteString(tx.Recipient)
	b.WriteByte('|')
	b.WriteString(tx.Amount.String())
	b.WriteByte('|')
	b.WriteString(tx.Fee.String())
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(tx.Timestamp, 10))
	b.WriteByte('|')
	b.WriteString(tx.Call.canonical())
	return []byte(b.String())
}

// IsCoinbase reports whether the transaction was minted by the network.
func (tx *Transaction) IsCoinbase() bool {
	return tx.Sender == MintSender
}

// IsValid checks the transaction's signature against its sender address.
// Coinbase transactions are always valid. Balances and pool contents are
// not consulted.
func (tx *Transaction) IsValid() bool {
	if tx.IsCoinbase() {
		return true
	}
	return identity.Verify(tx.Sender, tx.SigningPayload(), tx.Signature)
}

// Total is the amount debited from the sender when the transaction applies.
func (tx *Transaction) Total() Amount {
	return tx.Amount + tx.Fee
}

func (c *ContractCall) clone() *ContractCall {
	if c == nil {
		return nil
	}
	return &ContractCall{
		Contract: c.Contract,
		Function: c.Function,
		Args:     append([]string(nil), c.Args...),
	}
}

// ShortAddress abbreviates an address for log output.
func ShortAddress(addr string) string {
	if len(addr) <= 8 {
		return addr
	}
	return addr[:8]
}
