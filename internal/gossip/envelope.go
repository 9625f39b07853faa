package gossip

import (
	"encoding/json"
	"errors"
	"fmt"

	"riacoin.node/rcn/internal/types"
)

var (
	ErrEmptyEnvelope     = errors.New("envelope carries neither a block nor a transaction")
	ErrAmbiguousEnvelope = errors.New("envelope carries both a block and a transaction")
)

// Envelope is the self-describing wire message exchanged on both topics.
// Exactly one field is set, so the JSON form is either {"Block": {...}} or
// {"Transaction": {...}}.
type Envelope struct {
	Block       *types.Block       `json:"Block,omitempty"`
	Transaction *types.Transaction `json:"Transaction,omitempty"`
}

// Encode validates the envelope shape and marshals it to JSON.
func (e *Envelope) Encode() ([]byte, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return data, nil
}

// DecodeEnvelope parses data and checks that exactly one payload is present.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to parse envelope: %w", err)
	}
	if err := e.check(); err != nil {
		return nil, err
	}
	return &e, nil
}

func (e *Envelope) check() error {
	switch {
	case e.Block == nil && e.Transaction == nil:
		return ErrEmptyEnvelope
	case e.Block != nil && e.Transaction != nil:
		return ErrAmbiguousEnvelope
	}
	return nil
}
