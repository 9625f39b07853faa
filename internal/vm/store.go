// Package vm implements the contract store: a string key/value state shared
// by a fixed registry of named contracts. The ledger invokes Execute for
// every transaction carrying a contract call when its block is applied.
package vm

import (
	"fmt"
	"sort"

	"riacoin.node/rcn/internal/types"
)

// Contract is a named handler over the store's state.
type Contract interface {
	Name() string
	Execute(env *Env, call types.ContractCall) bool
}

// Env is the capability handed to a contract during execution.
type Env struct {
	store *Store
}

// Get returns the value stored under key.
func (e *Env) Get(key string) (string, bool) {
	v, ok := e.store.state[key]
	return v, ok
}

// Put stores value under key.
func (e *Env) Put(key, value string) {
	e.store.state[key] = value
}

// Noticef reports a contract-level event to the store's notifier.
func (e *Env) Noticef(format string, args ...any) {
	e.store.noticef(format, args...)
}

// Store holds contract state and the contract registry. It is not safe for
// concurrent use; the ledger serializes access.
type Store struct {
	state     map[string]string
	contracts map[string]Contract
	notify    func(string)
}

// Option configures a Store.
type Option func(*Store)

// WithNotifier routes contract notices (unknown contract, rejected mint,
// successful mint) to fn.
func WithNotifier(fn func(string)) Option {
	return func(s *Store) { s.notify = fn }
}

// WithContract registers an additional contract, replacing any contract of
// the same name.
func WithContract(c Contract) Option {
	return func(s *Store) { s.contracts[c.Name()] = c }
}

// NewStore returns an empty store with the nft_registry and governance
// contracts registered.
func NewStore(opts ...Option) *Store {
	s := &Store{
		state:     make(map[string]string),
		contracts: make(map[string]Contract),
	}
	for _, c := range []Contract{NFTRegistry{}, Governance{}} {
		s.contracts[c.Name()] = c
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute dispatches call to the contract it names. Unknown contracts
// return false without touching state.
func (s *Store) Execute(call types.ContractCall) bool {
	c, ok := s.contracts[call.Contract]
	if !ok {
		s.noticef("unknown contract: %s", call.Contract)
		return false
	}
	return c.Execute(&Env{store: s}, call)
}

// Get returns the raw value stored under key.
func (s *Store) Get(key string) (string, bool) {
	v, ok := s.state[key]
	return v, ok
}

// Snapshot returns a copy of the full state.
func (s *Store) Snapshot() map[string]string {
	out := make(map[string]string, len(s.state))
	for k, v := range s.state {
		out[k] = v
	}
	return out
}

// Contracts lists the registered contract names in sorted order.
func (s *Store) Contracts() []string {
	names := make([]string, 0, len(s.contracts))
	for name := range s.contracts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) noticef(format string, args ...any) {
	if s.notify != nil {
		s.notify(fmt.Sprintf(format, args...))
	}
}
