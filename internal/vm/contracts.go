package vm

import (
	"riacoin.node/rcn/internal/types"
)

const (
	// NFTRegistryName is the registry contract's dispatch name.
	NFTRegistryName = "nft_registry"
	// GovernanceName is the governance contract's dispatch name.
	GovernanceName = "governance"
)

// NFTOwnerKey is the state key recording the owner of tokenID.
func NFTOwnerKey(tokenID string) string {
	return "nft:" + tokenID + ":owner"
}

// NFTRegistry records token ownership. mint(token_id, owner) succeeds only
// the first time a token id is seen.
type NFTRegistry struct{}

func (NFTRegistry) Name() string { return NFTRegistryName }

func (NFTRegistry) Execute(env *Env, call types.ContractCall) bool {
	switch call.Function {
	case "mint":
		if len(call.Args) < 2 {
			return false
		}
		tokenID, owner := call.Args[0], call.Args[1]
		key := NFTOwnerKey(tokenID)
		if _, exists := env.Get(key); exists {
			env.Noticef("NFT %s already exists", tokenID)
			return false
		}
		env.Put(key, owner)
		env.Noticef("minted NFT %s for %s", tokenID, types.ShortAddress(owner))
		return true
	default:
		return false
	}
}

// Governance accepts every call without changing state.
type Governance struct{}

func (Governance) Name() string { return GovernanceName }

func (Governance) Execute(env *Env, call types.ContractCall) bool {
	return true
}

// OwnerOf returns the recorded owner of tokenID.
func (s *Store) OwnerOf(tokenID string) (string, bool) {
	return s.Get(NFTOwnerKey(tokenID))
}
