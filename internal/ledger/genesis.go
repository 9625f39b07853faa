package ledger

import "riacoin.node/rcn/internal/types"

const (
	// GenesisAddress receives the initial coin supply.
	GenesisAddress = "GENESIS_WALLET"
	// GenesisValidator is recorded as the validator of block 0.
	GenesisValidator = "GENESIS"
	// GenesisPreviousHash is the previous hash recorded in block 0.
	GenesisPreviousHash = "0"
)

// GenesisSupply is credited to GenesisAddress by block 0.
var GenesisSupply = types.NewAmount(1_000_000)

// GenesisBlock returns block 0. Its timestamps are fixed at zero, so every
// node starts from a byte-identical genesis with the same hash.
func GenesisBlock() *types.Block {
	coinbase := types.NewCoinbaseAt(GenesisAddress, GenesisSupply, 0)
	return types.NewBlockAt(0, []types.Transaction{*coinbase}, GenesisPreviousHash, GenesisValidator, 0)
}
