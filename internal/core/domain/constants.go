package domain

const (
	// StablecoinDecimals is the precision of both USDC and USDT.
	StablecoinDecimals = 6

	NetworkMainnet = "mainnet"
	NetworkDevnet  = "devnet"

	escrowSeed    = "escrow"
	depositSeed   = "deposit"
	usdcVaultSeed = "usdc-vault"
	usdtVaultSeed = "usdt-vault"

	partyKeyLen = 32
)

var (
	mintsByNetwork = map[string]map[Asset]string{
		NetworkMainnet: {
			AssetUSDC: "EPjFWdd5AufqSSqeM2qctBxi8LoRBdQkj6mjjFG2Afa",
			AssetUSDT: "Es9vMFrzaCERnAawET5VsmZ6T4dQW5Ad9asmaaAEA7ZT",
		},
		NetworkDevnet: {
			AssetUSDC: "Gh9ZwEmdLJ8DscKNTkTqPbNwLNNBjuSzaG9Vp2KGtKJr",
			AssetUSDT: "J2B12TxqtZkXtMAPY1BX2noiTSDNrz4VqiKfU5Sh9t5d",
		},
	}
)

// IsValidNetwork ...
func IsValidNetwork(network string) bool {
	_, ok := mintsByNetwork[network]
	return ok
}

// MintForAsset returns the token mint address of the asset on the given
// network, or an empty string.
func MintForAsset(network string, asset Asset) string {
	return mintsByNetwork[network][asset]
}
