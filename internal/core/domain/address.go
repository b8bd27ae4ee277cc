package domain

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ValidatePartyKey makes sure key is a base58 encoded 32-byte public key.
func ValidatePartyKey(key string) error {
	if len(key) <= 0 {
		return ErrInvalidPartyKey
	}
	if buf := base58.Decode(key); len(buf) != partyKeyLen {
		return ErrInvalidPartyKey
	}
	return nil
}

// DeriveEscrowID returns the id of the escrow for the ordered pair
// (sender, receiver). Swapping the parties gives a different id.
func DeriveEscrowID(sender, receiver string) string {
	return deriveID(
		[]byte(escrowSeed), base58.Decode(sender), base58.Decode(receiver),
	)
}

// DeriveVaultID returns the id of the vault holding asset for the escrow.
// The mint of the asset on the given network is part of the seeds.
func DeriveVaultID(escrowID string, asset Asset, network string) string {
	seed := usdcVaultSeed
	if asset == AssetUSDT {
		seed = usdtVaultSeed
	}
	mint := base58.Decode(MintForAsset(network, asset))
	return deriveID([]byte(seed), base58.Decode(escrowID), mint)
}

// DeriveLotID returns the id of the lot bound to the given discriminator
// within the escrow.
func DeriveLotID(escrowID string, index uint64) string {
	idx := make([]byte, 8)
	binary.LittleEndian.PutUint64(idx, index)
	return deriveID([]byte(depositSeed), base58.Decode(escrowID), idx)
}

func deriveID(seeds ...[]byte) string {
	size := 0
	for _, s := range seeds {
		size += len(s)
	}
	buf := make([]byte, 0, size)
	for _, s := range seeds {
		buf = append(buf, s...)
	}
	return base58.Encode(chainhash.HashB(buf))
}
