package solana

import (
	"fmt"

	solana "github.com/gagliardetto/solana-go"
)

// AssociatedTokenAddress returns the canonical token account for (owner, mint) under the
// SPL token program. It is pure and never cached.
func AssociatedTokenAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive ata for %s/%s: %w", owner, mint, err)
	}
	return addr, nil
}
