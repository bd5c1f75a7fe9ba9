// Package bundle assembles the four-instruction withdraw-and-forward sequence for one target.
package bundle

import (
	"encoding/hex"
	"errors"
	"fmt"

	solana "github.com/gagliardetto/solana-go"
)

// WithdrawSelector is the staking program's withdraw discriminator.
const WithdrawSelector = "a7e3bf88215412da"

// DefaultDecimals is the BONK mint scale.
const DefaultDecimals uint8 = 5

// Program holds the fixed accounts of the staking program and the swept asset.
type Program struct {
	ID            solana.PublicKey
	Authority     solana.PublicKey
	RewardPool    solana.PublicKey
	StakePool     solana.PublicKey
	Vault         solana.PublicKey
	ExpiredVault  solana.PublicKey
	Mint          solana.PublicKey
	Decimals      uint8
	WithdrawData  []byte
	TokenProgram  solana.PublicKey
	SystemProgram solana.PublicKey
	Rent          solana.PublicKey
}

// DefaultProgram returns the mainnet BONK staking constants.
func DefaultProgram() Program {
	data, _ := hex.DecodeString(WithdrawSelector)
	return Program{
		ID:            solana.MustPublicKeyFromBase58("STAKEkKzbdeKkqzKpLkNQD3SUuLgshDKCD7U8duxAbB"),
		Authority:     solana.MustPublicKeyFromBase58("4ZERSm31VsRtaXY6U2fXA56TvixKvYctHGEzr5v1fgYp"),
		RewardPool:    solana.MustPublicKeyFromBase58("4hX8YQesSk5JmRNrMXMgXyzbH6L4HG6y7Ujd8v1JH1G2"),
		StakePool:     solana.MustPublicKeyFromBase58("9AdEE8AAm1XgJrPEs4zkTPozr3o4U5iGbgvPwkNdLDJ3"),
		Vault:         solana.MustPublicKeyFromBase58("4XHP9YQeeXPXHAjNXuKio1na1ypcxFSqFYBHtptQticd"),
		ExpiredVault:  solana.MustPublicKeyFromBase58("9dyAurg9bhZKPPZhEmkbF7VU3sjWuyTqbDT6J3Lm5Hqw"),
		Mint:          solana.MustPublicKeyFromBase58("DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"),
		Decimals:      DefaultDecimals,
		WithdrawData:  data,
		TokenProgram:  solana.TokenProgramID,
		SystemProgram: solana.SystemProgramID,
		Rent:          solana.SysVarRentPubkey,
	}
}

// Validate reports missing constants. The system program id is all zero bytes and is
// not checked.
func (p Program) Validate() error {
	required := []struct {
		name string
		key  solana.PublicKey
	}{
		{"program id", p.ID},
		{"authority", p.Authority},
		{"reward pool", p.RewardPool},
		{"stake pool", p.StakePool},
		{"vault", p.Vault},
		{"expired vault", p.ExpiredVault},
		{"mint", p.Mint},
		{"token program", p.TokenProgram},
		{"rent sysvar", p.Rent},
	}
	for _, r := range required {
		if r.key.IsZero() {
			return fmt.Errorf("program: %s not set", r.name)
		}
	}
	if len(p.WithdrawData) == 0 {
		return errors.New("program: withdraw selector not set")
	}
	return nil
}
