// Package sweep drives the withdraw-and-forward loop over every configured target.
package sweep

import (
	"errors"
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"stakesweep-go/internal/bundle"
	"stakesweep-go/internal/config"
	dex "stakesweep-go/internal/dex/solana"
	"stakesweep-go/internal/risk"
)

var (
	// ErrAboveLimit rejects targets above risk.max_amount_per_target.
	ErrAboveLimit = errors.New("amount above per-target limit")
	// ErrOwnerIsFeePayer rejects targets whose owner is the fee payer.
	ErrOwnerIsFeePayer = errors.New("owner must differ from fee payer")
)

// Target is a validated, immutable unit of work.
type Target struct {
	Index        int
	Owner        dex.Identity
	StakeReceipt solana.PublicKey
	Quantity     decimal.Decimal
	Amount       uint64
}

// Setup holds everything shared by all targets, built once before any network call.
type Setup struct {
	Program        bundle.Program
	FeePayer       dex.Identity
	ForwardOwner   solana.PublicKey
	ForwardHolding solana.PublicKey
	Targets        []Target
}

// Validate derives and checks every identity, key and amount in cfg. Any error is fatal.
func Validate(cfg *config.Config) (*Setup, error) {
	prog, err := programFromConfig(cfg.Program)
	if err != nil {
		return nil, err
	}
	feePayer, err := dex.ValidateIdentity(dex.RoleFeePayer, cfg.FeePayerSecret, cfg.FeePayerPubkey)
	if err != nil {
		return nil, err
	}
	forwardOwner, err := dex.ParsePublicKey(cfg.ForwardDestPubkey)
	if err != nil {
		return nil, fmt.Errorf("forward_dest_pubkey: %w", err)
	}
	forwardHolding, err := dex.AssociatedTokenAddress(forwardOwner, prog.Mint)
	if err != nil {
		return nil, err
	}

	limits := risk.Limits{MaxAmountPerTarget: cfg.Risk.MaxAmountPerTarget.Decimal}
	targets := make([]Target, 0, len(cfg.Targets))
	for i, tc := range cfg.Targets {
		t, err := validateTarget(i, tc, prog, limits)
		if err != nil {
			return nil, fmt.Errorf("targets[%d]: %w", i, err)
		}
		if t.Owner.PublicKey.Equals(feePayer.PublicKey) {
			return nil, fmt.Errorf("targets[%d]: %w", i, ErrOwnerIsFeePayer)
		}
		targets = append(targets, t)
	}

	return &Setup{
		Program:        prog,
		FeePayer:       feePayer,
		ForwardOwner:   forwardOwner,
		ForwardHolding: forwardHolding,
		Targets:        targets,
	}, nil
}

func validateTarget(i int, tc config.Target, prog bundle.Program, limits risk.Limits) (Target, error) {
	owner, err := dex.ValidateIdentity(dex.RoleOwner, tc.OwnerSecret, tc.OwnerPubkey)
	if err != nil {
		return Target{}, err
	}
	receipt, err := dex.ParsePublicKey(tc.StakeReceiptPubkey)
	if err != nil {
		return Target{}, fmt.Errorf("stake_receipt_pubkey: %w", err)
	}
	units, err := tc.Amount.BaseUnits(int32(prog.Decimals))
	if err != nil {
		return Target{}, fmt.Errorf("amount: %w", err)
	}
	if !limits.Allow(tc.Amount.Decimal) {
		return Target{}, fmt.Errorf("%s > %s: %w", tc.Amount.String(), limits.MaxAmountPerTarget.String(), ErrAboveLimit)
	}
	return Target{
		Index:        i,
		Owner:        owner,
		StakeReceipt: receipt,
		Quantity:     tc.Amount.Decimal,
		Amount:       units,
	}, nil
}

func programFromConfig(pc config.Program) (bundle.Program, error) {
	prog := bundle.DefaultProgram()
	if pc.Mint != "" {
		mint, err := dex.ParsePublicKey(pc.Mint)
		if err != nil {
			return prog, fmt.Errorf("program.mint: %w", err)
		}
		prog.Mint = mint
	}
	if pc.Decimals != nil {
		prog.Decimals = *pc.Decimals
	}
	return prog, prog.Validate()
}

// Plan builds the instruction bundle for t.
func (s *Setup) Plan(t Target) (*bundle.Plan, error) {
	return bundle.Build(bundle.Params{
		FeePayer:     s.FeePayer.PublicKey,
		Owner:        t.Owner.PublicKey,
		ForwardOwner: s.ForwardOwner,
		StakeReceipt: t.StakeReceipt,
		Amount:       t.Amount,
		Program:      s.Program,
	})
}
