package bundle

import (
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	dex "stakesweep-go/internal/dex/solana"
)

// Instruction positions within a plan.
const (
	IndexCreateOwnerHolding = iota
	IndexCreateForwardHolding
	IndexWithdraw
	IndexTransfer
	instructionCount
)

// createIdempotent is the associated-token-account program's CreateIdempotent tag.
const createIdempotent byte = 1

// Params are the per-target inputs of Build.
type Params struct {
	FeePayer     solana.PublicKey
	Owner        solana.PublicKey
	ForwardOwner solana.PublicKey
	StakeReceipt solana.PublicKey
	Amount       uint64
	Program      Program
}

// Plan is an ordered instruction list plus the addresses it touches.
type Plan struct {
	Instructions   []solana.Instruction
	OwnerHolding   solana.PublicKey
	ForwardHolding solana.PublicKey
	Amount         uint64
	Decimals       uint8
}

// Build assembles create-owner-ata, create-forward-ata, withdraw and transfer-checked in that
// order. Both ATAs must exist before the withdraw deposits into them, and the withdraw must
// land before the transfer spends. A zero amount still withdraws; the transfer then moves nothing.
func Build(p Params) (*Plan, error) {
	if err := p.Program.Validate(); err != nil {
		return nil, err
	}
	ownerHolding, err := dex.AssociatedTokenAddress(p.Owner, p.Program.Mint)
	if err != nil {
		return nil, err
	}
	forwardHolding, err := dex.AssociatedTokenAddress(p.ForwardOwner, p.Program.Mint)
	if err != nil {
		return nil, err
	}

	transfer, err := token.NewTransferCheckedInstruction(
		p.Amount,
		p.Program.Decimals,
		ownerHolding,
		p.Program.Mint,
		forwardHolding,
		p.Owner,
		nil,
	).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("build transfer: %w", err)
	}

	instructions := make([]solana.Instruction, instructionCount)
	instructions[IndexCreateOwnerHolding] = CreateHoldingIdempotent(p.FeePayer, ownerHolding, p.Owner, p.Program)
	instructions[IndexCreateForwardHolding] = CreateHoldingIdempotent(p.FeePayer, forwardHolding, p.ForwardOwner, p.Program)
	instructions[IndexWithdraw] = Withdraw(p.Owner, p.StakeReceipt, ownerHolding, p.Program)
	instructions[IndexTransfer] = transfer

	return &Plan{
		Instructions:   instructions,
		OwnerHolding:   ownerHolding,
		ForwardHolding: forwardHolding,
		Amount:         p.Amount,
		Decimals:       p.Program.Decimals,
	}, nil
}

// CreateHoldingIdempotent creates holding for wallet if it does not exist yet, funded by payer.
func CreateHoldingIdempotent(payer, holding, wallet solana.PublicKey, prog Program) *solana.GenericInstruction {
	return solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(payer, true, true),
			solana.NewAccountMeta(holding, true, false),
			solana.NewAccountMeta(wallet, false, false),
			solana.NewAccountMeta(prog.Mint, false, false),
			solana.NewAccountMeta(prog.SystemProgram, false, false),
			solana.NewAccountMeta(prog.TokenProgram, false, false),
		},
		[]byte{createIdempotent},
	)
}

// Withdraw releases the owner's stake into holding. The holding account receives both the
// principal and the rewards.
func Withdraw(owner, stakeReceipt, holding solana.PublicKey, prog Program) *solana.GenericInstruction {
	data := make([]byte, len(prog.WithdrawData))
	copy(data, prog.WithdrawData)
	return solana.NewInstruction(
		prog.ID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(prog.Authority, true, false),
			solana.NewAccountMeta(owner, true, true),
			solana.NewAccountMeta(stakeReceipt, true, false),
			solana.NewAccountMeta(prog.RewardPool, true, false),
			solana.NewAccountMeta(prog.StakePool, true, false),
			solana.NewAccountMeta(prog.Vault, true, false),
			solana.NewAccountMeta(prog.ExpiredVault, true, false),
			solana.NewAccountMeta(holding, true, false),
			solana.NewAccountMeta(holding, true, false),
			solana.NewAccountMeta(prog.TokenProgram, false, false),
			solana.NewAccountMeta(prog.Rent, false, false),
			solana.NewAccountMeta(prog.SystemProgram, false, false),
		},
		data,
	)
}
