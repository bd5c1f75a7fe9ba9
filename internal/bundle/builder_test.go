package bundle

import (
	"encoding/binary"
	"testing"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"stakesweep-go/internal/amount"
	dex "stakesweep-go/internal/dex/solana"
)

type fixture struct {
	feePayer solana.PublicKey
	owner    solana.PublicKey
	forward  solana.PublicKey
	receipt  solana.PublicKey
}

func newFixture() fixture {
	return fixture{
		feePayer: solana.NewWallet().PublicKey(),
		owner:    solana.NewWallet().PublicKey(),
		forward:  solana.NewWallet().PublicKey(),
		receipt:  solana.NewWallet().PublicKey(),
	}
}

func (f fixture) params(units uint64) Params {
	return Params{
		FeePayer:     f.feePayer,
		Owner:        f.owner,
		ForwardOwner: f.forward,
		StakeReceipt: f.receipt,
		Amount:       units,
		Program:      DefaultProgram(),
	}
}

func TestBuildOrder(t *testing.T) {
	f := newFixture()
	prog := DefaultProgram()
	units, err := amount.ToBaseUnits(decimal.RequireFromString("1000000.0"), int32(prog.Decimals))
	require.NoError(t, err)

	plan, err := Build(f.params(units))
	require.NoError(t, err)
	require.Len(t, plan.Instructions, 4)

	require.Equal(t, solana.SPLAssociatedTokenAccountProgramID, plan.Instructions[IndexCreateOwnerHolding].ProgramID())
	require.Equal(t, solana.SPLAssociatedTokenAccountProgramID, plan.Instructions[IndexCreateForwardHolding].ProgramID())
	require.Equal(t, prog.ID, plan.Instructions[IndexWithdraw].ProgramID())
	require.Equal(t, solana.TokenProgramID, plan.Instructions[IndexTransfer].ProgramID())

	ownerHolding, err := dex.AssociatedTokenAddress(f.owner, prog.Mint)
	require.NoError(t, err)
	forwardHolding, err := dex.AssociatedTokenAddress(f.forward, prog.Mint)
	require.NoError(t, err)
	require.Equal(t, ownerHolding, plan.OwnerHolding)
	require.Equal(t, forwardHolding, plan.ForwardHolding)
	require.Equal(t, uint64(100000000000), plan.Amount)
}

func TestBuildCreateHoldingAccounts(t *testing.T) {
	f := newFixture()
	plan, err := Build(f.params(1))
	require.NoError(t, err)

	for _, tc := range []struct {
		idx     int
		holding solana.PublicKey
		wallet  solana.PublicKey
	}{
		{IndexCreateOwnerHolding, plan.OwnerHolding, f.owner},
		{IndexCreateForwardHolding, plan.ForwardHolding, f.forward},
	} {
		ix := plan.Instructions[tc.idx]
		accounts := ix.Accounts()
		require.Len(t, accounts, 6)
		require.Equal(t, f.feePayer, accounts[0].PublicKey)
		require.True(t, accounts[0].IsSigner)
		require.True(t, accounts[0].IsWritable)
		require.Equal(t, tc.holding, accounts[1].PublicKey)
		require.True(t, accounts[1].IsWritable)
		require.Equal(t, tc.wallet, accounts[2].PublicKey)
		require.False(t, accounts[2].IsWritable)
		require.Equal(t, DefaultProgram().Mint, accounts[3].PublicKey)
		require.Equal(t, solana.SystemProgramID, accounts[4].PublicKey)
		require.Equal(t, solana.TokenProgramID, accounts[5].PublicKey)

		data, err := ix.Data()
		require.NoError(t, err)
		require.Equal(t, []byte{1}, data)
	}
}

func TestBuildWithdrawAccounts(t *testing.T) {
	f := newFixture()
	prog := DefaultProgram()
	plan, err := Build(f.params(1))
	require.NoError(t, err)

	ix := plan.Instructions[IndexWithdraw]
	accounts := ix.Accounts()
	want := []solana.PublicKey{
		prog.Authority, f.owner, f.receipt, prog.RewardPool, prog.StakePool, prog.Vault,
		prog.ExpiredVault, plan.OwnerHolding, plan.OwnerHolding,
		solana.TokenProgramID, solana.SysVarRentPubkey, solana.SystemProgramID,
	}
	require.Len(t, accounts, len(want))
	for i, key := range want {
		require.Equal(t, key, accounts[i].PublicKey, "account %d", i)
		require.Equal(t, i < 9, accounts[i].IsWritable, "account %d writable", i)
		require.Equal(t, i == 1, accounts[i].IsSigner, "account %d signer", i)
	}

	data, err := ix.Data()
	require.NoError(t, err)
	require.Equal(t, []byte{0xa7, 0xe3, 0xbf, 0x88, 0x21, 0x54, 0x12, 0xda}, data)
}

func TestBuildTransferCarriesConvertedAmount(t *testing.T) {
	f := newFixture()
	units, err := amount.ToBaseUnits(decimal.RequireFromString("1234.56789"), 5)
	require.NoError(t, err)

	plan, err := Build(f.params(units))
	require.NoError(t, err)

	ix := plan.Instructions[IndexTransfer]
	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 10)
	require.Equal(t, byte(token.Instruction_TransferChecked), data[0])
	require.Equal(t, units, binary.LittleEndian.Uint64(data[1:9]))
	require.Equal(t, DefaultDecimals, data[9])

	accounts := ix.Accounts()
	require.Len(t, accounts, 4)
	require.Equal(t, plan.OwnerHolding, accounts[0].PublicKey)
	require.Equal(t, DefaultProgram().Mint, accounts[1].PublicKey)
	require.Equal(t, plan.ForwardHolding, accounts[2].PublicKey)
	require.Equal(t, f.owner, accounts[3].PublicKey)
	require.True(t, accounts[3].IsSigner)
}

func TestBuildZeroAmountKeepsWithdraw(t *testing.T) {
	f := newFixture()
	plan, err := Build(f.params(0))
	require.NoError(t, err)
	require.Len(t, plan.Instructions, 4)
	require.Equal(t, DefaultProgram().ID, plan.Instructions[IndexWithdraw].ProgramID())

	data, err := plan.Instructions[IndexTransfer].Data()
	require.NoError(t, err)
	require.Equal(t, uint64(0), binary.LittleEndian.Uint64(data[1:9]))
}

func TestBuildRejectsIncompleteProgram(t *testing.T) {
	p := newFixture().params(1)
	p.Program.Vault = solana.PublicKey{}
	_, err := Build(p)
	require.Error(t, err)

	p = newFixture().params(1)
	p.Program.WithdrawData = nil
	_, err = Build(p)
	require.Error(t, err)
}

func TestProgramValidateReportsFirstMissingInOrder(t *testing.T) {
	prog := DefaultProgram()
	prog.Rent = solana.PublicKey{}
	prog.Mint = solana.PublicKey{}
	prog.Authority = solana.PublicKey{}
	for i := 0; i < 20; i++ {
		require.EqualError(t, prog.Validate(), "program: authority not set")
	}
}

func TestBuildIsPure(t *testing.T) {
	f := newFixture()
	a, err := Build(f.params(42))
	require.NoError(t, err)
	b, err := Build(f.params(42))
	require.NoError(t, err)
	for i := range a.Instructions {
		da, _ := a.Instructions[i].Data()
		db, _ := b.Instructions[i].Data()
		require.Equal(t, da, db)
		require.Equal(t, a.Instructions[i].Accounts(), b.Instructions[i].Accounts())
	}
}
