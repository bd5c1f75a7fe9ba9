package execution

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"stakesweep-go/internal/bundle"
	dex "stakesweep-go/internal/dex/solana"
	"stakesweep-go/internal/test"
)

type fakeRPC struct {
	blockhash    solana.Hash
	blockhashErr error
	sendErr      error
	sent         []*solana.Transaction
	opts         []rpc.TransactionOpts
	commitments  []rpc.CommitmentType
}

func (f *fakeRPC) GetLatestBlockhash(_ context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	f.commitments = append(f.commitments, commitment)
	if f.blockhashErr != nil {
		return nil, f.blockhashErr
	}
	return &rpc.GetLatestBlockhashResult{Value: &rpc.LatestBlockhashResult{Blockhash: f.blockhash, LastValidBlockHeight: 10}}, nil
}

func (f *fakeRPC) SendTransactionWithOpts(_ context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	f.sent = append(f.sent, tx)
	f.opts = append(f.opts, opts)
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	return tx.Signatures[0], nil
}

func newIdentity(t *testing.T, role dex.Role) dex.Identity {
	t.Helper()
	w := solana.NewWallet()
	id, err := dex.ValidateIdentity(role, w.PrivateKey.String(), w.PublicKey().String())
	require.NoError(t, err)
	return id
}

func samplePlan(t *testing.T, feePayer, owner dex.Identity) *bundle.Plan {
	t.Helper()
	plan, err := bundle.Build(bundle.Params{
		FeePayer:     feePayer.PublicKey,
		Owner:        owner.PublicKey,
		ForwardOwner: solana.NewWallet().PublicKey(),
		StakeReceipt: solana.NewWallet().PublicKey(),
		Amount:       100000000000,
		Program:      bundle.DefaultProgram(),
	})
	require.NoError(t, err)
	return plan
}

func TestComposeSignsWithFeePayerAndOwner(t *testing.T) {
	feePayer := newIdentity(t, dex.RoleFeePayer)
	owner := newIdentity(t, dex.RoleOwner)
	plan := samplePlan(t, feePayer, owner)
	blockhash := solana.Hash(solana.NewWallet().PublicKey())

	tx, err := Compose(plan.Instructions, blockhash, feePayer, owner)
	require.NoError(t, err)
	require.Len(t, tx.Signatures, 2)
	require.Equal(t, uint8(2), tx.Message.Header.NumRequiredSignatures)
	require.Equal(t, feePayer.PublicKey, tx.Message.AccountKeys[0])
	require.Equal(t, owner.PublicKey, tx.Message.AccountKeys[1])
	require.Equal(t, blockhash, tx.Message.RecentBlockhash)
	require.Len(t, tx.Message.Instructions, 4)
	require.NoError(t, tx.VerifySignatures())
}

func TestComposeRejectsWrongOwnerKey(t *testing.T) {
	feePayer := newIdentity(t, dex.RoleFeePayer)
	owner := newIdentity(t, dex.RoleOwner)
	plan := samplePlan(t, feePayer, owner)

	impostor := owner
	impostor.PrivateKey = solana.NewWallet().PrivateKey
	_, err := Compose(plan.Instructions, solana.Hash{}, feePayer, impostor)
	require.ErrorIs(t, err, ErrSigners)
}

func TestComposeRejectsExtraSigner(t *testing.T) {
	feePayer := newIdentity(t, dex.RoleFeePayer)
	owner := newIdentity(t, dex.RoleOwner)
	plan := samplePlan(t, feePayer, owner)

	stranger := solana.NewWallet().PublicKey()
	extra := solana.NewInstruction(
		solana.MemoProgramID,
		solana.AccountMetaSlice{solana.NewAccountMeta(stranger, false, true)},
		[]byte("x"),
	)
	_, err := Compose(append(plan.Instructions, extra), solana.Hash{}, feePayer, owner)
	require.ErrorIs(t, err, ErrSigners)
}

func TestSubmitSendsOnce(t *testing.T) {
	feePayer := newIdentity(t, dex.RoleFeePayer)
	owner := newIdentity(t, dex.RoleOwner)
	plan := samplePlan(t, feePayer, owner)

	retries := uint(3)
	fake := &fakeRPC{blockhash: solana.Hash(solana.NewWallet().PublicKey())}
	exec := NewExecutor(fake, Delivery{PreflightCommitment: rpc.CommitmentConfirmed, MaxRetries: &retries}, zerolog.Nop())

	sig, err := exec.Submit(context.Background(), plan.Instructions, feePayer, owner)
	require.NoError(t, err)
	require.Len(t, fake.sent, 1)
	require.Equal(t, fake.sent[0].Signatures[0], sig)
	require.Equal(t, []rpc.CommitmentType{rpc.CommitmentFinalized}, fake.commitments)
	require.False(t, fake.opts[0].SkipPreflight)
	require.Equal(t, rpc.CommitmentConfirmed, fake.opts[0].PreflightCommitment)
	require.Equal(t, &retries, fake.opts[0].MaxRetries)
	require.Nil(t, fake.opts[0].MinContextSlot)
}

func TestSubmitDoesNotSendUnsignableBundle(t *testing.T) {
	feePayer := newIdentity(t, dex.RoleFeePayer)
	owner := newIdentity(t, dex.RoleOwner)
	plan := samplePlan(t, feePayer, owner)

	fake := &fakeRPC{}
	exec := NewExecutor(fake, Delivery{}, zerolog.Nop())
	missing := owner
	missing.PrivateKey = nil

	_, err := exec.Submit(context.Background(), plan.Instructions, feePayer, missing)
	require.ErrorIs(t, err, ErrSigners)
	require.Empty(t, fake.sent)
}

func TestSubmitBlockhashFailure(t *testing.T) {
	feePayer := newIdentity(t, dex.RoleFeePayer)
	owner := newIdentity(t, dex.RoleOwner)
	plan := samplePlan(t, feePayer, owner)

	fake := &fakeRPC{blockhashErr: errors.New("timeout")}
	exec := NewExecutor(fake, Delivery{}, zerolog.Nop())

	_, err := exec.Submit(context.Background(), plan.Instructions, feePayer, owner)
	require.ErrorIs(t, err, ErrBlockhash)
	require.Empty(t, fake.sent)
}

func TestSubmitSendFailure(t *testing.T) {
	feePayer := newIdentity(t, dex.RoleFeePayer)
	owner := newIdentity(t, dex.RoleOwner)
	plan := samplePlan(t, feePayer, owner)

	fake := &fakeRPC{sendErr: errors.New("simulation failed")}
	exec := NewExecutor(fake, Delivery{}, zerolog.Nop())

	_, err := exec.Submit(context.Background(), plan.Instructions, feePayer, owner)
	require.ErrorIs(t, err, ErrSend)
	require.Contains(t, err.Error(), "simulation failed")
}

func TestSubmitOverJSONRPC(t *testing.T) {
	server := test.NewRPCServer()
	defer server.Close()

	feePayer := newIdentity(t, dex.RoleFeePayer)
	owner := newIdentity(t, dex.RoleOwner)
	plan := samplePlan(t, feePayer, owner)

	var buf bytes.Buffer
	exec := NewExecutor(rpc.New(server.URL), Delivery{}, zerolog.New(&buf).Level(zerolog.DebugLevel))

	sig, err := exec.Submit(context.Background(), plan.Instructions, feePayer, owner)
	require.NoError(t, err)
	require.Equal(t, 1, server.Calls("getLatestBlockhash"))
	require.Equal(t, 1, server.Calls("sendTransaction"))

	sent := server.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, sig, sent[0].Signatures[0])
	require.Equal(t, server.Blockhash, sent[0].Message.RecentBlockhash)
	require.NoError(t, CheckSigners(sent[0], feePayer.PublicKey, owner.PublicKey))
	require.True(t, strings.Contains(buf.String(), "bundle sent"))
}

func TestSubmitOverJSONRPCRejected(t *testing.T) {
	server := test.NewRPCServer()
	defer server.Close()

	feePayer := newIdentity(t, dex.RoleFeePayer)
	owner := newIdentity(t, dex.RoleOwner)
	server.FailOwner(owner.PublicKey, "Transaction simulation failed")
	plan := samplePlan(t, feePayer, owner)

	exec := NewExecutor(rpc.New(server.URL), Delivery{}, zerolog.Nop())
	_, err := exec.Submit(context.Background(), plan.Instructions, feePayer, owner)
	require.ErrorIs(t, err, ErrSend)
	require.Empty(t, server.Sent())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	feePayer := newIdentity(t, dex.RoleFeePayer)
	owner := newIdentity(t, dex.RoleOwner)
	plan := samplePlan(t, feePayer, owner)

	tx, err := Compose(plan.Instructions, solana.Hash(solana.NewWallet().PublicKey()), feePayer, owner)
	require.NoError(t, err)

	b64, err := Encode(tx)
	require.NoError(t, err)
	decoded, err := Decode(b64)
	require.NoError(t, err)
	require.Equal(t, tx.Signatures, decoded.Signatures)
	require.NoError(t, CheckSigners(decoded, feePayer.PublicKey, owner.PublicKey))
}
