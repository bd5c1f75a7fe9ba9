// Package execution signs instruction bundles and submits them to a Solana RPC endpoint.
package execution

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	dex "stakesweep-go/internal/dex/solana"
	"stakesweep-go/internal/metrics"
)

// RequiredSigners is the number of signatures every bundle carries: fee payer and owner.
const RequiredSigners = 2

var (
	// ErrSigners means the bundle's signer set is not exactly {fee payer, owner}.
	ErrSigners = errors.New("bundle signer set invalid")
	// ErrBlockhash wraps failures fetching the recent blockhash.
	ErrBlockhash = errors.New("fetch blockhash")
	// ErrSend wraps RPC rejections of a signed bundle.
	ErrSend = errors.New("send transaction")
)

// RPC is the subset of *rpc.Client used for submission.
type RPC interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
}

// Delivery mirrors the RPC send options. The zero value uses node defaults.
type Delivery struct {
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
	BlockhashCommitment rpc.CommitmentType
	MaxRetries          *uint
	MinContextSlot      *uint64
	// Timeout bounds each RPC call; zero leaves calls bounded only by the caller's context.
	Timeout time.Duration
}

func (d Delivery) opts() rpc.TransactionOpts {
	return rpc.TransactionOpts{
		SkipPreflight:       d.SkipPreflight,
		PreflightCommitment: d.PreflightCommitment,
		MaxRetries:          d.MaxRetries,
		MinContextSlot:      d.MinContextSlot,
	}
}

// Executor fetches blockhashes, composes signed bundles and sends them.
type Executor struct {
	rpc      RPC
	delivery Delivery
	log      zerolog.Logger
}

// NewExecutor wires an RPC client, delivery options and a logger.
func NewExecutor(client RPC, delivery Delivery, log zerolog.Logger) *Executor {
	if delivery.BlockhashCommitment == "" {
		delivery.BlockhashCommitment = rpc.CommitmentFinalized
	}
	return &Executor{rpc: client, delivery: delivery, log: log}
}

// LatestBlockhash fetches the freshness token for a new bundle.
func (e *Executor) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	ctx, cancel := e.callContext(ctx)
	defer cancel()
	res, err := e.rpc.GetLatestBlockhash(ctx, e.delivery.BlockhashCommitment)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("%w: %v", ErrBlockhash, err)
	}
	if res == nil || res.Value == nil {
		return solana.Hash{}, fmt.Errorf("%w: empty result", ErrBlockhash)
	}
	return res.Value.Blockhash, nil
}

// Submit fetches a blockhash, composes the bundle signed by feePayer and owner, and sends it.
// Nothing is sent when composition fails.
func (e *Executor) Submit(ctx context.Context, instructions []solana.Instruction, feePayer, owner dex.Identity) (solana.Signature, error) {
	blockhash, err := e.LatestBlockhash(ctx)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues(metrics.ResultFailed).Inc()
		return solana.Signature{}, err
	}
	tx, err := Compose(instructions, blockhash, feePayer, owner)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues(metrics.ResultRejected).Inc()
		return solana.Signature{}, err
	}

	sendCtx, cancel := e.callContext(ctx)
	defer cancel()
	sig, err := e.rpc.SendTransactionWithOpts(sendCtx, tx, e.delivery.opts())
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues(metrics.ResultFailed).Inc()
		return solana.Signature{}, fmt.Errorf("%w: %v", ErrSend, err)
	}
	metrics.SubmissionsTotal.WithLabelValues(metrics.ResultSubmitted).Inc()
	e.log.Debug().Str("owner", owner.PublicKey.String()).Str("blockhash", blockhash.String()).Str("signature", sig.String()).Msg("bundle sent")
	return sig, nil
}

func (e *Executor) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.delivery.Timeout > 0 {
		return context.WithTimeout(ctx, e.delivery.Timeout)
	}
	return context.WithCancel(ctx)
}

// Compose builds a transaction paid by feePayer and signs it with feePayer and owner.
func Compose(instructions []solana.Instruction, blockhash solana.Hash, feePayer, owner dex.Identity) (*solana.Transaction, error) {
	if len(instructions) == 0 {
		return nil, errors.New("compose: no instructions")
	}
	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(feePayer.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("compose: %w", err)
	}
	signers := map[solana.PublicKey]*solana.PrivateKey{
		feePayer.PublicKey: &feePayer.PrivateKey,
		owner.PublicKey:    &owner.PrivateKey,
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		pk := signers[key]
		if pk == nil || len(*pk) != ed25519.PrivateKeySize {
			return nil
		}
		return pk
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigners, err)
	}
	if err := CheckSigners(tx, feePayer.PublicKey, owner.PublicKey); err != nil {
		return nil, err
	}
	return tx, nil
}

// CheckSigners requires exactly two verified signatures, fee payer first, owner second.
func CheckSigners(tx *solana.Transaction, feePayer, owner solana.PublicKey) error {
	n := int(tx.Message.Header.NumRequiredSignatures)
	if n != RequiredSigners || len(tx.Signatures) != RequiredSigners {
		return fmt.Errorf("%w: want %d signatures, message requires %d and carries %d", ErrSigners, RequiredSigners, n, len(tx.Signatures))
	}
	if len(tx.Message.AccountKeys) < RequiredSigners {
		return fmt.Errorf("%w: message lists %d accounts", ErrSigners, len(tx.Message.AccountKeys))
	}
	if !tx.Message.AccountKeys[0].Equals(feePayer) {
		return fmt.Errorf("%w: first signer %s is not the fee payer", ErrSigners, tx.Message.AccountKeys[0])
	}
	if !tx.Message.AccountKeys[1].Equals(owner) {
		return fmt.Errorf("%w: second signer %s is not the owner", ErrSigners, tx.Message.AccountKeys[1])
	}
	if err := tx.VerifySignatures(); err != nil {
		return fmt.Errorf("%w: %v", ErrSigners, err)
	}
	return nil
}

// Encode returns the base64 wire form of a signed transaction.
func Encode(tx *solana.Transaction) (string, error) {
	var buf bytes.Buffer
	if err := tx.MarshalWithEncoder(bin.NewBinEncoder(&buf)); err != nil {
		return "", fmt.Errorf("encode tx: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode parses the base64 wire form produced by Encode.
func Decode(b64 string) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode tx: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("unmarshal tx: %w", err)
	}
	return tx, nil
}
