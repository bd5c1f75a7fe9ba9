// Package solana wraps the Solana primitives the sweeper needs: keypair validation,
// associated token account derivation and RPC client construction.
package solana

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go/rpc"
)

// ParseCommitment maps processed|confirmed|finalized onto rpc commitments. An empty
// string yields def.
func ParseCommitment(s string, def rpc.CommitmentType) (rpc.CommitmentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def, nil
	case "processed":
		return rpc.CommitmentProcessed, nil
	case "confirmed":
		return rpc.CommitmentConfirmed, nil
	case "finalized":
		return rpc.CommitmentFinalized, nil
	default:
		return def, fmt.Errorf("unknown commitment %q", s)
	}
}

// NewRPC returns a JSON-RPC client for the given endpoint.
func NewRPC(rpcURL string) (*rpc.Client, error) {
	if strings.TrimSpace(rpcURL) == "" {
		return nil, fmt.Errorf("rpc url is empty")
	}
	return rpc.New(rpcURL), nil
}
