// Package test provides fakes shared by package tests.
package test

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// RPCServer is an in-memory Solana JSON-RPC endpoint answering getLatestBlockhash and
// sendTransaction.
type RPCServer struct {
	*httptest.Server

	Blockhash solana.Hash

	mu             sync.Mutex
	failOwners     map[solana.PublicKey]string
	blockhashFails bool
	sent           []*solana.Transaction
	calls          map[string]int
}

// NewRPCServer starts the fake endpoint. Callers must Close it.
func NewRPCServer() *RPCServer {
	s := &RPCServer{
		Blockhash:  solana.Hash(solana.NewWallet().PublicKey()),
		failOwners: make(map[solana.PublicKey]string),
		calls:      make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// FailOwner makes sendTransaction reject bundles whose second signer is owner.
func (s *RPCServer) FailOwner(owner solana.PublicKey, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOwners[owner] = msg
}

// FailBlockhash makes getLatestBlockhash return an error.
func (s *RPCServer) FailBlockhash() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blockhashFails = true
}

// Sent returns the accepted transactions in arrival order.
func (s *RPCServer) Sent() []*solana.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*solana.Transaction, len(s.sent))
	copy(out, s.sent)
	return out
}

// Calls reports how many times method was invoked.
func (s *RPCServer) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *RPCServer) handle(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}
	if len(resp.ID) == 0 {
		resp.ID = json.RawMessage("0")
	}

	s.mu.Lock()
	s.calls[req.Method]++
	switch req.Method {
	case "getLatestBlockhash":
		if s.blockhashFails {
			resp.Error = &rpcError{Code: -32005, Message: "node is behind"}
			break
		}
		resp.Result = map[string]any{
			"context": map[string]any{"slot": 1},
			"value": map[string]any{
				"blockhash":            s.Blockhash.String(),
				"lastValidBlockHeight": 150,
			},
		}
	case "sendTransaction":
		tx, err := decodeParamTx(req.Params)
		if err != nil {
			resp.Error = &rpcError{Code: -32602, Message: err.Error()}
			break
		}
		if len(tx.Message.AccountKeys) > 1 {
			if msg, ok := s.failOwners[tx.Message.AccountKeys[1]]; ok {
				resp.Error = &rpcError{Code: -32002, Message: msg}
				break
			}
		}
		s.sent = append(s.sent, tx)
		resp.Result = tx.Signatures[0].String()
	default:
		resp.Error = &rpcError{Code: -32601, Message: "method not found"}
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func decodeParamTx(params []json.RawMessage) (*solana.Transaction, error) {
	if len(params) == 0 {
		return nil, errMissingParam
	}
	var b64 string
	if err := json.Unmarshal(params[0], &b64); err != nil {
		return nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	return solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
}

type paramError string

func (e paramError) Error() string { return string(e) }

const errMissingParam = paramError("missing transaction param")
