package solana

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ybbus/jsonrpc"

	"github.com/code-payments/token-kit/pkg/testutil"
)

type rpcRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     int               `json:"id"`
}

type rpcServer struct {
	sync.Mutex
	calls   map[string]int
	handler func(count int, req rpcRequest) (result interface{}, rpcErr map[string]interface{})
}

func newTestClient(t *testing.T, handler func(count int, req rpcRequest) (interface{}, map[string]interface{})) (*client, *rpcServer) {
	s := &rpcServer{
		calls:   make(map[string]int),
		handler: handler,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		s.Lock()
		s.calls[req.Method]++
		count := s.calls[req.Method]
		s.Unlock()

		result, rpcErr := s.handler(count, req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
		}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(server.Close)

	return &client{
		log:    logrus.StandardLogger().WithField("type", "solana/client"),
		client: jsonrpc.NewClient(server.URL),
		newBackoff: func() backoff.BackOff {
			return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, maxRetries)
		},
	}, s
}

func (s *rpcServer) count(method string) int {
	s.Lock()
	defer s.Unlock()
	return s.calls[method]
}

func TestClient_GetAccountInfo(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 2)
	data := []byte{1, 2, 3, 4}

	c, _ := newTestClient(t, func(_ int, req rpcRequest) (interface{}, map[string]interface{}) {
		require.Equal(t, "getAccountInfo", req.Method)
		require.Len(t, req.Params, 2)

		var address string
		require.NoError(t, json.Unmarshal(req.Params[0], &address))

		if address != base58.Encode(keys[0]) {
			return map[string]interface{}{
				"context": map[string]interface{}{"slot": 1},
				"value":   nil,
			}, nil
		}

		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 1},
			"value": map[string]interface{}{
				"lamports":   2039280,
				"owner":      base58.Encode(keys[1]),
				"data":       []string{base64.StdEncoding.EncodeToString(data), "base64"},
				"executable": false,
			},
		}, nil
	})

	info, err := c.GetAccountInfo(context.Background(), keys[0], CommitmentConfirmed)
	require.NoError(t, err)
	assert.EqualValues(t, keys[1], info.Owner)
	assert.Equal(t, data, info.Data)
	assert.EqualValues(t, 2039280, info.Lamports)
	assert.False(t, info.Executable)

	_, err = c.GetAccountInfo(context.Background(), keys[1], CommitmentConfirmed)
	assert.Equal(t, ErrNoAccountInfo, err)
}

func TestClient_GetLatestBlockhash(t *testing.T) {
	var expected Blockhash
	for i := range expected {
		expected[i] = byte(i)
	}

	c, s := newTestClient(t, func(_ int, req rpcRequest) (interface{}, map[string]interface{}) {
		require.Equal(t, "getLatestBlockhash", req.Method)
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 1},
			"value": map[string]interface{}{
				"blockhash":            base58.Encode(expected[:]),
				"lastValidBlockHeight": 100,
			},
		}, nil
	})

	actual, err := c.GetLatestBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, expected, actual)

	// Served from the cache.
	actual, err = c.GetLatestBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, expected, actual)
	assert.Equal(t, 1, s.count("getLatestBlockhash"))
}

func TestClient_Retry(t *testing.T) {
	c, s := newTestClient(t, func(count int, _ rpcRequest) (interface{}, map[string]interface{}) {
		switch count {
		case 1:
			return nil, map[string]interface{}{"code": 429, "message": "too many requests"}
		case 2:
			return nil, map[string]interface{}{"code": rpcNodeUnhealthyCode, "message": "node is unhealthy"}
		default:
			return 2039280, nil
		}
	})

	lamports, err := c.GetMinimumBalanceForRentExemption(context.Background(), 165)
	require.NoError(t, err)
	assert.EqualValues(t, 2039280, lamports)
	assert.Equal(t, 3, s.count("getMinimumBalanceForRentExemption"))
}

func TestClient_RetryExhausted(t *testing.T) {
	c, s := newTestClient(t, func(_ int, _ rpcRequest) (interface{}, map[string]interface{}) {
		return nil, map[string]interface{}{"code": 429, "message": "too many requests"}
	})

	_, err := c.GetMinimumBalanceForRentExemption(context.Background(), 165)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errRateLimited))
	assert.Contains(t, err.Error(), "too many requests (code 429)")
	assert.Equal(t, 1+maxRetries, s.count("getMinimumBalanceForRentExemption"))
}

func TestClient_RetryExhausted_ServiceError(t *testing.T) {
	c, _ := newTestClient(t, func(_ int, _ rpcRequest) (interface{}, map[string]interface{}) {
		return nil, map[string]interface{}{"code": rpcNodeUnhealthyCode, "message": "node is behind"}
	})

	_, err := c.GetMinimumBalanceForRentExemption(context.Background(), 165)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errServiceError))
	assert.Contains(t, err.Error(), "node is behind")
}

func TestClient_ContextDeadline(t *testing.T) {
	c, s := newTestClient(t, func(_ int, _ rpcRequest) (interface{}, map[string]interface{}) {
		return nil, map[string]interface{}{"code": 429, "message": "too many requests"}
	})
	c.newBackoff = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = time.Second
		return backoff.WithMaxRetries(b, maxRetries)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.GetMinimumBalanceForRentExemption(ctx, 165)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 1, s.count("getMinimumBalanceForRentExemption"))

	// An expired context never reaches the server.
	_, err = c.GetMinimumBalanceForRentExemption(ctx, 165)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, s.count("getMinimumBalanceForRentExemption"))
}

func TestClient_NoRetryOnPermanentError(t *testing.T) {
	c, s := newTestClient(t, func(_ int, _ rpcRequest) (interface{}, map[string]interface{}) {
		return nil, map[string]interface{}{"code": -32602, "message": "invalid params"}
	})

	_, err := c.GetMinimumBalanceForRentExemption(context.Background(), 165)
	assert.Error(t, err)
	assert.Equal(t, 1, s.count("getMinimumBalanceForRentExemption"))
}

func TestClient_SubmitTransaction(t *testing.T) {
	payer := testutil.GenerateSolanaKeypair(t)
	keys := testutil.GenerateSolanaKeys(t, 2)

	tx := NewTransaction(
		payer.Public().(ed25519.PublicKey),
		NewInstruction(keys[1], []byte{1}, NewAccountMeta(keys[0], false)),
	)
	require.NoError(t, tx.Sign(payer))

	var fail bool
	c, _ := newTestClient(t, func(_ int, req rpcRequest) (interface{}, map[string]interface{}) {
		require.Equal(t, "sendTransaction", req.Method)

		var encoded string
		require.NoError(t, json.Unmarshal(req.Params[0], &encoded))
		raw, err := base58.Decode(encoded)
		require.NoError(t, err)

		var submitted Transaction
		require.NoError(t, submitted.Unmarshal(raw))
		require.Equal(t, tx.Signatures, submitted.Signatures)

		if fail {
			return nil, map[string]interface{}{
				"code":    -32002,
				"message": "Transaction simulation failed",
				"data": map[string]interface{}{
					"err": map[string]interface{}{
						"InstructionError": []interface{}{0, map[string]interface{}{"Custom": 1}},
					},
				},
			}
		}
		return base58.Encode(tx.Signature()), nil
	})

	sig, err := c.SubmitTransaction(context.Background(), tx, CommitmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, tx.Signatures[0], sig)

	fail = true
	sig, err = c.SubmitTransaction(context.Background(), tx, CommitmentConfirmed)
	require.Error(t, err)
	assert.Equal(t, tx.Signatures[0], sig)

	instructionErr, ok := err.(*InstructionError)
	require.True(t, ok)
	assert.Equal(t, 0, instructionErr.Index)
	require.NotNil(t, instructionErr.CustomError())
	assert.Equal(t, CustomError(1), *instructionErr.CustomError())
}
