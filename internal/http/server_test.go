package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"moff.io/walletkit/internal/qrcode"
	"moff.io/walletkit/internal/walletkit"
	"moff.io/walletkit/pkg/errors"
)

type stubTransport struct {
	subErr error
}

func (s *stubTransport) Start(ctx context.Context) error { return nil }

func (s *stubTransport) Subscribe(ctx context.Context, topic string) (string, error) {
	if s.subErr != nil {
		return "", s.subErr
	}
	return "sub-" + topic, nil
}

func (s *stubTransport) Close() error { return nil }

func readyAccessor(t *testing.T, name string, cfg walletkit.Config, transport walletkit.Transport) *walletkit.Accessor {
	a := walletkit.NewAccessor(name, func(ctx context.Context, token string) (*walletkit.Kit, error) {
		kit, err := walletkit.New(cfg, transport)
		if err != nil {
			return nil, err
		}
		return kit, kit.Initialize(ctx)
	})
	require.NoError(t, a.Initialize(context.Background(), cfg.ProjectID))
	return a
}

type stubLimiter struct {
	allowed bool
	err     error
}

func (s stubLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	return s.allowed, 30 * time.Second, s.err
}

func do(t *testing.T, s *Server, method, target string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w, out
}

func newTestServer(opts Options) *Server {
	gin.SetMode(gin.TestMode)
	return NewServer(opts)
}

func TestHello(t *testing.T) {
	w, out := do(t, newTestServer(Options{}), http.MethodGet, "/hello", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "world", out["hello"])
}

func TestStatus(t *testing.T) {
	session := readyAccessor(t, "session", walletkit.SessionConfig("abc123"), &stubTransport{})
	pairing := walletkit.NewAccessor("pairing", walletkit.PairingBuilder(func(projectID string) (walletkit.Transport, error) {
		return nil, errors.New("relay unreachable")
	}))
	_ = pairing.Initialize(context.Background(), "p")

	w, out := do(t, newTestServer(Options{Session: session, Pairing: pairing}), http.MethodGet, "/walletkit/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["session"].(map[string]interface{})["ready"])
	p := out["pairing"].(map[string]interface{})
	assert.Equal(t, false, p["ready"])
	assert.Contains(t, p["error"], "relay unreachable")
}

func TestSessionConfig(t *testing.T) {
	w, _ := do(t, newTestServer(Options{}), http.MethodGet, "/walletkit/session/config", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	session := readyAccessor(t, "session", walletkit.SessionConfig("abc123"), &stubTransport{})
	w, out := do(t, newTestServer(Options{Session: session}), http.MethodGet, "/walletkit/session/config", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"eip155:1"}, out["chains"])
	assert.Equal(t, "My App Wallet", out["metadata"].(map[string]interface{})["name"])
}

func TestQRCode(t *testing.T) {
	s := newTestServer(Options{Encoder: qrcode.NewEncoder(qrcode.WithSize(128))})

	w, out := do(t, s, http.MethodGet, "/walletkit/qrcode?uri=wc%3A1234%402%3Frelay-protocol%3Dirn%26symKey%3Dabcd", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(out["data_url"].(string), qrcode.DataURLPrefix))

	w, _ = do(t, s, http.MethodGet, "/walletkit/qrcode", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, out = do(t, s, http.MethodGet, "/walletkit/qrcode?uri="+strings.Repeat("x", 4000), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, out["error"])
}

func TestPair(t *testing.T) {
	w, _ := do(t, newTestServer(Options{}), http.MethodPost, "/walletkit/pair", pairRequest{URI: "wc:abc@2"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	transport := &stubTransport{}
	pairing := readyAccessor(t, "pairing", walletkit.PairingConfig("p"), transport)
	s := newTestServer(Options{Pairing: pairing})

	w, out := do(t, s, http.MethodPost, "/walletkit/pair", pairRequest{URI: "wc:abc@2?relay-protocol=irn&symKey=00&expiryTimestamp=4102444800"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", out["topic"])
	assert.Equal(t, "sub-abc", out["subscription_id"])
	assert.EqualValues(t, 4102444800, out["expiry"])

	w, _ = do(t, s, http.MethodPost, "/walletkit/pair", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, s, http.MethodPost, "/walletkit/pair", pairRequest{URI: "not-a-uri"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	transport.subErr = errors.New("relay down")
	w, _ = do(t, s, http.MethodPost, "/walletkit/pair", pairRequest{URI: "wc:def@2"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestVerify(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	msg := "login nonce 42"
	sig, err := crypto.Sign(accounts.TextHash([]byte(msg)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27

	s := newTestServer(Options{})
	w, out := do(t, s, http.MethodPost, "/walletkit/verify", verifyRequest{
		Address:   crypto.PubkeyToAddress(key.PublicKey).Hex(),
		Signature: hexutil.Encode(sig),
		Message:   msg,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["valid"])

	w, _ = do(t, s, http.MethodPost, "/walletkit/verify", map[string]string{"message": msg})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := verifyRequest{
		Address:   crypto.PubkeyToAddress(key.PublicKey).Hex(),
		Signature: hexutil.Encode(sig),
		Message:   msg,
		Chain:     "eip155:137",
	}
	w, out = do(t, s, http.MethodPost, "/walletkit/verify", req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "polygon", out["chain"])

	for _, chain := range []string{"solana:mainnet", "eip155:424242"} {
		req.Chain = chain
		w, _ = do(t, s, http.MethodPost, "/walletkit/verify", req)
		assert.Equal(t, http.StatusBadRequest, w.Code, chain)
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(Options{Limiter: stubLimiter{allowed: false}})
	w, _ := do(t, s, http.MethodGet, "/walletkit/status", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))

	w, _ = do(t, s, http.MethodGet, "/hello", nil)
	assert.Equal(t, http.StatusOK, w.Code, "health is not limited")

	s = newTestServer(Options{Limiter: stubLimiter{err: errors.New("redis down")}})
	w, _ = do(t, s, http.MethodGet, "/walletkit/status", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
