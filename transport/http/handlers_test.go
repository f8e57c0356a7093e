package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkview-app/walletcore/adapters/events"
	"github.com/parkview-app/walletcore/adapters/notify"
	"github.com/parkview-app/walletcore/adapters/static"
	"github.com/parkview-app/walletcore/adapters/store"
	"github.com/parkview-app/walletcore/core"
	"github.com/parkview-app/walletcore/deeplink"
	"github.com/parkview-app/walletcore/pairing"
	"github.com/parkview-app/walletcore/ports"
	"github.com/parkview-app/walletcore/service"
)

type stubReader struct{}

func (stubReader) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	return decimal.NewFromInt(1), nil
}

func (stubReader) Call(ctx context.Context, desc ports.CallDescriptor) ([]any, error) {
	return nil, nil
}

type stubLauncher struct{}

func (stubLauncher) CanOpen(ctx context.Context, uri string) bool { return true }
func (stubLauncher) Open(ctx context.Context, uri string) error   { return nil }

const testAddr = "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb8"

// newTestRouter wires the full stack over the static transport and an
// in-memory store.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := service.NewWalletService(
		service.Config{
			Chains:          []string{"eip155:5003"},
			Wallet:          deeplink.SupportedWallets[0],
			DefaultChainID:  5003,
			ApprovalTimeout: 2 * time.Second,
		},
		static.New(store.NewMemoryStore(), nil),
		deeplink.NewDispatcher(stubLauncher{}, nil),
		stubReader{},
		events.NewChannelPublisher(8),
		notify.NewLogNotifier(nil),
		nil,
	)
	require.NoError(t, svc.Initialize(context.Background()))
	t.Cleanup(func() { _ = svc.Close() })

	return SetupRouter(svc, nil)
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var rdr *strings.Reader
	if body == "" {
		rdr = strings.NewReader("")
	} else {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestStatusEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/wallet/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var facts core.Facts
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &facts))
	assert.True(t, facts.IsInitialized)
	assert.False(t, facts.IsConnected)
	assert.Equal(t, int64(5003), facts.ChainID)
}

func TestConnectResolvedByCallback(t *testing.T) {
	router := newTestRouter(t)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- doJSON(router, http.MethodPost, "/wallet/connect", "") }()

	// Wait for the proposal before answering it through the callback.
	require.Eventually(t, func() bool {
		return doJSON(router, http.MethodGet, "/wallet/qr", "").Code == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cb := doJSON(router, http.MethodGet, "/wallet/callback?address="+testAddr+"&chainId=0x138b", "")
	require.Equal(t, http.StatusOK, cb.Code)

	w := <-done
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Address string `json:"address"`
		ChainID int64  `json:"chain_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, testAddr, res.Address)
	assert.Equal(t, int64(5003), res.ChainID)

	status := doJSON(router, http.MethodGet, "/wallet/status", "")
	var facts core.Facts
	require.NoError(t, json.Unmarshal(status.Body.Bytes(), &facts))
	assert.True(t, facts.IsConnected)
}

func TestQRWithoutProposal(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(router, http.MethodGet, "/wallet/qr", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQRRendersPNG(t *testing.T) {
	router := newTestRouter(t)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- doJSON(router, http.MethodPost, "/wallet/connect", "") }()

	var w *httptest.ResponseRecorder
	require.Eventually(t, func() bool {
		w = doJSON(router, http.MethodGet, "/wallet/qr", "")
		return w.Code == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	png := w.Body.Bytes()
	require.Greater(t, len(png), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])

	doJSON(router, http.MethodPost, "/wallet/connect/cancel", "")
	<-done
}

func TestDisconnectWithoutSession(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(router, http.MethodPost, "/wallet/disconnect", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSwitchNetworkValidation(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/wallet/switch", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/wallet/switch", `{"chain_id":"zzz"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/wallet/switch", `{"chain_id":"0x1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRelayWithoutSession(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(router, http.MethodPost, "/wallet/request",
		`{"method":"personal_sign","chain_id":"5003"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCallbackRejection(t *testing.T) {
	router := newTestRouter(t)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- doJSON(router, http.MethodPost, "/wallet/connect", "") }()

	require.Eventually(t, func() bool {
		return doJSON(router, http.MethodGet, "/wallet/qr", "").Code == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cb := doJSON(router, http.MethodGet, "/wallet/callback?approved=false", "")
	require.Equal(t, http.StatusOK, cb.Code)

	w := <-done
	assert.Equal(t, http.StatusConflict, w.Code)
}

// Sanity check that the QR body round-trips through the pairing helper.
func TestQRHelperMatchesEndpointFormat(t *testing.T) {
	png, err := pairing.QRPNG("wc:abc@2?relay-protocol=irn&symKey=00", 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}
