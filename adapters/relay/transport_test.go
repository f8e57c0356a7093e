package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkview-app/walletcore/adapters/store"
	"github.com/parkview-app/walletcore/core"
)

func TestSessionEventCarriesRawJSONData(t *testing.T) {
	tr := New(Config{}, store.NewMemoryStore(), nil)

	tr.handleSessionEvent("topic-1", wireMessage{
		JSONRPC: "2.0",
		ID:      7,
		Method:  wcSessionEvent,
		Params:  []byte(`{"chainId":"eip155:1","event":{"name":"chainChanged","data":"0x1"}}`),
	})

	ev := <-tr.events
	notice, ok := ev.(core.SessionNotice)
	require.True(t, ok)
	assert.Equal(t, "topic-1", notice.Topic)
	assert.Equal(t, "chainChanged", notice.Name)
	assert.Equal(t, int64(1), notice.ChainID)
	// Data stays the raw JSON value, quotes included; consumers decode it.
	assert.Equal(t, `"0x1"`, notice.Data)
}

func TestEmitNeverDropsSessionDelete(t *testing.T) {
	tr := New(Config{}, store.NewMemoryStore(), nil)

	for i := 0; i < cap(tr.events); i++ {
		tr.emit(core.SessionNotice{Topic: "noise", Name: "accountsChanged"})
	}

	// Best-effort events are dropped once the channel is full.
	tr.emit(core.SessionNotice{Topic: "overflow", Name: "accountsChanged"})
	require.Len(t, tr.events, cap(tr.events))

	delivered := make(chan struct{})
	go func() {
		tr.emit(core.SessionDelete{Topic: "gone", Reason: core.ReasonUserDisconnected})
		close(delivered)
	}()

	select {
	case <-delivered:
		t.Fatal("delete delivered with no channel capacity")
	case <-time.After(20 * time.Millisecond):
	}

	// The consumer draining one slot unblocks the delete.
	<-tr.events
	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("delete never delivered")
	}

	var sawDelete bool
	for len(tr.events) > 0 {
		if _, ok := (<-tr.events).(core.SessionDelete); ok {
			sawDelete = true
		}
	}
	assert.True(t, sawDelete)
}
