package chat_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetup_hub_server/internal/dao/mysql/repository/memrepo"
	"meetup_hub_server/internal/service/chat"
)

// recordingHandler 记录消费循环转交的上行信封
type recordingHandler struct {
	mu       sync.Mutex
	received [][]byte
}

func (h *recordingHandler) HandleEnvelope(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, data)
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.received)
}

func TestChannelBrokerPublishReachesHandler(t *testing.T) {
	repos := memrepo.NewRepositories()
	broker := chat.NewChannelBroker(repos.Participant)
	handler := &recordingHandler{}
	broker.SetHandler(handler)
	go broker.Start()
	t.Cleanup(func() { _ = broker.Close() })

	require.NoError(t, broker.Publish(context.Background(), "M1", []byte(`{"kind":"typing"}`)))
	require.Eventually(t, func() bool { return handler.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestChannelBrokerCloseStopsLoop(t *testing.T) {
	repos := memrepo.NewRepositories()
	broker := chat.NewChannelBroker(repos.Participant)
	broker.SetHandler(&recordingHandler{})

	done := make(chan struct{})
	go func() {
		broker.Start()
		close(done)
	}()

	assert.NoError(t, broker.Close())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("主循环未随 Close 退出")
	}
}
