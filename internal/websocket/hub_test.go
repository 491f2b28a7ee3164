package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"retailpulse/internal/infrastructure"
	"retailpulse/internal/shared/testutil"
	"retailpulse/pkg/contracts/events"
)

func receive(t *testing.T, c *Client) events.WebSocketMessage {
	t.Helper()
	select {
	case payload, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var msg events.WebSocketMessage
		require.NoError(t, json.Unmarshal(payload, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return events.WebSocketMessage{}
}

func startedHub(t *testing.T, opts ...HubOption) *Hub {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger, opts...)
	hub.Start()
	t.Cleanup(hub.Stop)
	return hub
}

func TestHub_RegisterGreetsClient(t *testing.T) {
	hub := startedHub(t)
	client := NewClient(hub, newFakeConn(), "trace-1", nil)
	hub.Register(client)

	msg := receive(t, client)
	assert.Equal(t, events.MessageTypeConnect, msg.Type)
	assert.Equal(t, "trace-1", msg.TraceID)
	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, client.ID(), data["client_id"])
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_PublishReachesClients(t *testing.T) {
	hub := startedHub(t)
	first := NewClient(hub, newFakeConn(), "", nil)
	second := NewClient(hub, newFakeConn(), "", nil)
	hub.Register(first)
	hub.Register(second)
	receive(t, first)
	receive(t, second)

	ctx := infrastructure.WithTraceID(context.Background(), "trace-publish")
	hub.Publish(ctx, events.MessageTypeDatasetLoaded, events.DatasetLoaded{Source: "retail.csv", Transactions: 9})

	for _, c := range []*Client{first, second} {
		msg := receive(t, c)
		assert.Equal(t, events.MessageTypeDatasetLoaded, msg.Type)
		assert.Equal(t, "trace-publish", msg.TraceID)
		assert.NotEmpty(t, msg.ID)
		data := msg.Data.(map[string]interface{})
		assert.Equal(t, "retail.csv", data["source"])
	}
	require.Eventually(t, func() bool { return hub.Stats().MessagesSent == 2 }, time.Second, 10*time.Millisecond)
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := startedHub(t)
	client := NewClient(hub, newFakeConn(), "", nil)
	hub.Register(client)
	receive(t, client)

	hub.Unregister(client)
	_, ok := <-client.send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.ClientCount())

	// a second unregister is ignored
	hub.Unregister(client)
}

func TestHub_DisconnectsSlowClient(t *testing.T) {
	hub := startedHub(t)
	slow := &Client{
		hub:         hub,
		conn:        newFakeConn(),
		send:        make(chan []byte),
		id:          "slow",
		connectedAt: time.Now(),
		logger:      hub.logger,
	}
	hub.Register(slow)
	require.Equal(t, 1, hub.ClientCount())

	hub.Publish(context.Background(), events.MessageTypeSystemStatus, events.SystemStatus{Status: "healthy"})
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 1, hub.Stats().SlowClients)
}

func TestHub_PublishDropsWhenQueueFull(t *testing.T) {
	hub := NewHub(nil)
	for i := 0; i < broadcastBuffer+3; i++ {
		hub.Publish(context.Background(), events.MessageTypeSystemStatus, nil)
	}
	assert.EqualValues(t, 3, hub.Stats().MessagesDropped)
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	hub.Start()
	client := NewClient(hub, newFakeConn(), "", nil)
	hub.Register(client)
	receive(t, client)

	hub.Stop()
	_, ok := <-client.send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.ClientCount())

	done := make(chan struct{})
	go func() {
		hub.Register(NewClient(hub, newFakeConn(), "", nil))
		hub.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("register blocked after stop")
	}
}

func TestHub_RecordsClientGauge(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())
	metrics, err := infrastructure.CreateAnalyticsMetrics(provider.Meter(infrastructure.MeterName))
	require.NoError(t, err)

	hub := startedHub(t, WithMetrics(metrics))
	client := NewClient(hub, newFakeConn(), "", nil)
	hub.Register(client)
	receive(t, client)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	assert.EqualValues(t, 1, sumValue(t, rm, "websocket_clients"))
}

func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestWithKeepalive(t *testing.T) {
	hub := NewHub(nil, WithKeepalive(time.Second, 2*time.Second))
	assert.Equal(t, time.Second, hub.pingPeriod)
	assert.Equal(t, 2*time.Second, hub.pongWait)

	invalid := NewHub(nil, WithKeepalive(2*time.Second, time.Second))
	assert.Equal(t, defaultPingPeriod, invalid.pingPeriod)
}
