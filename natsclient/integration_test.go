package natsclient

import (
	"context"
	"testing"
	"time"

	"github.com/c360/replaystream/errors"
	"github.com/c360/replaystream/metric"
	gonats "github.com/nats-io/nats.go"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIntegration_ConnectToRealNATS tests connection to a real NATS server
func TestIntegration_ConnectToRealNATS(t *testing.T) {
	tc := NewTestClient(t)

	assert.True(t, tc.Client.IsHealthy())
	assert.Equal(t, StatusConnected, tc.Client.Status())

	rtt, err := tc.Client.RTT()
	assert.NoError(t, err)
	assert.Greater(t, rtt, time.Duration(0))
}

// TestIntegration_RequestReply round-trips a request through a real server
func TestIntegration_RequestReply(t *testing.T) {
	tc := NewTestClient(t)
	ctx := context.Background()

	conn := tc.Client.GetConnection()
	sub, err := conn.Subscribe("replay.test.echo", func(msg *gonats.Msg) {
		_ = msg.Respond(append([]byte("ack:"), msg.Data...))
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()
	require.NoError(t, conn.Flush())

	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	reply, err := tc.Client.Request(reqCtx, "replay.test.echo", []byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, []byte("ack:ping"), reply)
}

// TestIntegration_Subscribe receives a broadcast published by another
// connection, the shape of the server's table-change notifications.
func TestIntegration_Subscribe(t *testing.T) {
	tc := NewTestClient(t)
	ctx := context.Background()

	received := make(chan []byte, 1)
	err := tc.Client.Subscribe(ctx, "replay.test.changed", func(_ context.Context, data []byte) {
		received <- data
	})
	require.NoError(t, err)
	require.NoError(t, tc.Client.GetConnection().Flush())

	publisher, err := gonats.Connect(tc.URL)
	require.NoError(t, err)
	defer publisher.Close()
	require.NoError(t, publisher.Publish("replay.test.changed", []byte(`{"tables":["experience"]}`)))
	require.NoError(t, publisher.Flush())

	select {
	case data := <-received:
		assert.JSONEq(t, `{"tables":["experience"]}`, string(data))
	case <-time.After(5 * time.Second):
		t.Fatal("broadcast not received")
	}
}

// TestIntegration_RequestNoResponders reports a transient error, not a
// circuit fault, when nothing is listening on the subject.
func TestIntegration_RequestNoResponders(t *testing.T) {
	tc := NewTestClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := tc.Client.Request(ctx, "replay.test.nobody", []byte("ping"))
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.Zero(t, tc.Client.Failures())
}

// TestIntegration_ConnectionMetrics verifies the connected gauge follows
// the connection lifecycle.
func TestIntegration_ConnectionMetrics(t *testing.T) {
	tc := NewTestClient(t)
	ctx := context.Background()

	registry := metric.NewMetricsRegistry()
	client, err := NewClient(tc.URL,
		WithMetrics(registry),
		WithMaxReconnects(0),
		WithHealthInterval(0),
	)
	require.NoError(t, err)
	require.NoError(t, client.Connect(ctx))

	assert.Equal(t, float64(1), gaugeValue(t, registry, "replaystream_nats_connected"))

	require.NoError(t, client.Close(ctx))
	assert.Equal(t, float64(0), gaugeValue(t, registry, "replaystream_nats_connected"))
}

func gaugeValue(t *testing.T, registry *metric.MetricsRegistry, name string) float64 {
	t.Helper()

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name && mf.GetType() == dto.MetricType_GAUGE {
			require.Len(t, mf.GetMetric(), 1)
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}
