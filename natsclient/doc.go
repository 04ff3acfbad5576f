// Package natsclient manages the NATS connection used to reach the replay
// service, with reconnect handling, health monitoring and a circuit
// breaker around connection failures.
//
// The replay protocol is pure request/reply, so the client's surface is
// small: Connect, Request, Subscribe and Close. Repeated
// connection failures open the circuit breaker; while open, calls fail
// fast with ErrCircuitOpen and a background timer periodically lets one
// attempt through to probe recovery. Backoff between probes doubles up to
// a configurable maximum.
//
// Construction uses functional options:
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithName("replay-client"),
//	    natsclient.WithCircuitBreakerThreshold(5),
//	    natsclient.WithMetrics(registry),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(context.Background())
//
// With WithMetrics the client reports connection status, round-trip time,
// reconnect count and circuit breaker state through the registry's core
// metrics.
package natsclient
