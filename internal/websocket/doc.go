// Package websocket pushes analytics events to browser dashboards.
//
// A Hub owns the set of connected clients and fans every published event out
// to them. Publishing never blocks the caller: events are queued and dropped
// when the queue is full, and a client that cannot keep up is disconnected.
// Each Client runs a read pump, which only watches for heartbeats and
// disconnects, and a write pump that also sends keepalive pings.
package websocket
