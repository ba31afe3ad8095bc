// Package timeouts defines shared timeout constants used across the
// scheduler. Centralizing these values prevents drift between call sites
// and makes the durations discoverable.
package timeouts

import "time"

// RPCRequest caps the time allowed for a single settlement RPC call.
const RPCRequest = 30 * time.Second

// RPCReady caps how long the runtime waits for the ledger RPC to answer
// before giving up on startup.
const RPCReady = time.Minute

// Shutdown limits how long graceful teardown of runtime servers may take.
const Shutdown = 5 * time.Second
