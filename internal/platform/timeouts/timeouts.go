// Package timeouts defines shared timeout constants for the server process.
// Centralizing these values keeps the durations discoverable and prevents
// drift between the transport and the orchestration layers.
package timeouts

import "time"

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// Narration caps the wall-clock time a single narration generation may take
// before clients are unlocked. The generator call itself is not cancelled;
// a late result for the same generation is still applied.
const Narration = 150 * time.Second
