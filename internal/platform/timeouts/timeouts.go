// Package timeouts defines shared timeout constants used across services.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long servers wait for in-flight requests during
// graceful shutdown.
const Shutdown = 5 * time.Second

// StoreOpen caps the total time spent retrying a locked database file on startup.
const StoreOpen = 15 * time.Second

// StoreBusy is the SQLite busy timeout applied to every connection.
const StoreBusy = 5 * time.Second
