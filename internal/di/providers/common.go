package providers

import "time"

// shutdownTimeout bounds graceful shutdown of the HTTP server and stores.
// Badger value log GC and in-flight translations both finish well inside it.
const shutdownTimeout = 30 * time.Second
