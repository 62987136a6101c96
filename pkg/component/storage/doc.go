// Package storage defines the shared contract for storage backends and a
// registry that manages their lifecycle.
//
// Every backend (the MySQL raw store, future caches or event stores)
// implements Client: a name, a lightweight Ping, a Close, and a Health()
// checker that the health middleware can poll. The Manager keeps all clients
// in one place so shutdown and health checks do not have to know about
// individual backends.
//
// # Registering clients
//
//	mgr := storage.NewManager()
//	mgr.MustRegister("raw-store", mysqlClient)
//
//	client, err := mgr.Get("raw-store")
//	if err != nil {
//	    log.Printf("raw store not available: %v", err)
//	}
//
//	defer mgr.CloseAll()
//
// # Health checks
//
// A single client:
//
//	status := mgr.HealthCheck(ctx, "raw-store")
//	if !status.Healthy {
//	    log.Printf("unhealthy: %v (latency: %v)", status.Error, status.Latency)
//	}
//
// All clients at once, checked concurrently:
//
//	for name, status := range mgr.HealthCheckAll(ctx) {
//	    if !status.Healthy {
//	        log.Printf("%s: %v", name, status.Error)
//	    }
//	}
//
// # Errors
//
// Registry and client failures are StorageError values carrying a stable
// code, an adjustable message, and optional context:
//
//	if errors.Is(err, storage.ErrClientNotFound) {
//	    log.Println("no such client registered")
//	}
//	if serr, ok := storage.GetStorageError(err); ok {
//	    log.Printf("code=%s message=%s", serr.Code, serr.Message)
//	}
//
// # Implementing a backend
//
//	type eventStore struct{ conn *someConn }
//
//	func (s *eventStore) Name() string                   { return "events" }
//	func (s *eventStore) Ping(ctx context.Context) error { return s.conn.Ping(ctx) }
//	func (s *eventStore) Close() error                   { return s.conn.Close() }
//
//	func (s *eventStore) Health() storage.HealthChecker {
//	    return func() error {
//	        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	        defer cancel()
//	        return s.Ping(ctx)
//	    }
//	}
//
// The Manager is safe for concurrent use. Blocking operations take a
// context.Context so callers control cancellation and deadlines.
package storage
