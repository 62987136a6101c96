// Package mysql implements storage.Client for MySQL on top of GORM.
//
// The client owns a pooled connection, translates driver errors into GORM's
// semantic errors (gorm.ErrDuplicatedKey and friends), and plugs into the
// health middleware through storage.HealthChecker.
//
// # Creating a client
//
//	opts := mysql.NewOptions()
//	opts.Host = "localhost"
//	opts.Database = "provenance"
//
//	client, err := mysql.New(opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
// NewWithContext bounds the connect-and-ping phase with a context:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//	defer cancel()
//	client, err := mysql.NewWithContext(ctx, opts)
//
// # Health
//
// Ping answers "is the server reachable"; CheckHealth additionally measures
// latency and flags connection pool exhaustion:
//
//	status, stats := mysql.HealthWithStats(client, 5*time.Second)
//	if !status.Healthy {
//	    log.Printf("MySQL unhealthy: %v", status.Error)
//	}
//	log.Printf("pool: %+v", stats)
//
// Client.Health() returns a checker suitable for the health middleware:
//
//	middleware.GetHealthManager().RegisterChecker("mysql", client.Health())
//
// # Repositories
//
// Repository code works against the GORM handle from DB():
//
//	db := client.DB()
//	db.AutoMigrate(&Document{})
//	db.Where("source_id = ?", "wiki").Find(&docs)
//
// # Pool tuning
//
// MaxIdleConnections, MaxOpenConnections, MaxConnectionLifeTime, and
// MaxIdleTime in Options map directly onto database/sql pool settings; zero
// values leave the driver defaults in place.
//
// # Errors
//
// New wraps failures with a stage prefix ("invalid mysql options",
// "failed to connect to mysql", "failed to ping mysql") so callers can tell
// configuration mistakes from connectivity problems.
//
// The client is safe for concurrent use; pooling and locking are handled by
// GORM and database/sql underneath.
package mysql
