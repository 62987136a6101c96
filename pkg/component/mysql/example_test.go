package mysql_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kart-io/provenance/pkg/component/mysql"
)

// Connecting with explicit options.
func Example_basicUsage() {
	opts := mysql.NewOptions()
	opts.Host = "localhost"
	opts.Port = 3306
	opts.Username = "root"
	opts.Password = "password"
	opts.Database = "testdb"

	client, err := mysql.New(opts)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = client.Close() }()

	fmt.Printf("Connected to MySQL: %s\n", client.Name())
}

// Bounding connection establishment with a context deadline.
func Example_withContext() {
	opts := mysql.NewOptions()
	opts.Host = "localhost"
	opts.Database = "testdb"

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mysql.NewWithContext(ctx, opts)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = client.Close() }()

	if err := client.Ping(ctx); err != nil {
		log.Printf("Ping failed: %v", err)
		return
	}
	fmt.Println("MySQL connection verified")
}

// Health checking with latency and pool validation.
func Example_healthCheck() {
	opts := mysql.NewOptions()
	opts.Host = "localhost"
	opts.Database = "testdb"

	client, err := mysql.New(opts)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = client.Close() }()

	status := mysql.CheckHealth(client, 5*time.Second)
	if !status.Healthy {
		fmt.Printf("MySQL is unhealthy: %v\n", status.Error)
		return
	}
	fmt.Printf("MySQL is healthy (latency: %v)\n", status.Latency)
}

// Creating clients through the factory.
func Example_factory() {
	opts := mysql.NewOptions()
	opts.Host = "localhost"
	opts.Database = "testdb"

	factory := mysql.NewFactory(opts)

	client, err := factory.Create(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = client.Close() }()

	fmt.Printf("Client created via factory: %s\n", client.Name())
}

// Dropping down to GORM for schema and queries.
func Example_gormUsage() {
	type Document struct {
		ID       uint   `gorm:"primaryKey"`
		SourceID string `gorm:"size:64;index"`
		Title    string `gorm:"size:255"`
	}

	opts := mysql.NewOptions()
	opts.Host = "localhost"
	opts.Database = "testdb"

	client, err := mysql.New(opts)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = client.Close() }()

	db := client.DB()
	_ = db.AutoMigrate(&Document{})
	db.Create(&Document{SourceID: "wiki", Title: "Consistency models"})

	var docs []Document
	db.Where("source_id = ?", "wiki").Find(&docs)
	fmt.Printf("Found %d documents\n", len(docs))
}

// Tuning the connection pool and reading its statistics.
func Example_connectionPool() {
	opts := mysql.NewOptions()
	opts.Host = "localhost"
	opts.Database = "testdb"
	opts.MaxIdleConnections = 10
	opts.MaxOpenConnections = 100
	opts.MaxConnectionLifeTime = 10 * time.Second

	client, err := mysql.New(opts)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = client.Close() }()

	sqlDB, err := client.SqlDB()
	if err != nil {
		log.Fatal(err)
	}

	stats := sqlDB.Stats()
	fmt.Printf("Max open connections: %d\n", stats.MaxOpenConnections)
	fmt.Printf("Open connections: %d\n", stats.OpenConnections)
	fmt.Printf("Idle connections: %d\n", stats.Idle)
}

// Validation errors surface before any connection is attempted.
func Example_errorHandling() {
	opts := mysql.NewOptions()
	opts.Host = ""
	opts.Database = ""

	client, err := mysql.New(opts)
	if err != nil {
		fmt.Printf("Error creating client: %v\n", err)
		return
	}
	defer func() { _ = client.Close() }()
}

// Deriving per-database factories from shared base options.
func Example_multipleClients() {
	baseOpts := mysql.NewOptions()
	baseOpts.Host = "localhost"
	baseOpts.Username = "root"

	factory := mysql.NewFactory(baseOpts)

	prodFactory := factory.Clone()
	prodFactory.Options().Database = "production"

	devFactory := factory.Clone()
	devFactory.Options().Database = "development"

	prodClient, _ := prodFactory.Create(context.Background())
	defer func() { _ = prodClient.Close() }()

	devClient, _ := devFactory.Create(context.Background())
	defer func() { _ = devClient.Close() }()

	fmt.Println("Multiple clients created successfully")
}
