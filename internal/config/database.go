package config

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	influxdb3 "github.com/InfluxCommunity/influxdb3-go/v2/influxdb3"
	_ "github.com/lib/pq"
)

// Database interface for operations
type Database interface {
	Close() error
	GetType() string
}

// PostgresDatabase wraps the relational store handle
type PostgresDatabase struct {
	DB *sql.DB
}

// InfluxDatabase wraps InfluxDB v3 client
type InfluxDatabase struct {
	Client   *influxdb3.Client
	Database string
}

// InitPostgres opens the relational store for farms, alerts and the catalog
func InitPostgres(cfg *Config) (*PostgresDatabase, error) {
	fmt.Printf("⚡ Connecting to PostgreSQL...\n")

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	fmt.Printf("✓ PostgreSQL connected\n")

	return &PostgresDatabase{DB: db}, nil
}

func (p *PostgresDatabase) Close() error {
	if p.DB != nil {
		return p.DB.Close()
	}
	return nil
}

func (p *PostgresDatabase) GetType() string {
	return "postgres"
}

// InitInflux opens the telemetry store with better error handling
func InitInflux(cfg *Config) (*InfluxDatabase, error) {
	fmt.Printf("⚡ Initializing InfluxDB v3 Core connection...\n")
	fmt.Printf("   URL: %s\n", cfg.InfluxURL)
	fmt.Printf("   Database: %s\n", cfg.InfluxDatabase)
	fmt.Printf("   Token: %s\n", maskToken(cfg.InfluxToken))

	// Validate configuration
	if cfg.InfluxURL == "" {
		return nil, fmt.Errorf("INFLUXDB_URL is required")
	}
	if cfg.InfluxDatabase == "" {
		return nil, fmt.Errorf("INFLUXDB_DATABASE is required")
	}

	// Create client config
	clientConfig := influxdb3.ClientConfig{
		Host:     cfg.InfluxURL,
		Database: cfg.InfluxDatabase,
		WriteOptions: &influxdb3.WriteOptions{
			DefaultTags: map[string]string{
				"source": "heliotelligence",
			},
		},
	}

	// Only set token if provided (InfluxDB v3 Core might not need it)
	if cfg.InfluxToken != "" {
		clientConfig.Token = cfg.InfluxToken
	}

	// Create client
	client, err := influxdb3.New(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("influx client creation failed: %w", err)
	}

	// CRITICAL: Verify client is not nil
	if client == nil {
		return nil, fmt.Errorf("influx client is nil after creation")
	}

	fmt.Printf("✓ InfluxDB client created successfully\n")

	// Test connection with a simple query
	fmt.Printf("⚡ Testing InfluxDB connection...\n")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	testQuery := "SHOW TABLES"
	iterator, err := client.Query(ctx, testQuery)
	if err != nil {
		fmt.Printf("⚠️  Warning: Test query failed: %v\n", err)
		fmt.Printf("   This might be okay if database is empty\n")
	} else {
		fmt.Printf("✓ InfluxDB connection test successful\n")
		count := 0
		for iterator.Next() {
			count++
		}
		fmt.Printf("   Found %d tables\n", count)
	}

	fmt.Printf("✓ InfluxDB connected: %s\n", cfg.InfluxDatabase)

	return &InfluxDatabase{
		Client:   client,
		Database: cfg.InfluxDatabase,
	}, nil
}

func (i *InfluxDatabase) Close() error {
	if i.Client != nil {
		i.Client.Close()
	}
	return nil
}

func (i *InfluxDatabase) GetType() string {
	return "influx"
}

// Helper to mask token in logs
func maskToken(token string) string {
	if token == "" {
		return "(not set)"
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
