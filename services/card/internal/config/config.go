package config

import (
	"os"
	"strings"
)

type Config struct {
	// Store backends, first non-empty wins: Redis, Postgres, SQLite file.
	RedisDSN    string
	DatabaseURL string
	SQLitePath  string

	// ProductsFile is the YAML product catalog.
	ProductsFile string

	GRPCAddr string
	// NATSURL enables analytics publishing when set.
	NATSURL string
}

func Load() Config {
	productsFile := strings.TrimSpace(os.Getenv("PRODUCTS_FILE"))
	if productsFile == "" {
		productsFile = "products.yaml"
	}
	grpcAddr := strings.TrimSpace(os.Getenv("GRPC_ADDR"))
	if grpcAddr == "" {
		grpcAddr = ":9090"
	}
	return Config{
		RedisDSN:     strings.TrimSpace(os.Getenv("REDIS_DSN")),
		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:   strings.TrimSpace(os.Getenv("SQLITE_PATH")),
		ProductsFile: productsFile,
		GRPCAddr:     grpcAddr,
		NATSURL:      strings.TrimSpace(os.Getenv("NATS_URL")),
	}
}
