package config

import (
	"os"
	"strings"
)

// Server captures process level configuration: the HTTP bind address, the
// confidential collection this peer serves, and the backing stores. Keeping
// everything in one struct means no package reads the environment on its own.
type Server struct {
	Addr          string
	JWTSigningKey string

	// CollectionName is the confidential collection all asset state lives in.
	CollectionName string
	// PeerMSPID is the organization operating this peer. Writes are refused
	// when the caller's organization differs (self-org write guard).
	PeerMSPID string

	// LedgerBackend selects the record store: "memory", "redis" or "postgres".
	LedgerBackend string
	RedisURL      string
	PostgresDSN   string

	// KafkaBrokers enables the audit mirror when non-empty.
	KafkaBrokers []string
	KafkaTopic   string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:           getenv("MEDSHARE_ADDR", ":8080"),
		JWTSigningKey:  getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		CollectionName: getenv("MEDSHARE_COLLECTION", "medCollection"),
		PeerMSPID:      getenv("MEDSHARE_PEER_MSP", "Org1MSP"),
		LedgerBackend:  getenv("MEDSHARE_LEDGER", "memory"),
		RedisURL:       os.Getenv("MEDSHARE_REDIS_URL"),
		PostgresDSN:    os.Getenv("MEDSHARE_POSTGRES_DSN"),
		KafkaTopic:     getenv("MEDSHARE_AUDIT_TOPIC", "medshare.audit"),
	}
	if brokers := os.Getenv("MEDSHARE_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
