// Package config loads process configuration from environment variables.
// Every value has a development default so both binaries start with no setup.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "bioauth/pkg/platform/strings"
)

// Gateway configures the biometric gateway process.
type Gateway struct {
	Addr           string
	LogLevel       string
	RequestTimeout time.Duration
	// InitialSequence is the first nonce base when no checkpoint exists.
	InitialSequence uint64
	Vendor          Vendor
	Signer          Signer
	Redis           RedisConfig
}

// Vendor configures the FaceTec server integration.
type Vendor struct {
	ServerURL                  string
	DeviceKeyIdentifier        string
	PublicFaceMapEncryptionKey string
	ProductionKey              string
	GroupName                  string
	EnrollRefPrefix            string
	TempRefPrefix              string
	MatchLevel                 int
	BreakerFailureThreshold    int
	// RequestTimeout bounds a single HTTP round trip to the server.
	RequestTimeout time.Duration
}

// Signer configures the ticket signing key. Exactly one of SeedHex or
// MasterSecret must be set.
type Signer struct {
	SeedHex      string
	MasterSecret string
	KeyInfo      string
}

// RedisConfig configures the optional Redis connection. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Node configures the validator node process.
type Node struct {
	Addr          string
	LogLevel      string
	AdminToken    string
	GatewayURL    string
	KeystoreDir   string
	BlockInterval time.Duration
	PoolCapacity  int
	Ledger        Ledger
	Database      Database
	Kafka         Kafka
}

// Ledger configures the authorization ledger rules.
type Ledger struct {
	// GatewayPublicKeyHex is the only key whose tickets the ledger accepts.
	GatewayPublicKeyHex string
	ValidityWindow      uint64
	MaxAuthorizations   int
	// PrunePolicy is "never" or "horizon:<blocks>".
	PrunePolicy   string
	PruneInterval uint64
}

// Database configures the optional PostgreSQL ledger store. An empty URL keeps state in memory.
type Database struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Kafka configures the optional ledger event stream. No brokers disables it.
type Kafka struct {
	Brokers []string
	Topic   string
	// BufferSize is how many events may wait for delivery before new ones are dropped.
	BufferSize     int
	ProduceTimeout time.Duration
}

// LoadGateway builds the gateway config from the environment.
func LoadGateway() (Gateway, error) {
	cfg := Gateway{
		Addr:            envString("GATEWAY_ADDR", ":3033"),
		LogLevel:        envString("LOG_LEVEL", "info"),
		RequestTimeout:  envDuration("GATEWAY_REQUEST_TIMEOUT", 60*time.Second),
		InitialSequence: envUint("GATEWAY_INITIAL_SEQUENCE", 0),
		Vendor: Vendor{
			ServerURL:                  envString("FACETEC_SERVER_URL", "http://localhost:8081"),
			DeviceKeyIdentifier:        envString("FACETEC_DEVICE_KEY_IDENTIFIER", ""),
			PublicFaceMapEncryptionKey: envString("FACETEC_PUBLIC_FACE_MAP_ENCRYPTION_KEY", ""),
			ProductionKey:              envString("FACETEC_PRODUCTION_KEY", ""),
			GroupName:                  envString("FACETEC_GROUP_NAME", "humans"),
			EnrollRefPrefix:            envString("FACETEC_ENROLL_REF_PREFIX", "enroll_"),
			TempRefPrefix:              envString("FACETEC_TEMP_REF_PREFIX", "tmp_auth_"),
			MatchLevel:                 envInt("FACETEC_MATCH_LEVEL", 10),
			BreakerFailureThreshold:    envInt("FACETEC_BREAKER_FAILURES", 5),
			RequestTimeout:             envDuration("FACETEC_REQUEST_TIMEOUT", 30*time.Second),
		},
		Signer: Signer{
			SeedHex:      envString("GATEWAY_SIGNER_SEED", ""),
			MasterSecret: envString("GATEWAY_SIGNER_SECRET", ""),
			KeyInfo:      envString("GATEWAY_SIGNER_KEY_INFO", "bioauth-ticket-signer/v1"),
		},
		Redis: loadRedis(),
	}
	return cfg, cfg.Validate()
}

// Validate checks cross-field rules.
func (c Gateway) Validate() error {
	var errs []error
	if c.Vendor.ServerURL == "" {
		errs = append(errs, errors.New("FACETEC_SERVER_URL is required"))
	}
	if c.Vendor.MatchLevel < 0 {
		errs = append(errs, errors.New("FACETEC_MATCH_LEVEL must not be negative"))
	}
	if c.Vendor.EnrollRefPrefix == c.Vendor.TempRefPrefix {
		errs = append(errs, errors.New("enroll and temporary reference prefixes must differ"))
	}
	if (c.Signer.SeedHex == "") == (c.Signer.MasterSecret == "") {
		errs = append(errs, errors.New("exactly one of GATEWAY_SIGNER_SEED or GATEWAY_SIGNER_SECRET is required"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("GATEWAY_REQUEST_TIMEOUT must be positive"))
	}
	if c.Vendor.RequestTimeout <= 0 {
		errs = append(errs, errors.New("FACETEC_REQUEST_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// LoadNode builds the node config from the environment.
func LoadNode() (Node, error) {
	cfg := Node{
		Addr:          envString("NODE_RPC_ADDR", ":9933"),
		LogLevel:      envString("LOG_LEVEL", "info"),
		AdminToken:    envString("NODE_ADMIN_TOKEN", ""),
		GatewayURL:    envString("GATEWAY_URL", "http://localhost:3033"),
		KeystoreDir:   envString("NODE_KEYSTORE_DIR", "./keystore"),
		BlockInterval: envDuration("NODE_BLOCK_INTERVAL", 6*time.Second),
		PoolCapacity:  envInt("NODE_POOL_CAPACITY", 1024),
		Ledger: Ledger{
			GatewayPublicKeyHex: envString("LEDGER_GATEWAY_PUBLIC_KEY", ""),
			ValidityWindow:      envUint("LEDGER_VALIDITY_WINDOW", 14400),
			MaxAuthorizations:   envInt("LEDGER_MAX_AUTHORIZATIONS", 3072),
			PrunePolicy:         envString("LEDGER_PRUNE_POLICY", "never"),
			PruneInterval:       envUint("LEDGER_PRUNE_INTERVAL", 600),
		},
		Database: Database{
			URL:             envString("DATABASE_URL", ""),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Kafka: Kafka{
			Brokers:        envList("KAFKA_BROKERS"),
			Topic:          envString("KAFKA_LEDGER_TOPIC", "bioauth.ledger.events"),
			BufferSize:     envInt("KAFKA_BUFFER_SIZE", 1024),
			ProduceTimeout: envDuration("KAFKA_PRODUCE_TIMEOUT", 5*time.Second),
		},
	}
	return cfg, cfg.Validate()
}

// Validate checks cross-field rules.
func (c Node) Validate() error {
	var errs []error
	if c.Ledger.GatewayPublicKeyHex == "" {
		errs = append(errs, errors.New("LEDGER_GATEWAY_PUBLIC_KEY is required"))
	}
	if c.Ledger.ValidityWindow == 0 {
		errs = append(errs, errors.New("LEDGER_VALIDITY_WINDOW must be positive"))
	}
	if c.Ledger.MaxAuthorizations <= 0 {
		errs = append(errs, errors.New("LEDGER_MAX_AUTHORIZATIONS must be positive"))
	}
	if c.BlockInterval <= 0 {
		errs = append(errs, errors.New("NODE_BLOCK_INTERVAL must be positive"))
	}
	if c.PoolCapacity <= 0 {
		errs = append(errs, errors.New("NODE_POOL_CAPACITY must be positive"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("KAFKA_LEDGER_TOPIC is required when brokers are set"))
	}
	if c.Kafka.BufferSize < 1 {
		errs = append(errs, errors.New("KAFKA_BUFFER_SIZE must be positive"))
	}
	if c.Kafka.ProduceTimeout <= 0 {
		errs = append(errs, errors.New("KAFKA_PRODUCE_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func loadRedis() RedisConfig {
	return RedisConfig{
		URL:          envString("REDIS_URL", ""),
		PoolSize:     envInt("REDIS_POOL_SIZE", 10),
		MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
		DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
	}
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := envString(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envUint(key string, fallback uint64) uint64 {
	v := envString(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := envString(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string) []string {
	return platformstrings.SplitList(envString(key, ""))
}

// String renders the node config without secrets, for startup logs.
func (c Node) String() string {
	return fmt.Sprintf("addr=%s gateway=%s window=%d prune=%s postgres=%t kafka=%t",
		c.Addr, c.GatewayURL, c.Ledger.ValidityWindow, c.Ledger.PrunePolicy,
		c.Database.URL != "", len(c.Kafka.Brokers) > 0)
}
