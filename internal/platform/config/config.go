// Package config loads all runtime configuration from the environment so main
// stays lean. Defaults favor a local development setup with no agent, ledger,
// redis, or kafka attached.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration of the issuer.
type Config struct {
	Addr          string `env:"ISSUER_ADDR" envDefault:":3000"`
	PublicBaseURL string `env:"ISSUER_PUBLIC_URL" envDefault:"http://localhost:3000"`

	UniversityName string `env:"ISSUER_UNIVERSITY_NAME" envDefault:"Example University"`
	IssuerDID      string `env:"ISSUER_DID" envDefault:"did:web:university-example.com:issuer"`

	// AgentAdminURL points at the DIDComm agent admin API. When empty or when
	// the agent cannot be reached at startup, the process runs permanently in
	// simulation mode.
	AgentAdminURL string        `env:"AGENT_ADMIN_URL"`
	AgentLabel    string        `env:"AGENT_LABEL" envDefault:"University Credential Issuer"`
	AgentTimeout  time.Duration `env:"AGENT_TIMEOUT" envDefault:"10s"`

	// WebhookJWTKey, when set, requires an HS256 bearer token on the course
	// completion endpoint.
	WebhookJWTKey string `env:"WEBHOOK_JWT_KEY"`

	InvitationTTL time.Duration `env:"INVITATION_TTL" envDefault:"1h"`
	// OfferDelay lets a freshly completed connection stabilize before the
	// credential offer is sent.
	OfferDelay time.Duration `env:"OFFER_DELAY" envDefault:"2s"`

	Redis  Redis  `envPrefix:"REDIS_"`
	Fabric Fabric `envPrefix:"FABRIC_"`
	Kafka  Kafka  `envPrefix:"KAFKA_"`
}

// Redis configures the optional shared invitation store. Empty URL means the
// in-memory store is used.
type Redis struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

// Fabric configures the ledger anchor. Empty PeerEndpoint means anchors are
// recorded locally only.
type Fabric struct {
	PeerEndpoint string `env:"PEER_ENDPOINT"`
	MSPID        string `env:"MSP_ID" envDefault:"Org1MSP"`
	CertPath     string `env:"CERT_PATH"`
	KeyPath      string `env:"KEY_PATH"`
	TLSCertPath  string `env:"TLS_CERT_PATH"`
	GatewayPeer  string `env:"GATEWAY_PEER"`
	Channel      string `env:"CHANNEL" envDefault:"mychannel"`
	Chaincode    string `env:"CHAINCODE" envDefault:"basic"`
}

// Kafka configures the optional audit event sink.
type Kafka struct {
	Brokers []string `env:"BROKERS" envSeparator:","`
	Topic   string   `env:"TOPIC" envDefault:"issuance-audit"`
}

// FromEnv builds a Config from environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
