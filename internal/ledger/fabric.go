package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hyperledger/fabric-gateway/pkg/client"
	"github.com/hyperledger/fabric-gateway/pkg/identity"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"unicred/internal/domain"
	"unicred/internal/platform/config"
)

// FabricSubmitter writes anchor records to a Hyperledger Fabric channel using
// a pre-provisioned X.509 identity. A fresh gateway session is opened and
// closed per call; there is no connection pooling in this version.
type FabricSubmitter struct {
	cfg    config.Fabric
	id     identity.Identity
	sign   identity.Sign
	creds  credentials.TransportCredentials
	logger *slog.Logger
}

// NewFabricSubmitter loads the enrollment certificate and private key once.
// Network sessions are per-call.
func NewFabricSubmitter(cfg config.Fabric, logger *slog.Logger) (*FabricSubmitter, error) {
	certPEM, err := os.ReadFile(cfg.CertPath)
	if err != nil {
		return nil, fmt.Errorf("read enrollment certificate: %w", err)
	}
	cert, err := identity.CertificateFromPEM(certPEM)
	if err != nil {
		return nil, fmt.Errorf("parse enrollment certificate: %w", err)
	}
	id, err := identity.NewX509Identity(cfg.MSPID, cert)
	if err != nil {
		return nil, fmt.Errorf("build fabric identity: %w", err)
	}

	keyPEM, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	key, err := identity.PrivateKeyFromPEM(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	sign, err := identity.NewPrivateKeySign(key)
	if err != nil {
		return nil, fmt.Errorf("build fabric signer: %w", err)
	}

	creds := insecure.NewCredentials()
	if cfg.TLSCertPath != "" {
		creds, err = credentials.NewClientTLSFromFile(cfg.TLSCertPath, cfg.GatewayPeer)
		if err != nil {
			return nil, fmt.Errorf("load peer TLS certificate: %w", err)
		}
	}

	return &FabricSubmitter{cfg: cfg, id: id, sign: sign, creds: creds, logger: logger}, nil
}

// Submit creates the anchor asset on the channel. The grpc connection and
// gateway session are released on every exit path.
func (f *FabricSubmitter) Submit(ctx context.Context, key string, rec domain.LedgerAnchorRecord) error {
	conn, err := grpc.NewClient(f.cfg.PeerEndpoint, grpc.WithTransportCredentials(f.creds))
	if err != nil {
		return fmt.Errorf("dial fabric peer: %w", err)
	}
	defer conn.Close()

	gw, err := client.Connect(f.id, client.WithSign(f.sign), client.WithClientConnection(conn))
	if err != nil {
		return fmt.Errorf("connect fabric gateway: %w", err)
	}
	defer gw.Close()

	contract := gw.GetNetwork(f.cfg.Channel).GetContract(f.cfg.Chaincode)

	// Transaction timeouts are owned by the gateway; ctx bounds only the
	// proposal round trip.
	_, err = contract.SubmitWithContext(ctx, "CreateAsset",
		client.WithArguments(key, rec.CourseName, rec.CredentialHash, rec.SubjectID))
	if err != nil {
		return fmt.Errorf("submit anchor transaction: %w", err)
	}

	f.logger.Debug("anchor transaction committed", "key", key, "channel", f.cfg.Channel)
	return nil
}
