// Command server wires the credential issuer: agent gateway (live or
// simulated, decided once here), invitation store (memory or redis), ledger
// anchor, audit trail, orchestrator, and the HTTP transport.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"unicred/internal/agent"
	"unicred/internal/audit"
	"unicred/internal/credential"
	"unicred/internal/invitation"
	"unicred/internal/issuance"
	issuancemetrics "unicred/internal/issuance/metrics"
	"unicred/internal/ledger"
	"unicred/internal/platform/config"
	"unicred/internal/platform/httpserver"
	"unicred/internal/platform/logger"
	platformredis "unicred/internal/platform/redis"
	"unicred/internal/signer"
	httptransport "unicred/internal/transport/http"
)

func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Agent gateway: the live/simulated decision is made exactly once, here.
	// A failed agent initialization switches the whole process permanently to
	// simulation mode.
	var gateway agent.Gateway
	var webhook, credWebhook http.HandlerFunc
	live, err := agent.NewLive(ctx, cfg.AgentAdminURL, cfg.AgentTimeout, log)
	if err != nil {
		log.Warn("agent initialization failed", "error", err)
		gateway = agent.NewSimulated(cfg.AgentLabel, log)
	} else {
		gateway = live
		webhook = live.WebhookHandler()
		credWebhook = live.CredentialWebhookHandler()
		log.Info("agent gateway connected", "admin_url", cfg.AgentAdminURL)
	}

	sgn, err := signer.New(cfg.IssuerDID)
	if err != nil {
		log.Error("issuer key generation failed", "error", err)
		os.Exit(1)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis initialization failed", "error", err)
		os.Exit(1)
	}

	var store invitation.Store
	var memStore *invitation.MemoryStore
	if redisClient != nil {
		store = invitation.NewRedisStore(redisClient.Client, cfg.InvitationTTL)
		log.Info("using redis invitation store")
	} else {
		memStore = invitation.NewMemoryStore(cfg.InvitationTTL, log)
		store = memStore
	}

	var submitter ledger.Submitter
	if cfg.Fabric.PeerEndpoint != "" {
		fabric, err := ledger.NewFabricSubmitter(cfg.Fabric, log)
		if err != nil {
			// Anchoring must not block issuance; a broken fabric config
			// degrades to local-only anchors.
			log.Warn("fabric submitter initialization failed, anchors will be local-only", "error", err)
		} else {
			submitter = fabric
		}
	}
	anchor := ledger.NewAnchor(submitter, log)

	auditPub := audit.NewPublisher(256, log)
	auditSinks := []audit.Sink{audit.NewMemorySink()}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Warn("kafka audit sink unavailable", "error", err)
		} else {
			defer kafkaSink.Close()
			auditSinks = append(auditSinks, kafkaSink)
		}
	}
	auditWorker := audit.NewWorker(auditPub.Inbox(), log, auditSinks...)

	service := issuance.NewService(
		issuance.Config{PublicBaseURL: cfg.PublicBaseURL, OfferDelay: cfg.OfferDelay},
		gateway,
		store,
		credential.NewBuilder(cfg.UniversityName),
		sgn,
		anchor,
		auditPub,
		issuancemetrics.New(prometheus.DefaultRegisterer),
		log,
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Issuance:          httptransport.NewIssuanceHandler(service, log),
		Delivery:          httptransport.NewDeliveryHandler(store, cfg.PublicBaseURL, cfg.UniversityName, log),
		Health:            httptransport.NewHealthHandler(gateway.Simulated(), submitter != nil),
		Webhook:           webhook,
		CredentialWebhook: credWebhook,
		WebhookJWTKey:     cfg.WebhookJWTKey,
		Logger:            log,
	})

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("credential issuer listening", "addr", cfg.Addr, "simulated", gateway.Simulated())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		err := service.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if memStore != nil {
		group.Go(func() error {
			err := memStore.Sweep(groupCtx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	group.Go(func() error {
		err := auditWorker.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("issuer terminated", "error", err)
		os.Exit(1)
	}
	log.Info("issuer stopped")
}
