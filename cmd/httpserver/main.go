package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/suirifyprotocol/suirify-sub000/cmd/flags"
	"github.com/suirifyprotocol/suirify-sub000/consumption"
	"github.com/suirifyprotocol/suirify-sub000/enclave"
	"github.com/suirifyprotocol/suirify-sub000/httpserver"
	"github.com/suirifyprotocol/suirify-sub000/indexer"
	"github.com/suirifyprotocol/suirify-sub000/interfaces"
	"github.com/suirifyprotocol/suirify-sub000/kyc"
	"github.com/suirifyprotocol/suirify-sub000/ledger"
	"github.com/suirifyprotocol/suirify-sub000/mint"
	"github.com/suirifyprotocol/suirify-sub000/resolver"
	"github.com/suirifyprotocol/suirify-sub000/secrets"
	"github.com/suirifyprotocol/suirify-sub000/session"
	"github.com/suirifyprotocol/suirify-sub000/snapshot"
)

var serverFlags = append([]cli.Flag{
	&cli.StringFlag{
		Name:  "listen-addr",
		Value: "127.0.0.1:8080",
		Usage: "address to listen on for API",
	},
	flags.RPCAddrFlag,
	&cli.StringFlag{
		Name:  "ledger-path",
		Value: "data/consumption-ledger.json",
		Usage: "path of the consumption ledger file",
	},
	&cli.StringFlag{
		Name:  "snapshot-uri",
		Usage: "off-host mirror for the consumption ledger (file:// or s3://)",
	},
	&cli.StringFlag{
		Name:  "identity-records",
		Usage: "JSON file with additional identity records for the KYC directory",
	},
	&cli.Int64Flag{
		Name:  "session-ttl-minutes",
		Value: 30,
		Usage: "verification session TTL in minutes, 0 disables expiry",
	},
	&cli.StringFlag{
		Name:     "package-id",
		Required: true,
		Usage:    "published attestation package id",
	},
	&cli.StringFlag{
		Name:     "registry-id",
		Required: true,
		Usage:    "shared attestation registry object id",
	},
	&cli.StringFlag{
		Name:  "move-module",
		Value: "attestation",
		Usage: "Move module with the finalize entry function",
	},
	&cli.StringFlag{
		Name:  "mint-function",
		Value: "finalize_mint",
		Usage: "finalize entry function name",
	},
	&cli.Uint64Flag{
		Name:  "mint-fee-mist",
		Value: 1_000_000_000,
		Usage: "mint request fee in MIST, served to clients",
	},
	&cli.Uint64Flag{
		Name:  "gas-budget",
		Usage: "gas budget for the finalize transaction in MIST, 0 uses the default",
	},
	&cli.IntFlag{
		Name:  "resolver-scan-limit",
		Usage: "max mint-request events scanned per resolution, 0 uses the default",
	},
	&cli.StringFlag{
		Name:  "enclave-socket",
		Usage: "Unix socket of the enclave daemon; empty runs the signer in-process",
	},
	&cli.StringFlag{
		Name:  "enclave-pubkey",
		Usage: "hex-encoded enclave public key served on the mint config endpoint",
	},
	&cli.StringFlag{
		Name:  "vault-addr",
		Usage: "Vault server address; empty reads secrets from the environment",
	},
	&cli.StringFlag{
		Name:    "vault-token",
		Usage:   "Vault token",
		EnvVars: []string{"VAULT_TOKEN"},
	},
	&cli.StringFlag{
		Name:  "vault-mount",
		Value: "secret",
		Usage: "Vault KV v2 mount",
	},
	&cli.StringFlag{
		Name:  "vault-path",
		Value: "suirify/backend",
		Usage: "Vault entry holding the backend secrets",
	},
}, flags.CommonFlags...)

func main() {
	app := &cli.App{
		Name:   "attestation-server",
		Usage:  "Serve the identity attestation API",
		Flags:  serverFlags,
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)
	ctx := context.Background()

	var secretSource secrets.Source
	if vaultAddr := cCtx.String("vault-addr"); vaultAddr != "" {
		logger.Info("Reading secrets from Vault", "address", vaultAddr)
		src, err := secrets.NewVaultSource(vaultAddr, cCtx.String("vault-token"), cCtx.String("vault-mount"), cCtx.String("vault-path"), logger)
		if err != nil {
			return err
		}
		secretSource = src
	} else {
		logger.Info("Reading secrets from the environment")
		secretSource = secrets.NewEnvSource()
	}

	pepper, err := secretSource.Secret(ctx, secrets.GovIDPepper)
	if err != nil {
		return err
	}
	sponsorSeed, err := secrets.Seed32(ctx, secretSource, secrets.SponsorSeed)
	if err != nil {
		return err
	}

	rpcAddr := cCtx.String("rpc-addr")
	logger.Info("Connecting to Sui fullnode RPC", "address", rpcAddr)
	ledgerClient, err := ledger.Dial(ctx, rpcAddr, sponsorSeed, logger)
	if err != nil {
		logger.Error("Failed to dial RPC", "err", err)
		return err
	}
	defer ledgerClient.Close()
	logger.Info("Gas sponsor ready", "address", string(ledgerClient.SponsorAddress()))

	store, err := consumption.NewStore(cCtx.String("ledger-path"), pepper, logger)
	if err != nil {
		return err
	}
	if snapshotURI := cCtx.String("snapshot-uri"); snapshotURI != "" {
		mirror, err := snapshot.FromURI(snapshotURI, logger)
		if err != nil {
			return err
		}
		logger.Info("Ledger snapshots enabled", "backend", mirror.Name())
		store.SetMirror(mirror)
	}
	guard := consumption.NewGuard(store, logger)

	sessions := session.NewStore(time.Duration(cCtx.Int64("session-ttl-minutes"))*time.Minute, logger)
	defer sessions.Close()

	directory := kyc.NewDirectory(logger)
	if recordsFile := cCtx.String("identity-records"); recordsFile != "" {
		if err := directory.LoadFile(recordsFile); err != nil {
			return err
		}
	}

	var signer interfaces.Signer
	enclavePubkey := cCtx.String("enclave-pubkey")
	if socketPath := cCtx.String("enclave-socket"); socketPath != "" {
		logger.Info("Using enclave daemon", "socket", socketPath)
		signer = enclave.NewClient(socketPath)
	} else {
		logger.Warn("Running the payload signer in-process, intended for development only")
		enclaveSeed, err := secrets.Seed32(ctx, secretSource, secrets.EnclaveSeed)
		if err != nil {
			return err
		}
		simple, err := enclave.NewSimpleSigner(enclaveSeed)
		if err != nil {
			return err
		}
		signer = enclave.NewLocalSigner(simple)
		if enclavePubkey == "" {
			enclavePubkey = fmt.Sprintf("%x", simple.PublicKey())
		}
	}

	packageID := interfaces.ObjectID(cCtx.String("package-id")).Normalized()
	moveModule := cCtx.String("move-module")
	mintCfg := mint.Config{
		PackageID:             packageID,
		RegistryID:            interfaces.ObjectID(cCtx.String("registry-id")).Normalized(),
		MoveModule:            moveModule,
		MintFunction:          cCtx.String("mint-function"),
		MintFeeMist:           cCtx.Uint64("mint-fee-mist"),
		MintRequestEventType:  fmt.Sprintf("%s::%s::MintRequestCreated", packageID, moveModule),
		AttestationEventType:  fmt.Sprintf("%s::%s::AttestationIssued", packageID, moveModule),
		AttestationObjectType: fmt.Sprintf("%s::%s::Attestation", packageID, moveModule),
		EnclavePublicKeyHex:   enclavePubkey,
		GasBudget:             cCtx.Uint64("gas-budget"),
		ScanLimit:             cCtx.Int("resolver-scan-limit"),
	}
	if err := mintCfg.Validate(); err != nil {
		return err
	}

	ix := indexer.New(ledgerClient, guard, mintCfg.AttestationEventType, logger)
	if err := ix.Start(ctx); err != nil {
		return err
	}
	defer ix.Stop()

	res := resolver.New(ledgerClient, guard, mintCfg.MintRequestEventType, mintCfg.ScanLimit, logger)
	orchestrator := mint.NewOrchestrator(mintCfg, sessions, guard, store, res, signer, ledgerClient, ix, logger)

	// A missing admin key simply disables the admin surface.
	adminKey := ""
	if raw, err := secretSource.Secret(ctx, secrets.AdminAPIKey); err == nil {
		adminKey = string(raw)
	} else {
		logger.Info("Admin API disabled, no admin key configured")
	}

	handler := httpserver.NewHandler(logger, directory, sessions, guard, orchestrator, mintCfg, store, adminKey)
	cfg := flags.ConfigureServer(cCtx, logger, cCtx.String("listen-addr"))

	server, err := httpserver.New(cfg, handler)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}
	server.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	server.Shutdown()
	logger.Info("Server shutdown complete")
	return nil
}
