package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/suirifyprotocol/suirify-sub000/cmd/flags"
	"github.com/suirifyprotocol/suirify-sub000/enclave"
	"github.com/suirifyprotocol/suirify-sub000/secrets"
)

var daemonFlags = append([]cli.Flag{
	&cli.StringFlag{
		Name:  "socket",
		Value: "/var/run/suirify/enclaved.sock",
		Usage: "Unix socket to serve the signing API on",
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
		Name:   "enclaved",
		Usage:  "Serve the attestation payload signer over a Unix socket",
		Flags:  daemonFlags,
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
		src, err := secrets.NewVaultSource(vaultAddr, cCtx.String("vault-token"), cCtx.String("vault-mount"), cCtx.String("vault-path"), logger)
		if err != nil {
			return err
		}
		secretSource = src
	} else {
		secretSource = secrets.NewEnvSource()
	}

	seed, err := secrets.Seed32(ctx, secretSource, secrets.EnclaveSeed)
	if err != nil {
		return err
	}
	signer, err := enclave.NewSimpleSigner(seed)
	if err != nil {
		return err
	}
	logger.Info("Enclave signer ready", "publicKey", signer.PublicKeyHex())

	socketPath := cCtx.String("socket")
	// Stale sockets from a previous run block the listener.
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		logger.Error("Failed to listen on socket", "err", err, "socket", socketPath)
		return err
	}
	if err := os.Chmod(socketPath, 0o600); err != nil {
		return err
	}

	srv := &http.Server{
		Handler:      enclave.NewHandler(signer, logger).Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Enclave daemon listening", "socket", socketPath)
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("Enclave daemon failed", "err", err)
		}
	}()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
	<-exit
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "err", err)
	}
	return nil
}
