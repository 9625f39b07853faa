// Package main is the entry point for the rcn node.
// It wires the wallet identity, ledger, gossip network, peer discovery,
// optional block archive, dashboard and operator shell together.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/urfave/cli.v1"

	"riacoin.node/rcn/internal/archive"
	"riacoin.node/rcn/internal/config"
	"riacoin.node/rcn/internal/discovery"
	"riacoin.node/rcn/internal/gossip"
	"riacoin.node/rcn/internal/identity"
	"riacoin.node/rcn/internal/logger"
	"riacoin.node/rcn/internal/node"
	"riacoin.node/rcn/internal/shell"
	"riacoin.node/rcn/internal/types"
	"riacoin.node/rcn/internal/web"
)

func main() {
	app := cli.NewApp()
	app.Name = "rcn"
	app.Usage = "run a riacoin ledger node"
	app.Version = types.Version
	app.Commands = []cli.Command{
		{
			Name:    "run",
			Usage:   "start the node and its operator shell",
			Aliases: []string{"r"},
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "config, c",
					Value: "",
					Usage: "JSON or TOML configuration file",
				},
				cli.BoolFlag{
					Name:  "ephemeral, e",
					Usage: "use a fresh identity instead of the key file",
				},
				cli.BoolFlag{
					Name:  "no-shell",
					Usage: "run without the stdin operator shell",
				},
			},
			Action: cmdRun,
		},
		{
			Name:      "keygen",
			Usage:     "generate a wallet key file",
			Aliases:   []string{"k"},
			ArgsUsage: "<output-file>",
			Action:    cmdKeygen,
		},
		{
			Name:      "address",
			Usage:     "print the wallet address stored in a key file",
			Aliases:   []string{"a"},
			ArgsUsage: "[key-file]",
			Action:    cmdAddress,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func cmdRun(c *cli.Context) error {
	log.Println("rcn node starting...")

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var id *identity.Identity
	if c.Bool("ephemeral") {
		id = identity.Generate()
	} else {
		id, err = identity.LoadOrCreateIdentity(cfg.KeyFile)
		if err != nil {
			return fmt.Errorf("failed to load identity from %s: %w", cfg.KeyFile, err)
		}
	}
	log.Printf("Wallet address: %s", id.Address())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lg := logger.New(cfg.LogBuffer)

	var arch node.Archiver
	if cfg.ArchiveFile != "" {
		store, err := archive.Open(cfg.ArchiveFile)
		if err != nil {
			return fmt.Errorf("failed to open block archive: %w", err)
		}
		defer store.Close()
		arch = store
		log.Printf("Block archive initialized (run %s)", store.RunID())
	}

	h, err := gossip.NewHost(cfg.ListenAddrs)
	if err != nil {
		return fmt.Errorf("failed to start libp2p host: %w", err)
	}
	defer h.Close()
	for _, addr := range h.Addrs() {
		log.Printf("Listening on %s/p2p/%s", addr, h.ID())
	}

	network, err := gossip.New(ctx, h)
	if err != nil {
		return fmt.Errorf("failed to join gossip topics: %w", err)
	}
	defer network.Close()
	log.Println("Gossip network initialized")

	disc := discovery.NewDiscoveryService(h, cfg.MDNSServiceName)
	if err := disc.Start(ctx, cfg.EnableMDNS); err != nil {
		return fmt.Errorf("failed to start discovery: %w", err)
	}
	defer disc.Stop()
	if err := disc.Bootstrap(cfg.BootstrapPeers); err != nil {
		log.Printf("Warning: bootstrap: %v", err)
	}

	n := node.New(node.Options{
		Identity:       id,
		Ledger:         node.NewLedger(lg),
		Publisher:      network,
		Peers:          disc,
		Archive:        arch,
		Logger:         lg,
		ValidateBlocks: cfg.ValidateBlocks,
	})
	lg.Infof("Node started with wallet %s", id.Address())

	go network.Run(ctx, n)

	if cfg.DashboardPort > 0 {
		server, err := web.NewServer(n, cfg.DashboardHost, cfg.DashboardPort)
		if err != nil {
			return fmt.Errorf("failed to initialize web server: %w", err)
		}
		serverErrors := server.Start()
		go func() {
			if err := <-serverErrors; err != nil {
				log.Printf("Web server exited: %v", err)
			}
		}()
		log.Printf("Web dashboard available at http://%s", server.Addr())
	}

	shellDone := make(chan error, 1)
	if !c.Bool("no-shell") {
		go func() {
			shellDone <- shell.New(n, os.Stdin, os.Stdout).Run(ctx)
		}()
	}

	// Wait for interrupt signal or the operator leaving the shell
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-shellDone:
		if err != nil {
			log.Printf("Shell exited: %v", err)
		}
	}

	log.Println("Shutting down...")
	return nil
}

func cmdKeygen(c *cli.Context) error {
	outfile := c.Args().First()
	if outfile == "" {
		return fmt.Errorf("usage: %s keygen <output-file>", c.App.Name)
	}
	if _, err := os.Stat(outfile); err == nil {
		return fmt.Errorf("refusing to overwrite existing key file %s", outfile)
	}

	id := identity.Generate()
	if err := identity.SaveIdentity(outfile, id); err != nil {
		return fmt.Errorf("failed to write key: %w", err)
	}
	fmt.Printf("Key generated: %s\n", outfile)
	fmt.Printf("Address: %s\n", id.Address())
	return nil
}

func cmdAddress(c *cli.Context) error {
	keyFile := c.Args().First()
	if keyFile == "" {
		keyFile = config.Default().KeyFile
	}
	if _, err := os.Stat(keyFile); err != nil {
		return fmt.Errorf("no key file at %s: %w", keyFile, err)
	}
	id, err := identity.LoadOrCreateIdentity(keyFile)
	if err != nil {
		return err
	}
	fmt.Println(id.Address())
	return nil
}
