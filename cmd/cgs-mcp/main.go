// Command cgs-mcp serves the scoring tools over the Model Context Protocol
// on stdio.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/cgs-engine/backend/analyzer"
	"github.com/cgs-engine/backend/config"
	"github.com/cgs-engine/backend/mcptool"
	"github.com/cgs-engine/backend/store"
)

func main() {
	// stdout belongs to the protocol
	log.SetOutput(os.Stderr)

	configPath := flag.String("config", "cgs.yaml", "path to an optional YAML config file")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("cgs-mcp v%s\n", mcptool.Version)
		return
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.Open(store.DefaultConfig(cfg.DataDir))
	if err != nil {
		return fmt.Errorf("opening result store: %w", err)
	}
	defer st.Close()

	a, err := analyzer.New(cfg, analyzer.WithStore(st))
	if err != nil {
		return fmt.Errorf("creating analyzer: %w", err)
	}
	defer a.Shutdown()

	return server.ServeStdio(mcptool.NewServer(a, st))
}
