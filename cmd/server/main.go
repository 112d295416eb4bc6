package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/ember-mud/embermud/pkg/account"
	"github.com/ember-mud/embermud/pkg/boltstore"
	"github.com/ember-mud/embermud/pkg/server"
	"github.com/ember-mud/embermud/pkg/sqlstore"
)

// envDefault returns the environment variable value if set, otherwise
// the fallback.
func envDefault(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

func main() {
	confFile := flag.String("conf", envDefault("EMBER_CONF", ""), "Path to YAML config file (env: EMBER_CONF)")
	port := flag.Int("port", 0, "TCP port to listen on, overrides config (env: EMBER_PORT)")
	storeKind := flag.String("store", envDefault("EMBER_STORE", ""), "Account store backend: bolt or sqlite (env: EMBER_STORE)")
	boltPath := flag.String("bolt", envDefault("EMBER_BOLT", ""), "Path to bbolt account database (env: EMBER_BOLT)")
	sqlitePath := flag.String("sqldb", envDefault("EMBER_SQLDB", ""), "Path to SQLite account database (env: EMBER_SQLDB)")
	textDir := flag.String("textdir", envDefault("EMBER_TEXTDIR", ""), "Path to text files directory (env: EMBER_TEXTDIR)")
	webPort := flag.Int("web-port", 0, "HTTP port for metrics/websocket, overrides config (env: EMBER_WEB_PORT)")
	flag.Parse()

	cfg := server.DefaultConfig()
	if *confFile != "" {
		var err error
		cfg, err = server.LoadConfig(*confFile)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
	}

	// Flag/env overrides on top of the config file.
	if *port == 0 {
		if p, err := strconv.Atoi(os.Getenv("EMBER_PORT")); err == nil {
			*port = p
		}
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *storeKind != "" {
		cfg.Store = *storeKind
	}
	if *boltPath != "" {
		cfg.BoltPath = *boltPath
	}
	if *sqlitePath != "" {
		cfg.SQLitePath = *sqlitePath
		if *storeKind == "" {
			cfg.Store = "sqlite"
		}
	}
	if *textDir != "" {
		cfg.TextDir = *textDir
	}
	if *webPort == 0 {
		if p, err := strconv.Atoi(os.Getenv("EMBER_WEB_PORT")); err == nil {
			*webPort = p
		}
	}
	if *webPort != 0 {
		cfg.WebPort = *webPort
		cfg.WebEnabled = true
	}

	accounts, err := openStore(cfg)
	if err != nil {
		log.Fatalf("account store: %v", err)
	}
	defer accounts.Close()

	srv := server.NewServer(cfg, accounts)
	if err := srv.Start(); err != nil {
		log.Fatalf("server: %v", err)
	}
}

func openStore(cfg server.Config) (account.Store, error) {
	switch cfg.Store {
	case "", "bolt":
		return boltstore.Open(cfg.BoltPath)
	case "sqlite":
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite store selected but no path configured")
		}
		return sqlstore.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}
