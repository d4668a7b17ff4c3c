package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all environment-based configuration for raindrop-sync.
type Config struct {
	// Raindrop API token. May be empty at load time; the engine treats a
	// missing token as a precondition failure at run time rather than a
	// config error, so status/purge subcommands still work without one.
	Token string `env:"RAINDROP_TOKEN"`

	// Root of the local vault the bookmark tree lives in.
	VaultDir string `env:"VAULT_DIR"`

	// Subfolder under VaultDir owned by the sync engine. Everything the
	// engine creates, relocates, or deletes stays inside it. Empty means
	// the vault root itself.
	SyncFolder string `env:"SYNC_FOLDER" envDefault:"Raindrop"`

	// Mirror the remote collection hierarchy as nested folders. When
	// false all documents land flat in the sync folder.
	CollectionFolders bool `env:"COLLECTION_FOLDERS" envDefault:"true"`

	// Push locally edited annotations and tags back to Raindrop before
	// each forward pass.
	Bidirectional bool `env:"BIDIRECTIONAL_SYNC" envDefault:"false"`

	// Periodic execution. When disabled the process runs one pass and
	// exits.
	PeriodicSync bool          `env:"PERIODIC_SYNC" envDefault:"false"`
	SyncInterval time.Duration `env:"SYNC_INTERVAL" envDefault:"30m"`

	// Caps the total number of records fetched per run. Zero means
	// unlimited. Intended for trying the tool against a large account.
	TestModeMaxItems int `env:"TEST_MODE_MAX_ITEMS" envDefault:"0"`

	// API base URL override, used by tests to point at a fake server.
	APIBaseURL string `env:"RAINDROP_API_URL" envDefault:"https://api.raindrop.io/rest/v1"`

	// Path of the bbolt run-history database. Defaults to
	// <VaultDir>/.raindrop-sync/state.db when empty.
	DatabasePath string `env:"DATABASE_PATH"`

	// Environment controls log format
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing the API token to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	// Resolve VaultDir to an absolute path at startup. The storage layer
	// uses it for path traversal checks (ensuring resolved document paths
	// stay within the vault), and those checks rely on string prefix
	// comparison, which only works reliably with absolute paths.
	absDir, err := filepath.Abs(cfg.VaultDir)
	if err != nil {
		return nil, fmt.Errorf("resolving vault dir to absolute path: %w", err)
	}

	cfg.VaultDir = absDir

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(cfg.VaultDir, ".raindrop-sync", "state.db")
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.VaultDir == "" {
		return fmt.Errorf("VAULT_DIR is required")
	}

	if c.PeriodicSync && c.SyncInterval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive when periodic sync is enabled")
	}

	if c.TestModeMaxItems < 0 {
		return fmt.Errorf("TEST_MODE_MAX_ITEMS must not be negative")
	}

	return nil
}

// SyncRoot returns the absolute path of the folder the engine owns:
// VaultDir joined with SyncFolder, or VaultDir itself when SyncFolder
// is empty.
func (c *Config) SyncRoot() string {
	if c.SyncFolder == "" {
		return c.VaultDir
	}

	return filepath.Join(c.VaultDir, c.SyncFolder)
}

// HasToken reports whether an API token is configured. The engine checks
// this before attempting any request.
func (c *Config) HasToken() bool {
	return c.Token != ""
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
