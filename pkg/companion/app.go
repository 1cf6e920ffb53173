package companion

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/recoveryhub/companion/pkg/care"
	"github.com/recoveryhub/companion/pkg/models"
	"github.com/recoveryhub/companion/pkg/store"
	surrealstore "github.com/recoveryhub/companion/pkg/store/surrealdb"
)

// Config holds application configuration. Values come from flags and the
// environment; see [Parse].
type Config struct {
	SurrealDBURL  string
	SurrealDBNS   string
	SurrealDBDB   string
	SurrealDBUser string
	SurrealDBPass string

	ServerPort string
}

// App holds the application state: the store, the relationship/access
// components layered on it, the session table, and the ambient pieces
// (logger, payload validator).
type App struct {
	store    store.Store
	config   *Config
	log      zerolog.Logger
	validate *validator.Validate

	directory *care.Directory
	registry  *care.Registry
	resolver  *care.Resolver

	// In-memory token sessions. Good enough for a single instance; a
	// multi-instance deployment would move these to a shared store.
	sessionMu sync.RWMutex
	sessions  map[string]models.UserID
}

// New creates an application connected to SurrealDB per config.
func New(ctx context.Context, config *Config) (*App, error) {
	s, err := surrealstore.New(
		ctx,
		config.SurrealDBURL,
		config.SurrealDBNS,
		config.SurrealDBDB,
		config.SurrealDBUser,
		config.SurrealDBPass,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	app := NewWithStore(config, s)
	app.log.Info().Str("url", config.SurrealDBURL).Msg("connected to SurrealDB")
	return app, nil
}

// NewWithStore creates an application over an existing store. Tests use it
// with the in-memory store.
func NewWithStore(config *Config, s store.Store) *App {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	directory := care.NewDirectory(s)
	registry := care.NewRegistry(s, directory)

	return &App{
		store:     s,
		config:    config,
		log:       logger,
		validate:  validator.New(),
		directory: directory,
		registry:  registry,
		resolver:  care.NewResolver(directory, registry),
		sessions:  make(map[string]models.UserID),
	}
}

// Close closes the application and its resources.
func (a *App) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// Store returns the underlying store (useful for testing).
func (a *App) Store() store.Store {
	return a.store
}

// getEnv returns the environment variable value, or defaultValue when the
// variable is unset or empty.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
