package companion

import (
	"flag"
	"fmt"

	"github.com/joho/godotenv"
)

// Parse parses command line arguments and returns the command to execute,
// the application configuration, and any error. Configuration is layered:
// a .env file (when present) feeds the environment, the environment feeds
// defaults, and flags override both.
func Parse(args []string) (Command, *Config, error) {
	flagSet := flag.NewFlagSet("companion", flag.ContinueOnError)

	var (
		port    = flagSet.String("port", "8080", "Server port")
		envFile = flagSet.String("env-file", ".env", "Environment file to preload")
	)

	if err := flagSet.Parse(args); err != nil {
		return nil, nil, err
	}

	remainingArgs := flagSet.Args()
	if len(remainingArgs) == 0 {
		return nil, nil, fmt.Errorf(`subcommand required

Usage: companion [flags] <command>

Commands:
  run       Start the companion server

Examples:
  companion run
  companion -port=8090 run
  companion -env-file=prod.env run`)
	}

	// Preload the env file before reading the environment. A missing file
	// is fine; containers usually inject the environment directly.
	_ = godotenv.Load(*envFile)

	var cmd Command
	switch remainingArgs[0] {
	case "run":
		cmd = &RunCommand{}
	default:
		return nil, nil, fmt.Errorf("unknown command: %s\n\nValid commands: run", remainingArgs[0])
	}

	config := &Config{
		ServerPort:    *port,
		SurrealDBURL:  getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNS:   getEnv("SURREALDB_NS", "companion"),
		SurrealDBDB:   getEnv("SURREALDB_DB", "companion"),
		SurrealDBUser: getEnv("SURREALDB_USER", "root"),
		SurrealDBPass: getEnv("SURREALDB_PASS", "root"),
	}

	return cmd, config, nil
}
