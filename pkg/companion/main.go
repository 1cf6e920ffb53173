package companion

import (
	"context"
	"fmt"
)

// Main is the entry point for the companion application. It parses args,
// builds the application, and executes the selected command. Tests call it
// directly without building the binary; the context drives graceful
// shutdown.
//
// # Environment Variables
//
//	SURREALDB_URL    - SurrealDB WebSocket URL (default: ws://localhost:8000/rpc)
//	SURREALDB_NS     - SurrealDB namespace (default: companion)
//	SURREALDB_DB     - SurrealDB database (default: companion)
//	SURREALDB_USER   - SurrealDB username (default: root)
//	SURREALDB_PASS   - SurrealDB password (default: root)
//
// An .env file in the working directory (or the one named by -env-file) is
// loaded into the environment before these are read.
func Main(ctx context.Context, args []string) error {
	cmd, config, err := Parse(args)
	if err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	app, err := New(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer app.Close()

	switch c := cmd.(type) {
	case *RunCommand:
		if err := app.Run(ctx, c); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	default:
		return fmt.Errorf("unknown command type: %T", cmd)
	}

	return nil
}
