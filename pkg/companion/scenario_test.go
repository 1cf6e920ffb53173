package companion_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/recoveryhub/companion/pkg/companiontesting"
)

// TestCarePairScenario drives the whole care surface through virtual users:
// sign-up, role selection, linking by code, reminders, journal sharing,
// chat, and unlinking.
func TestCarePairScenario(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	pair := companiontesting.NewCarePair(e.server.URL)
	require.NoError(t, pair.Establish(ctx))
	require.NoError(t, pair.RunScenario(ctx))
	require.NoError(t, pair.RunLiveChat(ctx))
	require.NoError(t, pair.Unlink(ctx))
}
