package asyncevents

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davestimpert/polyn-async-events/wildcard"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTopicConfigFromTOML(t *testing.T) {
	path := writeTempFile(t, "topic.toml", `
name = "orders"
ack_timeout = "5s"
`)

	cfg, err := LoadTopicConfig(path, "")
	require.NoError(t, err)
	assert.Equal(t, "orders", cfg.Name)
	assert.Equal(t, 5*time.Second, cfg.AckTimeout)
}

func TestLoadTopicConfigFromYAML(t *testing.T) {
	path := writeTempFile(t, "topic.yaml", "name: orders\nack_timeout: 5s\n")

	cfg, err := LoadTopicConfig(path, "")
	require.NoError(t, err)
	assert.Equal(t, "orders", cfg.Name)
	assert.Equal(t, 5*time.Second, cfg.AckTimeout)
}

func TestLoadTopicConfigEnvOverride(t *testing.T) {
	path := writeTempFile(t, "topic.toml", `
name = "orders"
ack_timeout = "5s"
`)

	t.Setenv("ASYNCEVENTS_ORDERS_NAME", "orders-override")
	cfg, err := LoadTopicConfig(path, "orders")
	require.NoError(t, err)
	assert.Equal(t, "orders-override", cfg.Name)
}

func TestLoadTopicConfigEnvOverridesAckTimeoutDuration(t *testing.T) {
	path := writeTempFile(t, "topic.toml", `
name = "orders"
ack_timeout = "5s"
`)

	t.Setenv("ASYNCEVENTS_ORDERS_ACK_TIMEOUT", "250ms")
	cfg, err := LoadTopicConfig(path, "orders")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.AckTimeout)
}

func TestLoadTopicConfigRejectsUnsupportedExtension(t *testing.T) {
	path := writeTempFile(t, "topic.ini", "name=orders")
	_, err := LoadTopicConfig(path, "")
	assert.Error(t, err)
}

func TestLoadWildcardConfigFromTOML(t *testing.T) {
	path := writeTempFile(t, "wildcard.toml", `
delimiter = "."
wildcard = "*"
no_subscription_event = "none"
`)

	cfg, err := LoadWildcardConfig(path, "")
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.Delimiter)
	assert.Equal(t, "*", cfg.Wildcard)
	assert.Equal(t, "none", cfg.NoSubscription)
}

func TestLoadWildcardEmitterBuildsAWiredEmitter(t *testing.T) {
	path := writeTempFile(t, "wildcard.toml", `
delimiter = "."
wildcard = "*"
no_subscription_event = "none"
`)

	emitter, err := LoadWildcardEmitter(path, "")
	require.NoError(t, err)

	var received bool
	_, err = emitter.On("order.*", func(ctx context.Context, matched *wildcard.MatchedEvent, payload any) {
		received = true
		assert.Equal(t, "order.created", matched.Name)
	})
	require.NoError(t, err)

	emitter.Emit(context.Background(), "order.created", nil)
	assert.True(t, received)
}
