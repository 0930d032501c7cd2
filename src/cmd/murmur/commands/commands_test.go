package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mosaicnetworks/murmur/src/crypto/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dataDir := t.TempDir()

	toml := `
user = "carol"
sync-interval = "5s"
push-concurrency = 4
`
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "murmur.toml"), []byte(toml), 0600))

	cmd := NewRunCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--datadir", dataDir,
		"--listen", "127.0.0.1:4000",
		"--log", "error",
	}))

	require.NoError(t, loadConfig(cmd, nil))

	assert.Equal(t, "carol", _config.Murmur.User)
	assert.Equal(t, 5*time.Second, _config.Murmur.SyncInterval)
	assert.Equal(t, 4, _config.Murmur.PushConcurrency)
	assert.Equal(t, "127.0.0.1:4000", _config.Murmur.BindAddr)
	assert.Equal(t, filepath.Join(dataDir, "badger_db"), _config.Murmur.DatabaseDir)
}

func TestKeygen(t *testing.T) {
	dir := t.TempDir()
	privKeyFile = filepath.Join(dir, "priv_key")
	pubKeyFile = filepath.Join(dir, "pub", "key.pub")

	require.NoError(t, keygen(nil, nil))

	key, err := keys.NewSimpleKeyfile(privKeyFile).ReadKey()
	require.NoError(t, err)

	pub, err := os.ReadFile(pubKeyFile)
	require.NoError(t, err)
	assert.Equal(t, keys.PublicKeyHex(&key.PublicKey), string(pub))

	// a second key is refused
	assert.Error(t, keygen(nil, nil))
}
