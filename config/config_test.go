package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testContract = "0x34308cA4FDa08A95b7F7B643124588DD4Fa5158c"
	testToken    = "0xE8edF2DF7847A53Aeb6738FDE69BCa923Ca5C195"
)

func TestGetConfigDefaults(t *testing.T) {
	cfg, err := GetConfig("")
	require.NoError(t, err)

	assert.Equal(t, 4*time.Second, cfg.ConfirmDelay)
	assert.Equal(t, 3*time.Second, cfg.Cooldown)
	assert.Equal(t, 2*time.Minute, cfg.ReceiptTimeout)
	assert.Equal(t, 2*time.Second, cfg.ReceiptPoll)
	assert.Equal(t, 10*time.Second, cfg.CallTimeout)
	assert.Equal(t, uint64(100000), cfg.ApproveGasLimit)
	assert.Equal(t, uint64(400000), cfg.BetGasLimit)
	assert.Equal(t, uint64(200000), cfg.ResolveGasLimit)
	assert.True(t, cfg.Simulate)
	assert.False(t, cfg.AllowanceTopUp)
	assert.Equal(t, StoreLevelDB, cfg.StoreBackend)
	assert.Equal(t, "betting.log", cfg.LogFile)
	assert.Equal(t, "ok.log", cfg.WinLogFile)
}

func TestGetConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rpc_url: http://127.0.0.1:8545
contract_addr: `+testContract+`
token_addr: `+testToken+`
cooldown: 10s
bet_gas_limit: 500000
store_backend: redis
`), 0o600))

	t.Setenv("COOLDOWN", "1s")
	t.Setenv("SIMULATE", "false")
	t.Setenv("PRIVATE_KEY", "0x01")

	cfg, err := GetConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8545", cfg.RPCURL)
	assert.Equal(t, testContract, cfg.ContractAddr)
	assert.Equal(t, uint64(500000), cfg.BetGasLimit)
	assert.Equal(t, StoreRedis, cfg.StoreBackend)
	assert.Equal(t, time.Second, cfg.Cooldown)
	assert.False(t, cfg.Simulate)
	assert.Equal(t, "0x01", cfg.PrivateKey)
	// untouched keys keep their defaults
	assert.Equal(t, 4*time.Second, cfg.ConfirmDelay)
}

func TestGetConfigMissingFile(t *testing.T) {
	_, err := GetConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func validConfig() GuessWorkerConfig {
	return GuessWorkerConfig{
		RPCURL:          "http://127.0.0.1:8545",
		ContractAddr:    testContract,
		TokenAddr:       testToken,
		PrivateKey:      "0x01",
		ApproveGasLimit: 100000,
		BetGasLimit:     400000,
		ResolveGasLimit: 200000,
		StoreBackend:    StoreNone,
	}
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.RPCURL = ""
	cfg.PrivateKey = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RPC_URL")
	assert.Contains(t, err.Error(), "PRIVATE_KEY")

	cfg = validConfig()
	cfg.TokenAddr = "0x1234"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.StoreBackend = "postgres"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.BetGasLimit = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.TokenDecimals = 40
	assert.Error(t, cfg.Validate())
}
