package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type GuessWorkerConfig struct {
	RPCURL       string `env:"RPC_URL" mapstructure:"rpc_url"`
	ContractAddr string `env:"CONTRACT_ADDR" mapstructure:"contract_addr"`
	TokenAddr    string `env:"TOKEN_ADDR" mapstructure:"token_addr"`
	PrivateKey   string `env:"PRIVATE_KEY" mapstructure:"private_key"`

	ConfirmDelay   time.Duration `env:"CONFIRM_DELAY" mapstructure:"confirm_delay"`
	ConfirmBlocks  uint64        `env:"CONFIRM_BLOCKS" mapstructure:"confirm_blocks"`
	Cooldown       time.Duration `env:"COOLDOWN" mapstructure:"cooldown"`
	ReceiptTimeout time.Duration `env:"RECEIPT_TIMEOUT" mapstructure:"receipt_timeout"`
	ReceiptPoll    time.Duration `env:"RECEIPT_POLL" mapstructure:"receipt_poll"`
	CallTimeout    time.Duration `env:"CALL_TIMEOUT" mapstructure:"call_timeout"`

	ApproveGasLimit uint64 `env:"APPROVE_GAS_LIMIT" mapstructure:"approve_gas_limit"`
	BetGasLimit     uint64 `env:"BET_GAS_LIMIT" mapstructure:"bet_gas_limit"`
	ResolveGasLimit uint64 `env:"RESOLVE_GAS_LIMIT" mapstructure:"resolve_gas_limit"`

	Simulate       bool  `env:"SIMULATE" mapstructure:"simulate"`
	AllowanceTopUp bool  `env:"ALLOWANCE_TOPUP" mapstructure:"allowance_topup"`
	TokenDecimals  int32 `env:"TOKEN_DECIMALS" mapstructure:"token_decimals"`

	StoreBackend  string `env:"STORE_BACKEND" mapstructure:"store_backend"`
	StorePath     string `env:"STORE_PATH" mapstructure:"store_path"`
	RedisAddr     string `env:"REDIS_ADDR" mapstructure:"redis_addr"`
	RedisPassword string `env:"REDIS_PASSWORD" mapstructure:"redis_password"`
	RedisDB       int    `env:"REDIS_DB" mapstructure:"redis_db"`

	LogFile       string `env:"LOG_FILE" mapstructure:"log_file"`
	WinLogFile    string `env:"WIN_LOG_FILE" mapstructure:"win_log_file"`
	LogLevel      string `env:"LOG_LEVEL" mapstructure:"log_level"`
	LogMaxSize    int    `env:"LOG_MAX_SIZE" mapstructure:"log_max_size"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" mapstructure:"log_max_backups"`
}

const (
	StoreLevelDB = "leveldb"
	StoreRedis   = "redis"
	StoreNone    = "none"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("confirm_delay", 4*time.Second)
	v.SetDefault("confirm_blocks", 0)
	v.SetDefault("cooldown", 3*time.Second)
	v.SetDefault("receipt_timeout", 2*time.Minute)
	v.SetDefault("receipt_poll", 2*time.Second)
	v.SetDefault("call_timeout", 10*time.Second)
	v.SetDefault("approve_gas_limit", 100000)
	v.SetDefault("bet_gas_limit", 400000)
	v.SetDefault("resolve_gas_limit", 200000)
	v.SetDefault("simulate", true)
	v.SetDefault("allowance_topup", false)
	v.SetDefault("token_decimals", 0)
	v.SetDefault("store_backend", StoreLevelDB)
	v.SetDefault("store_path", "bets.db")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("log_file", "betting.log")
	v.SetDefault("win_log_file", "ok.log")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_max_size", 100)
	v.SetDefault("log_max_backups", 5)
}

// GetConfig loads defaults, then the optional config file at path, then
// environment variables, each layer overriding the previous one.
func GetConfig(path string) (GuessWorkerConfig, error) {
	cfg := GuessWorkerConfig{}

	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, errors.Wrapf(err, "cannot read config file %s", path)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(err, "cannot decode config")
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.Wrap(err, "cannot parse ENV vars")
	}
	return cfg, nil
}

// Validate checks the settings a campaign cannot run without.
func (c *GuessWorkerConfig) Validate() error {
	var missing []string
	if c.RPCURL == "" {
		missing = append(missing, "RPC_URL")
	}
	if c.ContractAddr == "" {
		missing = append(missing, "CONTRACT_ADDR")
	}
	if c.TokenAddr == "" {
		missing = append(missing, "TOKEN_ADDR")
	}
	if c.PrivateKey == "" {
		missing = append(missing, "PRIVATE_KEY")
	}
	if len(missing) > 0 {
		return errors.Errorf("required settings are empty: %s", strings.Join(missing, ", "))
	}

	if !common.IsHexAddress(c.ContractAddr) {
		return errors.Errorf("CONTRACT_ADDR is not an address: %s", c.ContractAddr)
	}
	if !common.IsHexAddress(c.TokenAddr) {
		return errors.Errorf("TOKEN_ADDR is not an address: %s", c.TokenAddr)
	}

	switch c.StoreBackend {
	case StoreLevelDB, StoreRedis, StoreNone:
	default:
		return errors.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.BetGasLimit == 0 || c.ResolveGasLimit == 0 || c.ApproveGasLimit == 0 {
		return errors.New("gas limits must be positive")
	}
	if c.TokenDecimals < 0 || c.TokenDecimals > 36 {
		return errors.Errorf("TOKEN_DECIMALS out of range: %d", c.TokenDecimals)
	}
	return nil
}
