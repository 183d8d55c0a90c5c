package config

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/vibe-labs/vibe-rewards/pkg/utils"
)

const ENV_PREFIX = "VIBE_REWARDS"

type StorageEngine string

const (
	StorageEngine_Memory   StorageEngine = "memory"
	StorageEngine_LevelDb  StorageEngine = "leveldb"
	StorageEngine_Postgres StorageEngine = "postgres"
)

func parseStorageEngine(e string) StorageEngine {
	switch strings.ToLower(strings.TrimSpace(e)) {
	case string(StorageEngine_LevelDb):
		return StorageEngine_LevelDb
	case string(StorageEngine_Postgres):
		return StorageEngine_Postgres
	default:
		return StorageEngine_Memory
	}
}

type ChainConfig struct {
	ChainId          uint64
	ChainName        string
	RpcUrl           string
	CurrencyName     string
	CurrencySymbol   string
	CurrencyDecimals int
	ExplorerUrl      string
}

type WalletConfig struct {
	PrivateKey string
	// ProviderUrl is the JSON-RPC endpoint that accepts wallet_* requests.
	// Falls back to the chain RPC url when empty.
	ProviderUrl string
}

type ContractConfig struct {
	DeploymentFile  string
	Address         string
	SimulationDelay time.Duration
	TokenSymbol     string
	TokenDecimals   int
	TokenIconUrl    string
}

type PrimusConfig struct {
	AppId              string
	AppSecret          string
	TemplateId         string
	Url                string
	AttestorAddresses  []string
	Location           string
	AttestationTimeout time.Duration
}

type StorageConfig struct {
	Engine      StorageEngine
	LevelDbPath string
}

type DatabaseConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	DbName     string
	SchemaName string
	SSLMode    string
}

type RpcConfig struct {
	HttpPort int
}

type PrometheusConfig struct {
	Enabled bool
	Port    int
}

type StatsdConfig struct {
	Enabled    bool
	Url        string
	SampleRate float64
}

type DataDogConfig struct {
	StatsdConfig StatsdConfig
}

type Config struct {
	Debug            bool
	ChainConfig      ChainConfig
	WalletConfig     WalletConfig
	ContractConfig   ContractConfig
	PrimusConfig     PrimusConfig
	StorageConfig    StorageConfig
	DatabaseConfig   DatabaseConfig
	RpcConfig        RpcConfig
	PrometheusConfig PrometheusConfig
	DataDogConfig    DataDogConfig
}

const (
	Debug = "debug"

	ChainId               = "chain.chain_id"
	ChainName             = "chain.chain_name"
	ChainRpcUrl           = "chain.rpc_url"
	ChainCurrencyName     = "chain.currency_name"
	ChainCurrencySymbol   = "chain.currency_symbol"
	ChainCurrencyDecimals = "chain.currency_decimals"
	ChainExplorerUrl      = "chain.explorer_url"

	WalletPrivateKey  = "wallet.private_key"
	WalletProviderUrl = "wallet.provider_url"

	ContractDeploymentFile  = "contract.deployment_file"
	ContractAddress         = "contract.address"
	ContractSimulationDelay = "contract.simulation_delay"
	ContractTokenSymbol     = "contract.token_symbol"
	ContractTokenDecimals   = "contract.token_decimals"
	ContractTokenIconUrl    = "contract.token_icon_url"

	PrimusAppId              = "primus.app_id"
	PrimusAppSecret          = "primus.app_secret"
	PrimusTemplateId         = "primus.template_id"
	PrimusUrl                = "primus.url"
	PrimusAttestorAddresses  = "primus.attestor_addresses"
	PrimusLocation           = "primus.location"
	PrimusAttestationTimeout = "primus.attestation_timeout"

	StorageEngineKey   = "storage.engine"
	StorageLevelDbPath = "storage.leveldb_path"

	DatabaseHost       = "database.host"
	DatabasePort       = "database.port"
	DatabaseUser       = "database.user"
	DatabasePassword   = "database.password"
	DatabaseDbName     = "database.db_name"
	DatabaseSchemaName = "database.schema_name"
	DatabaseSSLMode    = "database.ssl_mode"

	RpcHttpPort = "rpc.http_port"

	PrometheusEnabled = "prometheus.enabled"
	PrometheusPort    = "prometheus.port"

	DataDogStatsdEnabled    = "datadog.statsd.enabled"
	DataDogStatsdUrl        = "datadog.statsd.url"
	DataDogStatsdSampleRate = "datadog.statsd.sample_rate"

	// flag-only keys used by individual commands
	ClaimAddress     = "address"
	ExportOutputFile = "out"
)

func NewConfig() *Config {
	return &Config{
		Debug: viper.GetBool(normalizeFlagName(Debug)),

		ChainConfig: ChainConfig{
			ChainId:          viper.GetUint64(normalizeFlagName(ChainId)),
			ChainName:        viper.GetString(normalizeFlagName(ChainName)),
			RpcUrl:           viper.GetString(normalizeFlagName(ChainRpcUrl)),
			CurrencyName:     viper.GetString(normalizeFlagName(ChainCurrencyName)),
			CurrencySymbol:   viper.GetString(normalizeFlagName(ChainCurrencySymbol)),
			CurrencyDecimals: viper.GetInt(normalizeFlagName(ChainCurrencyDecimals)),
			ExplorerUrl:      viper.GetString(normalizeFlagName(ChainExplorerUrl)),
		},

		WalletConfig: WalletConfig{
			PrivateKey:  viper.GetString(normalizeFlagName(WalletPrivateKey)),
			ProviderUrl: viper.GetString(normalizeFlagName(WalletProviderUrl)),
		},

		ContractConfig: ContractConfig{
			DeploymentFile:  viper.GetString(normalizeFlagName(ContractDeploymentFile)),
			Address:         viper.GetString(normalizeFlagName(ContractAddress)),
			SimulationDelay: viper.GetDuration(normalizeFlagName(ContractSimulationDelay)),
			TokenSymbol:     viper.GetString(normalizeFlagName(ContractTokenSymbol)),
			TokenDecimals:   viper.GetInt(normalizeFlagName(ContractTokenDecimals)),
			TokenIconUrl:    viper.GetString(normalizeFlagName(ContractTokenIconUrl)),
		},

		PrimusConfig: PrimusConfig{
			AppId:              viper.GetString(normalizeFlagName(PrimusAppId)),
			AppSecret:          viper.GetString(normalizeFlagName(PrimusAppSecret)),
			TemplateId:         viper.GetString(normalizeFlagName(PrimusTemplateId)),
			Url:                viper.GetString(normalizeFlagName(PrimusUrl)),
			AttestorAddresses:  StringWithDefaults(viper.GetStringSlice(normalizeFlagName(PrimusAttestorAddresses)), []string{}),
			Location:           viper.GetString(normalizeFlagName(PrimusLocation)),
			AttestationTimeout: viper.GetDuration(normalizeFlagName(PrimusAttestationTimeout)),
		},

		StorageConfig: StorageConfig{
			Engine:      parseStorageEngine(viper.GetString(normalizeFlagName(StorageEngineKey))),
			LevelDbPath: viper.GetString(normalizeFlagName(StorageLevelDbPath)),
		},

		DatabaseConfig: DatabaseConfig{
			Host:       viper.GetString(normalizeFlagName(DatabaseHost)),
			Port:       viper.GetInt(normalizeFlagName(DatabasePort)),
			User:       viper.GetString(normalizeFlagName(DatabaseUser)),
			Password:   viper.GetString(normalizeFlagName(DatabasePassword)),
			DbName:     viper.GetString(normalizeFlagName(DatabaseDbName)),
			SchemaName: viper.GetString(normalizeFlagName(DatabaseSchemaName)),
			SSLMode:    viper.GetString(normalizeFlagName(DatabaseSSLMode)),
		},

		RpcConfig: RpcConfig{
			HttpPort: viper.GetInt(normalizeFlagName(RpcHttpPort)),
		},

		PrometheusConfig: PrometheusConfig{
			Enabled: viper.GetBool(normalizeFlagName(PrometheusEnabled)),
			Port:    viper.GetInt(normalizeFlagName(PrometheusPort)),
		},

		DataDogConfig: DataDogConfig{
			StatsdConfig: StatsdConfig{
				Enabled:    viper.GetBool(normalizeFlagName(DataDogStatsdEnabled)),
				Url:        viper.GetString(normalizeFlagName(DataDogStatsdUrl)),
				SampleRate: viper.GetFloat64(normalizeFlagName(DataDogStatsdSampleRate)),
			},
		},
	}
}

// Deployment is the artifact written when the reward contract is deployed.
type Deployment struct {
	ContractAddress string          `json:"contractAddress"`
	Network         string          `json:"network"`
	ChainId         uint64          `json:"chainId"`
	Abi             json.RawMessage `json:"abi,omitempty"`
}

func (d *Deployment) IsDeployed() bool {
	return !utils.IsNullAddress(d.ContractAddress)
}

// LoadDeployment reads the deployment artifact. A missing path or file yields the
// zero-address deployment, which puts the ledger in simulation mode.
func (c *Config) LoadDeployment() (*Deployment, error) {
	d := &Deployment{
		ContractAddress: utils.NullEthereumAddressHex,
		ChainId:         c.ChainConfig.ChainId,
	}
	if c.ContractConfig.DeploymentFile != "" {
		data, err := os.ReadFile(c.ContractConfig.DeploymentFile)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, d); err != nil {
				return nil, errors.Wrapf(err, "failed to parse deployment file %s", c.ContractConfig.DeploymentFile)
			}
		case os.IsNotExist(err):
		default:
			return nil, errors.Wrapf(err, "failed to read deployment file %s", c.ContractConfig.DeploymentFile)
		}
	}
	if c.ContractConfig.Address != "" {
		d.ContractAddress = c.ContractConfig.Address
	}
	if d.ContractAddress == "" {
		d.ContractAddress = utils.NullEthereumAddressHex
	}
	return d, nil
}

func (c *Config) GetWalletProviderUrl() string {
	return StringWithDefault(c.WalletConfig.ProviderUrl, c.ChainConfig.RpcUrl)
}

func (c *Config) GetSimulationDelay() time.Duration {
	if c.ContractConfig.SimulationDelay <= 0 {
		return 2 * time.Second
	}
	return c.ContractConfig.SimulationDelay
}

func StringWithDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func StringWithDefaults(values []string, defaultValues []string) []string {
	if len(values) == 0 {
		return defaultValues
	}
	return values
}

func KebabToSnakeCase(str string) string {
	return strings.ReplaceAll(str, "-", "_")
}

func normalizeFlagName(name string) string {
	return KebabToSnakeCase(name)
}
