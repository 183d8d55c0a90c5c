package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/vibe-labs/vibe-rewards/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "vibe-rewards",
	Short: "Rewards wallets with VIBE tokens based on attested air quality readings",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	initConfig(rootCmd)

	rootCmd.PersistentFlags().Bool(config.Debug, false, `"true" or "false"`)

	rootCmd.PersistentFlags().Uint64("chain.chain-id", 10143, `The chain id rewards are claimed on`)
	rootCmd.PersistentFlags().String("chain.chain-name", "Monad Testnet", `Human readable chain name, used when adding the chain to a wallet`)
	rootCmd.PersistentFlags().String("chain.rpc-url", "https://testnet-rpc.monad.xyz", `e.g. "http://<hostname>:8545"`)
	rootCmd.PersistentFlags().String("chain.currency-name", "MON", `Native currency name`)
	rootCmd.PersistentFlags().String("chain.currency-symbol", "MON", `Native currency symbol`)
	rootCmd.PersistentFlags().Int("chain.currency-decimals", 18, `Native currency decimals`)
	rootCmd.PersistentFlags().String("chain.explorer-url", "https://testnet.monadexplorer.com", `Block explorer url`)

	rootCmd.PersistentFlags().String("wallet.private-key", "", `Hex encoded private key used to sign claims`)
	rootCmd.PersistentFlags().String("wallet.provider-url", "", `JSON-RPC endpoint accepting wallet_* requests (defaults to chain.rpc-url)`)

	rootCmd.PersistentFlags().String("contract.deployment-file", "deployment.json", `Path to the contract deployment artifact`)
	rootCmd.PersistentFlags().String("contract.address", "", `Reward contract address, overrides the deployment file`)
	rootCmd.PersistentFlags().Duration("contract.simulation-delay", 0, `Artificial claim delay in simulation mode (default 2s)`)
	rootCmd.PersistentFlags().String("contract.token-symbol", "VIBE", `Token symbol registered with the wallet`)
	rootCmd.PersistentFlags().Int("contract.token-decimals", 18, `Token decimals registered with the wallet`)
	rootCmd.PersistentFlags().String("contract.token-icon-url", "https://via.placeholder.com/64x64.png?text=VIBE", `Token icon registered with the wallet`)

	rootCmd.PersistentFlags().String("primus.app-id", "0xfd63ad5b744ad14b9c21bc21c3528a7672209179", `Attestation application id`)
	rootCmd.PersistentFlags().String("primus.app-secret", "0x98403619ece7e0d9130cca06d671d4691705d752bf920921042c23c6f35f9665", `Attestation application secret`)
	rootCmd.PersistentFlags().String("primus.template-id", "7f306580-f728-48e3-b97e-b965743c6803", `Air quality attestation template id`)
	rootCmd.PersistentFlags().String("primus.url", "", `Attestation gateway url; readings fall back to random values when unreachable`)
	rootCmd.PersistentFlags().StringSlice("primus.attestor-addresses", []string{}, `Trusted attestor addresses; readings are degraded to random values when none are set`)
	rootCmd.PersistentFlags().String("primus.location", "Shanghai", `Location label attached to readings`)
	rootCmd.PersistentFlags().Duration("primus.attestation-timeout", 0, `Timeout for a single attestation request`)

	rootCmd.PersistentFlags().String("storage.engine", "memory", `Claim storage engine (memory, leveldb, postgres)`)
	rootCmd.PersistentFlags().String("storage.leveldb-path", "./vibe-claims", `Path of the leveldb claim store`)

	rootCmd.PersistentFlags().String("database.host", "localhost", `PostgreSQL host`)
	rootCmd.PersistentFlags().Int("database.port", 5432, `PostgreSQL port`)
	rootCmd.PersistentFlags().String("database.user", "vibe", `PostgreSQL username`)
	rootCmd.PersistentFlags().String("database.password", "", `PostgreSQL password`)
	rootCmd.PersistentFlags().String("database.db-name", "vibe_rewards", `PostgreSQL database name`)
	rootCmd.PersistentFlags().String("database.schema-name", "", `PostgreSQL schema name (default "public")`)
	rootCmd.PersistentFlags().String("database.ssl-mode", "disable", `PostgreSQL ssl mode`)

	rootCmd.PersistentFlags().Int("rpc.http-port", 7201, `http rpc port`)

	rootCmd.PersistentFlags().Bool("datadog.statsd.enabled", false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().String("datadog.statsd.url", "", `e.g. "localhost:8125"`)
	rootCmd.PersistentFlags().Float64("datadog.statsd.sample-rate", 1.0, `The sample rate to use for statsd metrics`)

	rootCmd.PersistentFlags().Bool("prometheus.enabled", false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().Int("prometheus.port", 2112, `The port to run the prometheus server on`)

	// setup sub commands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(claimCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(claimsCmd)
	rootCmd.AddCommand(runVersionCmd)

	claimsCmd.AddCommand(exportClaimsCmd)
	claimsCmd.AddCommand(clearClaimsCmd)

	// bind any subcommand flags
	claimCmd.PersistentFlags().String(config.ClaimAddress, "", "Address to reward (defaults to the configured wallet)")
	statusCmd.PersistentFlags().String(config.ClaimAddress, "", "Address to look up (required)")
	exportClaimsCmd.PersistentFlags().String(config.ExportOutputFile, "", "Path to write the CSV export to (defaults to stdout)")
	clearClaimsCmd.PersistentFlags().String(config.ClaimAddress, "", "Only clear the record of this address")

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		key := config.KebabToSnakeCase(f.Name)
		viper.BindPFlag(key, f) //nolint:errcheck
		viper.BindEnv(key)      //nolint:errcheck
	})
}

func initConfig(cmd *cobra.Command) {
	viper.SetEnvPrefix(config.ENV_PREFIX)

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.AutomaticEnv()
}

// bindCommandFlags binds the flags of a single sub command, which are not
// visited by the root command's binding.
func bindCommandFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := viper.BindPFlag(config.KebabToSnakeCase(f.Name), f); err != nil {
			fmt.Printf("Failed to bind flag '%s' - %+v\n", f.Name, err)
		}
		if err := viper.BindEnv(f.Name); err != nil {
			fmt.Printf("Failed to bind env '%s' - %+v\n", f.Name, err)
		}
	})
}
