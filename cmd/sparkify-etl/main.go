package main

import (
	"fmt"
	"os"

	"github.com/sparkify/sparkify-etl/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "sparkify-etl",
		Short: "Load Sparkify song and activity logs into the song-play star schema",
		Long: `sparkify-etl reads song metadata files and user-activity logs (newline-delimited
JSON) from a local directory tree and loads them into the songs, artists, users,
time and songplays tables.

Running without a subcommand performs a full load, the same as "sparkify-etl run".`,
		Version:      Version,
		SilenceUsage: true,
		RunE:         runETL,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/sparkify.yaml)")
	rootCmd.PersistentFlags().String("db-driver", "postgres", "target database driver (postgres or sqlite)")
	rootCmd.PersistentFlags().String("db-host", "127.0.0.1", "database host")
	rootCmd.PersistentFlags().Int("db-port", 5432, "database port")
	rootCmd.PersistentFlags().String("db-name", "sparkifydb", "database name")
	rootCmd.PersistentFlags().String("db-user", "student", "database user")
	rootCmd.PersistentFlags().String("db-password", "student", "database password")
	rootCmd.PersistentFlags().String("db-sslmode", "disable", "PostgreSQL sslmode")
	rootCmd.PersistentFlags().String("db-path", "sparkify.db", "database file when --db-driver=sqlite")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")

	// Bind flags to viper
	bindings := map[string]string{
		"db.driver":   "db-driver",
		"db.host":     "db-host",
		"db.port":     "db-port",
		"db.name":     "db-name",
		"db.user":     "db-user",
		"db.password": "db-password",
		"db.sslmode":  "db-sslmode",
		"db.path":     "db-path",
		"verbose":     "verbose",
		"quiet":       "quiet",
	}
	for key, flag := range bindings {
		viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
	}

	addRunFlags(rootCmd)
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in common locations
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("sparkify")
		viper.SetConfigType("yaml")
	}

	// SPARKIFY_DB_HOST overrides db.host and so on
	viper.SetEnvPrefix("SPARKIFY")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	// If a config file is found, read it in
	configErr := viper.ReadInConfig()

	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	if configErr == nil {
		util.InfoLog("Using config file: %s", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
