package main

import (
	"fmt"
	"strings"

	"github.com/sparkify/sparkify-etl/internal/etl"
	"github.com/sparkify/sparkify-etl/internal/store"
	"github.com/sparkify/sparkify-etl/internal/util"
	"github.com/spf13/viper"
)

var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

// GetConfigString retrieves a string config value with proper precedence:
// 1. Command-line flag (if set)
// 2. Environment variable (SPARKIFY_*)
// 3. Config file
// 4. Default value
func GetConfigString(key string, defaultValue string) string {
	val := viper.GetString(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// GetConfigInt retrieves an int config value with proper precedence
func GetConfigInt(key string, defaultValue int) int {
	val := viper.GetInt(key)
	if val == 0 {
		return defaultValue
	}
	return val
}

// loadStoreConfig builds the database connection settings
func loadStoreConfig() (store.Config, error) {
	def := store.DefaultConfig()
	cfg := store.Config{
		Driver:   store.Driver(strings.ToLower(GetConfigString("db.driver", string(def.Driver)))),
		Host:     GetConfigString("db.host", def.Host),
		Port:     GetConfigInt("db.port", def.Port),
		Name:     GetConfigString("db.name", def.Name),
		User:     GetConfigString("db.user", def.User),
		Password: GetConfigString("db.password", def.Password),
		SSLMode:  GetConfigString("db.sslmode", def.SSLMode),
		Path:     GetConfigString("db.path", def.Path),
	}

	switch cfg.Driver {
	case store.DriverPostgres, store.DriverSQLite:
	default:
		return cfg, fmt.Errorf("%w: db.driver must be postgres or sqlite, got %q", util.ErrInvalidConfig, cfg.Driver)
	}
	return cfg, nil
}

// loadConfig builds the full run configuration
func loadConfig() (etl.Config, error) {
	def := etl.DefaultConfig()

	dbCfg, err := loadStoreConfig()
	if err != nil {
		return def, err
	}

	cfg := etl.Config{
		DB:              dbCfg,
		SongRoot:        GetConfigString("song-data", def.SongRoot),
		LogRoot:         GetConfigString("log-data", def.LogRoot),
		Extensions:      viper.GetStringSlice("extensions"),
		ContinueOnError: viper.GetBool("continue-on-error"),
		TruncateFacts:   viper.GetBool("truncate-facts"),
		Progress:        util.ShowProgress() && !viper.GetBool("no-progress"),
	}
	return cfg, nil
}
