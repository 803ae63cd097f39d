package main

import (
	"context"

	"github.com/sparkify/sparkify-etl/internal/store"
	"github.com/sparkify/sparkify-etl/internal/util"
	"github.com/spf13/cobra"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the star schema tables",
	Long: `Create the songs, artists, users, time and songplays tables if they do not exist.

With --drop, all five tables are dropped first, which discards every loaded row.`,
	RunE: runInitDB,
}

func init() {
	rootCmd.AddCommand(initDBCmd)

	initDBCmd.Flags().Bool("drop", false, "drop existing tables first (deletes all data)")
}

func runInitDB(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	drop, _ := cmd.Flags().GetBool("drop")

	dbCfg, err := loadStoreConfig()
	if err != nil {
		return err
	}

	util.InfoLog("Connecting to %s", dbCfg.Redacted())
	st, err := store.Open(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if drop {
		util.WarnLog("Dropping tables: %v", store.Tables)
		if err := st.DropSchema(ctx); err != nil {
			return err
		}
	}

	if err := st.CreateSchema(ctx); err != nil {
		return err
	}

	util.SuccessLog("Schema ready: %v", store.Tables)
	return nil
}
