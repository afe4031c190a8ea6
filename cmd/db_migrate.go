package cmd

import (
	"github.com/fox-one/pkg/store/db"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// command for migrating the event tables
var migrateCmd = &cobra.Command{
	Use:     "migrate",
	Aliases: []string{"setdb"},
	Short:   "migrate event tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		database := provideDatabase()
		defer database.Close()

		if err := db.Migrate(database); err != nil {
			return err
		}

		logrus.Infoln("database migrated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
