// Command movie-booking serves the booking API and runs its schema
// migrations.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "movie-booking",
	Short:         "Movie browsing, seat booking and watchlist API",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe, // serve is the default
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the booking event consumer",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the MySQL tables if they do not exist",
	RunE:  runMigrate,
}

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
