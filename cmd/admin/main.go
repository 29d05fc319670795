package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "studio-admin",
	Short: "Operator tooling for the studio backend",
	Long: `studio-admin manages accounts and catalog data directly in the database.

Examples:

  studio-admin create-admin --email owner@studio.example --name "Studio Owner"
  studio-admin hash-password --password 'correct horse battery'
  studio-admin seed-catalog
`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(createAdminCmd)
	rootCmd.AddCommand(hashPasswordCmd)
	rootCmd.AddCommand(seedCatalogCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
