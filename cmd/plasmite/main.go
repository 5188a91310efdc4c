package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootArgs struct {
	ConfigPath string
}

var rootCmd = &cobra.Command{
	Use:     "plasmite",
	Short:   "Append-only, file-backed message pool engine",
	Version: "0.1.0",
}

func init() {
	// A missing .env is not an error; it's how most deployments run.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVarP(&rootArgs.ConfigPath, "config", "c", "", "Path to plasmite.toml (defaults baked in if omitted)")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(appendCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(tailCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
}
