package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:          "paymentctl",
		Short:        "Operator tools for card payments",
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(pendingCmd())
	rootCmd.AddCommand(verifyCallbackCmd())
	rootCmd.AddCommand(simulateCallbackCmd())
	rootCmd.AddCommand(staffTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
