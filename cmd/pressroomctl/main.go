package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/pressroom/cmd/pressroomctl/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "pressroomctl",
		Short:        "Operator tooling for the pressroom service",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cli.TokenCmd())
	rootCmd.AddCommand(cli.AvailabilityCmd())
	rootCmd.AddCommand(cli.JobsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
