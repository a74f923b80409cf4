package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fees-service",
	Short: "Fees and organizer lifecycle microservice",
	Long:  "A microservice for marketplace fee computation, refund routing, and organizer identity/payout webhooks.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
