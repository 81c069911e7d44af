package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/activebuddy/activebuddy/cmd/configure/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "activebuddy-configure",
		Short: "Admin tool for ActiveBuddy",
		Long:  "CLI tool for managing chat authorization and stored profiles",
	}

	rootCmd.AddCommand(commands.NewUsersCmd())
	rootCmd.AddCommand(commands.NewProfileCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
