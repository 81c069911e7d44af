package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewProfileCmd creates the profile command group
func NewProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect and manage stored profiles",
	}

	cmd.AddCommand(newProfileShowCmd())
	cmd.AddCommand(newProfileClearCmd())

	return cmd
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <chat-id>",
		Short: "Show a chat's stored profile memory and history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid chat id %q: %w", args[0], err)
			}

			profiles, cleanup, err := openProfiles()
			if err != nil {
				return err
			}
			defer cleanup()

			profile, err := profiles.Get(context.Background(), chatID)
			if err != nil {
				return fmt.Errorf("failed to load profile: %w", err)
			}

			memory, err := json.MarshalIndent(profile.Memory, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to format memory: %w", err)
			}

			fmt.Printf("Chat: %d\n", profile.ChatID)
			fmt.Printf("Authorized: %t\n", profile.Authorized)
			fmt.Printf("Strava connected: %t\n", profile.Strava.Connected())
			fmt.Printf("Memory:\n%s\n", memory)
			fmt.Printf("History (%d turns):\n", len(profile.History))
			for _, entry := range profile.History {
				fmt.Printf("  [%s] %s\n", entry.Role, entry.Content)
			}
			return nil
		},
	}
}

func newProfileClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <chat-id>",
		Short: "Clear a chat's profile memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid chat id %q: %w", args[0], err)
			}

			profiles, cleanup, err := openProfiles()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := profiles.ClearMemory(context.Background(), chatID); err != nil {
				return fmt.Errorf("failed to clear memory: %w", err)
			}
			fmt.Printf("Profile memory cleared for chat %d\n", chatID)
			return nil
		},
	}
}
