package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/activebuddy/activebuddy/internal/config"
	"github.com/activebuddy/activebuddy/internal/database"
)

// NewUsersCmd creates the users command group
func NewUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage chat authorization",
		Long:  "List chats and grant or revoke coach access",
	}

	cmd.AddCommand(newUsersListCmd())
	cmd.AddCommand(newUsersAuthorizeCmd())
	cmd.AddCommand(newUsersRevokeCmd())

	return cmd
}

func newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known chats",
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, cleanup, err := openProfiles()
			if err != nil {
				return err
			}
			defer cleanup()

			all, err := profiles.List(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list profiles: %w", err)
			}

			if len(all) == 0 {
				fmt.Println("No chats yet")
				return nil
			}

			fmt.Println("Known chats:")
			for _, p := range all {
				status := "locked"
				if p.Authorized {
					status = "authorized"
				}
				strava := "no"
				if p.Strava.Connected() {
					strava = "yes"
				}
				fmt.Printf("  - Chat: %d\n", p.ChatID)
				fmt.Printf("    Status: %s\n", status)
				fmt.Printf("    Strava: %s\n", strava)
				fmt.Printf("    Memory keys: %d\n", len(p.Memory))
				fmt.Println()
			}

			return nil
		},
	}
}

func newUsersAuthorizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "authorize <chat-id>",
		Short: "Grant coach access to a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setAuthorized(args[0], true)
		},
	}
}

func newUsersRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <chat-id>",
		Short: "Revoke coach access from a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setAuthorized(args[0], false)
		},
	}
}

func setAuthorized(rawChatID string, authorized bool) error {
	chatID, err := strconv.ParseInt(rawChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", rawChatID, err)
	}

	profiles, cleanup, err := openProfiles()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	if _, err := profiles.GetOrCreate(ctx, chatID); err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	if err := profiles.SetAuthorized(ctx, chatID, authorized); err != nil {
		return fmt.Errorf("failed to update authorization: %w", err)
	}

	if authorized {
		fmt.Printf("Chat %d authorized\n", chatID)
	} else {
		fmt.Printf("Chat %d access revoked\n", chatID)
	}
	return nil
}

// openProfiles connects to the database and returns the profile
// repository plus a cleanup function.
func openProfiles() (*database.ProfileRepository, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}
	return database.NewProfileRepository(db), cleanup, nil
}
