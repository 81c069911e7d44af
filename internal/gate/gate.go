// Package gate decides whether a chat may talk to the coach. Access is
// invite-only: a chat is either already authorized, presents the invite
// code, or gets the business card.
package gate

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/activebuddy/activebuddy/internal/database"
)

// Decision is the gate outcome for one incoming message.
type Decision int

const (
	// PendingInvite means the chat is locked and the message was not
	// the invite code.
	PendingInvite Decision = iota
	// InviteAccepted means this message was the invite code and the
	// chat has just been authorized.
	InviteAccepted
	// Authorized means the chat was already allowed in.
	Authorized
)

// Gatekeeper checks chat authorization against the profile store.
type Gatekeeper struct {
	profiles   database.ProfileStore
	inviteCode string
	logger     *zap.Logger
}

// New creates a gatekeeper.
func New(profiles database.ProfileStore, inviteCode string, logger *zap.Logger) *Gatekeeper {
	return &Gatekeeper{profiles: profiles, inviteCode: inviteCode, logger: logger}
}

// Check resolves the decision for a message. Creating the profile row
// on first contact is part of the check so later handlers can assume
// it exists.
func (g *Gatekeeper) Check(ctx context.Context, chatID int64, text string) (Decision, error) {
	profile, err := g.profiles.GetOrCreate(ctx, chatID)
	if err != nil {
		return PendingInvite, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile.Authorized {
		return Authorized, nil
	}

	candidate := strings.TrimSpace(text)
	if subtle.ConstantTimeCompare([]byte(candidate), []byte(g.inviteCode)) == 1 {
		if err := g.profiles.SetAuthorized(ctx, chatID, true); err != nil {
			return PendingInvite, fmt.Errorf("failed to authorize chat: %w", err)
		}
		g.logger.Info("invite_accepted", zap.Int64("chat_id", chatID))
		return InviteAccepted, nil
	}

	return PendingInvite, nil
}

// IsAuthorized reports whether a chat is already allowed in, without
// evaluating any invite code. Used by command handlers where the text
// is a command, not a code.
func (g *Gatekeeper) IsAuthorized(ctx context.Context, chatID int64) (bool, error) {
	profile, err := g.profiles.GetOrCreate(ctx, chatID)
	if err != nil {
		return false, fmt.Errorf("failed to load profile: %w", err)
	}
	return profile.Authorized, nil
}
