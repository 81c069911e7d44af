package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/activebuddy/activebuddy/internal/database"
	"github.com/activebuddy/activebuddy/internal/strava"
	"github.com/activebuddy/activebuddy/internal/telegram"
)

const callbackSuccessPage = `<!DOCTYPE html>
<html>
<head><title>ActiveBuddy</title></head>
<body>
<h2>Success! Strava connected.</h2>
<p>You can close this window and return to Telegram.</p>
</body>
</html>`

// StravaCallbackHandler completes the OAuth dance: Strava redirects the
// athlete's browser here with an authorization code and the chat id in
// the state parameter.
type StravaCallbackHandler struct {
	oauth    *strava.OAuth
	profiles database.ProfileStore
	sender   telegram.Sender
	logger   *zap.Logger
}

// NewStravaCallbackHandler creates the callback handler.
func NewStravaCallbackHandler(oauth *strava.OAuth, profiles database.ProfileStore, sender telegram.Sender, logger *zap.Logger) *StravaCallbackHandler {
	return &StravaCallbackHandler{oauth: oauth, profiles: profiles, sender: sender, logger: logger}
}

// HandleCallback handles GET /strava/callback.
func (h *StravaCallbackHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	code := query.Get("code")
	state := query.Get("state")
	authErr := query.Get("error")

	chatID, parseErr := strconv.ParseInt(state, 10, 64)

	if authErr != "" {
		if parseErr == nil {
			h.notify(chatID, "❌ Authorization canceled.")
		}
		http.Error(w, "Authorization denied.", http.StatusForbidden)
		return
	}

	if code == "" || parseErr != nil {
		h.logger.Warn("strava_callback_malformed",
			zap.String("state", state),
			zap.Bool("has_code", code != ""),
		)
		http.Error(w, "Missing code or state.", http.StatusBadRequest)
		return
	}

	tokens, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("strava_exchange_failed", zap.Int64("chat_id", chatID), zap.Error(err))
		h.notify(chatID, "❌ Authorization error. Please try /connect_strava again.")
		http.Error(w, "Authorization failed.", http.StatusBadGateway)
		return
	}

	// GetOrCreate first: the row may not exist if the user cleared
	// their chat before finishing the dance.
	if _, err := h.profiles.GetOrCreate(r.Context(), chatID); err == nil {
		err = h.profiles.SaveStravaTokens(r.Context(), chatID, tokens)
	}
	if err != nil {
		h.logger.Error("strava_token_store_failed", zap.Int64("chat_id", chatID), zap.Error(err))
		h.notify(chatID, "❌ Authorization error. Please try /connect_strava again.")
		http.Error(w, "Internal server error.", http.StatusInternalServerError)
		return
	}

	h.logger.Info("strava_connected", zap.Int64("chat_id", chatID))
	h.notify(chatID, "✅ Success! Strava connected!")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(callbackSuccessPage)); err != nil {
		h.logger.Warn("callback_page_write_failed", zap.Error(err))
	}
}

func (h *StravaCallbackHandler) notify(chatID int64, text string) {
	if err := h.sender.SendText(chatID, text); err != nil {
		h.logger.Warn("send_failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
