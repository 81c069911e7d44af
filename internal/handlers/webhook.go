package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/activebuddy/activebuddy/internal/agent"
	"github.com/activebuddy/activebuddy/internal/database"
	"github.com/activebuddy/activebuddy/internal/gate"
	"github.com/activebuddy/activebuddy/internal/queue"
	"github.com/activebuddy/activebuddy/internal/strava"
	"github.com/activebuddy/activebuddy/internal/telegram"
)

// WebhookHandler receives Telegram updates, gates access, answers
// commands inline, and enqueues model work for the responder worker so
// Telegram gets its 200 promptly.
type WebhookHandler struct {
	gatekeeper *gate.Gatekeeper
	profiles   database.ProfileStore
	sender     telegram.Sender
	jobQueue   queue.JobQueue
	oauth      *strava.OAuth
	logger     *zap.Logger
}

// NewWebhookHandler creates the Telegram webhook handler.
func NewWebhookHandler(
	gatekeeper *gate.Gatekeeper,
	profiles database.ProfileStore,
	sender telegram.Sender,
	jobQueue queue.JobQueue,
	oauth *strava.OAuth,
	logger *zap.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		gatekeeper: gatekeeper,
		profiles:   profiles,
		sender:     sender,
		jobQueue:   jobQueue,
		oauth:      oauth,
		logger:     logger,
	}
}

// HandleUpdate handles POST /telegram/webhook. Telegram retries on
// non-200, so processing failures after the update is parsed are
// answered 200 and handled through the chat instead.
func (h *WebhookHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.logger.Warn("webhook_decode_failed", zap.Error(err))
		http.Error(w, "bad update payload", http.StatusBadRequest)
		return
	}

	// Edits, channel posts, inline queries and other technical updates
	// are acknowledged and dropped.
	if update.Message == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	h.routeMessage(r.Context(), update.Message)
	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) routeMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		h.handleCommand(ctx, chatID, msg.Command())
		return
	}
	if msg.Voice != nil {
		h.handleVoice(ctx, chatID, msg.Voice.FileID)
		return
	}
	if msg.Text != "" {
		h.handleText(ctx, chatID, msg.Text)
		return
	}
	// Stickers, photos, locations: nothing to do.
}

func (h *WebhookHandler) handleCommand(ctx context.Context, chatID int64, command string) {
	authorized, err := h.gatekeeper.IsAuthorized(ctx, chatID)
	if err != nil {
		h.logger.Error("gate_check_failed", zap.Int64("chat_id", chatID), zap.Error(err))
		h.send(chatID, agent.FallbackMessage)
		return
	}
	if !authorized {
		h.sendHTML(chatID, agent.LockedMessage)
		return
	}

	switch command {
	case "start":
		h.send(chatID, agent.StartMessage)
	case "profile":
		h.sendProfile(ctx, chatID)
	case "connect_strava":
		h.sendStravaConnect(chatID)
	case "strava":
		h.send(chatID, "🔄 Checking Strava...")
		h.enqueue(ctx, queue.NewJob(queue.JobTypeStravaSummary, chatID))
	default:
		h.send(chatID, "Unknown command. Try /start, /profile, /connect_strava or /strava.")
	}
}

func (h *WebhookHandler) handleText(ctx context.Context, chatID int64, text string) {
	decision, err := h.gatekeeper.Check(ctx, chatID, text)
	if err != nil {
		h.logger.Error("gate_check_failed", zap.Int64("chat_id", chatID), zap.Error(err))
		h.send(chatID, agent.FallbackMessage)
		return
	}

	switch decision {
	case gate.InviteAccepted:
		h.sendHTML(chatID, agent.AccessGrantedMessage)
	case gate.PendingInvite:
		h.sendHTML(chatID, agent.LockedMessage)
	case gate.Authorized:
		job := queue.NewJob(queue.JobTypeIncomingText, chatID)
		job.Text = text
		h.enqueue(ctx, job)
	}
}

func (h *WebhookHandler) handleVoice(ctx context.Context, chatID int64, fileID string) {
	authorized, err := h.gatekeeper.IsAuthorized(ctx, chatID)
	if err != nil {
		h.logger.Error("gate_check_failed", zap.Int64("chat_id", chatID), zap.Error(err))
		h.send(chatID, agent.FallbackMessage)
		return
	}
	if !authorized {
		h.send(chatID, "🔒 Please enter the text password first.")
		return
	}

	h.send(chatID, "👂 Listening...")
	job := queue.NewJob(queue.JobTypeIncomingVoice, chatID)
	job.VoiceFileID = fileID
	h.enqueue(ctx, job)
}

func (h *WebhookHandler) sendProfile(ctx context.Context, chatID int64) {
	profile, err := h.profiles.GetOrCreate(ctx, chatID)
	if err != nil {
		h.logger.Error("profile_load_failed", zap.Int64("chat_id", chatID), zap.Error(err))
		h.send(chatID, agent.FallbackMessage)
		return
	}
	if len(profile.Memory) == 0 {
		h.send(chatID, "🤷‍♂️ Profile is empty.")
		return
	}

	formatted, err := json.MarshalIndent(profile.Memory, "", "  ")
	if err != nil {
		h.send(chatID, agent.FallbackMessage)
		return
	}
	h.sendHTML(chatID, "📂 <b>PROFILE:</b>\n<pre>"+string(formatted)+"</pre>")
}

func (h *WebhookHandler) sendStravaConnect(chatID int64) {
	url := h.oauth.AuthCodeURL(chatID)
	if err := h.sender.SendURLButton(chatID, "Please authorize Strava access (read-only).", "🔗 Login with Strava", url); err != nil {
		h.logger.Warn("send_failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (h *WebhookHandler) enqueue(ctx context.Context, job *queue.Job) {
	if err := h.jobQueue.Enqueue(ctx, job); err != nil {
		h.logger.Error("enqueue_failed",
			zap.Int64("chat_id", job.ChatID),
			zap.String("job_type", string(job.Type)),
			zap.Error(err),
		)
		h.send(job.ChatID, agent.FallbackMessage)
	}
}

func (h *WebhookHandler) send(chatID int64, text string) {
	if err := h.sender.SendText(chatID, text); err != nil {
		h.logger.Warn("send_failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (h *WebhookHandler) sendHTML(chatID int64, text string) {
	if err := h.sender.SendHTML(chatID, text); err != nil {
		h.logger.Warn("send_failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
