package workers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/activebuddy/activebuddy/internal/agent"
	"github.com/activebuddy/activebuddy/internal/database"
	"github.com/activebuddy/activebuddy/internal/queue"
	"github.com/activebuddy/activebuddy/internal/telegram"
)

// TranscriptionFailedMessage is sent when a voice note cannot be
// transcribed.
const TranscriptionFailedMessage = "❌ Sorry, I couldn't understand that voice message. Please try again or type it out."

// Transcriber converts a downloadable audio file into text.
type Transcriber interface {
	FromURL(ctx context.Context, fileURL string) (string, error)
}

// StravaSummarizer produces the recent-activity report for a chat.
type StravaSummarizer interface {
	Summary(ctx context.Context, chatID int64) string
}

// Responder consumes queued chat jobs, runs the agent cycle, and sends
// the answer back through Telegram.
type Responder struct {
	profiles    database.ProfileStore
	loop        *agent.Loop
	stravaTool  StravaSummarizer
	transcriber Transcriber
	sender      telegram.Sender
	jobQueue    queue.JobQueue
	logger      *zap.Logger
}

// NewResponder creates a responder worker.
func NewResponder(
	profiles database.ProfileStore,
	loop *agent.Loop,
	stravaTool StravaSummarizer,
	transcriber Transcriber,
	sender telegram.Sender,
	jobQueue queue.JobQueue,
	logger *zap.Logger,
) *Responder {
	return &Responder{
		profiles:    profiles,
		loop:        loop,
		stravaTool:  stravaTool,
		transcriber: transcriber,
		sender:      sender,
		jobQueue:    jobQueue,
		logger:      logger,
	}
}

// ProcessJob processes one queued message based on its type.
func (r *Responder) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	var err error
	switch job.Type {
	case queue.JobTypeIncomingText:
		err = r.processText(ctx, job)
	case queue.JobTypeIncomingVoice:
		err = r.processVoice(ctx, job)
	case queue.JobTypeStravaSummary:
		err = r.processStravaSummary(ctx, job)
	default:
		if nackErr := msg.Nack(false); nackErr != nil {
			r.logger.Warn("nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	if err != nil {
		return r.handleJobError(ctx, msg, job, err)
	}
	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job: %w", ackErr)
	}
	return nil
}

func (r *Responder) processText(ctx context.Context, job *queue.Job) error {
	return r.respond(ctx, job.ChatID, job.Text)
}

func (r *Responder) processVoice(ctx context.Context, job *queue.Job) error {
	fileURL, err := r.sender.FileURL(job.VoiceFileID)
	if err != nil {
		return fmt.Errorf("failed to resolve voice file: %w", err)
	}

	text, err := r.transcriber.FromURL(ctx, fileURL)
	if err != nil {
		r.logger.Warn("transcription_failed",
			zap.Int64("chat_id", job.ChatID),
			zap.Error(err),
		)
		// The user gets a plain failure message; the job is done.
		if sendErr := r.sender.SendText(job.ChatID, TranscriptionFailedMessage); sendErr != nil {
			return fmt.Errorf("failed to report transcription failure: %w", sendErr)
		}
		return nil
	}

	// Echo the transcript so the user sees what the coach heard.
	if err := r.sender.SendHTML(job.ChatID, fmt.Sprintf("🗣 <i>\"%s\"</i>", text)); err != nil {
		r.logger.Warn("transcript_echo_failed", zap.Int64("chat_id", job.ChatID), zap.Error(err))
	}

	return r.respond(ctx, job.ChatID, text)
}

func (r *Responder) processStravaSummary(ctx context.Context, job *queue.Job) error {
	summary := r.stravaTool.Summary(ctx, job.ChatID)
	if err := r.sender.SendText(job.ChatID, summary); err != nil {
		return fmt.Errorf("failed to send strava summary: %w", err)
	}
	return nil
}

// respond runs the full agent cycle for one user turn and persists the
// exchange to the conversation history.
func (r *Responder) respond(ctx context.Context, chatID int64, text string) error {
	if err := r.sender.SendTyping(chatID); err != nil {
		r.logger.Debug("typing_indicator_failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}

	profile, err := r.profiles.GetOrCreate(ctx, chatID)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	messages := agent.Assemble(profile, text)
	answer, err := r.loop.Run(ctx, chatID, messages)
	if err != nil {
		r.logger.Error("agent_cycle_failed", zap.Int64("chat_id", chatID), zap.Error(err))
		answer = agent.FallbackMessage
	}

	if err := r.sender.SendText(chatID, answer); err != nil {
		return fmt.Errorf("failed to send answer: %w", err)
	}

	// History persistence failures lose context but never the reply.
	history := agent.AppendTurn(profile.History, text, answer)
	if err := r.profiles.ReplaceHistory(ctx, chatID, history); err != nil {
		r.logger.Warn("history_save_failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}

	r.logger.Info("chat_turn_completed",
		zap.Int64("chat_id", chatID),
		zap.Int("answer_length", len(answer)),
	)
	return nil
}

// handleJobError retries the job with a bounded retry budget, then
// dead-letters it.
func (r *Responder) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, procErr error) error {
	r.logger.Error("job_processing_failed",
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.Int("retry_count", job.RetryCount),
		zap.Error(procErr),
	)

	if job.CanRetry() {
		job.IncrementRetry()
		if err := r.jobQueue.Enqueue(ctx, job); err != nil {
			if nackErr := msg.Nack(true); nackErr != nil {
				r.logger.Warn("nack_failed", zap.Error(nackErr))
			}
			return fmt.Errorf("failed to re-enqueue job: %w", err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack retried job: %w", ackErr)
		}
		return nil
	}

	if nackErr := msg.Nack(false); nackErr != nil {
		r.logger.Warn("nack_failed", zap.Error(nackErr))
	}
	return fmt.Errorf("job exhausted retries: %w", procErr)
}
