package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeIncomingText is a job for an authorized user's text message
	JobTypeIncomingText JobType = "incoming_text"
	// JobTypeIncomingVoice is a job for an authorized user's voice message;
	// the worker transcribes the referenced file before running the agent
	JobTypeIncomingVoice JobType = "incoming_voice"
	// JobTypeStravaSummary is a job for the /strava command: fetch and
	// send the raw activity summary without involving the model
	JobTypeStravaSummary JobType = "strava_summary"
)

// Job represents one unit of work handed from the webhook server to the
// responder worker.
type Job struct {
	ID          uuid.UUID `json:"id"`
	Type        JobType   `json:"type"`
	ChatID      int64     `json:"chat_id"`
	Text        string    `json:"text,omitempty"`
	VoiceFileID string    `json:"voice_file_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	RetryCount  int       `json:"retry_count"`
	MaxRetries  int       `json:"max_retries"`
}

// NewJob creates a new job for a chat.
func NewJob(jobType JobType, chatID int64) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		ChatID:     chatID,
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: 3,
	}
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
