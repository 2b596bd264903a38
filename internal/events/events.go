// Package events defines the message payloads exchanged over NATS between
// the HTTP layer and the voiceover worker.
package events

// VoiceoverRequestedEvent asks the worker to synthesize a voiceover. Short
// scripts travel inline in Script; longer ones are uploaded to the object
// store first and referenced by ScriptKey.
type VoiceoverRequestedEvent struct {
	RequestID string `json:"request_id"`
	UserID    string `json:"user_id"`
	Tier      string `json:"tier"`
	Script    string `json:"script,omitempty"`
	ScriptKey string `json:"script_key,omitempty"`
	VoiceID   string `json:"voice_id"`
	Language  string `json:"language"`
	// Preview truncates the script to the preview word count and implies
	// Ephemeral.
	Preview bool `json:"preview,omitempty"`
	// Ephemeral jobs synthesize the full script but leave no history and
	// consume no quota.
	Ephemeral bool `json:"ephemeral,omitempty"`
}

// VoiceoverCompletedEvent is the worker's reply for a successful job.
type VoiceoverCompletedEvent struct {
	RequestID       string `json:"request_id"`
	GenerationID    string `json:"generation_id,omitempty"`
	AudioKey        string `json:"audio_key"`
	DurationSeconds int    `json:"duration_seconds"`
}

// VoiceoverFailedEvent is the worker's reply for a failed job. FailedChunk
// is the 1-based index of the chunk that broke the pipeline, or zero when
// the failure happened outside synthesis.
type VoiceoverFailedEvent struct {
	RequestID   string `json:"request_id"`
	Error       string `json:"error"`
	FailedChunk int    `json:"failed_chunk,omitempty"`
}
