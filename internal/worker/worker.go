// Package worker provides a NATS worker that processes voiceover jobs.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/voxly/voiceover-service/internal/audio"
	"github.com/voxly/voiceover-service/internal/core"
	"github.com/voxly/voiceover-service/internal/events"
	"github.com/voxly/voiceover-service/internal/history"
	"github.com/voxly/voiceover-service/internal/tier"
	"github.com/voxly/voiceover-service/internal/voiceover"
	"github.com/voxly/voiceover-service/internal/voices"
)

const handleMessageTimeout = 120 * time.Second

var (
	// ErrUnknownVoice indicates that the requested voice is not in the catalog.
	ErrUnknownVoice = errors.New("unknown voice")
	// ErrUnknownLanguage indicates that the requested language is not supported.
	ErrUnknownLanguage = errors.New("unknown language")
	// ErrScriptMissing indicates that the event carried neither an inline
	// script nor a script key.
	ErrScriptMissing = errors.New("event has no script or script key")
)

// NatsWorker listens for voiceover jobs on a NATS subject and processes them.
type NatsWorker struct {
	natsConnection   *nats.Conn
	jetstreamContext nats.JetStreamContext
	subject          string
	store            core.ObjectStore
	history          *history.Store
	generator        *voiceover.Generator
	log              *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	jetstreamContext nats.JetStreamContext,
	subject string,
	store core.ObjectStore,
	historyStore *history.Store,
	generator *voiceover.Generator,
	log *logger.Logger,
) (*NatsWorker, error) {
	return &NatsWorker{
		natsConnection:   natsConnection,
		jetstreamContext: jetstreamContext,
		subject:          subject,
		store:            store,
		history:          historyStore,
		generator:        generator,
		log:              log,
	}, nil
}

// Run starts the worker and begins listening for messages.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	event, err := w.parseAndValidateEvent(msg)
	if err != nil {
		w.log.Error("Failed to parse and validate event: %v", err)
		w.respondFailure(msg, "", err)

		return
	}

	reply, processErr := w.processJob(ctx, event)
	if processErr != nil {
		w.log.Error("Failed to process voiceover job %s: %v", event.RequestID, processErr)
		w.respondFailure(msg, event.RequestID, processErr)

		return
	}

	err = w.respond(msg, reply)
	if err != nil {
		w.log.Error("Failed to publish reply for request %s: %v", event.RequestID, err)
	}
}

// processJob runs one voiceover job end to end: resolve the script,
// synthesize, store the audio, and record history and usage for full
// generations. Previews are synthesized and stored but never recorded.
func (w *NatsWorker) processJob(ctx context.Context, event *events.VoiceoverRequestedEvent) (*events.VoiceoverCompletedEvent, error) {
	script, err := w.resolveScript(ctx, event)
	if err != nil {
		return nil, err
	}

	voice, _ := voices.Find(event.VoiceID)

	req := core.Request{
		Script:       script,
		VoiceID:      event.VoiceID,
		LanguageCode: voices.LanguageCode(event.Language),
		Pace:         1.0,
	}

	if event.Preview || event.Ephemeral {
		return w.processEphemeral(ctx, event, req)
	}

	generationID, err := w.history.Create(ctx, event.UserID, script, event.Language, voice.ID, voice.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation record: %w", err)
	}

	wav, err := w.generator.GenerateFull(ctx, req)
	if err != nil {
		markErr := w.history.MarkFailed(ctx, generationID, err.Error())
		if markErr != nil {
			w.log.Error("Failed to mark generation %s failed: %v", generationID, markErr)
		}

		return nil, err
	}

	audioKey := "voiceover-" + uuid.NewString() + ".wav"

	err = w.store.Upload(ctx, audioKey, wav)
	if err != nil {
		markErr := w.history.MarkFailed(ctx, generationID, err.Error())
		if markErr != nil {
			w.log.Error("Failed to mark generation %s failed: %v", generationID, markErr)
		}

		return nil, fmt.Errorf("failed to upload audio for key '%s': %w", audioKey, err)
	}

	seconds := durationSeconds(wav)

	err = w.history.MarkCompleted(ctx, generationID, audioKey, seconds)
	if err != nil {
		return nil, fmt.Errorf("failed to mark generation %s completed: %w", generationID, err)
	}

	err = w.history.RecordGeneration(ctx, event.UserID)
	if err != nil {
		w.log.Error("Failed to record usage for user %s: %v", event.UserID, err)
	}

	return &events.VoiceoverCompletedEvent{
		RequestID:       event.RequestID,
		GenerationID:    generationID,
		AudioKey:        audioKey,
		DurationSeconds: seconds,
	}, nil
}

func (w *NatsWorker) processEphemeral(ctx context.Context, event *events.VoiceoverRequestedEvent, req core.Request) (*events.VoiceoverCompletedEvent, error) {
	var (
		wav []byte
		err error
	)

	if event.Preview {
		wav, err = w.generator.GeneratePreview(ctx, req)
	} else {
		wav, err = w.generator.GenerateFull(ctx, req)
	}

	if err != nil {
		return nil, err
	}

	audioKey := "preview-" + uuid.NewString() + ".wav"

	err = w.store.Upload(ctx, audioKey, wav)
	if err != nil {
		return nil, fmt.Errorf("failed to upload preview audio for key '%s': %w", audioKey, err)
	}

	return &events.VoiceoverCompletedEvent{
		RequestID:       event.RequestID,
		AudioKey:        audioKey,
		DurationSeconds: durationSeconds(wav),
	}, nil
}

// resolveScript returns the job's script, downloading it from the object
// store when the event carries a key instead of inline text.
func (w *NatsWorker) resolveScript(ctx context.Context, event *events.VoiceoverRequestedEvent) (string, error) {
	if event.Script != "" {
		return event.Script, nil
	}

	if event.ScriptKey == "" {
		return "", ErrScriptMissing
	}

	data, err := w.store.Download(ctx, event.ScriptKey)
	if err != nil {
		return "", fmt.Errorf("failed to download script for key '%s': %w", event.ScriptKey, err)
	}

	return string(data), nil
}

func (w *NatsWorker) parseAndValidateEvent(msg *nats.Msg) (*events.VoiceoverRequestedEvent, error) {
	var event events.VoiceoverRequestedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if !voices.Valid(event.VoiceID) {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownVoice, event.VoiceID)
	}

	if !voices.KnownLanguage(event.Language) {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownLanguage, event.Language)
	}

	// Ephemeral demo jobs carry no account, so plan limits do not apply.
	if !event.Ephemeral {
		plan := tier.ForTier(event.Tier)
		if !plan.LanguageAllowed(event.Language) {
			return nil, fmt.Errorf("%w: '%s' on plan '%s'", tier.ErrLanguageNotAllowed, event.Language, plan.Name)
		}

		if event.Script != "" {
			validationErr := plan.ValidateScript(event.Script)
			if validationErr != nil {
				return nil, validationErr
			}
		}
	}

	return &event, nil
}

func (w *NatsWorker) respond(msg *nats.Msg, reply *events.VoiceoverCompletedEvent) error {
	replyData, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func (w *NatsWorker) respondFailure(msg *nats.Msg, requestID string, cause error) {
	if msg.Reply == "" {
		return
	}

	failure := events.VoiceoverFailedEvent{
		RequestID: requestID,
		Error:     cause.Error(),
	}

	var synthErr *voiceover.SynthesisError
	if errors.As(cause, &synthErr) {
		failure.FailedChunk = synthErr.Chunk
	}

	replyData, err := json.Marshal(failure)
	if err != nil {
		w.log.Error("Failed to marshal failure event: %v", err)

		return
	}

	err = msg.Respond(replyData)
	if err != nil {
		w.log.Error("Failed to publish failure event: %v", err)
	}
}

func durationSeconds(wav []byte) int {
	d, err := audio.Duration(wav)
	if err != nil {
		return 0
	}

	return int(d.Round(time.Second) / time.Second)
}
