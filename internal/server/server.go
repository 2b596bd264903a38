// Package server exposes the voiceover service over HTTP. Requests are
// validated against the caller's plan, then dispatched to the NATS worker
// and translated back into JSON or inline audio responses.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/book-expert/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/voxly/voiceover-service/internal/core"
	"github.com/voxly/voiceover-service/internal/events"
	"github.com/voxly/voiceover-service/internal/history"
	"github.com/voxly/voiceover-service/internal/text"
	"github.com/voxly/voiceover-service/internal/tier"
	"github.com/voxly/voiceover-service/internal/voices"
)

// DemoWordLimit caps the unauthenticated demo endpoint.
const DemoWordLimit = 100

const defaultRequestTimeout = 120 * time.Second

// ErrWorkerUnavailable is returned when no worker answers a job request in
// time.
var ErrWorkerUnavailable = errors.New("voiceover worker unavailable")

// Server wires the HTTP routes to the NATS worker and the stores.
type Server struct {
	router         *gin.Engine
	natsConnection *nats.Conn
	subject        string
	requestTimeout time.Duration
	store          core.ObjectStore
	history        *history.Store
	log            *logger.Logger
}

// New builds the HTTP server. A non-positive requestTimeout falls back to
// the default.
func New(
	natsConnection *nats.Conn,
	subject string,
	requestTimeout time.Duration,
	store core.ObjectStore,
	historyStore *history.Store,
	log *logger.Logger,
) *Server {
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	s := &Server{
		router:         gin.New(),
		natsConnection: natsConnection,
		subject:        subject,
		requestTimeout: requestTimeout,
		store:          store,
		history:        historyStore,
		log:            log,
	}

	s.router.Use(gin.Recovery())
	s.registerRoutes()

	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/v1")
	v1.GET("/voices", s.handleVoices)
	v1.POST("/tts/demo", s.handleDemo)

	authed := v1.Group("", s.requireUser)
	authed.POST("/tts/generate", s.handleGenerate)
	authed.POST("/tts/preview", s.handlePreview)
	authed.GET("/usage", s.handleUsage)
	authed.GET("/history", s.handleHistory)
	authed.DELETE("/history/:id", s.handleDeleteHistory)
	authed.GET("/audio/:key", s.handleAudio)
}

// requireUser reads the identity headers set by the authenticating gateway.
func (s *Server) requireUser(c *gin.Context) {
	userID := c.GetHeader("X-User-Id")
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})

		return
	}

	c.Set("userID", userID)
	c.Set("plan", tier.ForTier(c.GetHeader("X-User-Tier")))
	c.Next()
}

func userPlan(c *gin.Context) (string, tier.Config) {
	return c.GetString("userID"), c.MustGet("plan").(tier.Config)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleVoices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"voices": voices.All()})
}

type synthesisRequest struct {
	Script   string `json:"script"   binding:"required"`
	VoiceID  string `json:"voice_id" binding:"required"`
	Language string `json:"language" binding:"required"`
}

// validateRequest runs the checks shared by every synthesis endpoint.
func validateRequest(c *gin.Context, req synthesisRequest, plan tier.Config) bool {
	if !voices.Valid(req.VoiceID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown voice '%s'", req.VoiceID)})

		return false
	}

	if !voices.KnownLanguage(req.Language) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown language '%s'", req.Language)})

		return false
	}

	if !plan.LanguageAllowed(req.Language) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":            fmt.Sprintf("language '%s' is not available on the %s plan", req.Language, plan.Name),
			"upgrade_required": true,
		})

		return false
	}

	if err := plan.ValidateScript(req.Script); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return false
	}

	return true
}

func (s *Server) handleGenerate(c *gin.Context) {
	userID, plan := userPlan(c)

	var req synthesisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if !validateRequest(c, req, plan) {
		return
	}

	usage, err := s.history.CheckUsage(c.Request.Context(), userID, plan.MonthlyGenerations)
	if errors.Is(err, history.ErrLimitReached) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":            "monthly generation limit reached",
			"upgrade_required": true,
			"used":             usage.Generations,
			"limit":            plan.MonthlyGenerations,
		})

		return
	}

	if err != nil {
		s.log.Error("Failed to check usage for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check usage"})

		return
	}

	event := &events.VoiceoverRequestedEvent{
		RequestID: uuid.NewString(),
		UserID:    userID,
		Tier:      plan.Name,
		Script:    req.Script,
		VoiceID:   req.VoiceID,
		Language:  req.Language,
	}

	completed, failure, err := s.dispatch(c.Request.Context(), event)
	if err != nil {
		s.log.Error("Voiceover request %s failed: %v", event.RequestID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": ErrWorkerUnavailable.Error()})

		return
	}

	if failure != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":        failure.Error,
			"failed_chunk": failure.FailedChunk,
		})

		return
	}

	c.JSON(http.StatusOK, gin.H{
		"generation_id":    completed.GenerationID,
		"audio_key":        completed.AudioKey,
		"duration_seconds": completed.DurationSeconds,
		"remaining":        s.remaining(c.Request.Context(), userID, plan),
	})
}

func (s *Server) handlePreview(c *gin.Context) {
	userID, plan := userPlan(c)

	var req synthesisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if !validateRequest(c, req, plan) {
		return
	}

	event := &events.VoiceoverRequestedEvent{
		RequestID: uuid.NewString(),
		UserID:    userID,
		Tier:      plan.Name,
		Script:    req.Script,
		VoiceID:   req.VoiceID,
		Language:  req.Language,
		Preview:   true,
	}

	s.serveEphemeral(c, event)
}

func (s *Server) handleDemo(c *gin.Context) {
	var req synthesisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	// Demo callers are not tied to a plan. Any catalog voice and language
	// is accepted; only the word cap applies.
	if !voices.Valid(req.VoiceID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown voice '%s'", req.VoiceID)})

		return
	}

	if !voices.KnownLanguage(req.Language) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown language '%s'", req.Language)})

		return
	}

	if strings.TrimSpace(req.Script) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": tier.ErrScriptEmpty.Error()})

		return
	}

	if n := text.WordCount(req.Script); n > DemoWordLimit {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("demo scripts are limited to %d words, got %d", DemoWordLimit, n),
		})

		return
	}

	event := &events.VoiceoverRequestedEvent{
		RequestID: uuid.NewString(),
		UserID:    "demo",
		Tier:      tier.Free,
		Script:    req.Script,
		VoiceID:   req.VoiceID,
		Language:  req.Language,
		Ephemeral: true,
	}

	s.serveEphemeral(c, event)
}

// serveEphemeral dispatches an ephemeral job and streams the resulting
// audio inline, releasing the stored object afterwards.
func (s *Server) serveEphemeral(c *gin.Context, event *events.VoiceoverRequestedEvent) {
	completed, failure, err := s.dispatch(c.Request.Context(), event)
	if err != nil {
		s.log.Error("Voiceover request %s failed: %v", event.RequestID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": ErrWorkerUnavailable.Error()})

		return
	}

	if failure != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":        failure.Error,
			"failed_chunk": failure.FailedChunk,
		})

		return
	}

	wav, err := s.store.Download(c.Request.Context(), completed.AudioKey)
	if err != nil {
		s.log.Error("Failed to download audio '%s': %v", completed.AudioKey, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load audio"})

		return
	}

	deleteErr := s.store.Delete(c.Request.Context(), completed.AudioKey)
	if deleteErr != nil {
		s.log.Warn("Failed to delete ephemeral audio '%s': %v", completed.AudioKey, deleteErr)
	}

	c.Data(http.StatusOK, "audio/wav", wav)
}

func (s *Server) handleUsage(c *gin.Context) {
	userID, plan := userPlan(c)

	usage, err := s.history.CheckUsage(c.Request.Context(), userID, plan.MonthlyGenerations)
	if err != nil && !errors.Is(err, history.ErrLimitReached) {
		s.log.Error("Failed to check usage for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check usage"})

		return
	}

	remaining := tier.Unlimited
	if plan.MonthlyGenerations >= 0 {
		remaining = max(plan.MonthlyGenerations-usage.Generations, 0)
	}

	c.JSON(http.StatusOK, gin.H{
		"plan":      plan.Name,
		"used":      usage.Generations,
		"limit":     plan.MonthlyGenerations,
		"remaining": remaining,
	})
}

type generationJSON struct {
	ID              string    `json:"id"`
	Script          string    `json:"script"`
	Language        string    `json:"language"`
	VoiceID         string    `json:"voice_id"`
	VoiceName       string    `json:"voice_name"`
	AudioKey        string    `json:"audio_key,omitempty"`
	DurationSeconds int       `json:"duration_seconds"`
	Status          string    `json:"status"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func (s *Server) handleHistory(c *gin.Context) {
	userID, _ := userPlan(c)

	list, err := s.history.ListByUser(c.Request.Context(), userID, 0)
	if err != nil {
		s.log.Error("Failed to list history for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})

		return
	}

	out := make([]generationJSON, 0, len(list))
	for _, gen := range list {
		out = append(out, generationJSON{
			ID:              gen.ID,
			Script:          gen.Script,
			Language:        gen.Language,
			VoiceID:         gen.VoiceID,
			VoiceName:       gen.VoiceName,
			AudioKey:        gen.AudioKey,
			DurationSeconds: gen.DurationSeconds,
			Status:          gen.Status,
			ErrorMessage:    gen.ErrorMessage,
			CreatedAt:       gen.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"generations": out})
}

func (s *Server) handleDeleteHistory(c *gin.Context) {
	userID, _ := userPlan(c)
	id := c.Param("id")

	audioKey, err := s.history.Delete(c.Request.Context(), id, userID)
	if errors.Is(err, history.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "generation not found"})

		return
	}

	if err != nil {
		s.log.Error("Failed to delete generation %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete generation"})

		return
	}

	if audioKey != "" {
		deleteErr := s.store.Delete(c.Request.Context(), audioKey)
		if deleteErr != nil {
			s.log.Warn("Failed to delete audio '%s': %v", audioKey, deleteErr)
		}
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) handleAudio(c *gin.Context) {
	key := c.Param("key")

	wav, err := s.store.Download(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "audio not found"})

		return
	}

	c.Data(http.StatusOK, "audio/wav", wav)
}

// dispatch sends a job to the worker over NATS request-reply and decodes
// the reply into either a completed or a failed event.
func (s *Server) dispatch(ctx context.Context, event *events.VoiceoverRequestedEvent) (*events.VoiceoverCompletedEvent, *events.VoiceoverFailedEvent, error) {
	eventData, err := json.Marshal(event)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal request event: %w", err)
	}

	requestCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	replyMsg, err := s.natsConnection.RequestWithContext(requestCtx, s.subject, eventData)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to request voiceover job: %w", err)
	}

	var completed events.VoiceoverCompletedEvent

	err = json.Unmarshal(replyMsg.Data, &completed)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal reply event: %w", err)
	}

	if completed.AudioKey != "" {
		return &completed, nil, nil
	}

	var failure events.VoiceoverFailedEvent

	err = json.Unmarshal(replyMsg.Data, &failure)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal failure event: %w", err)
	}

	return nil, &failure, nil
}

// remaining recomputes the caller's quota after a completed generation.
func (s *Server) remaining(ctx context.Context, userID string, plan tier.Config) int {
	if plan.MonthlyGenerations < 0 {
		return tier.Unlimited
	}

	usage, err := s.history.CheckUsage(ctx, userID, plan.MonthlyGenerations)
	if err != nil && !errors.Is(err, history.ErrLimitReached) {
		return 0
	}

	return max(plan.MonthlyGenerations-usage.Generations, 0)
}
