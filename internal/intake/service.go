package intake

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/sokrateshealth/anamnesis-platform/internal/observability/metrics"
	"github.com/sokrateshealth/anamnesis-platform/pkg/logging"
)

// EngineStore is the persistence surface the engine needs.
type EngineStore interface {
	FindDoctorByClinicCode(ctx context.Context, clinicCode string) (*Doctor, error)
	CreateSession(ctx context.Context, clinicCode string) (*Session, error)
	GetSession(ctx context.Context, sessionID int64) (*Session, error)
	InsertMessage(ctx context.Context, sessionID int64, role, content string) (*Message, error)
	SetProviderThreadID(ctx context.Context, sessionID int64, threadID string) error
	ListMessages(ctx context.Context, sessionID int64) ([]Message, error)
	CompleteSession(ctx context.Context, sessionID int64, fields AnamnesisFields) (*Anamnesis, error)
	InsertRating(ctx context.Context, sessionID int64, score int, comment *string) (*Rating, error)
}

// EngineConfig tunes provider behavior.
type EngineConfig struct {
	ChatModel    string
	ExtractModel string
	// CallTimeout bounds one provider call. RetryDelay/MaxRetries bound the
	// transient-failure budget for chat turns.
	CallTimeout time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.CallTimeout <= 0 {
		c.CallTimeout = 60 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	return c
}

// Engine owns the session state machine: creation, message turns,
// completion with anamnesis extraction, and rating acceptance. Failures
// during a turn never change session state; sessions only move
// active -> completed through CompleteSession.
type Engine struct {
	store   EngineStore
	llm     LLMClient
	locker  SessionLocker
	metrics *metrics.IntakeMetrics
	logger  *logging.Logger
	tracer  trace.Tracer
	cfg     EngineConfig
}

// NewEngine wires the lifecycle engine.
func NewEngine(store EngineStore, llm LLMClient, locker SessionLocker, m *metrics.IntakeMetrics, logger *logging.Logger, cfg EngineConfig) *Engine {
	if store == nil {
		panic("intake: store cannot be nil")
	}
	if llm == nil {
		panic("intake: provider client cannot be nil")
	}
	if locker == nil {
		locker = NewMemorySessionLocker()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		store:   store,
		llm:     llm,
		locker:  locker,
		metrics: m,
		logger:  logger,
		tracer:  otel.Tracer("sokrates.internal.intake"),
		cfg:     cfg.withDefaults(),
	}
}

// CreateSession validates the clinic code against registered doctors and
// opens a new active session. No greeting is persisted; clients synthesize
// it.
func (e *Engine) CreateSession(ctx context.Context, clinicCode string) (*Session, error) {
	clinicCode = strings.TrimSpace(clinicCode)
	if clinicCode == "" {
		return nil, ErrEmptyClinicCode
	}

	if _, err := e.store.FindDoctorByClinicCode(ctx, clinicCode); err != nil {
		return nil, err
	}

	sess, err := e.store.CreateSession(ctx, clinicCode)
	if err != nil {
		return nil, err
	}

	e.metrics.SessionStarted()
	e.logger.Info("session created", "session_id", sess.ID, "clinic_code", clinicCode)
	return sess, nil
}

// SendMessage runs one chat turn: persist the user message first (so the
// patient's input survives provider outages), assemble the full transcript
// behind the per-session lock, call the provider, and persist exactly one
// assistant message on success. A failed turn leaves the user message in
// place and appends nothing else; each retry persists a new user message.
func (e *Engine) SendMessage(ctx context.Context, sessionID int64, text string) (*Message, error) {
	ctx, span := e.tracer.Start(ctx, "intake.send_message")
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	release, err := e.locker.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	// Status is checked under the lock so a completion that won the lock
	// first cannot have a turn slipped onto the completed session.
	sess, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusActive {
		return nil, ErrSessionNotActive
	}

	if _, err := e.store.InsertMessage(ctx, sessionID, RoleUser, text); err != nil {
		return nil, err
	}

	transcript, err := e.store.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	req := LLMRequest{
		Model:       e.cfg.ChatModel,
		System:      []string{SokratesSystemPrompt},
		Messages:    chatMessages(transcript),
		Temperature: 0.2,
	}

	resp, err := e.callProviderWithRetry(ctx, "send_message", req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if strings.TrimSpace(resp.Text) == "" {
		err := fmt.Errorf("%w: empty completion", ErrProviderFailure)
		span.RecordError(err)
		return nil, err
	}

	reply, err := e.store.InsertMessage(ctx, sessionID, RoleAssistant, resp.Text)
	if err != nil {
		return nil, err
	}

	if resp.ThreadID != "" && sess.ProviderThreadID == nil {
		// Correlation token is an optimization; losing it is not an error.
		if err := e.store.SetProviderThreadID(ctx, sessionID, resp.ThreadID); err != nil {
			e.logger.Warn("failed to record provider thread id", "session_id", sessionID, "error", err)
		}
	}

	e.logger.Debug("turn completed",
		"session_id", sessionID,
		"transcript_len", len(transcript)+1,
		"output_tokens", resp.Usage.OutputTokens,
	)
	return reply, nil
}

// CompleteSession extracts the nine-field anamnesis from the transcript and
// atomically transitions the session to completed. Repeated calls after
// success fail with ErrSessionCompleted and leave the stored anamnesis
// untouched.
func (e *Engine) CompleteSession(ctx context.Context, sessionID int64) (*Anamnesis, error) {
	ctx, span := e.tracer.Start(ctx, "intake.complete_session")
	defer span.End()

	release, err := e.locker.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == StatusCompleted {
		return nil, ErrSessionCompleted
	}

	transcript, err := e.store.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	req := LLMRequest{
		Model:  e.cfg.ExtractModel,
		System: []string{ExtractionSystemPrompt},
		Messages: []ChatMessage{
			{Role: ChatRoleUser, Content: ExtractionPrompt(renderTranscript(transcript))},
		},
		Temperature: 0,
		Schema:      &ResponseSchema{Name: "anamnesis", Raw: AnamnesisSchemaJSON},
	}

	resp, err := e.callProvider(ctx, "complete_session", req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	fields, err := ParseAnamnesis(resp.Text)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if err := fields.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	anamnesis, err := e.store.CompleteSession(ctx, sessionID, fields)
	if err != nil {
		return nil, err
	}

	e.metrics.SessionCompleted()
	e.logger.Info("session completed", "session_id", sessionID, "transcript_len", len(transcript))
	return anamnesis, nil
}

// GetSession returns the current session row.
func (e *Engine) GetSession(ctx context.Context, sessionID int64) (*Session, error) {
	return e.store.GetSession(ctx, sessionID)
}

// ListMessages returns the ordered transcript.
func (e *Engine) ListMessages(ctx context.Context, sessionID int64) ([]Message, error) {
	return e.store.ListMessages(ctx, sessionID)
}

// SubmitRating records the patient's one-and-only rating for a completed
// session.
func (e *Engine) SubmitRating(ctx context.Context, sessionID int64, score int, comment *string) (*Rating, error) {
	if score < 1 || score > 5 {
		return nil, ErrInvalidScore
	}

	sess, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusCompleted {
		return nil, ErrSessionNotComplete
	}

	rating, err := e.store.InsertRating(ctx, sessionID, score, comment)
	if err != nil {
		return nil, err
	}

	e.metrics.RatingSubmitted(strconv.Itoa(score))
	e.logger.Info("rating submitted", "session_id", sessionID, "score", score)
	return rating, nil
}

// callProviderWithRetry retries transient provider failures within the
// configured budget. Exhausting the budget surfaces the timeout kind,
// carrying the last provider error for diagnostics.
func (e *Engine) callProviderWithRetry(ctx context.Context, operation string, req LLMRequest) (LLMResponse, error) {
	var lastErr error
	resp, err := awaitWithTimeout(ctx, e.cfg.RetryDelay, e.cfg.MaxRetries+1, func(ctx context.Context) (LLMResponse, bool, error) {
		resp, err := e.callProvider(ctx, operation, req)
		if err != nil {
			if ctx.Err() != nil {
				return LLMResponse{}, false, ErrProviderTimeout
			}
			lastErr = err
			e.logger.Warn("provider call failed, may retry", "operation", operation, "error", err)
			return LLMResponse{}, false, nil
		}
		return resp, true, nil
	})
	if err == nil {
		return resp, nil
	}
	if errors.Is(err, ErrProviderTimeout) && lastErr != nil {
		return LLMResponse{}, fmt.Errorf("%w: retry budget exhausted: %v", ErrProviderTimeout, lastErr)
	}
	return LLMResponse{}, err
}

func (e *Engine) callProvider(ctx context.Context, operation string, req LLMRequest) (LLMResponse, error) {
	ctx, span := e.tracer.Start(ctx, "intake.provider_call")
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	resp, err := e.llm.Complete(callCtx, req)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
	}
	e.metrics.ObserveProviderCall(operation, status, elapsed.Seconds())

	if err != nil {
		if callCtx.Err() != nil && ctx.Err() == nil {
			return LLMResponse{}, fmt.Errorf("%w: %v", ErrProviderTimeout, err)
		}
		return LLMResponse{}, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	return resp, nil
}

func chatMessages(transcript []Message) []ChatMessage {
	msgs := make([]ChatMessage, 0, len(transcript))
	for _, m := range transcript {
		msgs = append(msgs, ChatMessage{Role: m.Role, Content: m.Content})
	}
	return msgs
}

// renderTranscript flattens the conversation into "role: content" blocks
// for the extraction prompt.
func renderTranscript(transcript []Message) string {
	parts := make([]string, 0, len(transcript))
	for _, m := range transcript {
		parts = append(parts, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	return strings.Join(parts, "\n\n")
}
