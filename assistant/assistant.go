package assistant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"voice-assistant/chime"
	"voice-assistant/clients/llm"
	"voice-assistant/config"
	"voice-assistant/history"
	"voice-assistant/logging"
	"voice-assistant/sanitizer"
	"voice-assistant/secure_file"
	"voice-assistant/speech_extraction"
	"voice-assistant/speech_to_text"
	"voice-assistant/tokens"
	"voice-assistant/tts"
	"voice-assistant/usage_guard"
)

// estimatedOutputTokens sizes the cost reservation for a reply before the
// provider reports real usage. Replies are short spoken sentences.
const estimatedOutputTokens = 150

// Interface runs the conversation loop: wake scanning, turn processing, and
// session lifecycle.
type Interface interface {
	Run(ctx context.Context) error
	State() State
}

type assistantImpl struct {
	cfg *config.Config

	extractor   speech_extraction.Interface
	transcriber speech_to_text.Interface
	sanitizer   sanitizer.Interface
	guard       usage_guard.Interface
	responder   llm.Interface
	speaker     tts.Interface
	history     history.Interface
	tokens      tokens.Interface
	files       secure_file.Interface
	chimes      chime.Interface

	now func() time.Time

	mu    sync.Mutex
	state State

	sessionID    string
	lastActivity time.Time
}

type Config struct {
	Cfg *config.Config

	Extractor   speech_extraction.Interface
	Transcriber speech_to_text.Interface
	Sanitizer   sanitizer.Interface
	Guard       usage_guard.Interface
	Responder   llm.Interface
	Speaker     tts.Interface
	History     history.Interface
	Tokens      tokens.Interface

	// Files enables the WAV spill path. Optional; spilling also requires
	// spill_audio in the settings.
	Files secure_file.Interface

	// Chimes plays audio cues on session and turn boundaries. Optional; nil
	// selects the silent player.
	Chimes chime.Interface

	// Now overrides the clock for idle timeout tests.
	Now func() time.Time
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Cfg == nil {
		return nil, fmt.Errorf("assistant settings are nil")
	}

	if cfg.Extractor == nil || cfg.Transcriber == nil || cfg.Sanitizer == nil ||
		cfg.Guard == nil || cfg.Responder == nil || cfg.Speaker == nil ||
		cfg.History == nil || cfg.Tokens == nil {
		return nil, fmt.Errorf("all pipeline components are required")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	chimes := cfg.Chimes
	if chimes == nil {
		chimes = chime.Noop()
	}

	return &assistantImpl{
		cfg:         cfg.Cfg,
		extractor:   cfg.Extractor,
		transcriber: cfg.Transcriber,
		sanitizer:   cfg.Sanitizer,
		guard:       cfg.Guard,
		responder:   cfg.Responder,
		speaker:     cfg.Speaker,
		history:     cfg.History,
		tokens:      cfg.Tokens,
		files:       cfg.Files,
		chimes:      chimes,
		now:         now,
		state:       StateIdle,
	}, nil
}

func (a *assistantImpl) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.state
}

func (a *assistantImpl) setState(s State) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != s {
		logging.Debugw("state transition", "from", string(a.state), "to", string(s))
		a.state = s
	}
}

func (a *assistantImpl) Run(ctx context.Context) error {
	a.setState(StateListening)
	a.chimes.Play(chime.Ready)
	logging.Infow("listening for wake phrase", "wake_word", a.cfg.WakeWord)

	defer a.shutdown()

	checkEvery := a.cfg.IdleTimeout() / 4
	if checkEvery <= 0 || checkEvery > time.Second {
		checkEvery = time.Second
	}

	ticker := time.NewTicker(checkEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.checkIdle()
		case u, ok := <-a.extractor.Utterances():
			if !ok {
				return nil
			}

			a.handleUtterance(ctx, u)
		}
	}
}

func (a *assistantImpl) handleUtterance(ctx context.Context, u *speech_extraction.Utterance) {
	text, err := a.transcribe(ctx, u)
	u.Erase()

	if err != nil {
		logging.Errorw("transcription failed", "error", err)
		return
	}

	if text == "" {
		return
	}

	normalized := normalizeText(text)

	switch a.State() {
	case StateListening:
		if !containsPhrase(normalized, a.cfg.WakeWord) {
			return
		}

		a.beginSession()

		// a command spoken in the same breath becomes the first turn
		if command := afterWake(normalized, a.cfg.WakeWord); command != "" {
			a.processTurn(ctx, command)
			return
		}

		a.speak(ctx, pick(greetings))
		a.setState(StateActive)

	case StateActive:
		a.processTurn(ctx, text)
	}
}

// transcribe runs the engine. When spilling is on and the engine reads WAV,
// the utterance is streamed to a secure temp file, transcribed from that
// file, and the file is shredded as soon as transcription finishes.
func (a *assistantImpl) transcribe(ctx context.Context, u *speech_extraction.Utterance) (string, error) {
	wavEngine, ok := a.transcriber.(speech_to_text.WAVTranscriber)
	if !ok || !a.cfg.SpillAudio || a.files == nil {
		return a.transcriber.Transcribe(ctx, u)
	}

	var text string
	err := a.files.WithTempFile("utterance", func(f secure_file.File) error {
		// the WAV writer closes f once the stream is complete
		if err := speech_extraction.WriteWAV(f, u); err != nil {
			return err
		}

		r, err := a.files.Open(f.Name())
		if err != nil {
			return err
		}
		defer r.Close()

		var terr error
		text, terr = wavEngine.TranscribeWAV(ctx, r)
		return terr
	})

	return text, err
}

func (a *assistantImpl) processTurn(ctx context.Context, text string) {
	a.setState(StateProcessing)
	turnID := uuid.NewString()

	defer func() {
		a.mu.Lock()
		a.lastActivity = a.now()
		a.mu.Unlock()
	}()

	// goodbye is always handled locally, before any quota or model work
	if isGoodbye(normalizeText(text), a.cfg.GoodbyeWord) {
		a.speak(ctx, pick(farewells))
		a.chimes.Play(chime.ConversationEnd)
		a.endSession("goodbye")
		a.setState(StateIdle)
		a.setState(StateListening)
		return
	}

	a.chimes.Play(chime.Thinking)

	verdict := a.sanitizer.Sanitize(text)
	if verdict.Rejected() {
		a.speak(ctx, refusal)
		a.setState(StateActive)
		return
	}

	snapshot := a.history.Snapshot()

	estimatedInput := a.tokens.Estimate(verdict.Cleaned)
	for _, turn := range snapshot {
		estimatedInput += turn.TokenEstimate
	}

	reservation, err := a.guard.Admit(a.cost(estimatedInput, estimatedOutputTokens))
	if err != nil {
		a.handleDenial(ctx, err, turnID)
		a.setState(StateActive)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout())
	defer cancel()

	reply, err := a.responder.Respond(callCtx, verdict.Cleaned, snapshot)
	if err != nil {
		reservation.Release()
		logging.Errorw("model call failed",
			"session_id", a.sessionID,
			"turn_id", turnID,
			"error", err)

		a.speak(ctx, pick(apologies))
		a.setState(StateActive)
		return
	}

	inputTokens, outputTokens := reply.InputTokens, reply.OutputTokens
	if inputTokens == 0 && outputTokens == 0 {
		inputTokens = estimatedInput
		outputTokens = a.tokens.Estimate(reply.Text)
	}

	actualCost := a.cost(inputTokens, outputTokens)
	reservation.Commit(actualCost)

	logging.Infow("turn complete",
		"session_id", a.sessionID,
		"turn_id", turnID,
		"input_tokens", inputTokens,
		"output_tokens", outputTokens,
		"cost_usd", actualCost)

	// the stored turn keeps what the user actually said
	a.history.Append(history.Turn{
		Role:          history.RoleUser,
		Text:          text,
		Timestamp:     a.now(),
		TokenEstimate: a.tokens.Estimate(text),
	})
	a.history.Append(history.Turn{
		Role:          history.RoleAssistant,
		Text:          reply.Text,
		Timestamp:     a.now(),
		TokenEstimate: a.tokens.Estimate(reply.Text),
	})

	a.speak(ctx, reply.Text)
	a.setState(StateActive)
}

func (a *assistantImpl) handleDenial(ctx context.Context, err error, turnID string) {
	reason, ok := usage_guard.Denial(err)
	if !ok {
		logging.Errorw("admission failed",
			"session_id", a.sessionID,
			"turn_id", turnID,
			"error", err)
		a.speak(ctx, pick(apologies))
		return
	}

	logging.SecurityEvent("call-denied",
		"session_id", a.sessionID,
		"turn_id", turnID,
		"reason", string(reason))

	switch reason {
	case usage_guard.ReasonDiskSpace, usage_guard.ReasonMemory:
		a.speak(ctx, resourceNotice)
	default:
		a.speak(ctx, quotaNotice)
	}
}

func (a *assistantImpl) speak(ctx context.Context, text string) {
	a.setState(StateSpeaking)
	a.chimes.Play(chime.Speaking)

	if err := a.speaker.Speak(ctx, text); err != nil && ctx.Err() == nil {
		logging.Errorw("speech output failed", "error", err)
	}
}

func (a *assistantImpl) beginSession() {
	a.sessionID = uuid.NewString()
	a.chimes.Play(chime.ConversationStart)

	a.mu.Lock()
	a.lastActivity = a.now()
	a.mu.Unlock()

	a.history.Clear()

	logging.Infow("session started", "session_id", a.sessionID)
}

func (a *assistantImpl) checkIdle() {
	if a.sessionID == "" || a.State() != StateActive {
		return
	}

	a.mu.Lock()
	idle := a.now().Sub(a.lastActivity)
	a.mu.Unlock()

	if idle < a.cfg.IdleTimeout() {
		return
	}

	logging.Infow("session idle timeout",
		"session_id", a.sessionID,
		"idle_s", idle.Seconds())

	a.chimes.Play(chime.ConversationEnd)
	a.endSession("idle-timeout")
	a.setState(StateIdle)
	a.setState(StateListening)
}

func (a *assistantImpl) endSession(reason string) {
	if a.sessionID == "" {
		return
	}

	if err := a.history.Save(); err != nil {
		logging.Errorw("failed to save history", "error", err)
	}

	a.history.Clear()

	stats := a.guard.Stats()
	logging.Infow("session ended",
		"session_id", a.sessionID,
		"reason", reason,
		"daily_calls", stats.DailyCalls,
		"session_cost_usd", stats.SessionCost)

	a.sessionID = ""
}

func (a *assistantImpl) shutdown() {
	a.endSession("shutdown")

	if err := a.history.Close(); err != nil {
		logging.Errorw("failed to close history", "error", err)
	}

	a.setState(StateIdle)
}

func (a *assistantImpl) cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1_000_000*a.cfg.CostInputPer1M +
		float64(outputTokens)/1_000_000*a.cfg.CostOutputPer1M
}
