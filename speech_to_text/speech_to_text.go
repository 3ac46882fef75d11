package speech_to_text

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"voice-assistant/speech_extraction"
)

type sttImpl struct {
	model whisper.Model
}

type Config struct {
	Model whisper.Model
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Model == nil {
		return nil, fmt.Errorf("model is nil")
	}

	return &sttImpl{
		model: cfg.Model,
	}, nil
}

func (stt *sttImpl) Transcribe(ctx context.Context, utterance *speech_extraction.Utterance) (string, error) {
	if utterance == nil || len(utterance.Frames) == 0 {
		return "", nil
	}

	return stt.process(ctx, utterance.Buffer())
}

// TranscribeWAV decodes a spilled WAV stream and transcribes it. Used for
// utterances that went through a secure temp file instead of memory.
func (stt *sttImpl) TranscribeWAV(ctx context.Context, r io.ReadSeeker) (string, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return "", &TranscriptionError{Err: fmt.Errorf("not a valid wav stream")}
	}

	buffer, err := decoder.FullPCMBuffer()
	if err != nil {
		return "", &TranscriptionError{Err: fmt.Errorf("decode wav: %w", err)}
	}

	return stt.process(ctx, buffer)
}

func (stt *sttImpl) process(ctx context.Context, wavBuffer audio.Buffer) (string, error) {
	// the whisper call is blocking native code; honor cancellation up front
	if err := ctx.Err(); err != nil {
		return "", err
	}

	whisperCtx, err := stt.model.NewContext()
	if err != nil {
		return "", &TranscriptionError{Err: err}
	}

	data := wavBuffer.AsFloat32Buffer().Data

	var cb whisper.SegmentCallback
	if err := whisperCtx.Process(data, cb); err != nil {
		return "", &TranscriptionError{Err: err}
	}

	segments, err := outputSegments(whisperCtx)
	if err != nil {
		return "", &TranscriptionError{Err: err}
	}

	parts := make([]string, 0, len(segments))
	for _, segment := range segments {
		parts = append(parts, strings.TrimSpace(segment.Text))
	}

	return strings.TrimSpace(strings.Join(parts, " ")), nil
}

func outputSegments(context whisper.Context) ([]whisper.Segment, error) {
	seenText := make(map[string]bool)

	segments := make([]whisper.Segment, 0)

	for {
		segment, err := context.NextSegment()
		if err == io.EOF {
			return segments, nil
		} else if err != nil {
			return nil, err
		}

		// segments wrapped in parens or brackets are noise annotations
		if len(segment.Text) > 0 && (segment.Text[0] == '(' || segment.Text[0] == '[' ||
			segment.Text[len(segment.Text)-1] == ')' || segment.Text[len(segment.Text)-1] == ']') {
			continue
		}

		// the engine sometimes repeats a segment verbatim; keep the first
		if _, ok := seenText[segment.Text]; ok {
			continue
		}
		seenText[segment.Text] = true

		segments = append(segments, segment)
	}
}
