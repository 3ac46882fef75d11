package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/spf13/afero"

	"voice-assistant/assistant"
	"voice-assistant/chime"
	"voice-assistant/clients/llm"
	"voice-assistant/config"
	"voice-assistant/history"
	"voice-assistant/listener"
	"voice-assistant/logging"
	"voice-assistant/resource_monitor"
	"voice-assistant/sanitizer"
	"voice-assistant/secure_file"
	"voice-assistant/speech_extraction"
	"voice-assistant/speech_to_text"
	"voice-assistant/tokens"
	"voice-assistant/tts"
	"voice-assistant/usage_guard"
)

func main() {
	configFlag := flag.String("c", "", "path to the YAML config file")
	modelFlag := flag.String("m", "", "model file for whisper")

	flag.Parse()

	if *modelFlag == "" {
		logging.Fatalw("model file not specified")
	}

	fileSys := afero.NewOsFs()

	cfg, err := config.Load(fileSys, *configFlag)
	if err != nil {
		logging.Fatalw("failed to load config", "error", err)
	}

	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		logging.Fatalw("api key not set", "env", cfg.APIKeyEnv)
	}

	model, err := whisper.New(*modelFlag)
	if err != nil {
		logging.Fatalw("failed to load whisper model", "error", err)
	}
	defer model.Close()

	sttEngine, err := speech_to_text.New(&speech_to_text.Config{
		Model: model,
	})
	if err != nil {
		logging.Fatalw("failed to init transcription", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	capturer, err := listener.NewPortAudio(&listener.Config{})
	if err != nil {
		logging.Fatalw("failed to init audio capture", "error", err)
	}

	if err := capturer.Start(ctx); err != nil {
		logging.Fatalw("no audio device available", "error", err)
	}
	defer func() {
		if err := capturer.Stop(); err != nil {
			logging.Errorw("failed to stop audio capture", "error", err)
		}
	}()

	extractor, err := speech_extraction.New(&speech_extraction.Config{
		Capturer:          capturer,
		SilenceDuration:   cfg.SilenceDuration(),
		MinSpeechDuration: cfg.MinSpeechDuration(),
		MaxRecordingTime:  cfg.MaxRecordingTime(),
		CalibrationWindow: cfg.Calibration(),
		SilenceThreshold:  cfg.SilenceThreshold,
		QueueSize:         cfg.UtteranceQueueSize,
	})
	if err != nil {
		logging.Fatalw("failed to init speech extraction", "error", err)
	}

	files, err := secure_file.New(&secure_file.Config{
		FileSys: fileSys,
		TempDir: cfg.TempDir,
	})
	if err != nil {
		logging.Fatalw("failed to init secure files", "error", err)
	}
	defer func() {
		if err := files.ShredAll(); err != nil {
			logging.Errorw("failed to shred temp files", "error", err)
		}
	}()

	monitor, err := resource_monitor.New(&resource_monitor.Config{
		Path: cfg.TempDir,
	})
	if err != nil {
		logging.Fatalw("failed to init resource monitor", "error", err)
	}

	guard, err := usage_guard.New(&usage_guard.Config{
		MaxDailyCalls:    cfg.MaxDailyCalls,
		MaxHourlyCalls:   cfg.MaxHourlyCalls,
		MaxSessionCost:   cfg.MaxSessionCost,
		CostWarningAt:    cfg.CostWarningThreshold,
		WarnFraction:     cfg.UsageWarningFraction,
		MinDiskSpaceMB:   float64(cfg.MinDiskSpaceMB),
		MaxMemoryPercent: cfg.MaxMemoryPercent,
		Monitor:          monitor,
	})
	if err != nil {
		logging.Fatalw("failed to init usage guard", "error", err)
	}

	clean, err := sanitizer.New(&sanitizer.Config{
		MaxInputChars: cfg.MaxInputChars,
	})
	if err != nil {
		logging.Fatalw("failed to init sanitizer", "error", err)
	}

	store := history.Disabled()
	if cfg.EnableHistory {
		store, err = history.New(&history.Config{
			FileSys:   fileSys,
			Path:      cfg.HistoryPath,
			MaxTurns:  cfg.MaxConversationTurns,
			MaxTokens: cfg.MaxHistoryTokens,
		})
		if err != nil {
			logging.Fatalw("failed to init history", "error", err)
		}
	}

	responder, err := llm.NewGemini(&llm.Config{
		APIKey:  apiKey,
		Model:   cfg.Model,
		Timeout: cfg.RequestTimeout(),
	})
	if err != nil {
		logging.Fatalw("failed to init model client", "error", err)
	}

	speaker, err := tts.NewCommand(&tts.Config{Voice: cfg.Voice})
	if err != nil {
		logging.Warnw("speech output unavailable, replies will be silent", "error", err)
		speaker = tts.Noop()
	}

	chimes := chime.Noop()
	if cfg.EnableChimes {
		chimes, err = chime.NewPlayer()
		if err != nil {
			logging.Warnw("chimes unavailable", "error", err)
			chimes = chime.Noop()
		}
	}
	defer func() {
		if err := chimes.Close(); err != nil {
			logging.Errorw("failed to close chime player", "error", err)
		}
	}()

	asst, err := assistant.New(&assistant.Config{
		Cfg:         cfg,
		Extractor:   extractor,
		Transcriber: sttEngine,
		Sanitizer:   clean,
		Guard:       guard,
		Responder:   responder,
		Speaker:     speaker,
		History:     store,
		Tokens:      tokens.New(),
		Files:       files,
		Chimes:      chimes,
	})
	if err != nil {
		logging.Fatalw("failed to init assistant", "error", err)
	}

	threshold, err := extractor.Calibrate(ctx)
	if err != nil {
		logging.Warnw("calibration incomplete, keeping configured threshold", "error", err)
	} else {
		logging.Infow("ambient calibration done", "silence_threshold", threshold)
	}

	go func() {
		if err := extractor.Run(ctx); err != nil {
			logging.Errorw("speech extraction stopped", "error", err)
		}
	}()

	chimes.Play(chime.Startup)

	if err := asst.Run(ctx); err != nil {
		logging.Fatalw("assistant stopped", "error", err)
	}

	logging.Infow("shutdown complete")
}
