package tts

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

type commandImpl struct {
	name string
	args []string

	// text position: -1 appends the text as the final argument
	textArg int
}

type Config struct {
	// Voice selects the engine voice where the platform supports one.
	Voice string
}

// NewCommand returns a speaker backed by the platform speech command: say on
// macOS, espeak on Linux, PowerShell speech synthesis on Windows.
func NewCommand(cfg *Config) (Interface, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	var impl commandImpl

	switch runtime.GOOS {
	case "darwin":
		impl = commandImpl{name: "say", textArg: -1}
		if cfg.Voice != "" {
			impl.args = []string{"-v", cfg.Voice}
		}
	case "linux":
		impl = commandImpl{name: "espeak", textArg: -1}
		if cfg.Voice != "" {
			impl.args = []string{"-v", cfg.Voice}
		}
	case "windows":
		impl = commandImpl{
			name:    "powershell",
			args:    []string{"-NoProfile", "-Command"},
			textArg: -1,
		}
	default:
		return nil, fmt.Errorf("no speech command for %s", runtime.GOOS)
	}

	if _, err := exec.LookPath(impl.name); err != nil {
		return nil, fmt.Errorf("speech command unavailable: %w", err)
	}

	return &impl, nil
}

func (c *commandImpl) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	args := append([]string(nil), c.args...)

	if c.name == "powershell" {
		script := fmt.Sprintf(
			"Add-Type -AssemblyName System.Speech; "+
				"(New-Object System.Speech.Synthesis.SpeechSynthesizer).Speak(%q)", text)
		args = append(args, script)
	} else {
		args = append(args, text)
	}

	cmd := exec.CommandContext(ctx, c.name, args...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			// interrupted on purpose, not a failure
			return ctx.Err()
		}

		return fmt.Errorf("speech command failed: %w", err)
	}

	return nil
}
