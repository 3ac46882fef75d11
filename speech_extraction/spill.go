package speech_extraction

import (
	"fmt"
	"io"

	"github.com/zenwerk/go-wave"
)

// WriteWAV streams an utterance into out as 16-bit mono WAV and closes out.
// Used to spill captured audio into a secure temporary file for engines that
// read from disk, and for archival when spill_audio is enabled.
func WriteWAV(out io.WriteCloser, u *Utterance) error {
	param := wave.WriterParam{
		Out:           out,
		Channel:       1,
		SampleRate:    u.SampleRate,
		BitsPerSample: 16,
	}

	waveWriter, err := wave.NewWriter(param)
	if err != nil {
		return fmt.Errorf("wav writer: %w", err)
	}

	if _, err := waveWriter.WriteSample16(u.Frames); err != nil {
		_ = waveWriter.Close()
		return fmt.Errorf("wav write: %w", err)
	}

	return waveWriter.Close()
}
