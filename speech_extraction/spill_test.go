package speech_extraction

import (
	"bytes"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closableBuffer struct {
	bytes.Buffer
	closed bool
}

func (b *closableBuffer) Close() error {
	b.closed = true
	return nil
}

func TestWriteWAVRoundTrip(t *testing.T) {
	u := &Utterance{
		Frames:     []int16{0, 100, -100, 32767, -32768},
		SampleRate: 16000,
	}

	out := &closableBuffer{}
	require.NoError(t, WriteWAV(out, u))
	assert.True(t, out.closed, "the writer owns closing the output")

	decoder := wav.NewDecoder(bytes.NewReader(out.Bytes()))
	require.True(t, decoder.IsValidFile())

	buf, err := decoder.FullPCMBuffer()
	require.NoError(t, err)
	require.Len(t, buf.Data, len(u.Frames))

	for i, sample := range u.Frames {
		assert.Equal(t, int(sample), buf.Data[i])
	}

	assert.Equal(t, uint32(16000), decoder.SampleRate)
	assert.Equal(t, uint16(1), decoder.NumChans)
}
