package audio

import (
	"bytes"
	"fmt"
	"io"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// DecodeMP3 decodes an MP3 payload into a PCM chunk. go-mp3 always yields
// interleaved 16-bit stereo at the stream's native rate, so decoded chunks
// need a Coerce pass before playback.
func DecodeMP3(payload []byte) (*Chunk, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}

	var buf bytes.Buffer
	if dec.Length() > 0 {
		buf.Grow(int(dec.Length()))
	}
	if _, err := io.Copy(&buf, dec); err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}

	return &Chunk{
		Data:   buf.Bytes(),
		Format: Format{SampleRate: dec.SampleRate(), Channels: 2},
	}, nil
}

// DecodePCM wraps a raw s16le payload in a chunk with the given format.
func DecodePCM(payload []byte, f Format) (*Chunk, error) {
	c := &Chunk{Data: payload, Format: f}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
