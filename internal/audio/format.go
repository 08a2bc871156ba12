package audio

import (
	"errors"
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Output contract for all providers. Chunks handed to the playback loop must
// match this exactly; anything else is converted or rejected.
const (
	ContractSampleRate = 24000
	ContractChannels   = 1
	ContractBitDepth   = 16
)

var (
	// ErrEmptyChunk is returned when a chunk carries no samples.
	ErrEmptyChunk = errors.New("audio: empty chunk")

	// ErrUnrepresentable is returned when a chunk cannot be converted into
	// the output contract.
	ErrUnrepresentable = errors.New("audio: format not representable in output contract")
)

// Format describes the shape of a PCM buffer. Samples are always signed
// 16-bit little-endian; only rate and channel count vary.
type Format struct {
	SampleRate int
	Channels   int
}

// ContractFormat returns the fixed output contract format.
func ContractFormat() Format {
	return Format{SampleRate: ContractSampleRate, Channels: ContractChannels}
}

// InContract reports whether f already matches the output contract.
func (f Format) InContract() bool {
	return f.SampleRate == ContractSampleRate && f.Channels == ContractChannels
}

// BytesPerFrame returns the byte size of one frame (all channels).
func (f Format) BytesPerFrame() int {
	return f.Channels * ContractBitDepth / 8
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/s16le", f.SampleRate, f.Channels)
}

// Chunk is one unit of decoded PCM audio moving from producer to consumer.
// Data is signed 16-bit little-endian interleaved.
type Chunk struct {
	Data   []byte
	Format Format
}

// Duration returns the playback length of the chunk in seconds.
func (c *Chunk) Duration() float64 {
	if c == nil || c.Format.SampleRate == 0 || c.Format.BytesPerFrame() == 0 {
		return 0
	}
	frames := len(c.Data) / c.Format.BytesPerFrame()
	return float64(frames) / float64(c.Format.SampleRate)
}

// Empty reports whether the chunk carries no samples.
func (c *Chunk) Empty() bool {
	return c == nil || len(c.Data) == 0
}

// Validate checks that the chunk's data is plausible for its declared format.
func (c *Chunk) Validate() error {
	if c.Empty() {
		return ErrEmptyChunk
	}
	if c.Format.SampleRate <= 0 {
		return fmt.Errorf("audio: invalid sample rate %d", c.Format.SampleRate)
	}
	if c.Format.Channels != 1 && c.Format.Channels != 2 {
		return fmt.Errorf("%w: %d channels", ErrUnrepresentable, c.Format.Channels)
	}
	if len(c.Data)%c.Format.BytesPerFrame() != 0 {
		return fmt.Errorf("audio: %d bytes not aligned to %d-byte frames",
			len(c.Data), c.Format.BytesPerFrame())
	}
	return nil
}

// Coerce converts a chunk into the output contract, downmixing stereo to
// mono and resampling when the rate differs. A chunk that is already in
// contract is returned as-is. Formats outside what Validate accepts are
// rejected with ErrUnrepresentable.
func Coerce(c *Chunk) (*Chunk, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Format.InContract() {
		return c, nil
	}

	data := c.Data
	if c.Format.Channels == 2 {
		data = downmixToMono(data)
	}

	if c.Format.SampleRate != ContractSampleRate {
		resampled, err := resample(data, c.Format.SampleRate, ContractSampleRate)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnrepresentable, err)
		}
		data = resampled
	}

	return &Chunk{Data: data, Format: ContractFormat()}, nil
}

// downmixToMono averages interleaved stereo s16le frames into mono.
func downmixToMono(data []byte) []byte {
	frames := len(data) / 4
	out := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		l := int16(data[i*4]) | int16(data[i*4+1])<<8
		r := int16(data[i*4+2]) | int16(data[i*4+3])<<8
		m := int16((int32(l) + int32(r)) / 2)
		out[i*2] = byte(m)
		out[i*2+1] = byte(m >> 8)
	}
	return out
}

// resample converts mono s16le data between sample rates. Samples pass
// through the resampler as normalized float64 frames.
func resample(data []byte, srcRate, dstRate int) ([]byte, error) {
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("create resampler: %w", err)
	}

	frames := len(data) / 2
	input := make([]float64, frames)
	for i := 0; i < frames; i++ {
		s := int16(data[i*2]) | int16(data[i*2+1])<<8
		input[i] = float64(s) / 32768.0
	}

	output, err := rs.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}

	out := make([]byte, len(output)*2)
	for i, v := range output {
		s := int16(v * 32767.0)
		if v > 1.0 {
			s = 32767
		} else if v < -1.0 {
			s = -32768
		}
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out, nil
}
