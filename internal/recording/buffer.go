package recording

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Buffer is a captured 16-bit PCM clip, interleaved when Channels > 1.
type Buffer struct {
	SampleRate int
	Channels   int
	Samples    []int16
}

// FromPCM16LE wraps raw little-endian s16 bytes. A trailing odd byte is dropped.
func FromPCM16LE(data []byte, sampleRate, channels int) *Buffer {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[2*i:]))
	}
	return &Buffer{SampleRate: sampleRate, Channels: channels, Samples: samples}
}

func (b *Buffer) Validate() error {
	if b == nil {
		return fmt.Errorf("no audio buffer")
	}
	if b.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", b.SampleRate)
	}
	if b.Channels <= 0 {
		return fmt.Errorf("invalid channel count: %d", b.Channels)
	}
	if len(b.Samples) == 0 {
		return fmt.Errorf("audio buffer is empty")
	}
	return nil
}

func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 || b.Channels <= 0 {
		return 0
	}
	frames := len(b.Samples) / b.Channels
	return time.Duration(frames) * time.Second / time.Duration(b.SampleRate)
}

// WriteWAV encodes the buffer as a 16-bit PCM WAV file.
func (b *Buffer) WriteWAV(w io.WriteSeeker) error {
	if err := b.Validate(); err != nil {
		return err
	}
	enc := wav.NewEncoder(w, b.SampleRate, 16, b.Channels, 1)
	data := make([]int, len(b.Samples))
	for i, s := range b.Samples {
		data[i] = int(s)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: b.Channels, SampleRate: b.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

func (b *Buffer) SaveWAV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	if err := b.WriteWAV(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// ReadWAV decodes a PCM WAV file into a Buffer.
func ReadWAV(r io.ReadSeeker) (*Buffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("not a valid wav file")
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	samples := make([]int16, len(pcm.Data))
	shift := int(dec.BitDepth) - 16
	for i, s := range pcm.Data {
		switch {
		case shift > 0:
			s >>= shift
		case shift < 0:
			s <<= -shift
		}
		samples[i] = int16(s)
	}
	return &Buffer{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		Samples:    samples,
	}, nil
}
