package audio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Static errors for WAV decoding and encoding.
var (
	// ErrFileNotFound is returned when the input file does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrInvalidWAV is returned when a file cannot be parsed as a RIFF/WAVE container.
	ErrInvalidWAV = errors.New("invalid WAV file")
	// ErrUnsupportedEncoding is returned for WAV files that do not carry integer PCM.
	ErrUnsupportedEncoding = errors.New("unsupported WAV encoding")
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// WAVCodec reads and writes PCM WAV files on the local filesystem.
// It is the default waveform source and segment writer.
type WAVCodec struct{}

// Read decodes the WAV file at path.
func (WAVCodec) Read(path string) (*Buffer, error) {
	return ReadWAV(path)
}

// Write encodes buf as a PCM WAV file at path.
func (WAVCodec) Write(path string, buf *Buffer) error {
	return WriteWAV(path, buf)
}

// ReadWAV decodes a PCM WAV file into a Buffer.
func ReadWAV(path string) (*Buffer, error) {
	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWAV, path)
	}
	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w: format tag %d in %s", ErrUnsupportedEncoding, dec.WavAudioFormat, path)
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: read PCM data from %s: %v", ErrInvalidWAV, path, err)
	}

	buf := &Buffer{
		Data:        pcm.Data,
		SampleRate:  int(dec.SampleRate),
		NumChannels: int(dec.NumChans),
		BitDepth:    int(dec.BitDepth),
	}
	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return buf, nil
}

// WriteWAV encodes buf as a PCM WAV file, creating parent directories as needed.
// A partially written file is removed on failure.
func WriteWAV(path string, buf *Buffer) error {
	if err := buf.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 - path is derived from caller options
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	enc := wav.NewEncoder(f, buf.SampleRate, buf.BitDepth, buf.NumChannels, wavFormatPCM)
	ib := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: buf.NumChannels,
			SampleRate:  buf.SampleRate,
		},
		Data:           buf.Data,
		SourceBitDepth: buf.BitDepth,
	}

	if err := enc.Write(ib); err != nil {
		_ = enc.Close()
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("finalize %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
