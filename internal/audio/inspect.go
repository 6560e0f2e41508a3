package audio

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// FileType is the container type of an input file.
type FileType string

const (
	FileTypeWAV     FileType = "wav"
	FileTypeMP3     FileType = "mp3"
	FileTypeMP4     FileType = "mp4"
	FileTypeUnknown FileType = "unknown"
)

// Info describes an audio file.
type Info struct {
	Path     string   `json:"path"`
	FileType FileType `json:"filetype"`
	MIME     string   `json:"mime,omitempty"`
	// Format and Duration are only set for WAV files.
	Format   *Format `json:"format,omitempty"`
	Frames   int     `json:"frames,omitempty"`
	Duration float64 `json:"audio_length,omitempty"`
}

// DetectFileType identifies the container of the file at path.
// The extension is trusted first; otherwise the content is sniffed.
func DetectFileType(path string) (FileType, string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return FileTypeWAV, "audio/wav", nil
	case ".mp3":
		return FileTypeMP3, "audio/mpeg", nil
	case ".mp4", ".m4a":
		return FileTypeMP4, "audio/mp4", nil
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return FileTypeUnknown, "", fmt.Errorf("detect file type of %s: %w", path, err)
	}

	switch {
	case mt.Is("audio/wav"):
		return FileTypeWAV, mt.String(), nil
	case mt.Is("audio/mpeg"):
		return FileTypeMP3, mt.String(), nil
	case mt.Is("audio/mp4"), mt.Is("audio/x-m4a"), mt.Is("video/mp4"):
		return FileTypeMP4, mt.String(), nil
	default:
		return FileTypeUnknown, mt.String(), nil
	}
}

// Inspect reports the container type of path and, for WAV files, the
// PCM layout and length.
func Inspect(path string) (*Info, error) {
	ft, mime, err := DetectFileType(path)
	if err != nil {
		return nil, err
	}

	info := &Info{Path: path, FileType: ft, MIME: mime}
	if ft != FileTypeWAV {
		return info, nil
	}

	buf, err := ReadWAV(path)
	if err != nil {
		return nil, err
	}
	format := buf.Format()
	info.Format = &format
	info.Frames = buf.Frames()
	info.Duration = buf.Duration()
	return info, nil
}
