package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultBaseName is used when the input has no meaningful name of its own.
const DefaultBaseName = "transcription"

// SaveFolderName returns the timestamp-named subfolder for a save at t.
func SaveFolderName(t time.Time) string {
	return "transcription_" + t.Format("20060102_150405")
}

// BaseName derives the output base name from an audio path. It returns
// DefaultBaseName when preserve is false or the path has no usable stem.
func BaseName(audioPath string, preserve bool) string {
	if !preserve || audioPath == "" {
		return DefaultBaseName
	}
	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		return DefaultBaseName
	}
	return stem
}

// Saved lists the files written by Save.
type Saved struct {
	Dir        string
	TextPath   string
	DetailPath string
}

// Save writes <base>.txt and, for json or srt, the alignment file
// (<base>_timestamps.json or <base>.srt) into dir. Each file is written
// atomically.
func Save(dir, base string, r Result, kind Kind) (Saved, error) {
	saved := Saved{Dir: dir}
	if base == "" {
		base = DefaultBaseName
	}

	saved.TextPath = filepath.Join(dir, base+".txt")
	if err := atomicWrite(saved.TextPath, []byte(r.Text)); err != nil {
		return saved, err
	}

	switch kind {
	case KindJSON:
		data, err := FormatJSON(r)
		if err != nil {
			return saved, err
		}
		saved.DetailPath = filepath.Join(dir, base+"_timestamps.json")
		if err := atomicWrite(saved.DetailPath, []byte(data)); err != nil {
			return saved, err
		}
	case KindSRT:
		saved.DetailPath = filepath.Join(dir, base+".srt")
		if err := atomicWrite(saved.DetailPath, []byte(FormatSRT(r))); err != nil {
			return saved, err
		}
	}
	return saved, nil
}

// atomicWrite writes data to path using a temp file and rename.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, "transcript-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming %s: %w", filepath.Base(path), err)
	}
	return nil
}
