package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
)

// Entry is one extracted table from an archive, flattened to its base name.
type Entry struct {
	Name string
	Data []byte
}

// ExtractAll validates and extracts a zip archive entirely in memory. Every
// entry is read to EOF, which forces the per-entry CRC check, so a corrupt
// archive errors out before any byte is trusted. Directories are skipped.
func ExtractAll(archive []byte) ([]Entry, error) {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	entries := make([]Entry, 0, len(reader.File))
	for _, file := range reader.File {
		if strings.HasSuffix(file.Name, "/") {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open entry %s: %w", file.Name, err)
		}

		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read entry %s: %w", file.Name, err)
		}

		entries = append(entries, Entry{Name: path.Base(file.Name), Data: data})
	}

	return entries, nil
}
