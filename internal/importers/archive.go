package importers

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
)

const maxArchiveEntrySize = 100 * 1024 * 1024 // 100 MB per entry

var zipMagic = []byte("PK\x03\x04")

// IsArchive reports whether an upload should be expanded as a ZIP archive.
func IsArchive(filename string, data []byte) bool {
	if strings.EqualFold(path.Ext(filename), ".zip") {
		return true
	}
	return bytes.HasPrefix(data, zipMagic)
}

// ExtractArchive walks a ZIP upload and returns one RawExportFile per usable
// entry, each tagged with a "zip:<archive>" origin for provenance display.
// Unreadable or empty entries are reported as per-item failures and never
// abort the rest of the archive. The entry path is preserved only inside the
// filename as a display hint.
func ExtractArchive(data []byte, archiveName string) ([]RawExportFile, []ItemFailure, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: not a ZIP archive: %v", ErrMalformedInput, err)
	}

	origin := "zip:" + archiveName
	var files []RawExportFile
	var failures []ItemFailure

	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() || isArchiveJunk(entry.Name) {
			continue
		}
		if entry.UncompressedSize64 > maxArchiveEntrySize {
			failures = append(failures, ItemFailure{
				Item:   entry.Name,
				Reason: fmt.Sprintf("entry exceeds %d MB limit", maxArchiveEntrySize/(1024*1024)),
			})
			continue
		}

		contents, err := readArchiveEntry(entry)
		if err != nil {
			failures = append(failures, ItemFailure{Item: entry.Name, Reason: err.Error()})
			continue
		}
		if len(contents) == 0 {
			failures = append(failures, ItemFailure{Item: entry.Name, Reason: "empty entry"})
			continue
		}

		files = append(files, RawExportFile{
			Filename: entry.Name,
			Origin:   origin,
			Data:     contents,
		})
	}

	return files, failures, nil
}

func readArchiveEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry: %w", err)
	}
	defer rc.Close()

	contents, err := io.ReadAll(io.LimitReader(rc, maxArchiveEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("read entry: %w", err)
	}
	if len(contents) > maxArchiveEntrySize {
		return nil, fmt.Errorf("entry exceeds size limit")
	}
	return contents, nil
}

// isArchiveJunk filters macOS resource forks and hidden bookkeeping files
// that every user-made ZIP seems to carry.
func isArchiveJunk(name string) bool {
	if strings.HasPrefix(name, "__MACOSX/") {
		return true
	}
	base := path.Base(name)
	return strings.HasPrefix(base, ".") || base == "Thumbs.db" || base == "desktop.ini"
}
