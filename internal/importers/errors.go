package importers

import "errors"

var (
	// ErrUnsupportedFormat means the file is the wrong type for the chosen
	// importer. The user needs a different file, not a retry.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrMalformedInput means the file is the right type but its structure is
	// corrupt or unexpected. Re-exporting from the source usually fixes it.
	ErrMalformedInput = errors.New("malformed input")
)
