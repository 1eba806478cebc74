package importers

import "fmt"

// Parser turns one raw export file into a canonical ParseOutput. Parsers
// never touch the domain store.
//
// Implementations:
//   - MessengerParser (messenger.go) - Facebook Messenger message_*.json
//   - SMSBackupParser (sms.go) - SMS Backup & Restore XML
//   - ChatGPTParser (chatgpt.go) - ChatGPT conversations.json
//   - FileParser (generic.go) - arbitrary files and photos
//
// Adding a new source:
//  1. Create a new file (e.g., whatsapp.go)
//  2. Define the source-specific wire structs
//  3. Validate the structural signature first and fail with ErrMalformedInput
//  4. Normalize every timestamp to UTC before returning
type Parser interface {
	Format() SourceFormat
	Parse(file RawExportFile) (*ParseOutput, error)
}

// ParserFor returns the parser for a resolved source format.
func ParserFor(format SourceFormat) (Parser, error) {
	switch format {
	case FormatMessenger:
		return &MessengerParser{}, nil
	case FormatSMSBackup:
		return &SMSBackupParser{}, nil
	case FormatChatGPT:
		return &ChatGPTParser{}, nil
	case FormatFile:
		return &FileParser{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}
