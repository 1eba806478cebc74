// Package importers turns raw personal-history exports into memoir domain
// records: Events, People and Artifacts.
//
// # Architecture
//
// The pipeline is a two-step protocol:
//
//	RawExportFile → Parser → Conversation/FileItem → ParseResult (preview)
//	RawExportFile → Parser → Resolver + SynthesizeEvents → domain store (commit)
//
// Parse is read-only and cheap: it produces the bounded preview the user
// selects from. Import re-parses the same file (the server holds no state
// between the two steps) and commits only the selected items. The Resolver
// is the per-run identity context: it dedupes participants into Person rows
// by normalized identity key, backed by the persisted key on Person so that
// re-imports never fork the person graph.
//
// # Adding a new source format
//
//  1. Create a new file (e.g., whatsapp.go)
//  2. Define the wire structs for the export format
//  3. Implement Parser: validate the structural signature first, fail with
//     ErrMalformedInput, and normalize every timestamp to UTC
//  4. Register the format in ParserFor and FormatFromRoute
//
// # Existing parsers
//
//   - MessengerParser: Facebook Messenger message_*.json (epoch millis,
//     Latin-1-over-UTF-8 mojibake repair)
//   - SMSBackupParser: SMS Backup & Restore XML (epoch-millis attributes,
//     one conversation per phone thread)
//   - ChatGPTParser: conversations.json (node graph, epoch-seconds floats)
//   - FileParser: anything else, one artifact per file
//
// ZIP archives are expanded by ExtractArchive and each entry dispatched by
// DetectFormat; unsupported entries become per-item failures, never a fatal
// error for the batch.
package importers
