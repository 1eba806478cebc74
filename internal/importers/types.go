package importers

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/keepsake-app/keepsake/internal/entities"
)

// SourceFormat identifies which importer a file belongs to. It is resolved
// once, from the route parameter or (for archive entries) from the filename
// plus a minimal structural signature, and carried through the pipeline as a
// tag rather than re-sniffed at each stage.
type SourceFormat string

const (
	FormatMessenger SourceFormat = "messenger"
	FormatSMSBackup SourceFormat = "sms_backup"
	FormatChatGPT   SourceFormat = "chatgpt"
	FormatFile      SourceFormat = "file"
)

// FormatFromRoute maps a URL path segment to a SourceFormat.
func FormatFromRoute(s string) (SourceFormat, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "messenger":
		return FormatMessenger, true
	case "sms", "sms_backup", "sms-backup":
		return FormatSMSBackup, true
	case "chatgpt":
		return FormatChatGPT, true
	case "file", "generic":
		return FormatFile, true
	}
	return "", false
}

// RawExportFile is one uploaded (or archive-extracted) file, held in memory
// for the duration of a single parse or import call.
type RawExportFile struct {
	Filename string
	Mimetype string
	Origin   string // "upload" or "zip:<archive name>"
	Data     []byte
}

// Extension returns the lowercased filename extension, including the dot.
func (f RawExportFile) Extension() string {
	return strings.ToLower(filepath.Ext(f.Filename))
}

// ParticipantRef is a source-local identity: a display name, phone number or
// platform handle. It is not yet a domain Person; the resolver maps it to one.
type ParticipantRef struct {
	DisplayName string
	PhoneNumber string
	Handle      string

	// IsSelf marks the account owner's side of a thread ("Me" in SMS, the
	// "user" role in ChatGPT). Self refs are never resolved into Person rows.
	IsSelf bool
}

type MediaType string

const (
	MediaPhoto MediaType = "photo"
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
	MediaGIF   MediaType = "gif"
	MediaLink  MediaType = "link"
	MediaFile  MediaType = "file"
)

// MediaRef points at an attachment by source-native URI or archive path.
type MediaRef struct {
	Type MediaType
	URI  string
}

type Reaction struct {
	Actor  string
	Symbol string
}

// Message is a single normalized message. Timestamp is always UTC regardless
// of how the source encoded it. Seq is the message's position in the source
// file and is the tie-break for identical timestamps.
type Message struct {
	Sender    ParticipantRef
	Timestamp time.Time
	Text      string
	Media     []MediaRef
	Reactions []Reaction
	Seq       int
}

// Conversation is a source-native message thread, produced transiently by a
// parser. Messages are sorted ascending by timestamp with source order as
// tie-break.
type Conversation struct {
	ID           string
	Title        string
	Participants []ParticipantRef
	Messages     []Message
}

// DateRange returns the timestamps of the first and last messages.
func (c Conversation) DateRange() (first, last time.Time) {
	if len(c.Messages) == 0 {
		return
	}
	return c.Messages[0].Timestamp, c.Messages[len(c.Messages)-1].Timestamp
}

// sortMessages orders messages ascending by timestamp. The stable sort keeps
// the original file order for identical timestamps, which is the contract for
// transcript and day-grouping order.
func sortMessages(messages []Message) {
	for i := range messages {
		messages[i].Seq = i
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
}

// FileItem is a generic (non-conversation) file that will become an artifact.
type FileItem struct {
	ID       string
	Filename string
	Type     entities.ArtifactType
	Mimetype string
	Origin   string
	Size     int64
	Hash     string // sha-256 hex of the content
	Data     []byte
}

// ParseOutput is everything a parser extracted from one file: conversations
// for message formats, file items for the generic path.
type ParseOutput struct {
	Format        SourceFormat
	Conversations []Conversation
	Files         []FileItem
}

const (
	previewConversations = 20
	previewMessages      = 5
)

// MessagePreview is a single message line in the pre-commit preview.
type MessagePreview struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationPreview summarises one conversation for the selection surface.
type ConversationPreview struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Participants []string         `json:"participants"`
	MessageCount int              `json:"message_count"`
	FirstMessage time.Time        `json:"first_message,omitempty"`
	LastMessage  time.Time        `json:"last_message,omitempty"`
	Preview      []MessagePreview `json:"preview,omitempty"`
}

type FilePreview struct {
	ID       string                `json:"id"`
	Filename string                `json:"filename"`
	Type     entities.ArtifactType `json:"type"`
	Size     int64                 `json:"size"`
	Origin   string                `json:"origin,omitempty"`
}

type AggregateStats struct {
	ConversationCount int `json:"conversation_count"`
	FileCount         int `json:"file_count"`
	MessageCount      int `json:"message_count"`
	ParticipantCount  int `json:"participant_count"`
}

// ParseResult is the bounded preview surfaced to the user between the parse
// and import steps. It is derived deterministically from a ParseOutput and
// never requires a second read of the source file.
type ParseResult struct {
	Format        SourceFormat          `json:"format"`
	TotalItems    int                   `json:"total_items"`
	Conversations []ConversationPreview `json:"conversations,omitempty"`
	Files         []FilePreview         `json:"files,omitempty"`
	Stats         AggregateStats        `json:"stats"`
}

// Result derives the user-facing preview from a full parse pass.
func (o *ParseOutput) Result() *ParseResult {
	result := &ParseResult{
		Format:     o.Format,
		TotalItems: len(o.Conversations) + len(o.Files),
	}

	participants := make(map[string]struct{})
	for i, conv := range o.Conversations {
		result.Stats.MessageCount += len(conv.Messages)
		for _, p := range conv.Participants {
			if !p.IsSelf {
				participants[participantLabel(p)] = struct{}{}
			}
		}

		if i >= previewConversations {
			continue
		}
		preview := ConversationPreview{
			ID:           conv.ID,
			Title:        conv.Title,
			MessageCount: len(conv.Messages),
		}
		for _, p := range conv.Participants {
			preview.Participants = append(preview.Participants, participantLabel(p))
		}
		preview.FirstMessage, preview.LastMessage = conv.DateRange()
		for _, m := range conv.Messages[:min(previewMessages, len(conv.Messages))] {
			preview.Preview = append(preview.Preview, MessagePreview{
				Sender:    participantLabel(m.Sender),
				Text:      m.Text,
				Timestamp: m.Timestamp,
			})
		}
		result.Conversations = append(result.Conversations, preview)
	}

	for _, f := range o.Files {
		result.Files = append(result.Files, FilePreview{
			ID:       f.ID,
			Filename: f.Filename,
			Type:     f.Type,
			Size:     f.Size,
			Origin:   f.Origin,
		})
	}

	result.Stats.ConversationCount = len(o.Conversations)
	result.Stats.FileCount = len(o.Files)
	result.Stats.ParticipantCount = len(participants)
	return result
}

// participantLabel returns the best human-readable label for a ref.
func participantLabel(p ParticipantRef) string {
	switch {
	case p.IsSelf:
		return "Me"
	case p.DisplayName != "":
		return p.DisplayName
	case p.PhoneNumber != "":
		return p.PhoneNumber
	default:
		return p.Handle
	}
}

// ImportOptions is the user-controlled commit contract. An empty Selection is
// a no-op, never "import everything".
type ImportOptions struct {
	CreatePeople   bool     `json:"create_people"`
	CreateArtifact bool     `json:"create_artifact"`
	GroupByDay     bool     `json:"group_by_day"`
	Selection      []string `json:"selection"`
}

func (o ImportOptions) selectionSet() map[string]struct{} {
	set := make(map[string]struct{}, len(o.Selection))
	for _, id := range o.Selection {
		set[id] = struct{}{}
	}
	return set
}

// ItemFailure records one conversation or file that failed during commit.
type ItemFailure struct {
	Item   string `json:"item"`
	Reason string `json:"reason"`
}

// ImportResult reports exactly what was persisted. Counts are tallied from
// successful store writes only, so they always reconcile with the database.
type ImportResult struct {
	RunID            string        `json:"run_id"`
	SessionID        uint          `json:"session_id,omitempty"`
	ItemsProcessed   int           `json:"items_processed"`
	PeopleCreated    int           `json:"people_created"`
	ArtifactsCreated int           `json:"artifacts_created"`
	EventsCreated    int           `json:"events_created"`
	Failures         []ItemFailure `json:"failures,omitempty"`
}
