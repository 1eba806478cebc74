package importers

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Wire structs for the Messenger message_*.json export format.
type messengerExport struct {
	Participants []messengerParticipant `json:"participants"`
	Messages     []messengerMessage     `json:"messages"`
	Title        string                 `json:"title"`
	ThreadPath   string                 `json:"thread_path"`
}

type messengerParticipant struct {
	Name string `json:"name"`
}

type messengerMessage struct {
	SenderName  string                `json:"sender_name"`
	TimestampMS int64                 `json:"timestamp_ms"`
	Content     string                `json:"content"`
	Photos      []messengerAttachment `json:"photos"`
	Videos      []messengerAttachment `json:"videos"`
	AudioFiles  []messengerAttachment `json:"audio_files"`
	Gifs        []messengerAttachment `json:"gifs"`
	Share       *messengerShare       `json:"share"`
	Reactions   []messengerReaction   `json:"reactions"`
}

type messengerAttachment struct {
	URI string `json:"uri"`
}

type messengerShare struct {
	Link string `json:"link"`
}

type messengerReaction struct {
	Reaction string `json:"reaction"`
	Actor    string `json:"actor"`
}

// MessengerParser parses Facebook Messenger JSON exports. Messenger encodes
// the file with UTF-8 bytes mis-declared as Latin-1, so every string is run
// through mojibake repair after decoding.
type MessengerParser struct{}

var _ Parser = (*MessengerParser)(nil)

func (p *MessengerParser) Format() SourceFormat {
	return FormatMessenger
}

func (p *MessengerParser) Parse(file RawExportFile) (*ParseOutput, error) {
	var export messengerExport
	if err := json.Unmarshal(file.Data, &export); err != nil {
		return nil, fmt.Errorf("%w: invalid messenger JSON: %v", ErrMalformedInput, err)
	}
	if export.Participants == nil || export.Messages == nil {
		return nil, fmt.Errorf("%w: missing participants or messages", ErrMalformedInput)
	}

	conv := Conversation{
		ID:    messengerConversationID(export, file.Filename),
		Title: repairMojibake(export.Title),
	}
	for _, part := range export.Participants {
		conv.Participants = append(conv.Participants, ParticipantRef{
			DisplayName: repairMojibake(part.Name),
		})
	}

	for _, raw := range export.Messages {
		msg := Message{
			Sender:    ParticipantRef{DisplayName: repairMojibake(raw.SenderName)},
			Timestamp: time.UnixMilli(raw.TimestampMS).UTC(),
			Text:      repairMojibake(raw.Content),
		}
		msg.Media = appendMedia(msg.Media, MediaPhoto, raw.Photos)
		msg.Media = appendMedia(msg.Media, MediaVideo, raw.Videos)
		msg.Media = appendMedia(msg.Media, MediaAudio, raw.AudioFiles)
		msg.Media = appendMedia(msg.Media, MediaGIF, raw.Gifs)
		if raw.Share != nil && raw.Share.Link != "" {
			msg.Media = append(msg.Media, MediaRef{Type: MediaLink, URI: raw.Share.Link})
		}
		for _, r := range raw.Reactions {
			msg.Reactions = append(msg.Reactions, Reaction{
				Actor:  repairMojibake(r.Actor),
				Symbol: repairMojibake(r.Reaction),
			})
		}
		conv.Messages = append(conv.Messages, msg)
	}

	// Messenger exports are newest-first; normalize to chronological order.
	sortMessages(conv.Messages)

	if conv.Title == "" && len(conv.Participants) > 0 {
		conv.Title = conv.Participants[0].DisplayName
	}

	return &ParseOutput{
		Format:        FormatMessenger,
		Conversations: []Conversation{conv},
	}, nil
}

func appendMedia(media []MediaRef, mediaType MediaType, attachments []messengerAttachment) []MediaRef {
	for _, a := range attachments {
		if a.URI != "" {
			media = append(media, MediaRef{Type: mediaType, URI: a.URI})
		}
	}
	return media
}

// messengerConversationID prefers the export's thread_path since it is stable
// across re-exports; the filename is only a fallback.
func messengerConversationID(export messengerExport, filename string) string {
	if export.ThreadPath != "" {
		return export.ThreadPath
	}
	if export.Title != "" {
		return "messenger:" + strings.ToLower(strings.TrimSpace(export.Title))
	}
	return "messenger:" + filename
}

// repairMojibake fixes Messenger's Latin-1-over-UTF-8 mis-encoding. The JSON
// decoder hands us a string whose code points are really UTF-8 bytes; mapping
// each code point back to its Latin-1 byte and re-reading as UTF-8 recovers
// the original text. Strings that don't survive the round trip are returned
// unchanged.
func repairMojibake(s string) string {
	if isASCII(s) {
		return s
	}
	repaired, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		// Contains code points above U+00FF, so it was never mis-decoded.
		return s
	}
	if !utf8.ValidString(repaired) {
		return s
	}
	return repaired
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
