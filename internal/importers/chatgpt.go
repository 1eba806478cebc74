package importers

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Wire structs for the ChatGPT conversations.json export: an array of
// conversations, each holding a graph of message nodes in "mapping".
type chatgptConversation struct {
	ID             string                 `json:"id"`
	ConversationID string                 `json:"conversation_id"`
	Title          string                 `json:"title"`
	CreateTime     flexTime               `json:"create_time"`
	UpdateTime     flexTime               `json:"update_time"`
	Mapping        map[string]chatgptNode `json:"mapping"`
	CurrentNode    string                 `json:"current_node"`
}

type chatgptNode struct {
	ID       string          `json:"id"`
	Message  *chatgptMessage `json:"message"`
	Parent   *string         `json:"parent"`
	Children []string        `json:"children"`
}

type chatgptMessage struct {
	ID         string         `json:"id"`
	Author     chatgptAuthor  `json:"author"`
	CreateTime flexTime       `json:"create_time"`
	Content    chatgptContent `json:"content"`
}

type chatgptAuthor struct {
	Role string `json:"role"`
	Name string `json:"name"`
}

type chatgptContent struct {
	ContentType string            `json:"content_type"`
	Parts       []json.RawMessage `json:"parts"`
}

// flexTime accepts the timestamp encodings seen across ChatGPT export
// versions: epoch-seconds floats, ISO-8601 strings, or null.
type flexTime struct {
	time.Time
}

func (t *flexTime) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		t.Time = time.Time{}
		return nil
	}
	if s[0] == '"' {
		var iso string
		if err := json.Unmarshal(data, &iso); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339, iso)
		if err != nil {
			return fmt.Errorf("unrecognized timestamp %q: %w", iso, err)
		}
		t.Time = parsed.UTC()
		return nil
	}
	var seconds float64
	if err := json.Unmarshal(data, &seconds); err != nil {
		return err
	}
	sec, frac := math.Modf(seconds)
	t.Time = time.Unix(int64(sec), int64(frac*1e9)).UTC()
	return nil
}

// ChatGPTParser parses ChatGPT conversations.json exports. The mapping is a
// parent/child node graph; the canonical thread is the walk from the root
// along first children, with a create-time-sorted sweep picking up nodes the
// walk can't reach (broken parent links happen in older exports).
type ChatGPTParser struct{}

var _ Parser = (*ChatGPTParser)(nil)

func (p *ChatGPTParser) Format() SourceFormat {
	return FormatChatGPT
}

func (p *ChatGPTParser) Parse(file RawExportFile) (*ParseOutput, error) {
	var export []chatgptConversation
	if err := json.Unmarshal(file.Data, &export); err != nil {
		return nil, fmt.Errorf("%w: invalid conversations.json: %v", ErrMalformedInput, err)
	}
	if len(export) == 0 {
		return nil, fmt.Errorf("%w: export contains no conversations", ErrMalformedInput)
	}

	output := &ParseOutput{Format: FormatChatGPT}
	for i, raw := range export {
		conv := Conversation{
			ID:    chatgptConversationID(raw, i),
			Title: raw.Title,
			Participants: []ParticipantRef{
				{DisplayName: "Me", IsSelf: true},
				{DisplayName: "ChatGPT", Handle: "chatgpt"},
			},
		}

		for _, node := range orderedNodes(raw) {
			msg := node.Message
			text := joinParts(msg.Content.Parts)
			if text == "" {
				continue
			}
			sender := ParticipantRef{DisplayName: "ChatGPT", Handle: "chatgpt"}
			switch msg.Author.Role {
			case "user":
				sender = ParticipantRef{DisplayName: "Me", IsSelf: true}
			case "assistant":
			default:
				// system / tool noise
				continue
			}
			ts := msg.CreateTime.Time
			if ts.IsZero() {
				ts = raw.CreateTime.Time
			}
			conv.Messages = append(conv.Messages, Message{
				Sender:    sender,
				Timestamp: ts,
				Text:      text,
			})
		}

		sortMessages(conv.Messages)
		output.Conversations = append(output.Conversations, conv)
	}
	return output, nil
}

// orderedNodes returns message-bearing nodes in thread order: a first-child
// walk from the root, then any unreachable message nodes sorted by timestamp.
func orderedNodes(conv chatgptConversation) []chatgptNode {
	var root string
	for id, node := range conv.Mapping {
		if node.Parent == nil || *node.Parent == "" {
			root = id
			break
		}
	}

	visited := make(map[string]bool)
	var ordered []chatgptNode

	current := root
	for current != "" && !visited[current] {
		node, ok := conv.Mapping[current]
		if !ok {
			break
		}
		visited[current] = true
		if node.Message != nil {
			ordered = append(ordered, node)
		}
		if len(node.Children) == 0 {
			break
		}
		current = node.Children[0]
	}

	var orphans []chatgptNode
	for id, node := range conv.Mapping {
		if !visited[id] && node.Message != nil {
			orphans = append(orphans, node)
		}
	}
	sort.Slice(orphans, func(i, j int) bool {
		return orphans[i].Message.CreateTime.Before(orphans[j].Message.CreateTime.Time)
	})
	return append(ordered, orphans...)
}

func joinParts(parts []json.RawMessage) string {
	var texts []string
	for _, raw := range parts {
		var s string
		// Non-string parts (image pointers, tool payloads) are skipped; they
		// carry no transcript text.
		if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
			texts = append(texts, s)
		}
	}
	return strings.Join(texts, "\n")
}

func chatgptConversationID(conv chatgptConversation, index int) string {
	switch {
	case conv.ConversationID != "":
		return "chatgpt:" + conv.ConversationID
	case conv.ID != "":
		return "chatgpt:" + conv.ID
	}
	return fmt.Sprintf("chatgpt:%d", index)
}
