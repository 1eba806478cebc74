package importers

import (
	"fmt"
	"strings"
	"time"
)

// EventDraft is an in-memory candidate Event produced by day grouping. The
// orchestrator resolves Senders into PersonIDs during commit.
type EventDraft struct {
	Title     string
	Date      time.Time
	Body      string
	Senders   []ParticipantRef
	PersonIDs []uint
}

// Day bucketing uses UTC as the fixed reference timezone. Per-message local
// time would make bucketing depend on where each message was sent, so two
// runs over the same data could disagree.
const dayLayout = "2006-01-02"

// SynthesizeEvents buckets a conversation's messages by calendar day and
// produces one draft per non-empty bucket. With groupByDay false the whole
// conversation is a single draft. Messages keep their normalized order; a
// draft's date is midnight UTC of its bucket day.
func SynthesizeEvents(conv Conversation, groupByDay bool) []EventDraft {
	if len(conv.Messages) == 0 {
		return nil
	}

	if !groupByDay {
		first := conv.Messages[0].Timestamp
		return []EventDraft{{
			Title:   conv.Title,
			Date:    dayStart(first),
			Body:    renderLines(conv.Messages),
			Senders: uniqueSenders(conv.Messages),
		}}
	}

	var drafts []EventDraft
	var bucket []Message
	currentDay := ""

	flush := func() {
		if len(bucket) == 0 {
			return
		}
		day := dayStart(bucket[0].Timestamp)
		drafts = append(drafts, EventDraft{
			Title:   fmt.Sprintf("%s - %s", conv.Title, day.Format("Jan 2, 2006")),
			Date:    day,
			Body:    renderLines(bucket),
			Senders: uniqueSenders(bucket),
		})
		bucket = nil
	}

	// Messages are already in timestamp order, so buckets are contiguous.
	for _, msg := range conv.Messages {
		day := msg.Timestamp.UTC().Format(dayLayout)
		if day != currentDay {
			flush()
			currentDay = day
		}
		bucket = append(bucket, msg)
	}
	flush()

	return drafts
}

// RenderTranscript renders the full conversation as the searchable artifact
// body, header included.
func RenderTranscript(conv Conversation) string {
	var b strings.Builder
	b.WriteString(conv.Title)
	b.WriteString("\n")
	if first, last := conv.DateRange(); !first.IsZero() {
		b.WriteString(first.Format(dayLayout))
		b.WriteString(" to ")
		b.WriteString(last.Format(dayLayout))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(renderLines(conv.Messages))
	return b.String()
}

// renderLines formats messages one per line, media and reactions included so
// transcripts stay faithful to the source thread.
func renderLines(messages []Message) string {
	var b strings.Builder
	for _, msg := range messages {
		b.WriteString("[")
		b.WriteString(msg.Timestamp.UTC().Format("2006-01-02 15:04"))
		b.WriteString("] ")
		b.WriteString(participantLabel(msg.Sender))
		b.WriteString(":")
		if msg.Text != "" {
			b.WriteString(" ")
			b.WriteString(msg.Text)
		}
		for _, media := range msg.Media {
			b.WriteString(" [")
			b.WriteString(string(media.Type))
			b.WriteString(": ")
			b.WriteString(media.URI)
			b.WriteString("]")
		}
		for _, reaction := range msg.Reactions {
			b.WriteString(" (")
			b.WriteString(reaction.Symbol)
			b.WriteString(" ")
			b.WriteString(reaction.Actor)
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func dayStart(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

// uniqueSenders returns each distinct sender in first-appearance order.
func uniqueSenders(messages []Message) []ParticipantRef {
	seen := make(map[string]bool)
	var senders []ParticipantRef
	for _, msg := range messages {
		key := IdentityKeyFor(msg.Sender)
		if msg.Sender.IsSelf {
			key = "self"
		}
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		senders = append(senders, msg.Sender)
	}
	return senders
}
