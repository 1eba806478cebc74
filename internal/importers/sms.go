package importers

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Wire structs for the SMS Backup & Restore XML format. Every value is an
// XML attribute; dates are epoch-millis encoded as strings.
type smsBackup struct {
	XMLName xml.Name   `xml:"smses"`
	Count   string     `xml:"count,attr"`
	SMS     []smsEntry `xml:"sms"`
	MMS     []mmsEntry `xml:"mms"`
}

type smsEntry struct {
	Address     string `xml:"address,attr"`
	Date        string `xml:"date,attr"`
	Type        int    `xml:"type,attr"` // 1 = received, 2 = sent
	Body        string `xml:"body,attr"`
	ContactName string `xml:"contact_name,attr"`
}

type mmsEntry struct {
	Address     string    `xml:"address,attr"`
	Date        string    `xml:"date,attr"`
	MsgBox      int       `xml:"msg_box,attr"` // 1 = received, 2 = sent
	ContactName string    `xml:"contact_name,attr"`
	Parts       []mmsPart `xml:"parts>part"`
}

type mmsPart struct {
	ContentType string `xml:"ct,attr"`
	Name        string `xml:"name,attr"`
	Text        string `xml:"text,attr"`
}

const unknownContact = "(Unknown)"

// SMSBackupParser parses Android SMS Backup & Restore XML exports into one
// conversation per phone-number thread.
type SMSBackupParser struct{}

var _ Parser = (*SMSBackupParser)(nil)

func (p *SMSBackupParser) Format() SourceFormat {
	return FormatSMSBackup
}

func (p *SMSBackupParser) Parse(file RawExportFile) (*ParseOutput, error) {
	var backup smsBackup
	if err := xml.Unmarshal(file.Data, &backup); err != nil {
		return nil, fmt.Errorf("%w: invalid SMS backup XML: %v", ErrMalformedInput, err)
	}
	if len(backup.SMS) == 0 && len(backup.MMS) == 0 {
		return nil, fmt.Errorf("%w: backup contains no messages", ErrMalformedInput)
	}

	threads := make(map[string]*Conversation)
	order := []string{}

	thread := func(address, contactName string) *Conversation {
		key := NormalizePhone(address)
		if key == "" {
			key = strings.TrimSpace(address)
		}
		conv, ok := threads[key]
		if !ok {
			conv = &Conversation{
				ID:    "sms:" + key,
				Title: threadTitle(address, contactName),
				Participants: []ParticipantRef{
					{DisplayName: contactDisplayName(contactName), PhoneNumber: address},
					{DisplayName: "Me", IsSelf: true},
				},
			}
			threads[key] = conv
			order = append(order, key)
		}
		return conv
	}

	for _, entry := range backup.SMS {
		ts, err := epochMillisString(entry.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: bad sms date %q: %v", ErrMalformedInput, entry.Date, err)
		}
		conv := thread(entry.Address, entry.ContactName)
		conv.Messages = append(conv.Messages, Message{
			Sender:    smsSender(entry.Type == 2, entry.Address, entry.ContactName),
			Timestamp: ts,
			Text:      entry.Body,
		})
	}

	for _, entry := range backup.MMS {
		ts, err := epochMillisString(entry.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: bad mms date %q: %v", ErrMalformedInput, entry.Date, err)
		}
		msg := Message{
			Sender:    smsSender(entry.MsgBox == 2, entry.Address, entry.ContactName),
			Timestamp: ts,
		}
		for _, part := range entry.Parts {
			switch {
			case part.ContentType == "text/plain":
				if msg.Text != "" {
					msg.Text += "\n"
				}
				msg.Text += part.Text
			case part.ContentType == "application/smil":
				// Layout metadata, not content.
			default:
				msg.Media = append(msg.Media, MediaRef{
					Type: mediaTypeForContentType(part.ContentType),
					URI:  part.Name,
				})
			}
		}
		conv := thread(entry.Address, entry.ContactName)
		conv.Messages = append(conv.Messages, msg)
	}

	output := &ParseOutput{Format: FormatSMSBackup}
	for _, key := range order {
		conv := threads[key]
		sortMessages(conv.Messages)
		output.Conversations = append(output.Conversations, *conv)
	}
	return output, nil
}

func smsSender(sent bool, address, contactName string) ParticipantRef {
	if sent {
		return ParticipantRef{DisplayName: "Me", IsSelf: true}
	}
	return ParticipantRef{
		DisplayName: contactDisplayName(contactName),
		PhoneNumber: address,
	}
}

func contactDisplayName(contactName string) string {
	name := strings.TrimSpace(contactName)
	if name == "" || name == unknownContact {
		return ""
	}
	return name
}

func threadTitle(address, contactName string) string {
	if name := contactDisplayName(contactName); name != "" {
		return name
	}
	return strings.TrimSpace(address)
}

func mediaTypeForContentType(contentType string) MediaType {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return MediaPhoto
	case strings.HasPrefix(contentType, "video/"):
		return MediaVideo
	case strings.HasPrefix(contentType, "audio/"):
		return MediaAudio
	}
	return MediaFile
}

// epochMillisString converts the backup's stringified epoch-millis attribute
// to a UTC instant.
func epochMillisString(s string) (time.Time, error) {
	millis, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(millis).UTC(), nil
}

// NormalizePhone reduces a phone number to its digits, keeping only the last
// 10 significant digits so that "+1 (555) 123-4567" and "5551234567" collapse
// to the same key regardless of country-code formatting.
func NormalizePhone(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	s := digits.String()
	if len(s) > 10 {
		s = s[len(s)-10:]
	}
	return s
}
