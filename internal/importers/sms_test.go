package importers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smsFixture(body string) RawExportFile {
	return RawExportFile{
		Filename: "sms-20200101.xml",
		Origin:   "upload",
		Data:     []byte(body),
	}
}

func TestSMSBackupParser_Parse(t *testing.T) {
	parser := &SMSBackupParser{}

	body := `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<smses count="3">
  <sms address="+1 (555) 123-4567" date="1577836800000" type="1" body="happy new year!" contact_name="Alice Smith" />
  <sms address="5551234567" date="1577836860000" type="2" body="you too!" contact_name="Alice Smith" />
  <sms address="+15559876543" date="1577836900000" type="1" body="party tonight?" contact_name="(Unknown)" />
</smses>`

	output, err := parser.Parse(smsFixture(body))
	require.NoError(t, err)

	// Differently formatted numbers for the same line share one thread.
	require.Len(t, output.Conversations, 2)

	alice := output.Conversations[0]
	assert.Equal(t, "sms:5551234567", alice.ID)
	assert.Equal(t, "Alice Smith", alice.Title)
	require.Len(t, alice.Messages, 2)

	first := alice.Messages[0]
	assert.Equal(t, "happy new year!", first.Text)
	assert.Equal(t, "Alice Smith", first.Sender.DisplayName)
	assert.False(t, first.Sender.IsSelf)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), first.Timestamp)

	second := alice.Messages[1]
	assert.True(t, second.Sender.IsSelf, "type=2 is a sent message")
	assert.Equal(t, "Me", second.Sender.DisplayName)

	// "(Unknown)" contact names are dropped, the number titles the thread.
	unknown := output.Conversations[1]
	assert.Equal(t, "+15559876543", unknown.Title)
	assert.Empty(t, unknown.Participants[0].DisplayName)
	assert.Equal(t, "+15559876543", unknown.Participants[0].PhoneNumber)
}

func TestSMSBackupParser_MMS(t *testing.T) {
	parser := &SMSBackupParser{}

	body := `<smses count="1">
  <mms address="+15551234567" date="1577836800000" msg_box="1" contact_name="Alice">
    <parts>
      <part ct="application/smil" text="&lt;smil&gt;" />
      <part ct="text/plain" text="look at this" />
      <part ct="image/jpeg" name="photo.jpg" />
    </parts>
  </mms>
</smses>`

	output, err := parser.Parse(smsFixture(body))
	require.NoError(t, err)
	require.Len(t, output.Conversations, 1)

	msg := output.Conversations[0].Messages[0]
	assert.Equal(t, "look at this", msg.Text)
	require.Len(t, msg.Media, 1, "smil layout parts are skipped")
	assert.Equal(t, MediaPhoto, msg.Media[0].Type)
	assert.Equal(t, "photo.jpg", msg.Media[0].URI)
}

func TestSMSBackupParser_Malformed(t *testing.T) {
	parser := &SMSBackupParser{}

	tests := []struct {
		name string
		body string
	}{
		{name: "not XML", body: `{"messages": []}`},
		{name: "no messages", body: `<smses count="0"></smses>`},
		{name: "bad date", body: `<smses count="1"><sms address="1" date="not-a-date" type="1" body="x" /></smses>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse(smsFixture(tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedInput)
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"+1 (555) 123-4567", "5551234567"},
		{"5551234567", "5551234567"},
		{"+44 20 7946 0958", "2079460958"},
		{"555-1234", "5551234"},
		{"no digits", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizePhone(tt.input), "input %q", tt.input)
	}
}
