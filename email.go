package mailbox

import (
	"fmt"
	"strings"

	humanize "github.com/dustin/go-humanize"
	"github.com/jhillyerd/enmime/v2"
)

// Email is a fetched message, normalized. Header fields hold the raw header
// values; they are neither address-parsed nor RFC 2047 decoded.
type Email struct {
	UID       string
	Folder    string
	Recipient string
	Sender    string
	Subject   string
	Date      string

	// Body is the first text/plain part. HasBody is false, and Body empty,
	// when the message has no such part.
	Body    string
	HasBody bool

	Attachments []EmailAttachment

	// Message is the parsed MIME tree for anything not covered above.
	Message *enmime.Part
}

// EmailAttachment is a decoded attachment. Name is empty when the part
// carried no filename or it could not be decoded.
type EmailAttachment struct {
	Name string
	Blob []byte
}

// AttachmentsCount returns the number of attachments.
func (e Email) AttachmentsCount() int {
	return len(e.Attachments)
}

// String returns a short human readable summary of an Email
func (e Email) String() string {
	email := strings.Builder{}

	email.WriteString(fmt.Sprintf("UID: %s\n", e.UID))
	email.WriteString(fmt.Sprintf("Subject: %s\n", e.Subject))

	if e.Sender != "" {
		email.WriteString(fmt.Sprintf("From: %s\n", e.Sender))
	}
	if e.Recipient != "" {
		email.WriteString(fmt.Sprintf("To: %s\n", e.Recipient))
	}
	if e.Date != "" {
		email.WriteString(fmt.Sprintf("Date: %s\n", e.Date))
	}
	if e.HasBody {
		if body := []rune(e.Body); len(body) > 20 {
			email.WriteString(fmt.Sprintf("Body: %s...", string(body[:20])))
		} else {
			email.WriteString(fmt.Sprintf("Body: %s", e.Body))
		}
		email.WriteString(fmt.Sprintf(" (%s)\n", humanize.Bytes(uint64(len(e.Body)))))
	}

	if len(e.Attachments) != 0 {
		email.WriteString(fmt.Sprintf("%d Attachment(s): %s\n", len(e.Attachments), e.Attachments))
	}

	return email.String()
}

// String returns the attachment name and its humanized size
func (a EmailAttachment) String() string {
	return fmt.Sprintf("%s (%s)", a.Name, humanize.Bytes(uint64(len(a.Blob))))
}
