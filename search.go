package mailbox

import (
	"fmt"
	"strings"
	"time"
)

// DateFormat is the IMAP date layout used by the SENT* search keys.
const DateFormat = "2-Jan-2006"

// SeenFilter restricts a search by the \Seen flag.
type SeenFilter int8

const (
	SeenAny    SeenFilter = iota // no restriction
	SeenUnseen                   // UNSEEN
	SeenOnly                     // SEEN
)

// SearchCriteria is a structured UID SEARCH query. Every field is optional;
// the zero value matches everything in the folder.
type SearchCriteria struct {
	Seen       SeenFilter
	From       string
	To         string
	Subject    string
	Body       string
	SentOn     time.Time
	SentSince  time.Time
	SentBefore time.Time
	// RawQuery is handed to the dialect's raw query key (Gmail X-GM-RAW),
	// for example "has:attachment in:unread". Dialects without one ignore it.
	RawQuery string
	// Folder is the mailbox to search. Empty means the session's folder.
	Folder string
}

// Compile turns the criteria into search keys, in a fixed order: seen flag,
// FROM, TO, SUBJECT, BODY, SENTON, SENTSINCE, SENTBEFORE, raw query. String
// values are quoted. Folder is not part of the result.
func (c SearchCriteria) Compile(d Dialect) []string {
	keys := make([]string, 0, 16)

	switch c.Seen {
	case SeenUnseen:
		keys = append(keys, "UNSEEN")
	case SeenOnly:
		keys = append(keys, "SEEN")
	}

	if c.From != "" {
		keys = append(keys, "FROM", Quote(c.From))
	}
	if c.To != "" && d.Recipient {
		keys = append(keys, "TO", Quote(c.To))
	}
	if c.Subject != "" {
		keys = append(keys, "SUBJECT", Quote(c.Subject))
	}
	if c.Body != "" {
		keys = append(keys, "BODY", Quote(c.Body))
	}
	if !c.SentOn.IsZero() {
		keys = append(keys, "SENTON", c.SentOn.Format(DateFormat))
	}
	if !c.SentSince.IsZero() {
		keys = append(keys, "SENTSINCE", c.SentSince.Format(DateFormat))
	}
	if !c.SentBefore.IsZero() {
		keys = append(keys, "SENTBEFORE", c.SentBefore.Format(DateFormat))
	}
	if c.RawQuery != "" && d.SupportsRawQuery() {
		keys = append(keys, d.RawQueryKey, Quote(c.RawQuery))
	}

	return keys
}

func (c SearchCriteria) folder(fallback string) string {
	if c.Folder != "" {
		return c.Folder
	}
	return fallback
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Quote returns s as an IMAP command argument. 7-bit text becomes a quoted
// string. Anything a quoted string cannot carry (CR, LF, NUL or 8-bit
// bytes) is sent as a synchronizing literal instead.
func Quote(s string) string {
	if needsLiteral(s) {
		return Literal(s)
	}
	return `"` + quoteEscaper.Replace(s) + `"`
}

// Literal returns s in IMAP literal syntax: {bytecount}\r\n followed by s.
// Exec sends the bytes once the server asks for them.
func Literal(s string) string {
	return fmt.Sprintf("{%d}\r\n%s", len(s), s)
}

func needsLiteral(s string) bool {
	for i := 0; i < len(s); i++ {
		switch b := s[i]; {
		case b == '\r', b == '\n', b == 0, b >= 0x80:
			return true
		}
	}
	return false
}

// hasEightBit reports whether any key carries non-ASCII data.
func hasEightBit(keys []string) bool {
	for _, k := range keys {
		for i := 0; i < len(k); i++ {
			if k[i] >= 0x80 {
				return true
			}
		}
	}
	return false
}
