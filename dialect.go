package mailbox

import (
	"fmt"
	"strings"
)

// Dialect describes how a provider wants UID SEARCH issued. It is a plain
// value; pick one of the predefined dialects or build your own.
type Dialect struct {
	// Name identifies the dialect in logs and configuration.
	Name string
	// Host is the provider's IMAP server, used when Open gets no host.
	Host string
	// Recipient enables the TO search key.
	Recipient bool
	// RawQueryKey is the search key carrying SearchCriteria.RawQuery, such
	// as X-GM-RAW. Empty means raw queries are not supported and ignored.
	RawQueryKey string
	// Charset, when set, is sent as "CHARSET <Charset>" ahead of the
	// search keys.
	Charset string
}

var (
	// Baseline is plain RFC 3501 searching: no raw query, no CHARSET.
	Baseline = Dialect{Name: "baseline", Recipient: true}

	// Outlook searches like Baseline against Microsoft 365.
	Outlook = Dialect{Name: "outlook", Host: "outlook.office365.com", Recipient: true}

	// Gmail adds the X-GM-RAW extension and requires CHARSET UTF-8.
	// https://developers.google.com/gmail/imap/imap-extensions#extension_of_the_search_command_x-gm-raw
	Gmail = Dialect{Name: "gmail", Host: "imap.gmail.com", Recipient: true, RawQueryKey: "X-GM-RAW", Charset: "UTF-8"}
)

// SupportsRawQuery reports whether SearchCriteria.RawQuery is compiled.
func (d Dialect) SupportsRawQuery() bool { return d.RawQueryKey != "" }

// SearchArgs returns the full argument list for UID SEARCH: the CHARSET
// preamble, if any, followed by the compiled criteria. Criteria that
// compile to nothing search ALL, as UID SEARCH needs at least one key.
// Dialects without a charset still announce UTF-8 when a value is non-ASCII.
func (d Dialect) SearchArgs(c SearchCriteria) []string {
	return d.searchArgs(c.Compile(d))
}

func (d Dialect) searchArgs(keys []string) []string {
	if len(keys) == 0 {
		keys = []string{"ALL"}
	}
	charset := d.Charset
	if charset == "" && hasEightBit(keys) {
		charset = "UTF-8"
	}
	if charset == "" {
		return keys
	}
	return append([]string{"CHARSET", charset}, keys...)
}

// DialectByName resolves a configured provider name.
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "imap", "baseline":
		return Baseline, nil
	case "gmail", "google":
		return Gmail, nil
	case "outlook", "office365", "microsoft":
		return Outlook, nil
	}
	return Dialect{}, fmt.Errorf("mailbox: unknown provider %q", name)
}
