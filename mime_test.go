package mailbox

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"
)

var plainMessage = strings.Join([]string{
	"From: Alice <alice@example.com>",
	"To: bob@example.com",
	"Subject: Quarterly report",
	"Date: Mon, 02 Jan 2006 15:04:05 -0700",
	"Content-Type: text/plain; charset=utf-8",
	"",
	"Numbers are up.",
	"",
}, "\r\n")

var multipartMessage = strings.Join([]string{
	"From: Alice <alice@example.com>",
	"To: bob@example.com",
	"Subject: =?UTF-8?Q?Files_attached?=",
	"Date: Tue, 05 Mar 2024 09:30:00 +0000",
	"MIME-Version: 1.0",
	`Content-Type: multipart/mixed; boundary="outer"`,
	"",
	"--outer",
	`Content-Type: multipart/alternative; boundary="inner"`,
	"",
	"--inner",
	"Content-Type: text/plain; charset=utf-8",
	"",
	"Plain body",
	"--inner",
	"Content-Type: text/html; charset=utf-8",
	"",
	"<p>HTML body</p>",
	"--inner--",
	"",
	"--outer",
	`Content-Type: text/plain; name="notes.txt"`,
	`Content-Disposition: attachment; filename="notes.txt"`,
	"Content-Transfer-Encoding: base64",
	"",
	"aGVsbG8gYXR0YWNobWVudA==",
	"--outer",
	"Content-Type: application/pdf",
	`Content-Disposition: attachment; filename="=?UTF-8?B?cmVwb3J0LnBkZg==?="`,
	"Content-Transfer-Encoding: base64",
	"",
	"JVBERi0xLjQgZmFrZQ==",
	"--outer--",
	"",
}, "\r\n")

var htmlOnlyMessage = strings.Join([]string{
	"From: alice@example.com",
	"Subject: Newsletter",
	"Content-Type: text/html; charset=utf-8",
	"",
	"<p>Hello</p>",
	"",
}, "\r\n")

func TestDecodeFilename(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", ""},
		{"plain name", "report.pdf", "report.pdf"},
		{"utf-8 base64", "=?UTF-8?B?cmVwb3J0LnBkZg==?=", "report.pdf"},
		{"q encoding underscores", "=?UTF-8?Q?hello_world.txt?=", "hello world.txt"},
		{"mixed charsets joined", "=?ISO-8859-1?Q?caf=E9?= =?UTF-8?B?MjAyNC5wZGY=?=", "café2024.pdf"},
		{"folded words", "=?UTF-8?Q?a?=\r\n =?UTF-8?Q?b.txt?=", "ab.txt"},
		{"shift_jis", "=?Shift_JIS?B?g2WDWINn?=", "テスト"},
		{"language suffix", "=?utf-8*en?Q?a.txt?=", "a.txt"},
		{"missing charset", "=??Q?plain.txt?=", "plain.txt"},
		{"text around word", "prefix =?UTF-8?Q?a?= suffix", "prefix a suffix"},
		{"bad base64", "=?UTF-8?B?!!!?=", ""},
		{"unknown charset", "=?x-no-such-charset?Q?abc?=", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeFilename(tt.raw); got != tt.want {
				t.Errorf("DecodeFilename(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestExtractBody(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{"single part", plainMessage, "Numbers are up.", true},
		{"first plain part of alternative", multipartMessage, "Plain body", true},
		{"html only", htmlOnlyMessage, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := ParseMessage([]byte(tt.raw))
			if err != nil {
				t.Fatalf("ParseMessage: %v", err)
			}
			got, ok := ExtractBody(root)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if strings.TrimSpace(got) != tt.want {
				t.Errorf("body = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractAttachments(t *testing.T) {
	root, err := ParseRawMessage([]byte(multipartMessage))
	if err != nil {
		t.Fatalf("ParseRawMessage: %v", err)
	}

	got := ExtractAttachments(root)
	if len(got) != 2 {
		t.Fatalf("got %d attachments, want 2: %v", len(got), got)
	}
	want := []struct{ name, blob string }{
		{"notes.txt", "hello attachment"},
		{"report.pdf", "%PDF-1.4 fake"},
	}
	for i, w := range want {
		if got[i].Name != w.name {
			t.Errorf("attachment %d name = %q, want %q", i, got[i].Name, w.name)
		}
		if string(got[i].Blob) != w.blob {
			t.Errorf("attachment %d blob = %q, want %q", i, got[i].Blob, w.blob)
		}
	}
}

func TestExtractAttachmentsNone(t *testing.T) {
	root, err := ParseRawMessage([]byte(plainMessage))
	if err != nil {
		t.Fatalf("ParseRawMessage: %v", err)
	}
	if got := ExtractAttachments(root); len(got) != 0 {
		t.Errorf("expected no attachments, got %v", got)
	}
}

var latin1Message = strings.Join([]string{
	"From: alice@example.com",
	"Subject: Export",
	"MIME-Version: 1.0",
	`Content-Type: multipart/mixed; boundary="b"`,
	"",
	"--b",
	"Content-Type: text/plain; charset=iso-8859-1",
	"Content-Transfer-Encoding: quoted-printable",
	"",
	"Voil=E0 le fichier",
	"--b",
	`Content-Type: text/csv; charset=iso-8859-1; name="prices.csv"`,
	`Content-Disposition: attachment; filename="prices.csv"`,
	"Content-Transfer-Encoding: base64",
	"",
	"Y2Fm6Q==",
	"--b",
	"Content-Type: text/plain; charset=iso-8859-1",
	`Content-Disposition: attachment; filename="menu.txt"`,
	"Content-Transfer-Encoding: quoted-printable",
	"",
	"cr=E8me br=FBl=E9e",
	"--b--",
	"",
}, "\r\n")

// Text attachments keep their bytes; only the body is converted to UTF-8.
func TestDecodeEmailKeepsAttachmentCharset(t *testing.T) {
	e, err := DecodeEmail("9", []byte(latin1Message))
	if err != nil {
		t.Fatalf("DecodeEmail: %v", err)
	}

	if !e.HasBody || strings.TrimSpace(e.Body) != "Voilà le fichier" {
		t.Errorf("Body = %q", e.Body)
	}

	want := []EmailAttachment{
		{Name: "prices.csv", Blob: []byte("caf\xe9")},
		{Name: "menu.txt", Blob: []byte("cr\xe8me br\xfbl\xe9e")},
	}
	if len(e.Attachments) != len(want) {
		t.Fatalf("got %d attachments, want %d", len(e.Attachments), len(want))
	}
	for i, w := range want {
		got := e.Attachments[i]
		if got.Name != w.Name {
			t.Errorf("attachment %d name = %q, want %q", i, got.Name, w.Name)
		}
		if !bytes.Equal(bytes.TrimRight(got.Blob, "\r\n"), w.Blob) {
			t.Errorf("attachment %d blob = %q, want %q", i, got.Blob, w.Blob)
		}
	}
}

func TestTransferDecodeMalformedBase64(t *testing.T) {
	root, err := ParseRawMessage([]byte(strings.Join([]string{
		"Content-Type: application/octet-stream",
		`Content-Disposition: attachment; filename="x.bin"`,
		"Content-Transfer-Encoding: base64",
		"",
		"not*base64",
		"",
	}, "\r\n")))
	if err != nil {
		t.Fatalf("ParseRawMessage: %v", err)
	}
	got := ExtractAttachments(root)
	if len(got) != 1 || !strings.HasPrefix(string(got[0].Blob), "not*base64") {
		t.Errorf("got %q, want content as transmitted", got)
	}
}

func TestDecodeEmail(t *testing.T) {
	e, err := DecodeEmail("42", []byte(multipartMessage))
	if err != nil {
		t.Fatalf("DecodeEmail: %v", err)
	}

	if e.UID != "42" {
		t.Errorf("UID = %q", e.UID)
	}
	if e.Sender != "Alice <alice@example.com>" {
		t.Errorf("Sender = %q", e.Sender)
	}
	if e.Recipient != "bob@example.com" {
		t.Errorf("Recipient = %q", e.Recipient)
	}
	// Headers are kept as sent.
	if e.Subject != "=?UTF-8?Q?Files_attached?=" {
		t.Errorf("Subject = %q", e.Subject)
	}
	if e.Date != "Tue, 05 Mar 2024 09:30:00 +0000" {
		t.Errorf("Date = %q", e.Date)
	}
	if !e.HasBody || strings.TrimSpace(e.Body) != "Plain body" {
		t.Errorf("Body = %q, HasBody = %v", e.Body, e.HasBody)
	}
	if e.AttachmentsCount() != 2 {
		t.Errorf("AttachmentsCount = %d", e.AttachmentsCount())
	}
	if e.Message == nil {
		t.Error("Message tree not kept")
	}
}

func TestEmailString(t *testing.T) {
	e := Email{
		UID:         "7",
		Subject:     "Quarterly report",
		Sender:      "alice@example.com",
		Body:        "Numbers are up and to the right.",
		HasBody:     true,
		Attachments: []EmailAttachment{{Name: "notes.txt", Blob: []byte("hello attachment")}},
	}

	s := e.String()
	for _, want := range []string{
		"UID: 7\n",
		"Subject: Quarterly report\n",
		"From: alice@example.com\n",
		"Body: Numbers are up and t...",
		"1 Attachment(s): [notes.txt (16 B)]",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("String() missing %q:\n%s", want, s)
		}
	}
	if strings.Contains(s, "To:") {
		t.Errorf("String() printed an empty recipient:\n%s", s)
	}
}

func TestEmailStringMultibyteBody(t *testing.T) {
	e := Email{UID: "7", Body: strings.Repeat("é", 25), HasBody: true}

	s := e.String()
	if !utf8.ValidString(s) {
		t.Errorf("String() is not valid UTF-8: %q", s)
	}
	if want := "Body: " + strings.Repeat("é", 20) + "..."; !strings.Contains(s, want) {
		t.Errorf("String() missing %q:\n%s", want, s)
	}
}
