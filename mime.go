package mailbox

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/quotedprintable"
	"regexp"
	"strings"

	"github.com/jhillyerd/enmime/v2"
	"golang.org/x/net/html/charset"
)

// encodedWord matches one RFC 2047 encoded word: =?charset?encoding?text?=
var encodedWord = regexp.MustCompile(`=\?([^?\s]*)\?([bBqQ])\?([^?\s]*)\?=`)

// wordDecoder handles UTF-8, US-ASCII and ISO-8859-1 itself and falls back
// to the WHATWG encoding labels for everything else.
var wordDecoder = &mime.WordDecoder{CharsetReader: charset.NewReaderLabel}

// ParseMessage parses a raw RFC 822 message into its MIME part tree.
func ParseMessage(raw []byte) (*enmime.Part, error) {
	root, err := enmime.ReadParts(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("mailbox: parse message: %w", err)
	}
	return root, nil
}

// rawParser leaves part content as transmitted: no transfer decoding and
// no charset conversion.
var rawParser = enmime.NewParser(enmime.RawContent(true))

// ParseRawMessage parses raw like ParseMessage but keeps each part's
// content exactly as it appears in the message.
func ParseRawMessage(raw []byte) (*enmime.Part, error) {
	root, err := rawParser.ReadParts(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("mailbox: parse message: %w", err)
	}
	return root, nil
}

// walkParts visits root and its descendants depth-first in document order.
func walkParts(root *enmime.Part, visit func(p *enmime.Part)) {
	if root == nil {
		return
	}
	visit(root)
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		walkParts(c, visit)
	}
}

func isMultipart(p *enmime.Part) bool {
	return strings.HasPrefix(strings.ToLower(p.ContentType), "multipart/")
}

// isPlainText treats a leaf without a Content-Type as text/plain (RFC 2045).
func isPlainText(p *enmime.Part) bool {
	ct := strings.ToLower(p.ContentType)
	if ct == "" {
		return p.FirstChild == nil
	}
	return ct == "text/plain"
}

// ExtractBody returns the content of the first text/plain part. Later
// text/plain parts are ignored. ok is false when there is none.
func ExtractBody(root *enmime.Part) (body string, ok bool) {
	walkParts(root, func(p *enmime.Part) {
		if ok || !isPlainText(p) {
			return
		}
		body, ok = string(p.Content), true
	})
	return body, ok
}

// ExtractAttachments returns every non-multipart part that has a
// Content-Disposition header, in document order. Parts without a
// disposition are body parts, not attachments.
//
// root must come from ParseRawMessage. Blob is the part content with its
// Content-Transfer-Encoding undone and nothing else, so text attachments
// keep their original charset.
func ExtractAttachments(root *enmime.Part) []EmailAttachment {
	var attachments []EmailAttachment
	walkParts(root, func(p *enmime.Part) {
		if isMultipart(p) {
			return
		}
		if len(p.Header.Values("Content-Disposition")) == 0 {
			return
		}
		attachments = append(attachments, EmailAttachment{
			Name: DecodeFilename(rawFilename(p)),
			Blob: transferDecode(p),
		})
	})
	return attachments
}

// transferDecode undoes the Content-Transfer-Encoding of a part parsed by
// rawParser. Content that does not decode is returned as transmitted.
func transferDecode(p *enmime.Part) []byte {
	switch strings.ToLower(strings.TrimSpace(p.Header.Get("Content-Transfer-Encoding"))) {
	case "base64":
		clean := bytes.TrimRight(bytes.Join(bytes.Fields(p.Content), nil), "=")
		b := make([]byte, base64.RawStdEncoding.DecodedLen(len(clean)))
		n, err := base64.RawStdEncoding.Decode(b, clean)
		if err != nil {
			return p.Content
		}
		return b[:n]
	case "quoted-printable":
		b, err := io.ReadAll(quotedprintable.NewReader(bytes.NewReader(p.Content)))
		if err != nil {
			return p.Content
		}
		return b
	}
	return p.Content
}

// rawFilename returns the undecoded filename parameter of a part: the
// Content-Disposition filename, then the Content-Type name, then enmime's
// own filename.
func rawFilename(p *enmime.Part) string {
	for _, h := range []struct{ header, param string }{
		{"Content-Disposition", "filename"},
		{"Content-Type", "name"},
	} {
		v := p.Header.Get(h.header)
		if v == "" {
			continue
		}
		_, params, err := mime.ParseMediaType(v)
		if err != nil {
			continue
		}
		if name := params[h.param]; name != "" {
			return name
		}
	}
	return p.FileName
}

// DecodeFilename decodes a header value made of RFC 2047 encoded words.
// Each word is decoded with its own charset (UTF-8 when it names none) and
// the results are joined with nothing in between: whitespace separating two
// encoded words is not part of the value. Text outside encoded words is kept
// as is. An empty input, or any word that cannot be decoded, yields "".
func DecodeFilename(raw string) string {
	if raw == "" {
		return ""
	}

	matches := encodedWord.FindAllStringSubmatchIndex(raw, -1)
	if matches == nil {
		return raw
	}

	var b strings.Builder
	last := 0
	for i, m := range matches {
		between := raw[last:m[0]]
		if i == 0 || strings.TrimSpace(between) != "" {
			b.WriteString(between)
		}

		cs := raw[m[2]:m[3]]
		// RFC 2231 section 5 allows a language suffix: utf-8*en
		if star := strings.IndexByte(cs, '*'); star != -1 {
			cs = cs[:star]
		}
		if cs == "" {
			cs = "utf-8"
		}

		word := "=?" + cs + "?" + raw[m[4]:m[5]] + "?" + raw[m[6]:m[7]] + "?="
		decoded, err := wordDecoder.Decode(word)
		if err != nil {
			return ""
		}
		b.WriteString(decoded)
		last = m[1]
	}
	b.WriteString(raw[last:])

	return b.String()
}

// DecodeEmail parses raw and builds the Email for uid.
func DecodeEmail(uid string, raw []byte) (*Email, error) {
	root, err := ParseMessage(raw)
	if err != nil {
		return nil, err
	}

	body, hasBody := ExtractBody(root)

	rawRoot, err := ParseRawMessage(raw)
	if err != nil {
		return nil, err
	}

	return &Email{
		UID:         uid,
		Recipient:   root.Header.Get("To"),
		Sender:      root.Header.Get("From"),
		Subject:     root.Header.Get("Subject"),
		Date:        root.Header.Get("Date"),
		Body:        body,
		HasBody:     hasBody,
		Attachments: ExtractAttachments(rawRoot),
		Message:     root,
	}, nil
}
