package mailbox

import (
	"fmt"
	"strconv"
	"strings"
)

// Token represents a parsed IMAP response token
type Token struct {
	Type   TType
	Str    string
	Num    int
	Tokens []*Token
}

// TType represents the type of an IMAP token
type TType uint8

const (
	TUnset   TType = iota
	TAtom          // bare word, such as UID or BODY[]
	TNumber        // atom made of digits
	TQuoted        // "quoted string"
	TLiteral       // {n} followed by n bytes
	TNil           // NIL
	TList          // parenthesized list
)

// GetTokenName returns the string name of a token type
func GetTokenName(tokenType TType) string {
	switch tokenType {
	case TUnset:
		return "TUnset"
	case TAtom:
		return "TAtom"
	case TNumber:
		return "TNumber"
	case TQuoted:
		return "TQuoted"
	case TLiteral:
		return "TLiteral"
	case TNil:
		return "TNil"
	case TList:
		return "TList"
	}
	return ""
}

// String returns a string representation of a Token
func (t Token) String() string {
	tokenType := GetTokenName(t.Type)
	switch t.Type {
	case TUnset, TNil:
		return tokenType
	case TLiteral, TQuoted:
		return fmt.Sprintf("(%s, len %d %#v)", tokenType, len(t.Str), t.Str)
	case TNumber:
		return fmt.Sprintf("(%s %d)", tokenType, t.Num)
	case TAtom:
		return fmt.Sprintf("(%s %s)", tokenType, t.Str)
	case TList:
		return fmt.Sprintf("(%s children: %s)", tokenType, t.Tokens)
	}
	return ""
}

// tokenizer walks a server response. Literals are inlined by Exec, so a
// {n} announcement is always followed by CRLF and n bytes of data.
type tokenizer struct {
	s string
	i int
}

func (t *tokenizer) skipSpaces() {
	for t.i < len(t.s) && t.s[t.i] == ' ' {
		t.i++
	}
}

// skipLine moves past the next newline.
func (t *tokenizer) skipLine() {
	if nl := strings.IndexByte(t.s[t.i:], '\n'); nl != -1 {
		t.i += nl + 1
		return
	}
	t.i = len(t.s)
}

// list reads tokens up to the ')' closing depth, or to the end of the line
// at depth 0.
func (t *tokenizer) list(depth int) ([]*Token, error) {
	tokens := make([]*Token, 0)
	for t.i < len(t.s) {
		switch b := t.s[t.i]; b {
		case ' ':
			t.i++
		case '\r', '\n':
			if depth == 0 {
				return tokens, nil
			}
			t.i++
		case '(':
			t.i++
			children, err := t.list(depth + 1)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, &Token{Type: TList, Tokens: children})
		case ')':
			if depth == 0 {
				return nil, fmt.Errorf("unmatched ')' at char %d", t.i)
			}
			t.i++
			return tokens, nil
		case '"':
			tk, err := t.quoted()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tk)
		case '{':
			tk, err := t.literal()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tk)
		default:
			tokens = append(tokens, t.atom())
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("mismatched parentheses, depth %d at end of response", depth)
	}
	return tokens, nil
}

func (t *tokenizer) quoted() (*Token, error) {
	start := t.i + 1
	for i := start; i < len(t.s); i++ {
		switch t.s[i] {
		case '\\':
			i++
		case '"':
			t.i = i + 1
			return &Token{Type: TQuoted, Str: unquoter.Replace(t.s[start:i])}, nil
		}
	}
	return nil, fmt.Errorf("unterminated quoted string at char %d", t.i)
}

func (t *tokenizer) literal() (*Token, error) {
	end := strings.IndexByte(t.s[t.i:], '}')
	if end == -1 {
		return nil, fmt.Errorf("unterminated literal size at char %d", t.i)
	}
	sizeStr := t.s[t.i+1 : t.i+end]
	size, err := strconv.Atoi(sizeStr)
	if err != nil {
		return nil, fmt.Errorf("literal size %q: %w", sizeStr, err)
	}
	t.i += end + 1
	if strings.HasPrefix(t.s[t.i:], "\r\n") {
		t.i += 2
	} else if strings.HasPrefix(t.s[t.i:], "\n") {
		t.i++
	}

	if t.i >= len(t.s) && size != 0 {
		return nil, fmt.Errorf("literal size %d but no data at char %d", size, t.i)
	}
	// A short read keeps what arrived.
	stop := min(t.i+size, len(t.s))
	tk := &Token{Type: TLiteral, Str: t.s[t.i:stop]}
	t.i = stop
	return tk, nil
}

// atom reads a bare word. Brackets may hold spaces and parentheses, as in
// BODY[HEADER.FIELDS (SUBJECT)].
func (t *tokenizer) atom() *Token {
	start := t.i
	brackets := 0
loop:
	for ; t.i < len(t.s); t.i++ {
		switch t.s[t.i] {
		case '[':
			brackets++
		case ']':
			brackets--
		case ' ', '(', ')', '"', '\r', '\n':
			if brackets <= 0 {
				break loop
			}
		}
	}

	s := t.s[start:t.i]
	if n, err := strconv.Atoi(s); err == nil {
		return &Token{Type: TNumber, Num: n, Str: s}
	}
	if strings.EqualFold(s, "NIL") {
		return &Token{Type: TNil}
	}
	return &Token{Type: TAtom, Str: s}
}

// parseFetchResponse returns the data items of every "* n FETCH (...)"
// response. Other untagged responses are skipped. Literal data is consumed
// by length, so message content never confuses the line scanner.
func parseFetchResponse(resp string) (records [][]*Token, err error) {
	t := &tokenizer{s: resp}
	for t.i < len(t.s) {
		if !strings.HasPrefix(t.s[t.i:], "* ") {
			t.skipLine()
			continue
		}
		t.i += 2
		seq := t.atom()
		t.skipSpaces()
		kind := t.atom()
		if seq.Type != TNumber || !strings.EqualFold(kind.Str, "FETCH") {
			t.skipLine()
			continue
		}

		t.skipSpaces()
		if t.i >= len(t.s) || t.s[t.i] != '(' {
			return nil, fmt.Errorf("unable to parse FETCH for message %d: expected '(' at char %d", seq.Num, t.i)
		}
		t.i++
		items, err := t.list(1)
		if err != nil {
			return nil, fmt.Errorf("unable to parse FETCH for message %d: %w", seq.Num, err)
		}
		records = append(records, items)
		t.skipLine()
	}
	return records, nil
}

// fetchItemData returns the string value of item in the record for uid.
// Records without a UID item are accepted, as some servers omit it.
func fetchItemData(records [][]*Token, uid, item string) []byte {
	want, _ := strconv.Atoi(uid)
	for _, tks := range records {
		var data []byte
		found := false
		uidMatches := true
		for i := 0; i+1 < len(tks); i += 2 {
			name, value := tks[i], tks[i+1]
			switch {
			case strings.EqualFold(name.Str, "UID"):
				uidMatches = value.Type == TNumber && value.Num == want
			case strings.EqualFold(name.Str, item):
				if value.Type == TLiteral || value.Type == TQuoted {
					data, found = []byte(value.Str), true
				}
			}
		}
		if found && uidMatches {
			return data
		}
	}
	return nil
}

// parseUIDSearchResponse collects the ids of every "* SEARCH" line, in the
// order the server sent them.
func parseUIDSearchResponse(r string) ([]string, error) {
	uids := make([]string, 0)
	for _, line := range strings.Split(r, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "*" || !strings.EqualFold(fields[1], "SEARCH") {
			continue
		}
		for _, f := range fields[2:] {
			// CONDSTORE appends (MODSEQ n)
			if strings.HasPrefix(f, "(") {
				break
			}
			if _, err := strconv.ParseUint(f, 10, 32); err != nil {
				return nil, fmt.Errorf("invalid uid %q in response: %q", f, line)
			}
			uids = append(uids, f)
		}
	}
	return uids, nil
}
