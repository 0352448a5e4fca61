package mailbox

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/xid"
)

// literalSuffix matches a line ending in a literal announcement such as {42}
var literalSuffix = regexp.MustCompile(`{\d+}$`)

// newTag returns a command tag: 20 uppercase base32hex characters.
func newTag() []byte {
	return []byte(strings.ToUpper(xid.New().String()))
}

// Exec sends one tagged command and reads until its completion. Untagged
// lines, with any literals inlined, are passed to processLine and returned
// concatenated. A NO or BAD completion is returned as a *StatusError.
//
// Literals in command (see Literal) are sent one at a time, each after the
// server's continuation request.
//
// Commands are not retried: a failed write or read leaves the connection
// unusable and the caller should Close it.
func (c *Conn) Exec(command string, processLine func(line []byte) error) (response string, err error) {
	if c.closed.Load() {
		return "", errConnClosed
	}

	tag := newTag()

	if c.commandTimeout != 0 {
		_ = c.conn.SetDeadline(time.Now().Add(c.commandTimeout))
		defer func() { _ = c.conn.SetDeadline(time.Time{}) }()
	}

	pieces, err := splitLiterals(command)
	if err != nil {
		return "", err
	}
	pieces[0] = string(tag) + " " + pieces[0]
	pieces[len(pieces)-1] += "\r\n"
	cmd := strings.Join(pieces, "")

	if c.verbose {
		sanitized := strings.TrimSpace(cmd)
		if c.secret != "" {
			sanitized = strings.ReplaceAll(sanitized, c.secret, "****")
		}
		c.logger.Debug("sending command", "command", sanitized)
	}

	if _, err = c.conn.Write([]byte(pieces[0])); err != nil {
		return "", err
	}
	pending := pieces[1:]

	var resp strings.Builder
	for {
		var line []byte
		line, err = c.r.ReadBytes('\n')
		if err != nil {
			return "", err
		}

		for {
			a := literalSuffix.Find(dropNl(line))
			if a == nil {
				break
			}
			var n int
			n, err = strconv.Atoi(string(a[1 : len(a)-1]))
			if err != nil {
				return "", err
			}

			buf := make([]byte, n)
			if _, err = io.ReadFull(c.r, buf); err != nil {
				return "", err
			}
			line = append(line, buf...)

			buf, err = c.r.ReadBytes('\n')
			if err != nil {
				return "", err
			}
			line = append(line, buf...)
		}

		if c.verbose {
			c.logger.Debug("server response", "response", string(dropNl(line)))
		}

		if len(line) > len(tag) && bytes.Equal(line[:len(tag)], tag) && line[len(tag)] == ' ' {
			status, text, _ := strings.Cut(string(dropNl(line[len(tag)+1:])), " ")
			if status != "OK" {
				return "", &StatusError{Command: commandName(command), Status: status, Text: text}
			}
			break
		}

		// A continuation request asks for the next literal. Once none are
		// left it can only be AUTHENTICATE reporting a failure, and an empty
		// response makes the server complete the command.
		if line[0] == '+' {
			next := "\r\n"
			if len(pending) != 0 {
				next, pending = pending[0], pending[1:]
			}
			if _, err = c.conn.Write([]byte(next)); err != nil {
				return "", err
			}
			continue
		}

		if processLine != nil {
			if err = processLine(line); err != nil {
				return "", err
			}
		}
		resp.Write(line)
	}

	return resp.String(), nil
}

// splitLiterals cuts command after each literal announcement. Every piece
// but the last ends with {n}\r\n and the piece after it starts with the n
// literal bytes. A line break anywhere else is an error, so no argument can
// end the command early.
func splitLiterals(command string) ([]string, error) {
	var pieces []string
	start, from := 0, 0
	for {
		i := strings.Index(command[from:], "\r\n")
		if i == -1 {
			break
		}
		i += from
		m := literalSuffix.FindString(command[from:i])
		if m == "" || strings.ContainsAny(command[from:i], "\r\n") {
			return nil, fmt.Errorf("imap: line break outside a literal in %s command", commandName(command))
		}
		n, err := strconv.Atoi(m[1 : len(m)-1])
		if err != nil {
			return nil, err
		}
		pieces = append(pieces, command[start:i+2])
		start = i + 2
		from = start + n
		if from > len(command) {
			return nil, fmt.Errorf("imap: literal of %d bytes is truncated in %s command", n, commandName(command))
		}
	}
	if strings.ContainsAny(command[from:], "\r\n") {
		return nil, fmt.Errorf("imap: line break outside a literal in %s command", commandName(command))
	}
	return append(pieces, command[start:]), nil
}

// commandName returns the command verb, keeping the UID prefix.
func commandName(command string) string {
	fields := strings.Fields(command)
	switch {
	case len(fields) == 0:
		return ""
	case len(fields) > 1 && strings.EqualFold(fields[0], "UID"):
		return strings.ToUpper(fields[0] + " " + fields[1])
	}
	return strings.ToUpper(fields[0])
}

// dropNl removes trailing newline characters from a byte slice
func dropNl(b []byte) []byte {
	if len(b) >= 1 && b[len(b)-1] == '\n' {
		if len(b) >= 2 && b[len(b)-2] == '\r' {
			return b[:len(b)-2]
		}
		return b[:len(b)-1]
	}
	return b
}
