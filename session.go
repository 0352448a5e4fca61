package mailbox

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/davecgh/go-spew/spew"
	"github.com/rs/xid"
)

// Session is one authenticated connection to one mailbox account.
//
// A Session is not safe for concurrent use: folder selection is connection
// state, so use one Session per goroutine. The exception is Close, which
// may be called from anywhere to abandon a blocked command.
type Session struct {
	transport Transport
	dialect   Dialect
	logger    Logger
	verbose   bool
	username  string
	folder    string

	closeOnce sync.Once
	closed    atomic.Bool
}

// Open dials host:port over TLS and logs in. An empty host falls back to
// dialect.Host and port 0 to 993. The caller must Close the Session.
func Open(username, password, host string, port int, dialect Dialect, opts ...Option) (*Session, error) {
	if host == "" {
		host = dialect.Host
	}
	if host == "" {
		return nil, errors.New("mailbox: no IMAP host given")
	}

	c, err := Dial(host, port, opts...)
	if err != nil {
		return nil, err
	}
	return NewSession(c, username, password, dialect, opts...)
}

// NewSession logs in on an already connected transport. When the server
// refuses the credentials the error matches ErrAuthentication; either way
// the transport is closed on failure.
func NewSession(t Transport, username, password string, dialect Dialect, opts ...Option) (*Session, error) {
	o := newOptions(opts)

	connNum := -1
	if c, ok := t.(*Conn); ok {
		connNum = c.ConnNum
	}

	s := &Session{
		transport: t,
		dialect:   dialect,
		logger:    sessionLogger(o.logger, connNum, xid.New().String(), username),
		verbose:   o.verbose,
		username:  username,
		folder:    o.folder,
	}

	var err error
	if o.accessToken != "" {
		a, ok := t.(xoauth2Authenticator)
		if !ok {
			_ = t.Close()
			return nil, fmt.Errorf("mailbox: transport %T does not support XOAUTH2", t)
		}
		err = a.AuthenticateXOAuth2(username, o.accessToken)
	} else {
		err = t.Login(username, password)
	}
	if err != nil {
		_ = t.Close()
		if isStatus(err) {
			return nil, &AuthenticationError{Username: username, Err: err}
		}
		return nil, err
	}

	s.logger.Info("authenticated", "dialect", dialect.Name)
	return s, nil
}

// String describes the session without its credentials.
func (s *Session) String() string {
	return fmt.Sprintf("Session(user=%q, dialect=%s, folder=%q)", s.username, s.dialect.Name, s.folder)
}

// Folder returns the folder UID operations run against.
func (s *Session) Folder() string { return s.folder }

// UseFolder changes the folder FetchByUID, MarkAsUnseen and Delete run
// against. It takes effect on the next operation.
func (s *Session) UseFolder(folder string) {
	if folder != "" {
		s.folder = folder
	}
}

// Dialect returns the search dialect of the session.
func (s *Session) Dialect() Dialect { return s.dialect }

// FetchByUID fetches and decodes one message from the session folder.
// Fetching the RFC822 item marks the message \Seen on most servers.
func (s *Session) FetchByUID(uid string) (*Email, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	uid, err := normalizeUID(uid)
	if err != nil {
		return nil, err
	}
	return s.fetch(s.folder, uid)
}

// Search returns the message matching c. When several match, a warning is
// logged and the first UID the server returned, normally the oldest, is
// used. No match is a *NoSearchResultsError.
func (s *Session) Search(c SearchCriteria) (*Email, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	folder := c.folder(s.folder)

	keys := c.Compile(s.dialect)
	uids, err := s.searchUIDs(folder, keys)
	if err != nil {
		return nil, err
	}

	switch len(uids) {
	case 0:
		return nil, &NoSearchResultsError{Criteria: keys, Folder: folder}
	case 1:
	default:
		s.logger.Warn("multiple emails matched search, returning the first",
			"count", len(uids),
			"criteria", strings.Join(keys, " "),
			"folder", folder,
			"uids", uids,
			"returned_uid", uids[0],
		)
	}

	return s.fetch(folder, uids[0])
}

// SearchUIDs returns every UID matching c, in server order, without
// fetching anything.
func (s *Session) SearchUIDs(c SearchCriteria) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	return s.searchUIDs(c.folder(s.folder), c.Compile(s.dialect))
}

// MarkAsUnseen removes the \Seen flag. A refusal from the server is logged,
// not returned; only transport failures are.
func (s *Session) MarkAsUnseen(uid string) error {
	return s.store(uid, FlagRemove, FlagSeen, "mark as unseen")
}

// Delete flags the message \Deleted. It does not expunge, but treat it as
// irreversible: a message moved back into the folder gets a new UID. A
// refusal from the server is logged, not returned; only transport failures
// are.
func (s *Session) Delete(uid string) error {
	return s.store(uid, FlagAdd, FlagDeleted, "delete")
}

// Close releases the connection. It is idempotent and may be called from
// another goroutine; every later operation fails with ErrSessionClosed.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		err = s.transport.Close()
		s.logger.Debug("session closed")
	})
	return err
}

func (s *Session) searchUIDs(folder string, keys []string) ([]string, error) {
	if err := s.transport.Select(folder); err != nil {
		return nil, err
	}
	return s.transport.UIDSearch(s.dialect.searchArgs(keys)...)
}

func (s *Session) fetch(folder, uid string) (*Email, error) {
	if err := s.transport.Select(folder); err != nil {
		return nil, err
	}

	data, err := s.transport.UIDFetch(uid, fetchItem)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &EmailNotFoundError{UID: uid, Folder: folder}
	}

	e, err := DecodeEmail(uid, data)
	if err != nil {
		if s.verbose {
			s.logger.Debug("email could not be parsed", "uid", uid, "error", err, "raw", spew.Sdump(data[:min(len(data), 512)]))
		}
		return nil, err
	}
	if s.verbose && len(e.Message.Errors) != 0 {
		s.logger.Debug("email parsed with warnings", "uid", uid, "warnings", spew.Sdump(e.Message.Errors))
	}
	e.Folder = folder

	return e, nil
}

func (s *Session) store(uid string, op FlagOp, flag, action string) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	uid, err := normalizeUID(uid)
	if err != nil {
		return err
	}
	if err := s.transport.Select(s.folder); err != nil {
		return err
	}

	resp, err := s.transport.UIDStore(uid, op, flag)
	if err != nil {
		if isStatus(err) {
			s.logger.Warn(action+" refused", "uid", uid, "folder", s.folder, "error", err)
			return nil
		}
		return err
	}
	s.logger.Info(action, "uid", uid, "folder", s.folder, "response", strings.TrimSpace(resp))
	return nil
}

// normalizeUID checks uid is a valid IMAP UID (1 to 2^32-1) and returns it
// without leading zeros.
func normalizeUID(uid string) (string, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(uid), 10, 32)
	if err != nil || n == 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidUID, uid)
	}
	return strconv.FormatUint(n, 10), nil
}
