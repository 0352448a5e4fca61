package mailbox

import (
	"bufio"
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	retry "github.com/StirlingMarketingGroup/go-retry"
)

var nextConnNum atomic.Int64

// errConnClosed is returned by commands issued on a closed Conn.
var errConnClosed = errors.New("imap: connection closed")

// Conn is a TLS connection to an IMAP server speaking the commands a
// Session needs. It implements Transport.
type Conn struct {
	conn net.Conn
	r    *bufio.Reader
	Host string
	Port int
	// ConnNum numbers connections in the order they were dialed, for logs.
	ConnNum int

	logger         Logger
	verbose        bool
	commandTimeout time.Duration
	secret         string

	closeOnce sync.Once
	closed    atomic.Bool
}

// dialHost establishes a TLS connection to the IMAP server
func dialHost(host string, port int, o *options) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: o.dialTimeout}
	cfg := o.tlsConfig
	if cfg == nil {
		cfg = &tls.Config{ServerName: host}
	}
	return tls.DialWithDialer(dialer, "tcp", net.JoinHostPort(host, strconv.Itoa(port)), cfg)
}

// Dial connects to host:port over TLS and reads the server greeting. It
// does not authenticate. With WithDialRetries the connection attempt, and
// only that, is retried.
func Dial(host string, port int, opts ...Option) (*Conn, error) {
	o := newOptions(opts)
	if port == 0 {
		port = DefaultPort
	}

	connNum := int(nextConnNum.Add(1) - 1)
	logger := o.logger.WithAttrs("component", "mailbox", "conn", connNum)

	var c *Conn
	connect := func() error {
		if o.verbose {
			logger.Debug("establishing connection", "host", host, "port", port)
		}
		nc, err := dialHost(host, port, o)
		if err != nil {
			if o.verbose {
				logger.Debug("failed to connect", "error", err)
			}
			return err
		}
		c = &Conn{
			conn:           nc,
			r:              bufio.NewReader(nc),
			Host:           host,
			Port:           port,
			ConnNum:        connNum,
			logger:         logger,
			verbose:        o.verbose,
			commandTimeout: o.commandTimeout,
		}
		if err := c.readGreeting(); err != nil {
			_ = nc.Close()
			c = nil
			return err
		}
		return nil
	}

	var err error
	if o.dialRetries > 0 {
		err = retry.Retry(connect, o.dialRetries, func(err error) error {
			logger.Warn("failed to connect, retrying shortly", "error", err)
			return nil
		}, func() error {
			if o.verbose {
				logger.Debug("retrying connection now")
			}
			return nil
		})
	} else {
		err = connect()
	}
	if err != nil {
		return nil, fmt.Errorf("imap dial %s:%d: %w", host, port, err)
	}
	return c, nil
}

// readGreeting consumes the untagged server greeting.
func (c *Conn) readGreeting() error {
	if c.commandTimeout != 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.commandTimeout))
		defer func() { _ = c.conn.SetReadDeadline(time.Time{}) }()
	}
	line, err := c.r.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("imap greeting: %w", err)
	}
	line = dropNl(line)
	if c.verbose {
		c.logger.Debug("server greeting", "response", string(line))
	}
	if bytes.HasPrefix(line, []byte("* BYE")) {
		return fmt.Errorf("imap greeting: server refused connection: %s", line)
	}
	if !bytes.HasPrefix(line, []byte("* OK")) && !bytes.HasPrefix(line, []byte("* PREAUTH")) {
		return fmt.Errorf("imap greeting: unexpected %q", line)
	}
	return nil
}

// Close closes the IMAP connection. It is safe to call more than once and
// from another goroutine than the one running a command.
func (c *Conn) Close() (err error) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if c.verbose {
			c.logger.Debug("closing connection")
		}
		if cerr := c.conn.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = fmt.Errorf("imap close: %w", cerr)
		}
	})
	return err
}

// Select selects a folder in read-write mode
func (c *Conn) Select(folder string) error {
	_, err := c.Exec("SELECT "+Quote(folder), nil)
	return err
}

// UIDSearch runs UID SEARCH with args joined by spaces.
func (c *Conn) UIDSearch(args ...string) ([]string, error) {
	command := "UID SEARCH"
	if len(args) != 0 {
		command += " " + strings.Join(args, " ")
	}
	r, err := c.Exec(command, nil)
	if err != nil {
		return nil, err
	}
	return parseUIDSearchResponse(r)
}

// UIDFetch fetches one data item of a single message.
func (c *Conn) UIDFetch(uid, item string) ([]byte, error) {
	r, err := c.Exec(fmt.Sprintf("UID FETCH %s (%s)", uid, item), nil)
	if err != nil {
		return nil, err
	}
	records, err := parseFetchResponse(r)
	if err != nil {
		return nil, err
	}
	return fetchItemData(records, uid, item), nil
}

// UIDStore changes the flags of one message.
func (c *Conn) UIDStore(uid string, op FlagOp, flags ...string) (string, error) {
	return c.Exec(fmt.Sprintf("UID STORE %s %s (%s)", uid, op, strings.Join(flags, " ")), nil)
}
