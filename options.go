package mailbox

import (
	"crypto/tls"
	"log/slog"
	"time"
)

// Option configures Dial, Open and NewSession.
type Option func(*options)

type options struct {
	logger         Logger
	folder         string
	accessToken    string
	dialTimeout    time.Duration
	commandTimeout time.Duration
	dialRetries    int
	tlsConfig      *tls.Config
	verbose        bool
}

func newOptions(opts []Option) *options {
	o := &options{folder: DefaultFolder}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.logger == nil {
		o.logger = DefaultLogger()
	}
	return o
}

// WithLogger sets the logger. Passing nil keeps the default slog logger.
func WithLogger(l Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSlogLogger is a convenience helper for using a *slog.Logger directly.
func WithSlogLogger(l *slog.Logger) Option {
	return WithLogger(SlogLogger(l))
}

// WithFolder sets the folder UID operations run against. Defaults to INBOX.
func WithFolder(folder string) Option {
	return func(o *options) {
		if folder != "" {
			o.folder = folder
		}
	}
}

// WithXOAuth2 authenticates with an OAuth 2.0 access token instead of the
// password.
func WithXOAuth2(accessToken string) Option {
	return func(o *options) { o.accessToken = accessToken }
}

// WithDialTimeout bounds how long establishing the connection may take.
// Zero, the default, means no timeout.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) { o.dialTimeout = d }
}

// WithCommandTimeout bounds each command round trip. Zero, the default,
// means no timeout.
func WithCommandTimeout(d time.Duration) Option {
	return func(o *options) { o.commandTimeout = d }
}

// WithDialRetries retries establishing the TCP/TLS connection up to n
// times. Authentication and commands are never retried.
func WithDialRetries(n int) Option {
	return func(o *options) { o.dialRetries = n }
}

// WithTLSConfig replaces the TLS configuration used to dial.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(o *options) { o.tlsConfig = cfg }
}

// WithVerbose logs every command and server response at debug level, with
// credentials masked.
func WithVerbose(v bool) Option {
	return func(o *options) { o.verbose = v }
}
