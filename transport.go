package mailbox

// Transport is the narrow command surface a Session needs from an IMAP
// connection. Conn is the built-in implementation; anything speaking the
// same commands can be plugged in with NewSession.
//
// A command the server completes with NO or BAD must be reported as a
// *StatusError so the Session can tell a refusal from a broken connection.
type Transport interface {
	Login(username, password string) error
	Select(folder string) error
	// UIDFetch returns the value of one data item, such as RFC822, for
	// uid. It returns nil data when the server sent nothing for it.
	UIDFetch(uid, item string) ([]byte, error)
	// UIDSearch returns matching UIDs in the order the server sent them.
	UIDSearch(args ...string) ([]string, error)
	// UIDStore alters the flags of uid and returns the untagged response.
	UIDStore(uid string, op FlagOp, flags ...string) (string, error)
	Close() error
}

// xoauth2Authenticator is implemented by transports that can log in with an
// OAuth 2.0 access token.
type xoauth2Authenticator interface {
	AuthenticateXOAuth2(username, accessToken string) error
}
