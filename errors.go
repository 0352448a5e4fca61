package mailbox

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAuthentication is matched by errors returned when the server
	// rejects the credentials.
	ErrAuthentication = errors.New("mailbox: authentication failed")

	// ErrSessionClosed is returned by every operation invoked after Close.
	ErrSessionClosed = errors.New("mailbox: session closed")

	// ErrEmailNotFound is matched when a UID FETCH returned no message.
	ErrEmailNotFound = errors.New("mailbox: email not found")

	// ErrNoSearchResults is matched when a UID SEARCH matched nothing.
	ErrNoSearchResults = errors.New("mailbox: no search results found")

	// ErrInvalidUID is returned for identifiers that are not a positive
	// decimal number. No command is sent in that case.
	ErrInvalidUID = errors.New("mailbox: invalid uid")
)

// StatusError is a tagged NO or BAD completion from the server.
type StatusError struct {
	Command string
	Status  string
	Text    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("imap %s: %s %s", e.Command, e.Status, e.Text)
}

// AuthenticationError reports a login the server refused.
type AuthenticationError struct {
	Username string
	Err      error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("mailbox: authentication failed for %q: %v", e.Username, e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

func (e *AuthenticationError) Is(target error) bool { return target == ErrAuthentication }

// EmailNotFoundError reports a UID with no message in Folder.
type EmailNotFoundError struct {
	UID    string
	Folder string
}

func (e *EmailNotFoundError) Error() string {
	return fmt.Sprintf("mailbox: no email with UID %q found in %q", e.UID, e.Folder)
}

func (e *EmailNotFoundError) Is(target error) bool { return target == ErrEmailNotFound }

// NoSearchResultsError carries the compiled search arguments that matched
// nothing, for diagnosis.
type NoSearchResultsError struct {
	Criteria []string
	Folder   string
}

func (e *NoSearchResultsError) Error() string {
	return fmt.Sprintf("mailbox: no email found in %q with criteria [%s]", e.Folder, strings.Join(e.Criteria, " "))
}

func (e *NoSearchResultsError) Is(target error) bool { return target == ErrNoSearchResults }

// isStatus reports whether err is a server NO/BAD completion rather than a
// transport failure.
func isStatus(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}
