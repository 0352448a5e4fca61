// Package mailbox provides a small IMAP client for reading one mailbox.
//
// It focuses on the handful of operations most applications need to pull a
// specific message out of an account:
//
//   - Connecting over TLS and authenticating with LOGIN or XOAUTH2
//   - Finding a message by UID, or by a structured SearchCriteria (UID SEARCH)
//   - Decoding the message into an Email: raw headers, plain-text body and
//     attachments with RFC 2047 filenames decoded
//   - Marking a message unseen, or flagging it deleted
//
// Provider differences are data, not types: a Dialect value decides whether
// a Gmail X-GM-RAW query is emitted and whether UID SEARCH needs a leading
// CHARSET argument.
//
// A Session owns a single connection and is not safe for concurrent use,
// except for Close, which may be called from any goroutine to abandon the
// connection. Always release it with defer:
//
//	s, err := mailbox.Open("me@gmail.com", "app-password", "", 0, mailbox.Gmail)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	e, err := s.Search(mailbox.SearchCriteria{Seen: mailbox.SeenUnseen, From: "billing@example.com"})
package mailbox
