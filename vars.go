package mailbox

import "strings"

const (
	// DefaultPort is the IMAPS port used when none is given.
	DefaultPort = 993

	// DefaultFolder is selected when neither the session nor the search
	// criteria name a folder.
	DefaultFolder = "INBOX"

	// fetchItem is the UID FETCH data item for the whole message.
	fetchItem = "RFC822"
)

// unquoter reverses the escaping applied by Quote.
var unquoter = strings.NewReplacer(`\\`, `\`, `\"`, `"`)
