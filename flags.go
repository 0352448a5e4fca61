package mailbox

// Standard IMAP system flags used by this package.
const (
	FlagSeen    = `\Seen`
	FlagDeleted = `\Deleted`
)

// FlagOp is the action UID STORE takes on the listed flags
type FlagOp int

const (
	FlagAdd FlagOp = iota
	FlagRemove
)

// String returns the STORE data item name for the operation
func (op FlagOp) String() string {
	switch op {
	case FlagAdd:
		return "+FLAGS"
	case FlagRemove:
		return "-FLAGS"
	}
	return ""
}
