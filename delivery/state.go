package delivery

/* State tracks one delivery through the retry controller
 * Pending -> Attempting -> (Succeeded | RetryWait -> Attempting) -> (Succeeded | Exhausted)
 */
type State int

const (
	Pending State = iota + 1
	Attempting
	RetryWait
	Succeeded
	Exhausted
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Attempting:
		return "attempting"
	case RetryWait:
		return "retry_wait"
	case Succeeded:
		return "succeeded"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// IsFinal returns true if the state is a terminal state
func (s State) IsFinal() bool {
	return s == Succeeded || s == Exhausted
}
