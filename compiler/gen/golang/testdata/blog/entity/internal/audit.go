package internal

// Entry is an audit log entry.
type Entry struct {
	action string
}
