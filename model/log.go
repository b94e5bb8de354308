package model

// Log is the canonical, append-only conversation log of one session.
// Insertion order is chronological turn order.
type Log struct {
	messages []Message
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append adds messages to the end of the log.
func (l *Log) Append(msgs ...Message) {
	l.messages = append(l.messages, msgs...)
}

// Len returns the number of messages.
func (l *Log) Len() int {
	return len(l.messages)
}

// Messages returns a copy of the log suitable for read-only consumers.
// Content slices are copied one level deep so that callers cannot reorder
// or drop items of the canonical log.
func (l *Log) Messages() []Message {
	out := make([]Message, len(l.messages))
	for i, msg := range l.messages {
		out[i] = Message{Role: msg.Role, Content: cloneContent(msg.Content)}
	}
	return out
}

// Entries exposes the underlying slice for the image pruning pass, which is
// the only permitted in-place mutation of logged messages.
func (l *Log) Entries() []Message {
	return l.messages
}

// Reset discards all messages.
func (l *Log) Reset() {
	l.messages = nil
}

func cloneContent(items []Content) []Content {
	out := make([]Content, len(items))
	for i, item := range items {
		out[i] = item
		if item.ToolResult != nil {
			block := *item.ToolResult
			block.Items = append([]Content(nil), item.ToolResult.Items...)
			out[i].ToolResult = &block
		}
	}
	return out
}
