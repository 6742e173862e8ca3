package session

// ChatEntry is one chat line as broadcast to clients
type ChatEntry struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// ChatLog keeps the most recent entries in arrival order, evicting the oldest
// once capacity is reached.
type ChatLog struct {
	buf   []ChatEntry
	head  int // index of the oldest entry
	count int
}

// NewChatLog creates a log holding at most capacity entries
func NewChatLog(capacity int) *ChatLog {
	if capacity < 1 {
		capacity = 1
	}
	return &ChatLog{buf: make([]ChatEntry, capacity)}
}

// Append adds entry at the tail
func (l *ChatLog) Append(entry ChatEntry) {
	if l.count < len(l.buf) {
		l.buf[(l.head+l.count)%len(l.buf)] = entry
		l.count++
		return
	}
	l.buf[l.head] = entry
	l.head = (l.head + 1) % len(l.buf)
}

// Snapshot returns the retained entries, oldest first
func (l *ChatLog) Snapshot() []ChatEntry {
	out := make([]ChatEntry, l.count)
	for i := 0; i < l.count; i++ {
		out[i] = l.buf[(l.head+i)%len(l.buf)]
	}
	return out
}

func (l *ChatLog) Len() int {
	return l.count
}

func (l *ChatLog) Cap() int {
	return len(l.buf)
}
