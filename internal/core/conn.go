package core

// Conn is one live connection as seen by a room coordinator. The transport
// layer drains Outbox; the coordinator never blocks on it.
type Conn struct {
	ID     string
	Outbox chan *Message
}

// NewConn constructs a connection with a buffered outbox.
func NewConn(id string) *Conn {
	return &Conn{
		ID:     id,
		Outbox: make(chan *Message, 16),
	}
}
