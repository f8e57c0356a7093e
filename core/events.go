package core

// Event is a push notification from the wallet side of a session. Events
// are delivered on a single typed channel and consumed by the connection
// state machine's serialized loop.
type Event interface {
	EventTopic() string
}

// SessionUpdate replaces the bound account set of an existing session. It
// never creates a session that did not previously exist.
type SessionUpdate struct {
	Topic      string
	Accounts   []Account
	Namespaces Namespaces
}

func (e SessionUpdate) EventTopic() string { return e.Topic }

// SessionDelete announces that the wallet closed the session. It is
// authoritative: it wins any race against an in-flight local operation on
// the same topic.
type SessionDelete struct {
	Topic  string
	Reason Reason
}

func (e SessionDelete) EventTopic() string { return e.Topic }

// SessionNotice carries a wallet-emitted session event such as chainChanged
// or accountsChanged. Data holds the event's raw JSON value; consumers
// decode it per event name.
type SessionNotice struct {
	Topic   string
	ChainID int64
	Name    string
	Data    string
}

func (e SessionNotice) EventTopic() string { return e.Topic }
