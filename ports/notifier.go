package ports

// NotifyLevel classifies a user-facing notification.
type NotifyLevel int

const (
	NotifyInfo NotifyLevel = iota
	NotifyWarn
	NotifyError
)

// Notifier receives human-readable status for the user. How it is displayed
// is entirely the consumer's concern.
type Notifier interface {
	Notify(level NotifyLevel, message string)
}
