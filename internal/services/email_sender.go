package services

// EmailSender delivers a single plain-text message. Delivery is best-effort
// for the callers in this codebase; they decide whether a failure matters.
type EmailSender interface {
	Send(to string, subject string, body string) error
}
