// Package notify is the transient notification surface ("toasts").
// Every outcome a user should see goes through one Notifier, whether it
// is a mutation result, a gateway failure, a local guard rejection, or
// a realtime change.
package notify

import (
	"time"

	"github.com/charmbracelet/log"
)

// Kind classifies a notification for styling only; all kinds render the
// same title + description shape.
type Kind int

const (
	KindInfo Kind = iota
	KindSuccess
	KindError
)

// Notification is one transient message.
type Notification struct {
	Kind        Kind
	Title       string
	Description string
	At          time.Time
}

// Notifier receives transient user-facing messages.
type Notifier interface {
	Success(title, description string)
	Error(title, description string)
	Info(title, description string)
}

// LogNotifier renders notifications through the process logger. Used in
// plain CLI mode where there is no toast line to draw.
type LogNotifier struct {
	Logger *log.Logger
}

// NewLogNotifier wraps a charmbracelet logger as a Notifier.
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{Logger: logger}
}

func (n *LogNotifier) Success(title, description string) {
	n.Logger.Info(title, "detail", description)
}

func (n *LogNotifier) Error(title, description string) {
	n.Logger.Error(title, "detail", description)
}

func (n *LogNotifier) Info(title, description string) {
	n.Logger.Info(title, "detail", description)
}

// ChanNotifier forwards notifications over a channel, which the TUI
// drains into tea messages. Sends never block: when the buffer is full
// the oldest pending notification is dropped.
type ChanNotifier struct {
	ch chan Notification
}

// NewChanNotifier returns a notifier buffering up to size notifications.
func NewChanNotifier(size int) *ChanNotifier {
	if size <= 0 {
		size = 16
	}
	return &ChanNotifier{ch: make(chan Notification, size)}
}

// C is the receive side.
func (n *ChanNotifier) C() <-chan Notification { return n.ch }

func (n *ChanNotifier) Success(title, description string) {
	n.push(Notification{Kind: KindSuccess, Title: title, Description: description, At: time.Now()})
}

func (n *ChanNotifier) Error(title, description string) {
	n.push(Notification{Kind: KindError, Title: title, Description: description, At: time.Now()})
}

func (n *ChanNotifier) Info(title, description string) {
	n.push(Notification{Kind: KindInfo, Title: title, Description: description, At: time.Now()})
}

func (n *ChanNotifier) push(msg Notification) {
	for {
		select {
		case n.ch <- msg:
			return
		default:
			select {
			case <-n.ch: // drop oldest
			default:
			}
		}
	}
}

// Recorder captures notifications for assertions in tests.
type Recorder struct {
	Notes []Notification
}

func (r *Recorder) Success(title, description string) {
	r.Notes = append(r.Notes, Notification{Kind: KindSuccess, Title: title, Description: description, At: time.Now()})
}

func (r *Recorder) Error(title, description string) {
	r.Notes = append(r.Notes, Notification{Kind: KindError, Title: title, Description: description, At: time.Now()})
}

func (r *Recorder) Info(title, description string) {
	r.Notes = append(r.Notes, Notification{Kind: KindInfo, Title: title, Description: description, At: time.Now()})
}

// Last returns the most recent notification, or a zero value.
func (r *Recorder) Last() Notification {
	if len(r.Notes) == 0 {
		return Notification{}
	}
	return r.Notes[len(r.Notes)-1]
}
