package allocation

import "github.com/vsinha/lotalloc/pkg/domain/entities"

// NoticeLevel is the severity of a user-facing notice
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeWarning
	NoticeError
)

// String method for NoticeLevel enum
func (l NoticeLevel) String() string {
	switch l {
	case NoticeInfo:
		return "info"
	case NoticeWarning:
		return "warning"
	case NoticeError:
		return "error"
	default:
		return "unknown"
	}
}

// Notice is a message meant for the person editing the allocation
type Notice struct {
	Level       NoticeLevel
	OrderLineID entities.OrderLineID
	Message     string
	Err         error
}

// Notifier receives notices. Implementations must not call back into the
// session synchronously.
type Notifier interface {
	Notify(notice Notice)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(notice Notice) {
	f(notice)
}

type discardNotifier struct{}

func (discardNotifier) Notify(Notice) {}
