package events

import (
	"github.com/rs/zerolog/log"
)

// Notifier surfaces toasts to the user.
type Notifier interface {
	Notify(t Toast)
}

// LogNotifier writes toasts to the global logger.
type LogNotifier struct{}

func (LogNotifier) Notify(t Toast) {
	ev := log.Info()
	if t.Variant == ToastVariantDestructive {
		ev = log.Warn()
	}
	ev.Str("title", t.Title).Str("variant", string(t.Variant)).Msg(t.Description)
}

// PublisherNotifier logs toasts and forwards them to the toasts topic.
type PublisherNotifier struct {
	Publisher Publisher
}

func (p PublisherNotifier) Notify(t Toast) {
	LogNotifier{}.Notify(t)
	PublishBlind(p.Publisher, TopicToasts, t)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(t Toast)

func (f NotifierFunc) Notify(t Toast) { f(t) }

var (
	_ Notifier = LogNotifier{}
	_ Notifier = PublisherNotifier{}
	_ Notifier = NotifierFunc(nil)
)
