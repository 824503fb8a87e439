// Package events provides an event emitter whose registrations can be cancelled.
package events

import (
	"io"

	"github.com/tul/emission"
	"go.uber.org/zap"

	"github.com/usnistgov/verbsrx/core/logging"
)

var logger = logging.New("events")

// Emitter dispatches events to registered listeners.
// A listener is a function whose parameters match the arguments passed to Emit.
// A panicking listener is logged and does not affect other listeners.
// Emit returns after every listener has returned.
type Emitter struct {
	*emission.Emitter
}

// NewEmitter creates an Emitter.
func NewEmitter() *Emitter {
	e := emission.NewEmitter()
	e.RecoverWith(func(event, listener any, err error) {
		logger.Error("event listener panic", zap.Any("event", event), zap.Error(err))
	})
	e.SetMaxListeners(-1)
	return &Emitter{Emitter: e}
}

// On registers a listener.
// Closing the returned io.Closer cancels the registration.
func (emitter *Emitter) On(event, listener any) io.Closer {
	return registration{emitter.Emitter, event, emitter.Emitter.On(event, listener)}
}

// Once registers a listener that is invoked at most once.
// Closing the returned io.Closer cancels the registration.
func (emitter *Emitter) Once(event, listener any) io.Closer {
	return registration{emitter.Emitter, event, emitter.Emitter.Once(event, listener)}
}

type registration struct {
	emitter *emission.Emitter
	event   any
	handle  emission.ListenerHandle
}

func (r registration) Close() error {
	r.emitter.RemoveListener(r.event, r.handle)
	return nil
}
