package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/calendar-slots/internal/application"
	"github.com/example/calendar-slots/internal/persistence"
	"github.com/example/calendar-slots/internal/persistence/memory"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Notifier    *RecordingNotifier
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Notifier:    &RecordingNotifier{},
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Notifier == nil {
		factory.Notifier = &RecordingNotifier{}
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// EventServiceDeps captures dependencies for constructing an event service.
// A nil Store means a fresh in-memory store.
type EventServiceDeps struct {
	Store       persistence.Store
	Notifier    application.Notifier
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewEventService builds an event service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewEventService(deps EventServiceDeps) *application.EventService {
	store := deps.Store
	if store == nil {
		store = memory.New()
	}
	var notifier application.Notifier = f.Notifier
	if deps.Notifier != nil {
		notifier = deps.Notifier
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewEventServiceWithLogger(store, notifier, idGen, now, deps.Logger)
}

// ReminderServiceDeps captures dependencies for constructing a reminder service.
type ReminderServiceDeps struct {
	Store     application.ReminderStore
	Notifier  application.Notifier
	Reference *time.Location
	Logger    *slog.Logger
}

// NewReminderService builds a reminder service using the supplied dependencies.
func (f *ServiceFactory) NewReminderService(deps ReminderServiceDeps) *application.ReminderService {
	var notifier application.Notifier = f.Notifier
	if deps.Notifier != nil {
		notifier = deps.Notifier
	}
	return application.NewReminderServiceWithLogger(deps.Store, notifier, deps.Reference, deps.Logger)
}
