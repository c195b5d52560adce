package live

import (
	"sync"

	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
)

// Handler reacts to one push event
type Handler func(event *entities.PortalEvent)

// Channel is a push channel that handlers can be attached to
type Channel interface {
	// On registers h for eventType and returns a function that removes it
	On(eventType entities.PortalEventType, h Handler) (off func())
}

type registration struct {
	handler Handler
}

// Emitter dispatches events to registered handlers in delivery order.
// Handlers run on the goroutine calling Emit.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[entities.PortalEventType][]*registration
}

// NewEmitter creates an empty emitter
func NewEmitter() *Emitter {
	return &Emitter{
		handlers: make(map[entities.PortalEventType][]*registration),
	}
}

// On implements Channel
func (e *Emitter) On(eventType entities.PortalEventType, h Handler) func() {
	reg := &registration{handler: h}

	e.mu.Lock()
	e.handlers[eventType] = append(e.handlers[eventType], reg)
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { e.remove(eventType, reg) })
	}
}

func (e *Emitter) remove(eventType entities.PortalEventType, reg *registration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	regs := e.handlers[eventType]
	for i, r := range regs {
		if r == reg {
			e.handlers[eventType] = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	if len(e.handlers[eventType]) == 0 {
		delete(e.handlers, eventType)
	}
}

// Emit delivers event to every handler registered for its type
func (e *Emitter) Emit(event *entities.PortalEvent) {
	e.mu.RLock()
	regs := append([]*registration(nil), e.handlers[event.Type]...)
	e.mu.RUnlock()

	for _, reg := range regs {
		reg.handler(event)
	}
}

// HandlerCount returns how many handlers are registered for eventType
func (e *Emitter) HandlerCount(eventType entities.PortalEventType) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers[eventType])
}
