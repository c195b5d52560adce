package events

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
)

const subscriberBuffer = 100

// fanout tracks local subscriber channels per bus channel
type fanout struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.PortalEvent]struct{}
}

func newFanout() *fanout {
	return &fanout{
		subscribers: make(map[string]map[chan *entities.PortalEvent]struct{}),
	}
}

// add registers a new subscriber and reports how many the channel now has
func (f *fanout) add(channel string) (chan *entities.PortalEvent, int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.subscribers[channel] == nil {
		f.subscribers[channel] = make(map[chan *entities.PortalEvent]struct{})
	}
	ch := make(chan *entities.PortalEvent, subscriberBuffer)
	f.subscribers[channel][ch] = struct{}{}
	return ch, len(f.subscribers[channel])
}

// remove closes one subscriber and reports whether the channel has none left
func (f *fanout) remove(channel string, ch chan *entities.PortalEvent) (empty bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	subs, ok := f.subscribers[channel]
	if !ok {
		return false
	}
	if _, ok := subs[ch]; !ok {
		return false
	}

	delete(subs, ch)
	close(ch)
	if len(subs) == 0 {
		delete(f.subscribers, channel)
		return true
	}
	return false
}

// drop closes every subscriber of channel
func (f *fanout) drop(channel string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for ch := range f.subscribers[channel] {
		close(ch)
	}
	delete(f.subscribers, channel)
}

// deliver hands event to every subscriber without blocking; slow subscribers miss it
func (f *fanout) deliver(channel string, event *entities.PortalEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for ch := range f.subscribers[channel] {
		select {
		case ch <- event:
		default:
			log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("subscriber buffer full, dropping event")
		}
	}
}

func (f *fanout) channels() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]string, 0, len(f.subscribers))
	for channel := range f.subscribers {
		out = append(out, channel)
	}
	return out
}
