// Package toast carries transient user-visible notifications from the portal
// core to whatever renders them (a terminal, a test recorder).
package toast

import "sync"

// Level is the severity of a notification
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a transient, dismissible message
type Notification struct {
	Level   Level
	Title   string
	Message string
	// Link is an optional deep link, e.g. to consultation results
	Link string
}

// Toaster surfaces notifications to the user
type Toaster interface {
	Notify(n Notification)
}

// Func adapts a function to Toaster
type Func func(n Notification)

// Notify implements Toaster
func (f Func) Notify(n Notification) { f(n) }

// Discard drops every notification
var Discard Toaster = Func(func(Notification) {})

// Recorder keeps notifications in memory
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

// Notify implements Toaster
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns a copy of the recorded notifications
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Errors returns only error-level notifications
func (r *Recorder) Errors() []Notification {
	var out []Notification
	for _, n := range r.All() {
		if n.Level == LevelError {
			out = append(out, n)
		}
	}
	return out
}
