// Package notify holds the transient UI state of a workspace: toasts, the modal
// slot and the loading overlay.
package notify

import (
	"sync"
	"time"

	"duvidapp/ports"

	"github.com/google/uuid"
)

// DefaultToastTTL is how long a toast stays visible when no TTL is configured
const DefaultToastTTL = 5 * time.Second

// Toast is a transient message
type Toast struct {
	ID        string         `json:"id"`
	Message   string         `json:"message"`
	Severity  ports.Severity `json:"type"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Modal is the content of the single modal slot
type Modal struct {
	Kind    string            `json:"kind"`
	Title   string            `json:"title"`
	Message string            `json:"message,omitempty"`
	Data    map[string]string `json:"data,omitempty"`
}

// EventType identifies what changed in a Center
type EventType string

const (
	EventToastAdded     EventType = "toast_added"
	EventToastRemoved   EventType = "toast_removed"
	EventModalOpened    EventType = "modal_opened"
	EventModalClosed    EventType = "modal_closed"
	EventLoadingChanged EventType = "loading_changed"
)

// Event is delivered to subscribers after every change
type Event struct {
	Type    EventType `json:"type"`
	Toast   *Toast    `json:"toast,omitempty"`
	Modal   *Modal    `json:"modal,omitempty"`
	Loading bool      `json:"loading"`
	At      time.Time `json:"at"`
}

// Center implements ports.Notifier. It is safe for concurrent use; subscribers are
// called outside the lock in the order events happened per goroutine.
type Center struct {
	mu        sync.Mutex
	ttl       time.Duration
	toasts    []Toast
	timers    map[string]*time.Timer
	modal     *Modal
	loading   bool
	observers map[int]func(Event)
	nextObs   int
	closed    bool
}

// NewCenter creates a notification center whose toasts expire after ttl
func NewCenter(ttl time.Duration) *Center {
	if ttl <= 0 {
		ttl = DefaultToastTTL
	}
	return &Center{
		ttl:       ttl,
		timers:    make(map[string]*time.Timer),
		observers: make(map[int]func(Event)),
	}
}

var _ ports.Notifier = (*Center)(nil)

// ShowToast appends a toast and schedules its removal. It returns the toast id.
func (c *Center) ShowToast(message string, severity ports.Severity) string {
	toast := Toast{
		ID:        "toast_" + uuid.NewString(),
		Message:   message,
		Severity:  severity,
		CreatedAt: time.Now(),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return toast.ID
	}
	c.toasts = append(c.toasts, toast)
	c.timers[toast.ID] = time.AfterFunc(c.ttl, func() { c.Dismiss(toast.ID) })
	observers := c.observersLocked()
	c.mu.Unlock()

	c.emit(observers, Event{Type: EventToastAdded, Toast: &toast})
	return toast.ID
}

// Dismiss removes a toast early. It reports whether the toast was still visible.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	idx := -1
	for i, t := range c.toasts {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	removed := c.toasts[idx]
	c.toasts = append(c.toasts[:idx:idx], c.toasts[idx+1:]...)
	if timer, ok := c.timers[id]; ok {
		timer.Stop()
		delete(c.timers, id)
	}
	observers := c.observersLocked()
	c.mu.Unlock()

	c.emit(observers, Event{Type: EventToastRemoved, Toast: &removed})
	return true
}

// Toasts returns the visible toasts in the order they were raised
func (c *Center) Toasts() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Toast, len(c.toasts))
	copy(out, c.toasts)
	return out
}

// OpenModal fills the modal slot, replacing whatever was open
func (c *Center) OpenModal(m Modal) {
	c.mu.Lock()
	c.modal = &m
	observers := c.observersLocked()
	c.mu.Unlock()

	c.emit(observers, Event{Type: EventModalOpened, Modal: &m})
}

// CloseModal empties the modal slot
func (c *Center) CloseModal() {
	c.mu.Lock()
	if c.modal == nil {
		c.mu.Unlock()
		return
	}
	c.modal = nil
	observers := c.observersLocked()
	c.mu.Unlock()

	c.emit(observers, Event{Type: EventModalClosed})
}

// Modal returns the open modal, if any
func (c *Center) Modal() (Modal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.modal == nil {
		return Modal{}, false
	}
	return *c.modal, true
}

// SetLoading toggles the loading overlay
func (c *Center) SetLoading(loading bool) {
	c.mu.Lock()
	if c.loading == loading {
		c.mu.Unlock()
		return
	}
	c.loading = loading
	observers := c.observersLocked()
	c.mu.Unlock()

	c.emit(observers, Event{Type: EventLoadingChanged, Loading: loading})
}

// Loading reports whether the loading overlay is shown
func (c *Center) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Subscribe registers fn for every subsequent event. The returned function
// removes the subscription.
func (c *Center) Subscribe(fn func(Event)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

// Close stops every pending expiry timer. Toasts raised afterwards are dropped.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, timer := range c.timers {
		timer.Stop()
		delete(c.timers, id)
	}
	clear(c.observers)
}

func (c *Center) observersLocked() []func(Event) {
	out := make([]func(Event), 0, len(c.observers))
	for i := 0; i < c.nextObs; i++ {
		if fn, ok := c.observers[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func (c *Center) emit(observers []func(Event), ev Event) {
	ev.At = time.Now()
	for _, fn := range observers {
		fn(ev)
	}
}
