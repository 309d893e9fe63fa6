package service

import (
	"sync"

	domainauth "github.com/target/taskdesk/internal/domain/auth"
	"github.com/target/taskdesk/internal/domain/presence"
	"github.com/target/taskdesk/internal/ports"
)

var _ ports.PointerSource = (*PointerHub)(nil)

// PointerHub is the process-wide pointer-down subscription point.
type PointerHub struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[uint64]func(presence.PointerEvent)
	order     []uint64
}

// NewPointerHub creates an empty hub.
func NewPointerHub() *PointerHub {
	return &PointerHub{listeners: make(map[uint64]func(presence.PointerEvent))}
}

// AddPointerDownListener registers fn and returns an idempotent remove func.
func (h *PointerHub) AddPointerDownListener(fn func(presence.PointerEvent)) (remove func()) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.listeners[id] = fn
	h.order = append(h.order, id)
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.listeners, id)
			for i, v := range h.order {
				if v == id {
					h.order = append(h.order[:i:i], h.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Dispatch delivers ev to every listener registered at the time of the call.
// Listeners run outside the hub lock and may add or remove listeners.
func (h *PointerHub) Dispatch(ev presence.PointerEvent) {
	h.mu.Lock()
	fns := make([]func(presence.PointerEvent), 0, len(h.order))
	for _, id := range h.order {
		fns = append(fns, h.listeners[id])
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// ListenerCount returns the number of registered listeners.
func (h *PointerHub) ListenerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// ProfileMenu is the open/closed state of the navigation bar's profile menu.
// The outside-click listener is held only while the menu is open.
type ProfileMenu struct {
	pointers ports.PointerSource

	mu            sync.Mutex
	open          bool
	bounds        presence.Rect
	identity      string
	authenticated bool
	release       func()
	unsubscribe   func()
	torndown      bool
}

// MountProfileMenu creates a closed menu that follows store's identity.
func MountProfileMenu(store *SessionStore, pointers ports.PointerSource, bounds presence.Rect) *ProfileMenu {
	m := &ProfileMenu{pointers: pointers, bounds: bounds}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubscribe = store.Subscribe(m.onSession)
	current := store.GetCurrent()
	m.identity = current.IdentityKey()
	m.authenticated = current.IsAuthenticated()
	return m
}

// IsOpen reports whether the menu is shown.
func (m *ProfileMenu) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// SetBounds updates the menu's on-screen region.
func (m *ProfileMenu) SetBounds(r presence.Rect) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bounds = r
}

// Toggle flips the menu on avatar click. It does nothing while signed out.
func (m *ProfileMenu) Toggle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.torndown || !m.authenticated {
		return
	}
	if m.open {
		m.closeLocked()
		return
	}
	m.open = true
	m.release = m.pointers.AddPointerDownListener(m.onPointerDown)
}

// Close hides the menu and releases its outside-click listener.
func (m *ProfileMenu) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
}

// Teardown closes the menu and detaches it from the session store. Further calls are no-ops.
func (m *ProfileMenu) Teardown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.torndown {
		return
	}
	m.closeLocked()
	m.torndown = true
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

func (m *ProfileMenu) closeLocked() {
	m.open = false
	if m.release != nil {
		m.release()
		m.release = nil
	}
}

func (m *ProfileMenu) onPointerDown(ev presence.PointerEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open || m.bounds.Contains(ev.At) {
		return
	}
	m.closeLocked()
}

func (m *ProfileMenu) onSession(s domainauth.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.torndown {
		return
	}
	key := s.IdentityKey()
	if key != m.identity {
		m.closeLocked()
	}
	m.identity = key
	m.authenticated = s.IsAuthenticated()
}
