package presence

import "sync"

// Visibility is the two-state visible/hidden policy. The widget is shown
// only when the user has not hidden it and no full-screen content is active.
type Visibility struct {
	mu         sync.Mutex
	fullscreen bool
	userHidden bool
	visible    bool
}

func NewVisibility() *Visibility { return &Visibility{visible: true} }

// Observe records the latest signal reading. changed is true only on the
// reading that flips the visible state.
func (v *Visibility) Observe(fullscreen bool) (visible, changed bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fullscreen = fullscreen
	return v.settleLocked()
}

// Toggle flips the manual show/hide choice.
func (v *Visibility) Toggle() (visible, changed bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.userHidden = !v.userHidden
	return v.settleLocked()
}

func (v *Visibility) Visible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}

// UserHidden reports the manual choice alone.
func (v *Visibility) UserHidden() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.userHidden
}

func (v *Visibility) settleLocked() (bool, bool) {
	next := !v.userHidden && !v.fullscreen
	changed := next != v.visible
	v.visible = next
	return next, changed
}
