// Package presence decides whether the duty widget should be on screen.
//
// A Signal reports whether full-screen content (a slide show) is active.
// Visibility combines that signal with the user's manual show/hide choice,
// and Watcher polls a Signal and publishes changes on the event bus.
package presence
