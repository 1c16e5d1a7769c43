// Package notifier delivers chat notifications asynchronously.
//
// Notifications are queued, sent by a small worker pool under a shared rate
// limit, retried with jittered exponential backoff and deduplicated over a
// time window. Lifecycle events are published on the event bus as
// notifier.queued, notifier.sent, notifier.deduped, notifier.dropped and
// notifier.failed.
package notifier
