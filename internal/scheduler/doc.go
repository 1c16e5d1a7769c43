// Package scheduler triggers named jobs on cron or interval schedules.
//
// Schedules are upserted by name and survive Stop/Start. A job that is still
// running when its next tick fires is skipped rather than queued.
package scheduler
