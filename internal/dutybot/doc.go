// Package dutybot exposes the duty roster over chat commands and announces
// daily rotations.
//
// Commands: /duty, /next, /prev, /restore, /check, /history, /status and
// /help. Mutations are owner-only. The /duty reply carries inline buttons
// that run the same actions and edit the message in place.
package dutybot
