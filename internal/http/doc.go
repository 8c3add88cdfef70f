// Package http provides the HTTP surface of the reminder bot.
//
// The router exposes the following endpoints:
//   - POST /webhook: Green API notification sink. Guarded by the webhook
//     token; non-text notifications are acknowledged and ignored.
//   - POST /jobs/materialize: expands active templates over the configured
//     horizon and reports {"templates","created"}.
//   - POST /jobs/sweep: runs the initial and escalation reminder passes and
//     reports per-pass {"processed","sent"} counts.
//   - GET /healthz: liveness plus a database ping.
//   - GET /calendar/{phone}.ics: iCalendar feed of the owner's upcoming
//     events.
package http
