// Package email provides a provider-agnostic interface for sending
// notification emails, used by the email channel handler.
//
// Three EmailSender implementations are included:
//   - PostmarkClient for production delivery with open/click tracking
//   - SMTPSender for deployments relaying through their own mail server
//   - DevSender for local development (saves emails to disk)
//
// All implementations validate parameters before sending and return sentinel
// errors checkable with errors.Is. Transient provider failures surface as
// plain errors; the delivery queue's retry policy decides what happens next.
package email
