// Package channel defines the delivery-medium capability (Handler), the
// registry mapping channels to handlers, and the Dispatcher that performs
// individual delivery attempts.
//
// The Dispatcher is the only component that transitions notification status
// (pending to sent, failed, or expired), so queue workers and direct
// synchronous sends behave identically. All transitions are conditional
// updates against the store; a concurrent out-of-band change wins.
//
// Built-in handlers cover the in-app feed, email (pkg/email senders), and
// push (pkg/push gateways). A new medium is added by implementing Handler and
// registering it - nothing else changes.
package channel
