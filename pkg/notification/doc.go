// Package notification defines the domain model shared by the delivery queue
// and its collaborators: the Notification entity with its delivery lifecycle,
// user preferences, the audit log, and the Store contract for the durable
// record of all three.
//
// The queue subsystem treats the Store as an external collaborator and the
// sole source of truth for notification state. Because other services read
// and write the same records, status transitions are expressed as conditional
// updates (UpdateStatusIf) rather than blind writes.
//
// MemoryStore provides a complete in-process implementation for tests and
// local development; production deployments back the interface with their own
// persistence.
package notification
