// Package domain defines the core domain types and interfaces.
//
// Model types (Connection, Message, DeliveryReport), the wire envelope, and
// the collaborator contracts (Scorer, MessageStore, Deliverer) live here.
// No implementation code - just contracts. Prevents circular imports by
// keeping interfaces on the consumer side.
package domain
