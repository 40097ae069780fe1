// Package integration contains the external-system integration bounded context.
// It defines the canonical product/order/invoice models shared by every
// provider driver, the uniform Driver contract, and the OperationResult
// vocabulary returned to callers.
//
// Key concepts:
//   - Driver: port implemented once per ERP, accounting, invoicing or cargo backend
//   - CanonicalProduct / CanonicalOrder: provider-agnostic marketplace models
//   - InvoicePayload: totals and parties for a fiscal document, built per request
//   - OperationResult: the single success/failure shape crossing the boundary
//   - CredentialStore: TTL cache and atomic counters shared across calls
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (drivers, stores) are in the infrastructure layer
package integration
