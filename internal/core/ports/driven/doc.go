// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - RepositoryClient: An open session to a content repository
//   - PageCursor: Offset-addressed page fetches over one enumeration
//   - RepositoryFactory: Opens sessions for configured endpoints
//   - Sink: Receives emitted items one at a time
//   - SinkFactory: Builds the sink for an endpoint
//   - EndpointStore: Configured endpoints
//
// # Optional Interfaces
//
//   - SummarySink: Receives the once-per-poll query summary
//   - ItemStore: Archives emitted items
//   - SchedulerStore: Task state and poll history. Without it, the scheduler is disabled.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
