// Package domain defines the core entities of the CMIS poller.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Node: A folder or document in the remote repository
//   - Page: One bounded batch of nodes plus a more-available flag
//   - EmittedItem: The unit handed to a sink
//   - Budget: The running cap on items emitted by one poll
//   - PollMode: Tree traversal or query paging
//   - Endpoint: A configured repository and its polling options
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
