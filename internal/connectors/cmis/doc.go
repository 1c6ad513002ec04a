// Package cmis implements a repository client for CMIS 1.1 servers over
// the Browser Binding (JSON over HTTP).
//
// # Architecture
//
// The client follows the driven port pattern defined in
// [driven.RepositoryClient]. It comprises the following components:
//
//   - Session: binds to one repository and implements the client port
//   - Client: handles HTTP communication, authentication and retries
//   - RateLimiter: throttles requests and honours Retry-After
//   - Config: derives connection settings from an endpoint
//
// # Binding
//
// Open reads the service document at the endpoint URL. Each repository
// it advertises carries a repositoryUrl, used for queries and type
// definitions, and a rootFolderUrl, used for object, children and content
// requests. All reads request succinct properties, which map directly
// onto flat property sets. Multi-valued properties keep their first value.
//
// Children and query results are paged with maxItems and skipCount. The
// skip count is always the number of items consumed so far, so a server
// returning short pages is handled without gaps or repeats.
//
// # Authentication
//
// Two authentication methods are supported:
//
//   - Basic: username and password from the endpoint, or embedded in the URL.
//
//   - Bearer: a static token sent through an oauth2 transport. It takes
//     precedence over basic credentials when both are set.
//
// # Rate Limiting
//
// Requests pass through a token bucket (20 requests per second by default,
// configurable per endpoint). A 429 or 503 response records the server's
// Retry-After and delays every following request until then. Reads are
// retried up to three times with exponential backoff on 429, 502, 503 and
// 504; writes are never retried.
//
// # Errors
//
// Error responses become *APIError values carrying the browser binding
// exception name. APIError unwraps to the matching domain sentinel, so
// errors.Is(err, domain.ErrNotFound) holds for objectNotFound. A
// constraint error when reading content means the document has no content
// stream and is reported as no content rather than as an error.
package cmis
