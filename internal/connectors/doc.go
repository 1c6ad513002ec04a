// Package connectors opens repository sessions for configured endpoints.
// Each connector knows how to reach one kind of repository; the Factory
// picks one by the scheme of the endpoint URL.
//
// Connectors are registered with the Factory at startup.
package connectors
