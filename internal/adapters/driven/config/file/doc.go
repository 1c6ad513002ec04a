// Package file provides file-based implementations of driven port interfaces.
// These adapters read configuration from the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML configuration of the scheduler and repository
//     endpoints, implementing driven.EndpointStore
//   - Watcher: fsnotify-based reload of the configuration file
package file
