// Package services implements the driving port interfaces.
// Services hold the polling logic: the tree walk, query paging, the
// polling facade, node creation, and the orchestration and scheduling
// of polls across configured endpoints. They talk to repositories and
// sinks only through driven ports.
package services
