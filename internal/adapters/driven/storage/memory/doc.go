// Package memory provides in-memory implementations of the item archive and
// scheduler state. They back a run when the SQLite archive cannot be opened;
// nothing survives the process.
package memory
