// Package memory provides an in-memory content repository.
//
// The repository implements driven.RepositoryClient over a folder tree
// held in process. It is used by tests and local dry runs, and supports
// injecting enumeration and content failures and capping the server page
// size so paging behaviour can be exercised without a live server.
//
// Queries are not parsed. Statements registered with SetQuery return the
// registered rows; "SELECT * FROM cmis:document" and "SELECT * FROM
// cmis:folder" return every document or folder in creation order.
package memory
