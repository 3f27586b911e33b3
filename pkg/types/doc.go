// Package types defines the coursewatch entity model, the versioned snapshot
// schema used by the event store, the store interfaces, and the standard
// error types shared by the crawler, the reconciler and the dispatcher.
//
// Entities refer to each other by identity only: a content node knows the id
// of its owning course and a folder knows the refs of its children.
package types
