// Package models defines domain entities and persistence interfaces for songlist.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing external service data
//   - [Track] : A search result resolved from a free-text query
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [ImportRun] : One execution of the import command against a playlist
//   - [ImportEntry] : The outcome of a single query within a run
//
// All persistent entities implement the [Model] interface providing ID, timestamps and validation.
// The [Repository] interface defines standard CRUD operations for database access.
package models
