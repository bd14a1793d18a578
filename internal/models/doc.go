// Package models defines domain entities and persistence interfaces for the windsync media transfer service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing external service data
//   - [MediaFile] : Media file metadata enumerated at the source
//   - [PendingCommit] : An uploaded-but-not-yet-committed file awaiting group commit
//   - [CommitOutcome] : Per-item result of a group commit call
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [SyncRun] : One sync invocation with progress counters and terminal status
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
