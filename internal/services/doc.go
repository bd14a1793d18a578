// Package services defines the [Source] and [Destination] interfaces for cloud media providers and implements them for Google Drive and Google Photos.
//
// # Provider Interfaces
//
// [Source] enumerates and downloads media files at the origin; [Destination]
// accepts byte uploads, commits them in groups, and can scan its library for
// existing filenames. The transfer pipeline in internal/tasks consumes only
// these interfaces.
//
// # Google Drive Implementation
//
// [DriveService] lists supported media via the Drive v3 files.list endpoint
// (paged, mime-type filtered, optional folder scoping with recursive
// traversal and a modified-since filter) and downloads file content into
// memory with alt=media.
//
// # Google Photos Implementation
//
// [PhotosService] performs the two-step Photos upload: raw bytes to the
// uploads endpoint (returning an upload token), then mediaItems:batchCreate
// to commit up to fifty tokens per call. Responses map positionally back to
// the submitted items. The library scan pages through every media item,
// which is why the filename cache in internal/tasks persists its result.
//
// # Authentication
//
// Both providers share one [TokenSource] wrapping an [oauth2.Config]. Token
// refresh happens under a dedicated mutex so concurrent expiry across workers
// never triggers two simultaneous refresh requests.
//
// # Error Handling
//
// HTTP responses are classified into the shared taxonomy:
//   - [shared.ErrRateLimited] : HTTP 429, retryable
//   - [shared.ErrRemoteUnavailable] : HTTP 5xx, retryable
//   - [shared.ErrRemoteRejected] : other non-2xx, not retryable
//
// [Do] implements the exponential backoff retry loop used for downloads,
// byte uploads and group commits.
package services
