// Package ir provides the shared data model for eventdoc.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the record model the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - payload and metadata numbers are int64
//   - Metadata values are scalars only (String, Int, Bool)
//   - created_at is stored as text in TimestampLayout (UTC, microseconds),
//     which makes lexicographic and chronological order identical
//   - All JSON tags use snake_case
//   - Every error surfaced by the store is an *Error carrying a Kind
package ir
