// Package session owns the inference session behind the portfolio chat
// assistant: one model handle, acquired once, answering one question at a
// time. It is structured into small files by concern:
//
//   - session.go: core Session type, constructor, read-only queries.
//   - config.go: Config and package defaults; New applies defaults.
//   - types.go: state, progress, request and completion types plus the
//     Acquirer/ModelHandle interfaces implemented by internal/runtime/*.
//   - errors.go: error types and helpers (IsNotReady, IsNetworkFailure, ...).
//   - classify.go: maps raw runtime errors onto the load error taxonomy.
//   - progress.go: per-resource progress aggregation.
//   - load.go: single-flight Load with progress fan-out.
//   - prompt.go: PromptBuilder and word-budget truncation.
//   - generate.go: single in-flight Generate and response cleanup.
//   - dispose.go: Dispose and handle release.
//   - events.go, eventpub_memory.go: lifecycle event publishing.
//   - metrics.go: Prometheus collectors.
//   - status_report.go: Snapshot/Status reporting helpers.
//
// External packages should treat Session as the only owner of the model
// handle. Callers observe it through IsReady, IsLoading, Snapshot and Status
// and mutate it only through Load, Generate and Dispose.
package session
