package types

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	// The visitor's question.
	// example: What are his skills?
	Message string `json:"message" example:"What are his skills?"`
}

// ChatResponse is returned by POST /chat.
type ChatResponse struct {
	// The cleaned answer.
	Reply string `json:"reply"`
	// True when the model output was too short and Reply is the canned fallback.
	// example: false
	Fallback bool `json:"fallback" example:"false"`
}

// FileProgress is the progress of one model asset.
type FileProgress struct {
	// example: qwen2.5-0.5b-instruct-q4_k_m.gguf
	File string `json:"file" example:"qwen2.5-0.5b-instruct-q4_k_m.gguf"`
	// example: 1048576
	Loaded int64 `json:"loaded" example:"1048576"`
	// example: 491400032
	Total int64 `json:"total" example:"491400032"`
}

// LoadProgress is one NDJSON line streamed by POST /load.
type LoadProgress struct {
	// Aggregate progress in percent (0-100).
	// example: 23.3
	Progress float64 `json:"progress" example:"23.3"`
	// Resource the triggering event was about.
	File string `json:"file,omitempty"`
	// Runtime-provided description.
	Text string `json:"text,omitempty"`
	// progress or done.
	// example: progress
	Status string `json:"status" example:"progress"`
	// Bytes loaded across all known files.
	Loaded int64 `json:"loaded,omitempty"`
	// Bytes expected across all known files.
	Total int64 `json:"total,omitempty"`
	// Per-file progress when several files load in parallel.
	Files []FileProgress `json:"files,omitempty"`
}

// LoadResult is the final NDJSON line of POST /load.
type LoadResult struct {
	Done bool `json:"done"`
	// Session state after the load.
	// example: ready
	State string `json:"state" example:"ready"`
	// Error message when the load failed.
	Error string `json:"error,omitempty"`
	// Error classification: unsupported_environment, network_failure, resource_exhaustion, unknown.
	Kind string `json:"kind,omitempty"`
	// Whether retrying the load makes sense.
	Retryable bool `json:"retryable,omitempty"`
	// Greeting to show once the assistant is ready.
	Welcome string `json:"welcome,omitempty"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
	// Optional machine-readable error kind.
	Kind string `json:"kind,omitempty"`
	// Whether the client may retry.
	Retryable bool `json:"retryable,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// example: 4f6c1f0e-6f0b-4c55-9d7a-1d1f5e0f2f4b
	SessionID string `json:"session_id"`
	// example: qwen2.5-0.5b-instruct-q4_k_m
	ModelID string `json:"model_id"`
	// unloaded, loading, ready or disposed.
	// example: ready
	State   string `json:"state" example:"ready"`
	Ready   bool   `json:"ready"`
	Loading bool   `json:"loading"`
	// True while a response is being generated.
	Generating bool `json:"generating"`
	// Last load error, if the previous load failed.
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	// Current progress while loading.
	Progress *LoadProgress `json:"progress,omitempty"`
	// Greeting shown once ready.
	Welcome string `json:"welcome,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
