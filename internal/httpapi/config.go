package httpapi

import "time"

// maxBodyBytes controls the maximum allowed request body size for JSON endpoints.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// chatTimeout bounds a /chat request. Zero means no additional timeout
// beyond server/connection timeouts.
var chatTimeout time.Duration

// SetChatTimeout sets the chat timeout (<= 0 disables).
func SetChatTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	chatTimeout = d
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}

// welcome is returned with /status and the final /load line once ready.
var welcome string

// SetWelcome sets the greeting shown once the assistant is ready.
func SetWelcome(msg string) { welcome = msg }

// startTime anchors uptime reporting.
var startTime = time.Now()
