package agentcli

// ErrorKind is the closed taxonomy of Error canonical events (spec §7).
type ErrorKind string

const (
	ErrCLINotInstalled        ErrorKind = "cli_not_installed"
	ErrSpawnFailed            ErrorKind = "spawn_failed"
	ErrAuthMissing            ErrorKind = "auth_missing"
	ErrCrashedBeforeFirstEvent ErrorKind = "crashed_before_first_event"
	ErrSessionStale           ErrorKind = "session_stale"
	ErrRateLimited            ErrorKind = "rate_limited"
	ErrModelFallback          ErrorKind = "model_fallback"
	ErrTimeout                ErrorKind = "timeout"
	ErrCancelled              ErrorKind = "cancelled"
	ErrProtocol               ErrorKind = "protocol"
	ErrInternal               ErrorKind = "internal"
)

// Retryable reports whether the orchestrator should itself retry a run that
// failed with this kind, per the table in spec §7. session_stale is the one
// kind retried transparently (once, dropping the prior session id); none of
// the others get a bare retry, though several are fallback-eligible instead.
func (k ErrorKind) Retryable() bool {
	return k == ErrSessionStale
}

// FallbackEligible reports whether a run failing with this kind should
// trigger the orchestrator's one-shot fallback-to-claude policy (spec §4.4).
func (k ErrorKind) FallbackEligible() bool {
	switch k {
	case ErrCLINotInstalled, ErrSpawnFailed, ErrAuthMissing, ErrCrashedBeforeFirstEvent, ErrProtocol:
		return true
	}
	return false
}
