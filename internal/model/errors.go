package model

// Stable error codes returned across the API, dispatcher, and worker.
// These are part of the external contract; callers branch on them.
const (
	CodeAuthFailed           = "auth_failed"
	CodeAuthNotConfigured    = "auth_not_configured"
	CodeUnauthorized         = "unauthorized"
	CodeQueueFull            = "queue_full"
	CodePermissionDeny       = "permission_deny"
	CodeBlacklistAction      = "blacklist_action"
	CodeBlacklistCommand     = "blacklist_command"
	CodeBlacklistShell       = "blacklist_shell"
	CodeBlacklistTool        = "blacklist_tool"
	CodeBlacklistPlugin      = "blacklist_plugin"
	CodeConfirmationRequired = "confirmation_required"
	CodeConfirmRejected      = "confirm_rejected"
	CodeExecutorNotAvailable = "executor_not_available"
	CodeExecutorStartFailed  = "executor_start_failed"
	CodeExecutorTimeout      = "executor_timeout"
	CodeExecutorNonzeroExit  = "executor_nonzero_exit"
	CodeCanceledByUser       = "canceled_by_user"
	CodeWorkdirNotAllowed    = "workdir_not_allowed"
	CodeTaskTooLarge         = "task_too_large"
	CodeMissingTask          = "missing_task"
	CodeInvalidCwd           = "invalid_cwd"
	CodeJobNotFound          = "job_not_found"
	CodeCircuitOpen          = "circuit_open"
	CodeNetworkUnreachable   = "network_or_unreachable"
	CodeUnknownAction        = "unknown_action"
	CodeInternalError        = "internal_error"
)
