package defaults

// Exit codes for the CLI. Findings never change the exit code.
const (
	ExitSuccess         = 0   // Pipeline ran to completion
	ExitInternalError   = 1   // Unexpected internal error
	ExitUserError       = 2   // Invalid arguments or configuration
	ExitFilesystemError = 3   // Results could not be written
	ExitInterrupted     = 130 // Second interrupt during shutdown
)
