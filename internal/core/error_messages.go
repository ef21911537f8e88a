package core

// # Error Codes Reference
//
// Errors shown to operators carry a code so a failure can be looked up
// without reading logs. Codes are grouped by category.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Connection refused: Unable to connect to PostgreSQL
//	        Action: Check that PostgreSQL is running and PGHOST/PGPORT are correct
//	        Patterns: "connection refused", "no such host"
//
//	DB002 - Connection reset: Database connection was interrupted
//	        Action: Run the command again
//	        Patterns: "connection reset", "unexpected eof"
//
//	DB003 - Authentication failed: PostgreSQL rejected the credentials
//	        Action: Check PGUSER and PGPASSWORD or the postgresql section of the config
//	        Patterns: "password authentication failed", "sqlstate 28p01", "sqlstate 28000"
//
//	DB004 - Unknown database: The configured database does not exist
//	        Action: Create the database or fix PGDATABASE
//	        Patterns: "sqlstate 3d000"
//
//	DB005 - Permission denied: The role lacks privileges on the domains table
//	        Action: Grant the role ownership of the domains table
//	        Patterns: "sqlstate 42501"
//
//	DB006 - Interrupted: The operation was cancelled before it finished
//	        Action: Run the command again; run "bountycatch repair" if an add was interrupted
//	        Patterns: "context canceled"
//
//	DB007 - Timeout: The database did not respond in time
//	        Action: Run the command again later
//	        Patterns: "context deadline exceeded", "timeout"
//
//	DB008 - Lock conflict: Another session holds a conflicting lock
//	        Action: Wait for other bountycatch runs to finish and retry
//	        Patterns: "deadlock", "lock timeout"
//
// # Bulk Load Errors (BULK001-BULK099)
//
//	BULK001 - Degraded table: A bulk load stopped after dropping the indexes
//	          Action: Run "bountycatch repair" before adding more domains
//	          Patterns: "indexes dropped", "sqlstate 42p10"
//
//	BULK002 - Duplicates remain: The primary key could not be rebuilt
//	          Action: Run "bountycatch repair" to remove duplicates
//	          Patterns: "could not create unique index"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File not found: The input file does not exist
//	          Action: Check the path passed with --file
//	          Patterns: "no such file or directory"
//
//	FILE002 - Permission denied: The file cannot be read or written
//	          Action: Check file permissions
//	          Patterns: "permission denied"
//
//	FILE003 - Line too long: An input line exceeds 1 MiB
//	          Action: Make sure the input has one domain per line
//	          Patterns: "token too long"
//
//	FILE004 - Unsupported format: The export format is not supported
//	          Action: Use --format text or --format json
//	          Patterns: "unsupported export format"
//
//	FILE005 - Invalid encoding: An input line is not valid UTF-8
//	          Action: Re-encode the input as UTF-8; --verbose logs the line number
//	          Patterns: "invalid utf-8 in input"
//
// # Configuration Errors (CFG001-CFG099)
//
//	CFG001 - Invalid configuration: A setting failed validation
//	         Action: Fix the listed settings in the config file or environment
//	         Patterns: "config validation"
//
//	CFG002 - Unreadable configuration: The config file could not be read or parsed
//	         Action: Check the file passed with --config
//	         Patterns: "config load"
//
// # Filter Errors (REGEX001)
//
//	REGEX001 - Invalid pattern: The --regex value is not a valid regular expression
//	           Action: Fix the pattern (RE2 syntax)
//	           Patterns: "invalid regex pattern"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Re-run with --verbose and check the logs
//
// Patterns are matched case-insensitively with strings.Contains against the
// full error chain text. The first matching pattern wins, so specific
// patterns come before general ones.

import (
	"strings"
)

// UserMessage provides operator-facing error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgConnRefused = UserMessage{
		Message: "Unable to connect to PostgreSQL",
		Action:  "Check that PostgreSQL is running and PGHOST/PGPORT are correct",
		Code:    "DB001",
	}
	msgConnReset = UserMessage{
		Message: "Database connection was interrupted",
		Action:  "Run the command again",
		Code:    "DB002",
	}
	msgAuth = UserMessage{
		Message: "PostgreSQL rejected the credentials",
		Action:  "Check PGUSER and PGPASSWORD or the postgresql section of the config",
		Code:    "DB003",
	}
	msgTimeout = UserMessage{
		Message: "The database did not respond in time",
		Action:  "Run the command again later",
		Code:    "DB007",
	}
	msgLock = UserMessage{
		Message: "Another session holds a conflicting lock",
		Action:  "Wait for other bountycatch runs to finish and retry",
		Code:    "DB008",
	}
)

// errorPatterns is ordered: bulk and filter errors wrap driver errors, so
// they are checked first.
var errorPatterns = []errorPattern{
	// Bulk load
	{
		pattern: "indexes dropped",
		msg: UserMessage{
			Message: "A bulk load stopped after dropping the table indexes",
			Action:  `Run "bountycatch repair" before adding more domains`,
			Code:    "BULK001",
		},
	},
	{
		// ON CONFLICT needs the primary key; it is missing after a failed bulk load.
		pattern: "sqlstate 42p10",
		msg: UserMessage{
			Message: "The domains table has no primary key, a bulk load left it degraded",
			Action:  `Run "bountycatch repair" before adding more domains`,
			Code:    "BULK001",
		},
	},
	{
		pattern: "could not create unique index",
		msg: UserMessage{
			Message: "The primary key could not be rebuilt because duplicates remain",
			Action:  `Run "bountycatch repair" to remove duplicates`,
			Code:    "BULK002",
		},
	},

	// Filters and formats
	{
		pattern: "invalid regex pattern",
		msg: UserMessage{
			Message: "The --regex value is not a valid regular expression",
			Action:  "Fix the pattern (RE2 syntax)",
			Code:    "REGEX001",
		},
	},
	{
		pattern: "unsupported export format",
		msg: UserMessage{
			Message: "The export format is not supported",
			Action:  "Use --format text or --format json",
			Code:    "FILE004",
		},
	},

	// Configuration
	{
		pattern: "config validation",
		msg: UserMessage{
			Message: "A configuration setting is invalid",
			Action:  "Fix the listed settings in the config file or environment",
			Code:    "CFG001",
		},
	},
	{
		pattern: "config load",
		msg: UserMessage{
			Message: "The config file could not be read",
			Action:  "Check the file passed with --config",
			Code:    "CFG002",
		},
	},

	// Files
	{
		pattern: "no such file or directory",
		msg: UserMessage{
			Message: "The input file does not exist",
			Action:  "Check the path passed with --file",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid utf-8 in input",
		msg: UserMessage{
			Message: "An input line is not valid UTF-8",
			Action:  "Re-encode the input as UTF-8; --verbose logs the line number",
			Code:    "FILE005",
		},
	},
	{
		pattern: "token too long",
		msg: UserMessage{
			Message: "An input line exceeds 1 MiB",
			Action:  "Make sure the input has one domain per line",
			Code:    "FILE003",
		},
	},

	// Database
	{pattern: "password authentication failed", msg: msgAuth},
	{pattern: "sqlstate 28p01", msg: msgAuth},
	{pattern: "sqlstate 28000", msg: msgAuth},
	{
		pattern: "sqlstate 3d000",
		msg: UserMessage{
			Message: "The configured database does not exist",
			Action:  "Create the database or fix PGDATABASE",
			Code:    "DB004",
		},
	},
	{
		pattern: "sqlstate 42501",
		msg: UserMessage{
			Message: "The database role lacks privileges on the domains table",
			Action:  "Grant the role ownership of the domains table",
			Code:    "DB005",
		},
	},
	{
		pattern: "permission denied",
		msg: UserMessage{
			Message: "The file cannot be read or written",
			Action:  "Check file permissions",
			Code:    "FILE002",
		},
	},
	{pattern: "connection refused", msg: msgConnRefused},
	{pattern: "no such host", msg: msgConnRefused},
	{pattern: "connection reset", msg: msgConnReset},
	{pattern: "unexpected eof", msg: msgConnReset},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The operation was cancelled before it finished",
			Action:  `Run the command again; run "bountycatch repair" if an add was interrupted`,
			Code:    "DB006",
		},
	},
	{pattern: "deadlock", msg: msgLock},
	{pattern: "lock timeout", msg: msgLock},
	{pattern: "context deadline exceeded", msg: msgTimeout},
	{pattern: "timeout", msg: msgTimeout},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Re-run with --verbose and check the logs",
	Code:    "ERR000",
}

// MapError converts a technical error to an operator-facing message.
// It returns the first matching pattern, or ERR000 when none matches.
//
// Example:
//
//	msg := MapError(fmt.Errorf("add: %w", ErrIndexesDropped))
//	// msg.Code == "BULK001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback. The CLI prints the raw error only when it is not.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
