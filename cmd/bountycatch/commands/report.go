package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/JonMunkholm/bountycatch/internal/core"
)

// ReportError writes err to w as the operator sees it:
//
//	Error: <message> [<code>]
//	  cause: <error chain>
//	  action: <what to do>
//
// The cause line is only printed for errors without a mapped message; the
// full chain is always logged at debug level.
func ReportError(w io.Writer, err error) {
	if err == nil {
		return
	}

	slog.Debug("command failed", "error", err)

	msg := core.MapError(err)
	fmt.Fprintf(w, "Error: %s [%s]\n", msg.Message, msg.Code)
	if !core.IsUserFacing(err) {
		fmt.Fprintf(w, "  cause: %v\n", err)
	}
	if msg.Action != "" {
		fmt.Fprintf(w, "  action: %s\n", msg.Action)
	}
}
