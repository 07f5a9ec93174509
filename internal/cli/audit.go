package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/marcelocantos/swish/internal/audit"
)

const defaultTail = 20

// RunAudit handles swish --audit <verify|show|tail [n]>.
func RunAudit(w io.Writer, logPath string, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(w, "usage: swish --audit <verify|show|tail [n]>")
		return 2
	}

	switch args[0] {
	case "verify":
		if err := audit.Verify(logPath); err != nil {
			fmt.Fprintf(w, "audit verification FAILED: %v\n", err)
			return 1
		}
		fmt.Fprintln(w, "audit log integrity verified")
		return 0

	case "show":
		entries, err := audit.Tail(logPath, 0)
		if err != nil {
			fmt.Fprintf(w, "swish audit: %v\n", err)
			return 1
		}
		if len(entries) == 0 {
			fmt.Fprintln(w, "no audit entries")
			return 0
		}
		for _, e := range entries {
			data, _ := json.MarshalIndent(e, "", "  ")
			fmt.Fprintf(w, "%s\n", data)
		}
		return 0

	case "tail":
		n := defaultTail
		if len(args) > 1 {
			v, err := strconv.Atoi(args[1])
			if err != nil || v <= 0 {
				fmt.Fprintf(w, "swish audit: bad count %q\n", args[1])
				return 2
			}
			n = v
		}
		entries, err := audit.Tail(logPath, n)
		if err != nil {
			fmt.Fprintf(w, "swish audit: %v\n", err)
			return 1
		}
		for _, e := range entries {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", e.Seq, e.Time.Format(time.RFC3339), e.ExitCode, summary(e))
		}
		return 0

	default:
		fmt.Fprintf(w, "swish audit: unknown subcommand %q\n", args[0])
		return 2
	}
}

func summary(e audit.Entry) string {
	s := e.Line
	if e.Policy == "deny" {
		s += " [denied]"
	}
	if e.Error != "" {
		s += " (" + strings.ReplaceAll(e.Error, "\n", "; ") + ")"
	}
	return s
}
