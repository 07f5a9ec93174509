package cli

import (
	"fmt"
	"io"

	"github.com/marcelocantos/swish/internal/command"
	"github.com/marcelocantos/swish/internal/pipeline"
	"github.com/marcelocantos/swish/internal/shell"
)

// RunHelp prints general usage.
func RunHelp(w io.Writer) int {
	fmt.Fprintln(w, "swish - a small shell that runs pipelines of external commands")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "usage:")
	fmt.Fprintln(w, "  swish                             interactive prompt, or a script on stdin")
	fmt.Fprintln(w, "  swish -c '<line>'                 run one line")
	fmt.Fprintf(w, "  swish --pipe <cmd> '%s' <cmd> ...   run pre-split tokens\n", pipeline.OpPipe)
	fmt.Fprintln(w, "  swish --audit <verify|show|tail>  audit log operations")
	fmt.Fprintln(w, "  swish --mcp                       serve the run tool over MCP stdio")
	fmt.Fprintln(w, "  swish --help                      show help")
	fmt.Fprintln(w, "  swish --version                   show version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "pipeline operators:")
	fmt.Fprintf(w, "  %s   pipe (stdout → stdin)\n", pipeline.OpPipe)
	fmt.Fprintf(w, "  %s   redirect stdin from file\n", command.OpRedirectIn)
	fmt.Fprintf(w, "  %s   redirect stdout to file\n", command.OpRedirectOut)
	fmt.Fprintf(w, "  %s  append stdout to file\n", command.OpRedirectAppend)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "compound operators:")
	fmt.Fprintf(w, "  %s  and-then (run next if previous succeeded)\n", shell.OpAndThen)
	fmt.Fprintf(w, "  %s  or-else (run next if previous failed)\n", shell.OpOrElse)
	fmt.Fprintf(w, "  %s   sequential (run next regardless)\n", shell.OpSequential)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "configuration: ~/.config/swish/config.yaml, SWISH_* environment variables")
	return 0
}
