package cli

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/marcelocantos/swish/internal/token"
)

// RunTool is the name of the MCP tool that runs a line.
const RunTool = "run"

// NewMCPServer returns an MCP server exposing the run tool.
func (a *App) NewMCPServer(version string) *server.MCPServer {
	s := server.NewMCPServer("swish", version, server.WithToolCapabilities(false))
	tool := mcp.NewTool(RunTool,
		mcp.WithDescription("Run a swish command line: external commands joined by |, with <, >, >> redirections and &&, ||, ; sequencing. Returns stdout, stderr and the exit status."),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("The command line to run, e.g. \"grep -r TODO . | wc -l\""),
		),
	)
	s.AddTool(tool, a.handleRun)
	return s
}

// RunMCP serves MCP over stdin and stdout until the client disconnects.
// Commands never read the protocol stream.
func (a *App) RunMCP(version string) int {
	if err := server.ServeStdio(a.NewMCPServer(version)); err != nil {
		fmt.Fprintf(a.Stderr, "swish: mcp: %v\n", err)
		return 1
	}
	return 0
}

func (a *App) handleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	line, err := req.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tokens, err := token.Split(line)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(tokens) == 0 {
		return mcp.NewToolResultError("empty command"), nil
	}

	var stdout, stderr lockedBuffer
	status := a.execute(ctx, a.shell(nil, &stdout, &stderr), &stderr, line, tokens)

	var sb strings.Builder
	sb.WriteString(stdout.String())
	if errOut := stderr.String(); errOut != "" {
		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteByte('\n')
		}
		sb.WriteString("stderr:\n")
		sb.WriteString(errOut)
	}
	if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "exit status: %d", status)

	if status != 0 {
		return mcp.NewToolResultError(sb.String()), nil
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// lockedBuffer is a bytes.Buffer safe for the concurrent writes of several
// commands sharing one stream.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
