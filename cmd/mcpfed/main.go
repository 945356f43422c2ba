// Command mcpfed runs the MCP federation manager: it connects out to a
// set of configured MCP servers over stdio/sse/streamable-http, keeps a
// unified tool catalog, and wraps every tool call with validation,
// timeout, and response normalization.
package main

// version can be set during build with -ldflags.
var version = "dev"

func main() {
	SetVersion(version)
	Execute()
}
