// Package tools groups the tool registry and its MCP transport.
//
//   - [github.com/JesseRWeigel/stay-focused/pkg/tools/toolbox] holds the Tool type and the ToolBox registry
//   - [github.com/JesseRWeigel/stay-focused/pkg/tools/mcpserver] serves a ToolBox over MCP with the official Go SDK
package tools
