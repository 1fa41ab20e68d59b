// Package server implements the MCP (Model Context Protocol) server that
// exposes the quiz layout detector to MCP clients.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - notifications/initialized: Acknowledged without a response
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - quiz_match_layout: Core region and choices A-D, or the failure reason
//   - quiz_crop_core: The question region as a base64 PNG or JPEG
//   - quiz_overlay: The screenshot with detected boxes drawn on it
//   - quiz_edge_map: The binary edge map the detector sees
//
// Every tool takes the absolute path of a screenshot. Decoded images are
// cached by path and reloaded when the file changes.
//
// # Error Handling
//
// Tool failures, including a screenshot without a settled layout for
// quiz_crop_core, return JSON-RPC error -32000 with the message in data.
// A layout that does not match is not an error for quiz_match_layout; the
// result carries matched=false and the failure.
package server
