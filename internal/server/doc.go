// Package server implements the MCP (Model Context Protocol) server for the
// GCP marker simulator.
//
// The server speaks JSON-RPC 2.0 and exposes one-shot placement and detection
// tools next to controls for the background publish loop.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//   - image_channel_stats: Per-channel min, max and mean
//   - image_crop: Extract rectangular region
//
// Marker Placement and Detection:
//   - gcp_place: Composite the marker onto a canvas once
//   - gcp_detect: Locate the near-white marker region
//   - gcp_filter: Keep only pixels inside the intensity band
//   - gcp_annotate: Draw the detected box and center
//   - gcp_classify: Run the ring classifier over a confidence ladder
//
// Publish Loop Control:
//   - gcp_loop_start, gcp_loop_stop: Start or stop the loop
//   - gcp_status: Loop state and latest published record
//
// Tools that take an intensity band, scale bounds, canvas or marker default
// them from the loop configuration.
//
// # Image Caching
//
// Marker templates and image metadata are cached by path for the lifetime of
// the server. Images that are analyzed (detect, filter, annotate, classify,
// statistics, crop) are decoded on every call, because the published
// composite is rewritten each cycle under the same name.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(server.Options{Loop: loop, Version: version})
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
