package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the image file",
}

var bandProperties = map[string]interface{}{
	"min_intensity": map[string]interface{}{
		"type":        "integer",
		"description": "Lowest channel value counted as marker (0-255). Default from the loop configuration (240)",
	},
	"max_intensity": map[string]interface{}{
		"type":        "integer",
		"description": "Highest channel value counted as marker (0-255). Default from the loop configuration (255)",
	},
}

// withBand merges the intensity band properties into props.
func withBand(props map[string]interface{}) map[string]interface{} {
	for k, v := range bandProperties {
		props[k] = v
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format and whether it has transparency. Marker templates should be transparent outside the marker.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_channel_stats",
			Description: "Report per-channel min, max and mean, the image dimensions as 'H x W', the channel count and the mean color.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_crop",
			Description: "Crop a rectangular region from an image and return it as base64-encoded PNG. Use this to zoom into a placed marker.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"x1": map[string]interface{}{
						"type":        "integer",
						"description": "Left edge X coordinate (0-based)",
					},
					"y1": map[string]interface{}{
						"type":        "integer",
						"description": "Top edge Y coordinate (0-based)",
					},
					"x2": map[string]interface{}{
						"type":        "integer",
						"description": "Right edge X coordinate (exclusive)",
					},
					"y2": map[string]interface{}{
						"type":        "integer",
						"description": "Bottom edge Y coordinate (exclusive)",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 2.0 to double size). Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"path", "x1", "y1", "x2", "y2"},
			},
		},

		// Marker Placement and Detection
		{
			Name:        "gcp_place",
			Description: "Place the marker on a canvas once: rotate it, scale it relative to the canvas width and alpha-blend it at a random or given center. Returns the transform, center and marker size, and optionally writes or returns the composite.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"canvas_path": map[string]interface{}{
						"type":        "string",
						"description": "Canvas image. Default: the loop canvas, or a generated solid canvas",
					},
					"marker_path": map[string]interface{}{
						"type":        "string",
						"description": "Marker template. Default: the loop marker",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Fixed scale factor. Default: sampled from [min_scale, max_scale]",
					},
					"rotation": map[string]interface{}{
						"type":        "number",
						"description": "Fixed counter-clockwise rotation in degrees. Default: sampled from [0, 360)",
					},
					"min_scale": map[string]interface{}{
						"type":        "number",
						"description": "Lower scale bound. Default from the loop configuration",
					},
					"max_scale": map[string]interface{}{
						"type":        "number",
						"description": "Upper scale bound. Default from the loop configuration",
					},
					"center_x": map[string]interface{}{
						"type":        "integer",
						"description": "Marker center X. Must be given together with center_y; no containment check is made",
					},
					"center_y": map[string]interface{}{
						"type":        "integer",
						"description": "Marker center Y",
					},
					"seed": map[string]interface{}{
						"type":        "integer",
						"description": "Random seed for reproducible placement. 0 = time based",
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Write the composite PNG here",
					},
					"include_image": map[string]interface{}{
						"type":        "boolean",
						"description": "Return the composite as base64 PNG",
						"default":     false,
					},
				},
			},
		},
		{
			Name:        "gcp_detect",
			Description: "Detect the marker as the bounding box of pixels whose R, G and B all lie in the intensity band. Returns corners, both diagonal midpoints and the averaged center, or found=false. With placed_x/placed_y also reports the offset from the placed center.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withBand(map[string]interface{}{
					"path": pathProperty,
					"placed_x": map[string]interface{}{
						"type":        "integer",
						"description": "Center the marker was placed at (X)",
					},
					"placed_y": map[string]interface{}{
						"type":        "integer",
						"description": "Center the marker was placed at (Y)",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "gcp_filter",
			Description: "Render the detection filter view: pixels in the intensity band keep their color, everything else is black.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withBand(map[string]interface{}{
					"path": pathProperty,
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Write the filtered PNG here instead of returning it",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "gcp_annotate",
			Description: "Draw the detected bounding box and a cross-hair at the detected center. Optionally returns only a zoomed crop around the center.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withBand(map[string]interface{}{
					"path": pathProperty,
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Annotation color as #RRGGBB. Default #ff0000",
						"default":     "#ff0000",
					},
					"zoom_radius": map[string]interface{}{
						"type":        "integer",
						"description": "If set, crop a square of this half-size around the detected center",
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Write the annotated PNG here instead of returning it",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "gcp_classify",
			Description: "Classify markers with the ring classifier, retrying with decreasing confidence (0.25, 0.1, 0.05, 0.01) until something is found.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"ladder": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "number"},
						"description": "Confidence thresholds to try in order",
					},
				},
				"required": []string{"path"},
			},
		},

		// Publish Loop Control
		{
			Name:        "gcp_loop_start",
			Description: "Start the publish loop. No-op if it is already running.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "gcp_loop_stop",
			Description: "Stop the publish loop and wait for the current cycle to finish. No-op if it is not running.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "gcp_status",
			Description: "Report the loop state, cycle count, last error and the latest published record (scale, rotation, center, detected center, file paths).",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
