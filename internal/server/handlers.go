package server

import (
	"encoding/json"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/gcp-sim/internal/detection"
	"github.com/ironsheep/gcp-sim/internal/imaging"
	"github.com/ironsheep/gcp-sim/internal/publish"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "gcp_place", "gcp_detect").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies defaults, mostly taken from the loop configuration
//  3. Loads images; analyzed inputs are read fresh, templates and metadata
//     through the cache
//  4. Calls the appropriate imaging/detection/publish function
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_channel_stats":
		return s.handleImageChannelStats(args)
	case "image_crop":
		return s.handleImageCrop(args)

	// Marker Placement and Detection
	case "gcp_place":
		return s.handleGCPPlace(args)
	case "gcp_detect":
		return s.handleGCPDetect(args)
	case "gcp_filter":
		return s.handleGCPFilter(args)
	case "gcp_annotate":
		return s.handleGCPAnnotate(args)
	case "gcp_classify":
		return s.handleGCPClassify(args)

	// Publish Loop Control
	case "gcp_loop_start":
		return s.handleLoopStart()
	case "gcp_loop_stop":
		return s.handleLoopStop()
	case "gcp_status":
		return s.handleStatus(), nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

func (s *Server) handleImageChannelStats(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := imaging.LoadImage(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.ChannelStatistics(img)
}

type imageCropArgs struct {
	Path  string  `json:"path"`
	X1    int     `json:"x1"`
	Y1    int     `json:"y1"`
	X2    int     `json:"x2"`
	Y2    int     `json:"y2"`
	Scale float64 `json:"scale"`
}

func (s *Server) handleImageCrop(args json.RawMessage) (interface{}, error) {
	var a imageCropArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	img, err := imaging.LoadImage(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.Crop(img, a.X1, a.Y1, a.X2, a.Y2, a.Scale)
}

// === Marker Placement and Detection Handlers ===

type gcpPlaceArgs struct {
	CanvasPath   string   `json:"canvas_path"`
	MarkerPath   string   `json:"marker_path"`
	Scale        *float64 `json:"scale"`
	Rotation     *float64 `json:"rotation"`
	MinScale     float64  `json:"min_scale"`
	MaxScale     float64  `json:"max_scale"`
	CenterX      *int     `json:"center_x"`
	CenterY      *int     `json:"center_y"`
	Seed         uint64   `json:"seed"`
	OutputPath   string   `json:"output_path"`
	IncludeImage bool     `json:"include_image"`
}

type gcpPlaceResult struct {
	*imaging.CompositeResult
	CanvasColor string                `json:"canvas_color,omitempty"`
	OutputPath  string                `json:"output_path,omitempty"`
	Image       *imaging.EncodedImage `json:"image,omitempty"`
}

func (s *Server) handleGCPPlace(args json.RawMessage) (interface{}, error) {
	var a gcpPlaceArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	cfg := s.loop.Config()
	if a.MinScale == 0 {
		a.MinScale = cfg.MinScale
	}
	if a.MaxScale == 0 {
		a.MaxScale = cfg.MaxScale
	}
	if a.MarkerPath == "" {
		a.MarkerPath = cfg.MarkerPath
	}
	if a.CanvasPath == "" {
		a.CanvasPath = cfg.CanvasPath
	}
	if (a.CenterX == nil) != (a.CenterY == nil) {
		return nil, fmt.Errorf("center_x and center_y must be given together: %w", imaging.ErrConfiguration)
	}

	sampler := imaging.NewSampler(a.Seed)
	result := &gcpPlaceResult{}

	var base image.Image
	if a.CanvasPath != "" {
		img, err := imaging.LoadImage(a.CanvasPath)
		if err != nil {
			return nil, err
		}
		base = img
	} else {
		img, fill, err := imaging.SolidCanvas(sampler, cfg.CanvasWidth, cfg.CanvasHeight)
		if err != nil {
			return nil, err
		}
		base = img
		c, _ := colorful.MakeColor(fill)
		result.CanvasColor = c.Hex()
	}

	marker, err := s.cache.Load(a.MarkerPath)
	if err != nil {
		return nil, err
	}

	t, err := sampler.Sample(a.MinScale, a.MaxScale)
	if err != nil {
		return nil, err
	}
	if a.Scale != nil {
		if err := imaging.ValidateScaleBounds(*a.Scale, *a.Scale); err != nil {
			return nil, err
		}
		t.ScaleFactor = *a.Scale
	}
	if a.Rotation != nil {
		t.RotationDegrees = *a.Rotation
	}

	var center *image.Point
	if a.CenterX != nil {
		center = &image.Point{X: *a.CenterX, Y: *a.CenterY}
	}

	res, err := imaging.NewCompositor(sampler).Composite(base, marker, t, center)
	if err != nil {
		return nil, err
	}
	result.CompositeResult = res

	if a.OutputPath != "" {
		if err := imgio.Save(a.OutputPath, res.Image, imgio.PNGEncoder()); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", a.OutputPath, err)
		}
		result.OutputPath = a.OutputPath
	}
	if a.IncludeImage {
		enc, err := imaging.EncodeBase64(res.Image)
		if err != nil {
			return nil, err
		}
		result.Image = enc
	}
	return result, nil
}

type bandArgs struct {
	MinIntensity *int `json:"min_intensity"`
	MaxIntensity *int `json:"max_intensity"`
}

// band returns the requested band, defaulting to the loop's.
func (s *Server) band(a bandArgs) (int, int) {
	cfg := s.loop.Config()
	lo, hi := cfg.MinIntensity, cfg.MaxIntensity
	if a.MinIntensity != nil {
		lo = *a.MinIntensity
	}
	if a.MaxIntensity != nil {
		hi = *a.MaxIntensity
	}
	return lo, hi
}

type gcpDetectArgs struct {
	Path string `json:"path"`
	bandArgs
	PlacedX *int `json:"placed_x"`
	PlacedY *int `json:"placed_y"`
}

type gcpDetectResult struct {
	detection.Region
	Offset *imaging.OffsetResult `json:"offset,omitempty"`
}

func (s *Server) handleGCPDetect(args json.RawMessage) (interface{}, error) {
	var a gcpDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := imaging.LoadImage(a.Path)
	if err != nil {
		return nil, err
	}

	lo, hi := s.band(a.bandArgs)
	region, err := detection.Detect(img, lo, hi)
	if err != nil {
		return nil, err
	}

	result := &gcpDetectResult{Region: region}
	if region.Found && a.PlacedX != nil && a.PlacedY != nil {
		off := imaging.MeasureOffset(image.Pt(*a.PlacedX, *a.PlacedY), region.Center.X, region.Center.Y)
		result.Offset = &off
	}
	return result, nil
}

type gcpFilterArgs struct {
	Path string `json:"path"`
	bandArgs
	OutputPath string `json:"output_path"`
}

type imageOutput struct {
	OutputPath string                `json:"output_path,omitempty"`
	Image      *imaging.EncodedImage `json:"image,omitempty"`
}

// emit writes img to path, or returns it inline when path is empty.
func emit(img image.Image, path string) (*imageOutput, error) {
	if path != "" {
		if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		return &imageOutput{OutputPath: path}, nil
	}
	enc, err := imaging.EncodeBase64(img)
	if err != nil {
		return nil, err
	}
	return &imageOutput{Image: enc}, nil
}

func (s *Server) handleGCPFilter(args json.RawMessage) (interface{}, error) {
	var a gcpFilterArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := imaging.LoadImage(a.Path)
	if err != nil {
		return nil, err
	}

	lo, hi := s.band(a.bandArgs)
	mask, err := detection.NewMask(img, lo, hi)
	if err != nil {
		return nil, err
	}
	return emit(mask.Filter(img), a.OutputPath)
}

type gcpAnnotateArgs struct {
	Path string `json:"path"`
	bandArgs
	Color      string `json:"color"`
	ZoomRadius int    `json:"zoom_radius"`
	OutputPath string `json:"output_path"`
}

type gcpAnnotateResult struct {
	Region detection.Region `json:"region"`
	*imageOutput
}

func (s *Server) handleGCPAnnotate(args json.RawMessage) (interface{}, error) {
	var a gcpAnnotateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Color == "" {
		a.Color = detection.DefaultAnnotationColor
	}
	img, err := imaging.LoadImage(a.Path)
	if err != nil {
		return nil, err
	}

	lo, hi := s.band(a.bandArgs)
	region, err := detection.Detect(img, lo, hi)
	if err != nil {
		return nil, err
	}
	annotated := detection.Annotate(img, region, a.Color)

	if a.ZoomRadius > 0 && region.Found {
		center := image.Pt(int(region.Center.X), int(region.Center.Y))
		enc, err := imaging.CropAround(annotated, center, a.ZoomRadius, 1.0)
		if err != nil {
			return nil, err
		}
		return &gcpAnnotateResult{Region: region, imageOutput: &imageOutput{Image: enc}}, nil
	}

	out, err := emit(annotated, a.OutputPath)
	if err != nil {
		return nil, err
	}
	return &gcpAnnotateResult{Region: region, imageOutput: out}, nil
}

type gcpClassifyArgs struct {
	Path   string    `json:"path"`
	Ladder []float64 `json:"ladder"`
}

func (s *Server) handleGCPClassify(args json.RawMessage) (interface{}, error) {
	var a gcpClassifyArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Ladder) == 0 {
		a.Ladder = s.ladder
	}
	return detection.ClassifyLadder(s.ctx, s.classifier, a.Path, a.Ladder)
}

// === Publish Loop Control Handlers ===

// loopStatus is publish.Status plus the published file paths.
type loopStatus struct {
	publish.Status
	CompositePath string `json:"compositePath"`
	FilteredPath  string `json:"filteredPath"`
}

func (s *Server) handleStatus() *loopStatus {
	store := s.loop.Store()
	return &loopStatus{
		Status:        s.loop.Status(),
		CompositePath: store.Path(publish.Composite),
		FilteredPath:  store.Path(publish.Filtered),
	}
}

func (s *Server) handleLoopStart() (interface{}, error) {
	if err := s.loop.Start(s.ctx); err != nil {
		return nil, err
	}
	return s.handleStatus(), nil
}

func (s *Server) handleLoopStop() (interface{}, error) {
	if err := s.loop.Stop(s.ctx); err != nil {
		return nil, err
	}
	return s.handleStatus(), nil
}
