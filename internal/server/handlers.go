package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"

	diskimaging "github.com/disintegration/imaging"

	"github.com/ironsheep/quiz-tapper/internal/detection"
	"github.com/ironsheep/quiz-tapper/internal/imaging"
	"github.com/ironsheep/quiz-tapper/internal/screen"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	Name      string          `json:"name"`
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
		s.log.Warnf("tool %s failed: %v", params.Name, err)
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

func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "quiz_match_layout":
		return s.handleMatchLayout(args)
	case "quiz_crop_core":
		return s.handleCropCore(args)
	case "quiz_overlay":
		return s.handleOverlay(args)
	case "quiz_edge_map":
		return s.handleEdgeMap(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	e := &MCPError{Code: code, Message: message}
	if data != "" {
		e.Data = data
	}
	return &MCPResponse{JSONRPC: "2.0", ID: id, Error: e}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

type pathArgs struct {
	Path   string `json:"path"`
	Format string `json:"format"`
}

func parseArgs(args json.RawMessage) (pathArgs, error) {
	var p pathArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &p); err != nil {
			return p, fmt.Errorf("invalid arguments: %w", err)
		}
	}
	if p.Path == "" {
		return p, errors.New("path is required")
	}
	return p, nil
}

// analyze loads the screenshot and runs detection. A core invariant
// violation is returned as an error; the analysis is still returned.
func (s *Server) analyze(path string) (image.Image, *screen.Analysis, error) {
	img, err := s.cache.Load(path)
	if err != nil {
		return nil, nil, err
	}
	an, err := s.analyzer.Analyze(img)
	return img, an, err
}

func (s *Server) handleMatchLayout(args json.RawMessage) (interface{}, error) {
	p, err := parseArgs(args)
	if err != nil {
		return nil, err
	}
	_, an, err := s.analyze(p.Path)
	if err != nil {
		return nil, err
	}
	return an.Report(), nil
}

func (s *Server) handleCropCore(args json.RawMessage) (interface{}, error) {
	p, err := parseArgs(args)
	if err != nil {
		return nil, err
	}
	img, an, err := s.analyze(p.Path)
	if err != nil {
		return nil, err
	}
	if !an.Matched() {
		return nil, an.Failure
	}
	return imaging.CropCore(img, an.Match.Core, p.Format)
}

type imageResult struct {
	Matched     bool              `json:"matched"`
	Reason      *detection.Reason `json:"reason,omitempty"`
	ImageBase64 string            `json:"image_base64"`
	MimeType    string            `json:"mime_type"`
}

func (s *Server) handleOverlay(args json.RawMessage) (interface{}, error) {
	p, err := parseArgs(args)
	if err != nil {
		return nil, err
	}
	img, an, err := s.analyze(p.Path)
	if err != nil && !errors.Is(err, detection.ErrCoreInvariant) {
		return nil, err
	}
	encoded, err := imaging.EncodeBase64(an.Overlay(img), diskimaging.PNG)
	if err != nil {
		return nil, err
	}
	res := imageResult{Matched: an.Matched(), ImageBase64: encoded, MimeType: "image/png"}
	if an.Failure != nil {
		res.Reason = &an.Failure.Reason
	}
	return res, nil
}

type edgeResult struct {
	EdgePixels  int    `json:"edge_pixels"`
	Contours    int    `json:"contours"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

func (s *Server) handleEdgeMap(args json.RawMessage) (interface{}, error) {
	p, err := parseArgs(args)
	if err != nil {
		return nil, err
	}
	_, an, err := s.analyze(p.Path)
	if err != nil && !errors.Is(err, detection.ErrCoreInvariant) {
		return nil, err
	}
	encoded, err := imaging.EncodeBase64(imaging.EdgeImage(an.Edges), diskimaging.PNG)
	if err != nil {
		return nil, err
	}
	return edgeResult{
		EdgePixels:  an.Edges.Count(),
		Contours:    len(an.Contours),
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}
