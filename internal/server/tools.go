package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to a screenshot (PNG or JPEG)",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name: "quiz_match_layout",
			Description: "Detect the four stacked answer bars and the question region in a quiz screenshot. " +
				"Returns the core region and choices A-D top to bottom, or the reason the layout did not match " +
				"(count, width, left, gap, overlap) with the candidate rectangles.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "quiz_crop_core",
			Description: "Crop the detected question region out of a quiz screenshot and return it base64-encoded. Fails if no layout matches.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"format": map[string]interface{}{
						"type":        "string",
						"description": "Output format: png or jpeg. Default png",
						"enum":        []string{"png", "jpeg"},
						"default":     "png",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "quiz_overlay",
			Description: "Draw the detected choices (A-D) and core region, or the rejected candidates, onto the screenshot. Returns a base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "quiz_edge_map",
			Description: "Return the binary edge map the detector works on as a base64 PNG (white = edge).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
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
