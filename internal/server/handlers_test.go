package server

import (
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/quiz-tapper/internal/screen"
)

// writeQuizScreen saves a 540x1200 quiz screenshot with four 400x60 answer
// bars; lefts sets each bar's left edge.
func writeQuizScreen(t *testing.T, lefts [4]int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 540, 1200))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	ink := image.NewUniform(color.Gray{Y: 30})
	draw.Draw(img, image.Rect(0, 80, 540, 120), ink, image.Point{}, draw.Src)
	for row := 0; row < 7; row++ {
		y := 400 + row*30
		for x := 60; x < 480; x += 10 {
			draw.Draw(img, image.Rect(x, y, x+3, y+16), ink, image.Point{}, draw.Src)
		}
	}
	bar := image.NewUniform(color.Gray{Y: 90})
	for i, left := range lefts {
		top := 640 + i*90
		draw.Draw(img, image.Rect(left, top, left+400, top+60), bar, image.Point{}, draw.Src)
	}

	path := filepath.Join(t.TempDir(), "screen.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create screenshot: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode screenshot: %v", err)
	}
	return path
}

func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()
	rawArgs, _ := json.Marshal(args)
	params, _ := json.Marshal(ToolCallParams{Name: name, Arguments: rawArgs})
	return s.handleToolsCall(&MCPRequest{JSONRPC: "2.0", ID: 7, Method: "tools/call", Params: params})
}

// toolText returns the JSON text payload of a successful tool call.
func toolText(t *testing.T, resp *MCPResponse) []byte {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("tool failed: %+v", resp.Error)
	}
	content := resp.Result.(map[string]interface{})["content"].([]map[string]interface{})
	return []byte(content[0]["text"].(string))
}

func decodePNG(t *testing.T, b64 string) image.Image {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	img, err := png.Decode(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("invalid png: %v", err)
	}
	return img
}

func TestToolDefinitions(t *testing.T) {
	want := map[string]bool{"quiz_match_layout": true, "quiz_crop_core": true, "quiz_overlay": true, "quiz_edge_map": true}
	tools := GetToolDefinitions()
	if len(tools) != len(want) {
		t.Fatalf("got %d tools, want %d", len(tools), len(want))
	}
	for _, tool := range tools {
		if !want[tool.Name] {
			t.Errorf("unexpected tool %s", tool.Name)
		}
		req, _ := tool.InputSchema["required"].([]string)
		if len(req) != 1 || req[0] != "path" {
			t.Errorf("%s: required = %v, want [path]", tool.Name, req)
		}
	}
}

func TestMatchLayoutTool(t *testing.T) {
	s := New()
	path := writeQuizScreen(t, [4]int{70, 70, 70, 70})

	var rep screen.Report
	if err := json.Unmarshal(toolText(t, callTool(t, s, "quiz_match_layout", map[string]interface{}{"path": path})), &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if !rep.Matched || rep.Core == nil || len(rep.Choices) != 4 {
		t.Fatalf("report: got %+v", rep)
	}
	if rep.Choices[0].Top > rep.Choices[3].Top {
		t.Errorf("choices not ordered top to bottom: %v", rep.Choices)
	}
	if rep.EdgePixels == 0 || rep.Contours == 0 {
		t.Errorf("report counts: got %+v", rep)
	}
}

func TestMatchLayoutToolFailure(t *testing.T) {
	s := New()
	path := writeQuizScreen(t, [4]int{70, 70, 100, 70})

	var rep struct {
		Matched bool `json:"matched"`
		Failure struct {
			Reason string `json:"reason"`
		} `json:"failure"`
	}
	if err := json.Unmarshal(toolText(t, callTool(t, s, "quiz_match_layout", map[string]interface{}{"path": path})), &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Matched || rep.Failure.Reason != "left" {
		t.Errorf("report: got %+v, want unmatched with reason left", rep)
	}

	resp := callTool(t, s, "quiz_crop_core", map[string]interface{}{"path": path})
	if resp.Error == nil || !strings.Contains(resp.Error.Data.(string), "left") {
		t.Errorf("crop of unmatched screen: got %+v", resp.Error)
	}
}

func TestCropCoreTool(t *testing.T) {
	s := New()
	path := writeQuizScreen(t, [4]int{70, 70, 70, 70})

	var res struct {
		Region struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"region"`
		ImageBase64 string `json:"image_base64"`
		MimeType    string `json:"mime_type"`
	}
	if err := json.Unmarshal(toolText(t, callTool(t, s, "quiz_crop_core", map[string]interface{}{"path": path})), &res); err != nil {
		t.Fatalf("decode crop: %v", err)
	}
	if res.MimeType != "image/png" {
		t.Errorf("MimeType: got %s", res.MimeType)
	}
	img := decodePNG(t, res.ImageBase64)
	if img.Bounds().Dx() != res.Region.Width || img.Bounds().Dy() != res.Region.Height {
		t.Errorf("crop size %v does not match region %+v", img.Bounds(), res.Region)
	}

	resp := callTool(t, s, "quiz_crop_core", map[string]interface{}{"path": path, "format": "gif"})
	if resp.Error == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestOverlayAndEdgeMapTools(t *testing.T) {
	s := New()
	path := writeQuizScreen(t, [4]int{70, 70, 70, 70})

	var overlay imageResult
	if err := json.Unmarshal(toolText(t, callTool(t, s, "quiz_overlay", map[string]interface{}{"path": path})), &overlay); err != nil {
		t.Fatalf("decode overlay: %v", err)
	}
	if !overlay.Matched || overlay.Reason != nil {
		t.Errorf("overlay: got matched=%v reason=%v", overlay.Matched, overlay.Reason)
	}
	if b := decodePNG(t, overlay.ImageBase64).Bounds(); b.Dx() != 540 || b.Dy() != 1200 {
		t.Errorf("overlay bounds: got %v", b)
	}

	var edges edgeResult
	if err := json.Unmarshal(toolText(t, callTool(t, s, "quiz_edge_map", map[string]interface{}{"path": path})), &edges); err != nil {
		t.Fatalf("decode edge map: %v", err)
	}
	if edges.EdgePixels == 0 {
		t.Error("edge map is empty")
	}
	if b := decodePNG(t, edges.ImageBase64).Bounds(); b.Dx() != 540 {
		t.Errorf("edge map bounds: got %v", b)
	}

	if s.cache.Len() != 1 {
		t.Errorf("cache should hold the screenshot once, got %d", s.cache.Len())
	}
}

func TestToolErrors(t *testing.T) {
	s := New()

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
		want string
	}{
		{"missing path", "quiz_match_layout", map[string]interface{}{}, "path is required"},
		{"missing file", "quiz_overlay", map[string]interface{}{"path": "/nonexistent/screen.png"}, "no such file"},
		{"unknown tool", "image_crop", map[string]interface{}{"path": "/x.png"}, "unknown tool"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, tt.tool, tt.args)
			if resp.Error == nil || resp.Error.Code != -32000 {
				t.Fatalf("Error: got %+v, want code -32000", resp.Error)
			}
			if !strings.Contains(resp.Error.Data.(string), tt.want) {
				t.Errorf("Error data: got %q, want %q", resp.Error.Data, tt.want)
			}
		})
	}

	resp := s.handleToolsCall(&MCPRequest{ID: 1, Params: json.RawMessage(`[`)})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("invalid params: got %+v", resp.Error)
	}
}
