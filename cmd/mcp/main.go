// Command mcp is a stdio MCP shim over the brandwatch HTTP API. It speaks
// newline-delimited JSON-RPC 2.0 on stdin/stdout and proxies tool calls to
// the read-only analytics and run-status endpoints, so agent hosts can pull
// brand visibility numbers without a custom integration.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	_ "github.com/joho/godotenv/autoload"
	_ "go.uber.org/automaxprocs"
)

// Request represents a minimal JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response represents a minimal JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// ResponseError is a JSON-RPC error payload.
type ResponseError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// InitializeResult is returned for the "initialize" method.
type InitializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ServerInfo      map[string]interface{} `json:"serverInfo"`
}

// Tool describes an MCP tool.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	InputSchema map[string]interface{} `json:"inputSchema,omitempty"`
}

// ListToolsResult is returned by "tools/list".
type ListToolsResult struct {
	Tools      []Tool  `json:"tools"`
	NextCursor *string `json:"nextCursor,omitempty"`
}

// ToolCallParams are the parameters for "tools/call".
type ToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ContentItem represents a piece of tool output.
type ContentItem struct {
	Type string          `json:"type"`
	Text string          `json:"text,omitempty"`
	JSON json.RawMessage `json:"json,omitempty"`
}

// ToolCallResult wraps tool output content.
type ToolCallResult struct {
	Content []ContentItem `json:"content"`
}

// MCPServer handles MCP requests over stdio.
type MCPServer struct {
	http  *resty.Client
	in    *bufio.Reader
	out   *bufio.Writer
	outMu sync.Mutex
	tools []Tool
}

func userIDSchema(verb string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"user_id": map[string]interface{}{
				"type":        "string",
				"description": "User whose " + verb + " to fetch.",
			},
		},
		"required": []string{"user_id"},
	}
}

func main() {
	// Logs go to stderr; stdout carries the protocol.
	log.SetOutput(os.Stderr)

	baseURL := strings.TrimRight(getEnv("BRANDWATCH_API", "http://localhost:8080"), "/")
	server := &MCPServer{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(15 * time.Second),
		in:  bufio.NewReader(os.Stdin),
		out: bufio.NewWriter(os.Stdout),
		tools: []Tool{
			{
				Name:        "dashboard",
				Description: "Brand visibility summary: prompt/competitor/response counts and mention rates.",
				InputSchema: userIDSchema("dashboard"),
			},
			{
				Name:        "competitor_comparison",
				Description: "Per-competitor mention totals, rates, share of voice and trend.",
				InputSchema: userIDSchema("competitor comparison"),
			},
			{
				Name:        "model_performance",
				Description: "Per provider/model response counts and average user-brand mentions.",
				InputSchema: userIDSchema("model performance"),
			},
			{
				Name:        "run_status",
				Description: "Progress of a bulk test run: status and completed/failed/total counters.",
				InputSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"run_id": map[string]interface{}{
							"type":        "string",
							"description": "Bulk run identifier returned at submission.",
						},
					},
					"required": []string{"run_id"},
				},
			},
		},
	}

	log.Println("MCP shim starting...")
	if err := server.Serve(); err != nil {
		log.Fatalf("mcp server failed: %v", err)
	}
}

// Serve starts the read/dispatch/write loop.
func (s *MCPServer) Serve() error {
	for {
		req, err := s.readMessage()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			// Parse errors and blank lines are not fatal; skip the line.
			if err.Error() != "empty line" {
				log.Printf("failed to read/parse message: %v", err)
			}
			continue
		}

		// Notifications (no ID) still get routed, but produce no response.
		go func(r Request) {
			resp := s.handleRequest(r)
			if resp == nil {
				return
			}

			if err := s.writeMessage(*resp); err != nil {
				log.Printf("failed to write message: %v", err)
			}
		}(req)
	}
}

// handleRequest routes a single MCP request.
func (s *MCPServer) handleRequest(req Request) *Response {
	switch req.Method {
	case "initialize":
		return s.reply(req, InitializeResult{
			ProtocolVersion: "2024-11-05",
			Capabilities: map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			ServerInfo: map[string]interface{}{
				"name":    "brandwatch-mcp",
				"version": "1.0.0",
			},
		})

	case "notifications/initialized":
		return nil

	case "tools/list":
		return s.reply(req, ListToolsResult{Tools: s.tools})
	case "tools/call":
		return s.handleToolCall(req)
	case "ping":
		return s.reply(req, map[string]interface{}{})
	case "shutdown":
		go func() {
			time.Sleep(500 * time.Millisecond)
			os.Exit(0)
		}()
		return s.reply(req, nil)
	case "notifications/exit":
		os.Exit(0)
		return nil
	}

	return s.error(req, -32601, fmt.Sprintf("method not found: %s", req.Method), nil)
}

func (s *MCPServer) handleToolCall(req Request) *Response {
	var params ToolCallParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return s.error(req, -32602, "invalid params", err.Error())
		}
	}

	var (
		path  string
		query map[string]string
	)
	switch params.Name {
	case "dashboard", "competitor_comparison", "model_performance":
		userID, rpcErr := stringArg(params.Arguments, "user_id")
		if rpcErr != nil {
			return &Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
		}
		suffix := map[string]string{
			"dashboard":             "dashboard",
			"competitor_comparison": "competitors",
			"model_performance":     "models",
		}[params.Name]
		path = "/api/v1/analytics/" + suffix
		query = map[string]string{"user_id": userID}
	case "run_status":
		runID, rpcErr := stringArg(params.Arguments, "run_id")
		if rpcErr != nil {
			return &Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
		}
		path = "/api/v1/tests/bulk/" + url.PathEscape(runID)
	default:
		return s.error(req, -32601, fmt.Sprintf("tool not found: %s", params.Name), nil)
	}

	result, rpcErr := s.callUpstream(path, query)
	if rpcErr != nil {
		return &Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}
	return s.reply(req, result)
}

// callUpstream forwards a read to the HTTP API and passes the JSON body
// through untouched, so the agent sees exactly what the API reports.
func (s *MCPServer) callUpstream(path string, query map[string]string) (*ToolCallResult, *ResponseError) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	r := s.http.R().SetContext(ctx)
	if len(query) > 0 {
		r.SetQueryParams(query)
	}

	resp, err := r.Get(path)
	if err != nil {
		return nil, &ResponseError{Code: -32000, Message: "request failed", Data: err.Error()}
	}
	if resp.IsError() {
		return nil, &ResponseError{Code: -32000, Message: fmt.Sprintf("upstream error: %s", resp.Status()), Data: string(resp.Body())}
	}

	return &ToolCallResult{
		Content: []ContentItem{
			{
				Type: "text",
				Text: string(resp.Body()),
			},
		},
	}, nil
}

func stringArg(args map[string]interface{}, name string) (string, *ResponseError) {
	raw, ok := args[name]
	if !ok {
		return "", &ResponseError{Code: -32602, Message: name + " is required"}
	}
	v, ok := raw.(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", &ResponseError{Code: -32602, Message: name + " must be a non-empty string"}
	}
	return strings.TrimSpace(v), nil
}

func (s *MCPServer) reply(req Request, result interface{}) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
	}
}

func (s *MCPServer) error(req Request, code int, message string, data interface{}) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Error: &ResponseError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// readMessage reads one newline-delimited JSON message.
func (s *MCPServer) readMessage() (Request, error) {
	line, err := s.in.ReadBytes('\n')
	if err != nil {
		return Request{}, err
	}

	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Request{}, fmt.Errorf("empty line")
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, fmt.Errorf("json parse error: %w", err)
	}

	return req, nil
}

// writeMessage emits one JSON message followed by a newline.
func (s *MCPServer) writeMessage(resp Response) error {
	s.outMu.Lock()
	defer s.outMu.Unlock()

	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	if _, err := s.out.Write(payload); err != nil {
		return err
	}
	if _, err := s.out.Write([]byte("\n")); err != nil {
		return err
	}

	return s.out.Flush()
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
