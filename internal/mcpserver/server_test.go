package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/skythread/internal/models"
	"github.com/starford/skythread/internal/postservice"
	"github.com/starford/skythread/internal/testutil"
)

func testServer(t *testing.T) (*Server, *postservice.Service, *testutil.FakeNetwork) {
	t.Helper()
	net := &testutil.FakeNetwork{}
	svc := postservice.New(postservice.Deps{
		Outline:  testutil.TestDB(t),
		Settings: testutil.TestSettings(t),
		Client:   net,
	})
	return New(svc), svc, net
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process call helper, so dispatch to the handlers directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "post_to_bluesky":
		result, err = srv.postToBluesky(ctx, req)
	case "preview_thread":
		result, err = srv.previewThread(ctx, req)
	case "read_block":
		result, err = srv.readBlock(ctx, req)
	case "create_block":
		result, err = srv.createBlock(ctx, req)
	case "search_blocks":
		result, err = srv.searchBlocks(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func createBlock(t *testing.T, srv *Server, args map[string]any) models.OutlineNode {
	t.Helper()
	r := callTool(t, srv, "create_block", args)
	if r.IsError {
		t.Fatalf("create_block: %s", resultText(r))
	}
	var node models.OutlineNode
	if err := json.Unmarshal([]byte(resultText(r)), &node); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return node
}

func TestCreateAndReadBlock(t *testing.T) {
	srv, _, _ := testServer(t)

	root := createBlock(t, srv, map[string]any{"text": "root"})
	createBlock(t, srv, map[string]any{"text": "second", "parent_id": root.ID, "order": float64(1)})
	createBlock(t, srv, map[string]any{"text": "first", "parent_id": root.ID, "order": float64(0)})

	r := callTool(t, srv, "read_block", map[string]any{"block_id": root.ID})
	if r.IsError {
		t.Fatalf("read_block: %s", resultText(r))
	}
	var node models.OutlineNode
	_ = json.Unmarshal([]byte(resultText(r)), &node)
	if len(node.Children) != 2 || node.Children[0].Text != "first" {
		t.Errorf("children = %+v", node.Children)
	}
}

func TestReadBlockMissing(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "read_block", map[string]any{"block_id": "missing00"})
	if !r.IsError {
		t.Error("expected error for missing block")
	}
}

func TestMissingArgument(t *testing.T) {
	srv, _, _ := testServer(t)
	for _, tool := range []string{"post_to_bluesky", "preview_thread", "read_block", "create_block", "search_blocks"} {
		if r := callTool(t, srv, tool, map[string]any{}); !r.IsError {
			t.Errorf("%s without arguments should fail", tool)
		}
	}
}

func TestSearchBlocks(t *testing.T) {
	srv, _, _ := testServer(t)
	root := createBlock(t, srv, map[string]any{"text": "migrating geese"})
	createBlock(t, srv, map[string]any{"text": "stationary ducks"})

	r := callTool(t, srv, "search_blocks", map[string]any{"query": "geese", "limit": float64(5)})
	if r.IsError {
		t.Fatalf("search_blocks: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), root.ID) || strings.Contains(resultText(r), "ducks") {
		t.Errorf("unexpected hits: %s", resultText(r))
	}
}

func TestPreviewThread(t *testing.T) {
	srv, _, _ := testServer(t)
	root := createBlock(t, srv, map[string]any{"text": "Read [this](https://example.com/post)"})

	r := callTool(t, srv, "preview_thread", map[string]any{"block_id": root.ID})
	if r.IsError {
		t.Fatalf("preview_thread: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"text": "Read https://example.com/post"`) {
		t.Errorf("unexpected preview: %s", resultText(r))
	}
}

func TestPostToBluesky(t *testing.T) {
	srv, svc, net := testServer(t)
	root := createBlock(t, srv, map[string]any{"text": "hello"})

	r := callTool(t, srv, "post_to_bluesky", map[string]any{"block_id": root.ID})
	if !r.IsError || !strings.Contains(resultText(r), "no Bluesky account saved") {
		t.Fatalf("expected configuration error, got %q", resultText(r))
	}

	if err := svc.Login(models.Credential{Identifier: "alice.bsky.social", Secret: "pw"}); err != nil {
		t.Fatal(err)
	}
	r = callTool(t, srv, "post_to_bluesky", map[string]any{"block_id": root.ID})
	if r.IsError {
		t.Fatalf("post_to_bluesky: %s", resultText(r))
	}
	if net.PostCount() != 1 {
		t.Errorf("posts = %d, want 1", net.PostCount())
	}
}

func TestMarkupResource(t *testing.T) {
	srv, _, _ := testServer(t)
	contents, err := srv.readMarkupResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || !strings.Contains(tc.Text, "300 characters") {
		t.Errorf("unexpected resource: %+v", contents)
	}
}
