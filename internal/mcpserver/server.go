// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the thread tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/skythread/internal/outline"
	"github.com/starford/skythread/internal/postservice"
)

const markupURI = "skythread://block-markup"

// Server wraps the MCP server with the thread tools.
type Server struct {
	mcp *server.MCPServer
	svc *postservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *postservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Skythread",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("post_to_bluesky",
		mcp.WithDescription("Post a block and its direct children to Bluesky as a thread. "+
			"Uses the account saved in settings. Fails without posting anything if any "+
			"post is over 300 characters."),
		mcp.WithString("block_id", mcp.Required(), mcp.Description("uid of the root block")),
	), s.postToBluesky)

	s.mcp.AddTool(mcp.NewTool("preview_thread",
		mcp.WithDescription("Show the posts a block would become, with lengths and any "+
			"length violations. Nothing is posted."),
		mcp.WithString("block_id", mcp.Required(), mcp.Description("uid of the root block")),
	), s.previewThread)

	s.mcp.AddTool(mcp.NewTool("read_block",
		mcp.WithDescription("Read a block and its direct children."),
		mcp.WithString("block_id", mcp.Required(), mcp.Description("uid of the block")),
	), s.readBlock)

	s.mcp.AddTool(mcp.NewTool("search_blocks",
		mcp.WithDescription("Find blocks whose text matches a query. Returns uids usable "+
			"with the other tools."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 20)")),
	), s.searchBlocks)

	s.mcp.AddTool(mcp.NewTool("create_block",
		mcp.WithDescription("Create a block. Children are appended after their last "+
			"sibling unless order is given. See "+markupURI+" for supported markup."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Block text")),
		mcp.WithString("parent_id", mcp.Description("uid of the parent block (empty for top level)")),
		mcp.WithNumber("order", mcp.Description("Position among siblings, starting at 0")),
	), s.createBlock)

	s.mcp.AddResource(
		mcp.NewResource(markupURI, "Block Markup",
			mcp.WithResourceDescription("How block markup is turned into posts."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readMarkupResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) postToBluesky(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("block_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Post(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) previewThread(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("block_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.Preview(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(p), nil
}

func (s *Server) readBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("block_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	node, err := s.svc.GetBlock(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(node), nil
}

func (s *Server) searchBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits, err := s.svc.SearchBlocks(ctx, query, req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(hits), nil
}

func (s *Server) createBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nb := outline.NewBlock{
		ParentID: req.GetString("parent_id", ""),
		Text:     text,
	}
	if order := req.GetInt("order", -1); order >= 0 {
		nb.Order = &order
	}
	node, err := s.svc.CreateBlock(ctx, nb)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(node), nil
}

func (s *Server) readMarkupResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      markupURI,
			MIMEType: "text/markdown",
			Text:     BlockMarkupGuide,
		},
	}, nil
}
