package handler

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ServerName is advertised to tool-protocol clients.
const ServerName = "Daraja_mcp_server"

const (
	toolSTKPush       = "stk_push"
	toolGenerateToken = "generate_token"
)

// NewMCPServer registers both operations on a tool-protocol server.
func NewMCPServer(tools *Tools, version string) *server.MCPServer {
	s := server.NewMCPServer(ServerName, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.AddTool(mcp.NewTool(toolSTKPush,
		mcp.WithDescription("Prompts the customer to authorize a payment on their mobile device. Returns the JSON formatted M-PESA API response."),
		mcp.WithNumber("amount",
			mcp.Required(),
			mcp.Description("The amount to be paid, in whole currency units."),
			mcp.Min(1),
		),
	), tools.handleSTKPush)

	s.AddTool(mcp.NewTool(toolGenerateToken,
		mcp.WithDescription("Generate an access token for the M-PESA Daraja API."),
	), tools.handleGenerateToken)

	return s
}

func (t *Tools) handleSTKPush(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(t.InitiatePaymentRaw(ctx, req.GetArguments()["amount"])), nil
}

func (t *Tools) handleGenerateToken(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(t.GenerateToken(ctx)), nil
}

func toolResult(r Result) *mcp.CallToolResult {
	if r.IsError {
		return mcp.NewToolResultError(r.Text)
	}
	return mcp.NewToolResultText(r.Text)
}
