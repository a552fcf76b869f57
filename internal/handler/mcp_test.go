package handler

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/berniyo/daraja-gateway/internal/mpesa"
)

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	for _, c := range res.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatalf("no text content in %#v", res.Content)
	return ""
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func TestSTKPushToolSuccess(t *testing.T) {
	client := &fakeClient{initiateFn: func(ctx context.Context, amount int64) (mpesa.PaymentResponse, error) {
		require.EqualValues(t, 100, amount)
		return mpesa.PaymentResponse(`{"ResponseCode":"0"}`), nil
	}}
	tools := NewTools(client, WithLogger(quietLogger()))

	res, err := tools.handleSTKPush(context.Background(), callRequest(toolSTKPush, map[string]any{"amount": float64(100)}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Equal(t, `{"ResponseCode":"0"}`, resultText(t, res))
}

func TestSTKPushToolFailureIsResultNotError(t *testing.T) {
	client := &fakeClient{initiateFn: func(ctx context.Context, amount int64) (mpesa.PaymentResponse, error) {
		return nil, &mpesa.PaymentError{StatusCode: 500, Body: "boom"}
	}}
	tools := NewTools(client, WithLogger(quietLogger()))

	res, err := tools.handleSTKPush(context.Background(), callRequest(toolSTKPush, map[string]any{"amount": float64(5)}))
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Contains(t, resultText(t, res), "Failed to initiate push payment: push payment endpoint returned status=500")
}

func TestSTKPushToolMissingAmount(t *testing.T) {
	client := &fakeClient{}
	tools := NewTools(client, WithLogger(quietLogger()))

	res, err := tools.handleSTKPush(context.Background(), callRequest(toolSTKPush, nil))
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Equal(t, "Failed to initiate push payment: amount is required", resultText(t, res))
	require.Zero(t, client.calls)
}

func TestGenerateTokenTool(t *testing.T) {
	client := &fakeClient{tokenFn: func(ctx context.Context) (*mpesa.AccessToken, error) {
		return &mpesa.AccessToken{Token: "abc123"}, nil
	}}
	tools := NewTools(client, WithLogger(quietLogger()))

	res, err := tools.handleGenerateToken(context.Background(), callRequest(toolGenerateToken, nil))
	require.NoError(t, err)
	require.Equal(t, "Access token generated successfully: abc123", resultText(t, res))
}

func TestNewMCPServer(t *testing.T) {
	tools := NewTools(&fakeClient{}, WithLogger(quietLogger()))
	require.NotNil(t, NewMCPServer(tools, "test"))
}
