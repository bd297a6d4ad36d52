package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type contextKey int

const rangerIDKey contextKey = iota

// getRangerID extracts the signed-in ranger from context.
func getRangerID(ctx context.Context) string {
	v, _ := ctx.Value(rangerIDKey).(string)
	return v
}

// toolsWithoutRanger may run before anyone has signed in.
var toolsWithoutRanger = map[string]bool{
	"sign_in":       true,
	"session_state": true,
}

// identityMiddleware injects the signed-in ranger and refuses tool calls while nobody is signed in.
// Refusals are tool errors rather than protocol errors so the UI handles them like any other failure.
func identityMiddleware(identity Identity) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			rangerID := identity.RangerID()
			if rangerID != "" {
				ctx = context.WithValue(ctx, rangerIDKey, rangerID)
			}
			if method != "tools/call" || rangerID != "" {
				return next(ctx, method, req)
			}

			call, ok := req.(*sdkmcp.CallToolRequest)
			if !ok || call.Params == nil || toolsWithoutRanger[call.Params.Name] {
				return next(ctx, method, req)
			}
			return toolErrorResult(MapError(ErrNotSignedIn)), nil
		}
	}
}

func toolErrorResult(err *APIError) *sdkmcp.CallToolResult {
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: err.Error()}},
	}
}
