package mcp

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/JET-SOUZA/jet.iptv/internal/model"
)

// --------------------------------------------------------------------------
// Parameter extraction helpers
// --------------------------------------------------------------------------

// requireString extracts a required string argument from the tool request.
func requireString(request mcp.CallToolRequest, key string) (string, error) {
	val, err := request.RequireString(key)
	if err != nil {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	return val, nil
}

// optionalString extracts an optional string argument from the tool request.
func optionalString(request mcp.CallToolRequest, key string) string {
	return request.GetString(key, "")
}

// requireID extracts a positive account id. Agents send numbers as JSON
// floats or, occasionally, as strings; both are accepted.
func requireID(request mcp.CallToolRequest, key string) (int64, error) {
	args := request.GetArguments()
	raw, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing required parameter %q", key)
	}

	var id int64
	switch v := raw.(type) {
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("parameter %q must be an integer", key)
		}
		id = int64(v)
	case int:
		id = int64(v)
	case int64:
		id = v
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parameter %q must be an integer", key)
		}
		id = n
	default:
		return 0, fmt.Errorf("parameter %q must be an integer", key)
	}
	if id <= 0 {
		return 0, fmt.Errorf("parameter %q must be positive", key)
	}
	return id, nil
}

// optionalHours extracts an expiry given in hours. Numbers are formatted so
// they go through the same parser as the dashboard form.
func optionalHours(request mcp.CallToolRequest, key string) string {
	args := request.GetArguments()
	switch v := args[key].(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case string:
		return v
	}
	return ""
}

// --------------------------------------------------------------------------
// Response builders
// --------------------------------------------------------------------------

// successJSON marshals data to JSON and returns it as a tool result.
func successJSON(data interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError returns a tool-level error result. Errors returned this way are
// visible to the LLM so it can self-correct; they do NOT terminate the MCP
// session.
func toolError(format string, args ...interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...)), nil
}

// userInfo is the account shape returned by every tool. Password material
// never leaves the store.
type userInfo struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Premium   bool       `json:"premium"`
	IsAdmin   bool       `json:"is_admin"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Expired   bool       `json:"expired"`
	Server    string     `json:"server,omitempty"`
}

func toUserInfo(u *model.User, now time.Time) userInfo {
	return userInfo{
		ID:        u.ID,
		Username:  u.Username,
		Premium:   u.Premium,
		IsAdmin:   u.IsAdmin,
		ExpiresAt: u.ExpiresAt,
		Expired:   u.IsExpired(now),
		Server:    u.ServerURL(),
	}
}
