package mcp

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/JET-SOUZA/jet.iptv/internal/service"
	"github.com/JET-SOUZA/jet.iptv/internal/store"
)

// registerTools registers the account administration tools on the given
// server. They mirror the /admin dashboard actions.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	// ----- Discovery -----

	srv.AddTool(
		mcp.NewTool("jetiptv_list_users",
			mcp.WithDescription(
				"List every account ordered by username, with its premium and admin "+
					"flags, expiry timestamp and whether that expiry has passed.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListUsers,
	)

	// ----- Mutations -----

	srv.AddTool(
		mcp.NewTool("jetiptv_create_user",
			mcp.WithDescription(
				"Create an account. The password is stored as a bcrypt hash and also "+
					"used as the account's Xtream password. expiry_hours is relative to now; "+
					"omit it (or pass a non-positive value) for an account that never expires.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("username",
				mcp.Required(),
				mcp.Description("Unique login name"),
			),
			mcp.WithString("password",
				mcp.Required(),
				mcp.Description("Initial password"),
			),
			mcp.WithBoolean("premium",
				mcp.Description("Grant access to streams and players (default false)"),
			),
			mcp.WithBoolean("is_admin",
				mcp.Description("Grant access to user administration (default false)"),
			),
			mcp.WithNumber("expiry_hours",
				mcp.Description("Hours until the account expires; decimals allowed"),
			),
			mcp.WithString("server",
				mcp.Description("Xtream panel base URL, e.g. http://panel.example:8080"),
			),
		),
		s.handleCreateUser,
	)

	srv.AddTool(
		mcp.NewTool("jetiptv_delete_user",
			mcp.WithDescription(
				"Delete an account by id. Deleting an id that does not exist succeeds.",
			),
			mcp.WithToolAnnotation(destructiveAnnotation()),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("Account id as returned by jetiptv_list_users"),
			),
		),
		s.handleDeleteUser,
	)

	srv.AddTool(
		mcp.NewTool("jetiptv_toggle_premium",
			mcp.WithDescription(
				"Flip an account's premium flag. Signed-in users see the change at their next login.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("Account id"),
			),
		),
		s.handleTogglePremium,
	)

	srv.AddTool(
		mcp.NewTool("jetiptv_set_expiry",
			mcp.WithDescription(
				"Set an account to expire expiry_hours from now. Omitting expiry_hours, or "+
					"passing a non-positive value, clears the expiry. Expiry is enforced at login.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("Account id"),
			),
			mcp.WithNumber("expiry_hours",
				mcp.Description("Hours from now; decimals allowed"),
			),
		),
		s.handleSetExpiry,
	)
}

// =========================================================================
// Tool handlers
// =========================================================================

func (s *MCPServer) handleListUsers(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	users, err := s.admin.ListUsers(ctx)
	if err != nil {
		return toolError("Failed to list users: %v", err)
	}

	now := time.Now()
	items := make([]userInfo, len(users))
	for i := range users {
		items[i] = toUserInfo(&users[i], now)
	}
	return successJSON(items)
}

func (s *MCPServer) handleCreateUser(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	username, err := requireString(request, "username")
	if err != nil {
		return toolError("%v", err)
	}
	password, err := requireString(request, "password")
	if err != nil {
		return toolError("%v", err)
	}

	u, err := s.admin.CreateUser(ctx, service.NewUser{
		Username:    username,
		Password:    password,
		Premium:     request.GetBool("premium", false),
		IsAdmin:     request.GetBool("is_admin", false),
		ExpiryHours: optionalHours(request, "expiry_hours"),
		Server:      optionalString(request, "server"),
	})
	switch {
	case errors.Is(err, service.ErrMissingFields):
		return toolError("username and password must not be blank")
	case errors.Is(err, store.ErrDuplicateUsername):
		return toolError("Username %q already exists. Use jetiptv_list_users to see existing accounts.",
			strings.TrimSpace(username))
	case err != nil:
		return toolError("Failed to create user: %v", err)
	}

	s.logger.Info("user created via MCP", "user_id", u.ID, "username", u.Username)
	return successJSON(toUserInfo(u, time.Now()))
}

func (s *MCPServer) handleDeleteUser(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id, err := requireID(request, "id")
	if err != nil {
		return toolError("%v", err)
	}
	if err := s.admin.DeleteUser(ctx, id); err != nil {
		return toolError("Failed to delete user %d: %v", id, err)
	}

	s.logger.Info("user deleted via MCP", "user_id", id)
	return successJSON(map[string]interface{}{
		"deleted": id,
	})
}

func (s *MCPServer) handleTogglePremium(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id, err := requireID(request, "id")
	if err != nil {
		return toolError("%v", err)
	}
	if err := s.admin.TogglePremium(ctx, id); err != nil {
		return toolError("Failed to toggle premium for user %d: %v", id, err)
	}

	u, err := s.admin.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return toolError("User %d not found", id)
	}
	if err != nil {
		return toolError("Failed to reload user %d: %v", id, err)
	}
	return successJSON(toUserInfo(u, time.Now()))
}

func (s *MCPServer) handleSetExpiry(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id, err := requireID(request, "id")
	if err != nil {
		return toolError("%v", err)
	}
	if _, err := s.admin.GetUser(ctx, id); errors.Is(err, store.ErrNotFound) {
		return toolError("User %d not found", id)
	}

	exp, err := s.admin.SetExpiry(ctx, id, optionalHours(request, "expiry_hours"))
	if err != nil {
		return toolError("Failed to set expiry for user %d: %v", id, err)
	}
	return successJSON(map[string]interface{}{
		"id":         id,
		"expires_at": exp,
	})
}
