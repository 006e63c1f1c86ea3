package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	catalogURI          = "jetiptv://catalog"
	categoryURIPrefix   = "jetiptv://catalog/"
	playlistURI         = "jetiptv://playlist.m3u"
	categoryURITemplate = "jetiptv://catalog/{category}"
)

// registerResources adds the catalog as read-only MCP resources.
func (s *MCPServer) registerResources(srv *server.MCPServer) {
	srv.AddResource(
		mcp.NewResource(
			catalogURI,
			"Stream Catalog",
			mcp.WithResourceDescription("Category names of the stream catalog, in display order."),
			mcp.WithMIMEType("application/json"),
		),
		s.handleCatalogResource,
	)

	srv.AddResource(
		mcp.NewResource(
			playlistURI,
			"Catalog Playlist",
			mcp.WithResourceDescription("The whole catalog as an extended M3U playlist."),
			mcp.WithMIMEType("audio/x-mpegurl"),
		),
		s.handlePlaylistResource,
	)

	srv.AddResourceTemplate(
		mcp.NewResourceTemplate(
			categoryURITemplate,
			"Catalog Category",
			mcp.WithTemplateDescription("Streams (name and URL) of one catalog category."),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleCategoryResource,
	)
}

func (s *MCPServer) handleCatalogResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {
	b, err := json.MarshalIndent(s.catalog.Names(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal catalog: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: catalogURI, MIMEType: "application/json", Text: string(b)},
	}, nil
}

func (s *MCPServer) handlePlaylistResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {
	var buf strings.Builder
	if err := s.catalog.WriteM3U(&buf); err != nil {
		return nil, fmt.Errorf("failed to render playlist: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: playlistURI, MIMEType: "audio/x-mpegurl", Text: buf.String()},
	}, nil
}

// handleCategoryResource returns one category. Unknown names are an error so
// the client learns the valid names.
func (s *MCPServer) handleCategoryResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	name := strings.TrimPrefix(uri, categoryURIPrefix)
	if name == "" || name == uri {
		return nil, fmt.Errorf("invalid category URI %q: expected %s", uri, categoryURITemplate)
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}

	streams, ok := s.catalog.Streams(name)
	if !ok {
		return nil, fmt.Errorf("category %q not found (available: %v)", name, s.catalog.Names())
	}

	b, err := json.MarshalIndent(streams, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal category: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(b)},
	}, nil
}
