// Package catalog holds the read-only list of stream categories shown to
// premium users. It is assembled once at startup and then only read.
package catalog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamesnetherton/m3u"
	"gopkg.in/yaml.v3"
)

// Stream is a single playable entry.
type Stream struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// Category is a named, ordered group of streams.
type Category struct {
	Name    string   `yaml:"name" json:"name"`
	Streams []Stream `yaml:"streams" json:"streams"`
}

// File is the on-disk YAML layout of a catalog.
type File struct {
	Categories []Category `yaml:"categories"`
}

// Catalog is an ordered, immutable set of categories.
type Catalog struct {
	categories []Category
	index      map[string]int
}

// New builds a catalog from categories. Categories sharing a name are merged
// in order of first appearance.
func New(categories []Category) *Catalog {
	c := &Catalog{index: make(map[string]int)}
	for _, cat := range categories {
		c.add(cat.Name, cat.Streams...)
	}
	return c
}

// Default returns the built-in sample catalog.
func Default() *Catalog {
	return New([]Category{
		{Name: "Ao Vivo", Streams: []Stream{
			{Name: "Canal 1", URL: "https://teste.com/live1.m3u8"},
			{Name: "Canal 2", URL: "https://teste.com/live2.m3u8"},
		}},
		{Name: "Filmes", Streams: []Stream{
			{Name: "Filme 1", URL: "https://teste.com/movie1.mp4"},
			{Name: "Filme 2", URL: "https://teste.com/movie2.mp4"},
		}},
		{Name: "Séries", Streams: []Stream{
			{Name: "Série 1 - Episódio 1", URL: "https://teste.com/serie1e1.mp4"},
			{Name: "Série 2 - Episódio 1", URL: "https://teste.com/serie2e1.mp4"},
		}},
	})
}

// Options selects the sources a catalog is loaded from.
type Options struct {
	// File is an optional YAML catalog that replaces the built-in default.
	File string
	// Playlists are M3U files or http(s) URLs whose tracks are appended,
	// grouped by their group-title attribute.
	Playlists []string
}

// Load assembles a catalog from the built-in default (or opts.File) plus any
// M3U playlists.
func Load(opts Options) (*Catalog, error) {
	c := Default()

	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, fmt.Errorf("read catalog file: %w", err)
		}
		var f File
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse catalog file: %w", err)
		}
		for i, cat := range f.Categories {
			if strings.TrimSpace(cat.Name) == "" {
				return nil, fmt.Errorf("catalog file: category %d has no name", i)
			}
		}
		c = New(f.Categories)
	}

	for _, src := range opts.Playlists {
		pl, err := m3u.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parse playlist %s: %w", src, err)
		}
		c.addPlaylist(pl, playlistName(src))
	}

	return c, nil
}

func (c *Catalog) add(name string, streams ...Stream) {
	i, ok := c.index[name]
	if !ok {
		i = len(c.categories)
		c.index[name] = i
		c.categories = append(c.categories, Category{Name: name})
	}
	c.categories[i].Streams = append(c.categories[i].Streams, streams...)
}

// addPlaylist appends every track with a URI. Tracks without a group-title
// land in a category named after the playlist.
func (c *Catalog) addPlaylist(pl m3u.Playlist, fallback string) {
	for _, tr := range pl.Tracks {
		if tr.URI == "" {
			continue
		}
		group := fallback
		name := tr.Name
		for _, tag := range tr.Tags {
			switch tag.Name {
			case "group-title":
				if tag.Value != "" {
					group = tag.Value
				}
			case "tvg-name":
				if name == "" {
					name = tag.Value
				}
			}
		}
		if name == "" {
			name = tr.URI
		}
		c.add(group, Stream{Name: name, URL: tr.URI})
	}
}

func playlistName(src string) string {
	base := filepath.Base(src)
	if base == "." || base == "/" || base == "" {
		return "Playlist"
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Categories returns all categories in order. The result is a copy.
func (c *Catalog) Categories() []Category {
	out := make([]Category, len(c.categories))
	for i, cat := range c.categories {
		out[i] = Category{Name: cat.Name, Streams: append([]Stream(nil), cat.Streams...)}
	}
	return out
}

// Names returns the category names in order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.categories))
	for i, cat := range c.categories {
		names[i] = cat.Name
	}
	return names
}

// Streams returns the streams of the named category. An unknown name yields
// an empty list and ok=false.
func (c *Catalog) Streams(name string) ([]Stream, bool) {
	i, ok := c.index[name]
	if !ok {
		return []Stream{}, false
	}
	return append([]Stream(nil), c.categories[i].Streams...), true
}

// WriteM3U writes the whole catalog as an extended M3U playlist, one
// group-title per category.
func (c *Catalog) WriteM3U(w io.Writer) error {
	pl := m3u.Playlist{Tracks: make([]m3u.Track, 0)}
	for _, cat := range c.categories {
		for _, s := range cat.Streams {
			pl.Tracks = append(pl.Tracks, m3u.Track{
				Name:   s.Name,
				Length: -1,
				URI:    s.URL,
				Tags: []m3u.Tag{
					{Name: "tvg-name", Value: s.Name},
					{Name: "group-title", Value: cat.Name},
				},
			})
		}
	}

	r, err := m3u.Marshall(pl)
	if err != nil {
		return fmt.Errorf("marshal playlist: %w", err)
	}
	_, err = io.Copy(w, r)
	return err
}
