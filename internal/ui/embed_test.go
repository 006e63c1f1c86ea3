package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestTemplatesParse(t *testing.T) {
	tmpls, err := Templates()
	if err != nil {
		t.Fatalf("Templates: %v", err)
	}
	for _, name := range []string{"index", "login", "register", "category", "player", "playlist", "xtream", "admin"} {
		if _, ok := tmpls[name]; !ok {
			t.Errorf("missing page %q", name)
		}
	}
	if _, ok := tmpls["base"]; ok {
		t.Error("base layout must not be exposed as a page")
	}
}

type fakeUser struct {
	Username string
	Premium  bool
}

func (fakeUser) LoggedIn() bool { return true }

func TestPlayerEscapesUnsafeURL(t *testing.T) {
	tmpls, err := Templates()
	if err != nil {
		t.Fatalf("Templates: %v", err)
	}
	data := map[string]interface{}{
		"Title":            "Player",
		"User":             fakeUser{Username: "a", Premium: true},
		"RegistrationOpen": false,
		"Flashes":          nil,
		"Data":             map[string]string{"URL": "javascript:alert(1)"},
	}
	var buf bytes.Buffer
	if err := tmpls["player"].ExecuteTemplate(&buf, "base", data); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.Contains(buf.String(), `src="javascript:`) {
		t.Error("javascript: URL must be neutralized")
	}
}
