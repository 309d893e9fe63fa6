package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	domainauth "github.com/target/taskdesk/internal/domain/auth"
)

func TestResolveNavigationIntent(t *testing.T) {
	tests := []struct {
		name string
		from string
		want string
	}{
		{name: "absent", from: "", want: "/"},
		{name: "relative path", from: "/tasks/42", want: "/tasks/42"},
		{name: "path with query", from: "/tasks?filter=open", want: "/tasks?filter=open"},
		{name: "absolute url", from: "https://evil.example.com/x", want: "/"},
		{name: "scheme relative", from: "//evil.example.com", want: "/"},
		{name: "backslash scheme relative", from: "/\\evil.example.com", want: "/"},
		{name: "not rooted", from: "tasks", want: "/"},
		{name: "javascript scheme", from: "javascript:alert(1)", want: "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveNavigationIntent(domainauth.RedirectContext{FromPath: tt.from}, true)
			assert.Equal(t, tt.want, got.TargetPath)
			assert.True(t, got.Replace)
		})
	}
}

func TestResolveNavigationIntent_NoReplace(t *testing.T) {
	got := ResolveNavigationIntent(domainauth.RedirectContext{}, false)
	assert.Equal(t, domainauth.NavigationIntent{TargetPath: "/", Replace: false}, got)
}
