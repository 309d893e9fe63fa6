package service

import (
	"net/url"
	"strings"

	domainauth "github.com/target/taskdesk/internal/domain/auth"
)

// HomePath is the default post-sign-in and post-sign-out destination.
const HomePath = "/"

// ResolveNavigationIntent derives the post-login navigation from the redirect context.
// Only same-origin relative paths are honoured; anything else resolves to HomePath.
func ResolveNavigationIntent(rc domainauth.RedirectContext, replace bool) domainauth.NavigationIntent {
	return domainauth.NavigationIntent{
		TargetPath: safeRedirectPath(rc.FromPath),
		Replace:    replace,
	}
}

func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return HomePath
	}
	// Backslashes are normalized to slashes by browsers, so "/\host" is scheme-relative.
	if strings.HasPrefix(candidate, "//") || strings.HasPrefix(candidate, "/\\") {
		return HomePath
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return HomePath
	}
	return candidate
}
