// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import (
	"errors"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrEmptyURI is returned for a blank media location.
var ErrEmptyURI = errors.New("playback: empty media uri")

var drivePath = regexp.MustCompile(`^[A-Za-z]:[\\/]`)

// ResolveURI turns a host-supplied media location into the URI handed to the
// engine. Absolute URIs pass unchanged, rooted paths become file URIs and
// anything else is resolved against assetRoot.
func ResolveURI(raw, assetRoot string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrEmptyURI
	}
	if strings.HasPrefix(s, "file:///") {
		return s, nil
	}
	if drivePath.MatchString(s) {
		return fileURI("/" + strings.ReplaceAll(s, `\`, "/")), nil
	}
	if isAbsoluteURI(s) {
		return s, nil
	}
	if filepath.IsAbs(s) || strings.HasPrefix(s, "/") {
		return fileURI(filepath.ToSlash(s)), nil
	}

	p := filepath.Join(assetRoot, s)
	if !filepath.IsAbs(p) {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", err
		}
		p = abs
	}
	return fileURI(filepath.ToSlash(p)), nil
}

// isAbsoluteURI reports a well-formed URI with a scheme and something after it.
func isAbsoluteURI(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return false
	}
	return u.Host != "" || u.Opaque != "" || u.Path != ""
}

func fileURI(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return (&url.URL{Scheme: "file", Path: path}).String()
}
