// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"net/url"

	"go.opentelemetry.io/otel/attribute"
)

// Span attribute keys.
const (
	SessionIDKey    = "playcore.session_id"
	MediaSchemeKey  = "media.scheme"
	MediaURIKey     = "media.uri"
	EngineOpKey     = "engine.op"
	EngineResultKey = "engine.result"
	StateFromKey    = "playback.state_from"
	StateToKey      = "playback.state_to"
)

func SessionAttributes(sessionID string) []attribute.KeyValue {
	if sessionID == "" {
		return nil
	}
	return []attribute.KeyValue{attribute.String(SessionIDKey, sessionID)}
}

// MediaAttributes describes the media being opened. Query strings are
// dropped so signed URLs do not end up in traces.
func MediaAttributes(uri string) []attribute.KeyValue {
	u, err := url.Parse(uri)
	if err != nil {
		return []attribute.KeyValue{attribute.String(MediaURIKey, "invalid")}
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return []attribute.KeyValue{
		attribute.String(MediaSchemeKey, u.Scheme),
		attribute.String(MediaURIKey, u.String()),
	}
}

func EngineResultAttributes(op, result string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(EngineOpKey, op),
		attribute.String(EngineResultKey, result),
	}
}

func StateAttributes(from, to string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(StateFromKey, from),
		attribute.String(StateToKey, to),
	}
}
