// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestMediaAttributesStripSecrets(t *testing.T) {
	attrs := MediaAttributes("https://user:pw@cdn.example/v.m3u8?token=abc#t=10")
	assert.Equal(t, []attribute.KeyValue{
		attribute.String(MediaSchemeKey, "https"),
		attribute.String(MediaURIKey, "https://cdn.example/v.m3u8"),
	}, attrs)
}

func TestMediaAttributesInvalid(t *testing.T) {
	attrs := MediaAttributes("http://[::1")
	assert.Equal(t, []attribute.KeyValue{attribute.String(MediaURIKey, "invalid")}, attrs)
}

func TestSessionAttributes(t *testing.T) {
	assert.Nil(t, SessionAttributes(""))
	assert.Equal(t, []attribute.KeyValue{attribute.String(SessionIDKey, "s1")}, SessionAttributes("s1"))
}

func TestEngineAndStateAttributes(t *testing.T) {
	assert.Len(t, EngineResultAttributes("load", "0x80004005"), 2)
	assert.Equal(t, attribute.String(StateToKey, "Ended"), StateAttributes("Playing", "Ended")[1])
}
