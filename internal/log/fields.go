// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID     = "session_id"
	FieldCorrelationID = "correlation_id"
	FieldToken         = "token"
	FieldTraceID       = "trace_id"
	FieldSpanID        = "span_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldOp        = "op"
	FieldResult    = "result"
	FieldEntry     = "entry"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldRawType  = "raw_type"
	FieldRawState = "raw_state"

	// Media fields
	FieldURI        = "uri"
	FieldResolution = "resolution"
	FieldDuration   = "duration_ticks"
	FieldStereo     = "stereoscopic"
	FieldGeneration = "generation"

	// Subtitle fields
	FieldTrackID  = "track_id"
	FieldCueID    = "cue_id"
	FieldLanguage = "language"
)
