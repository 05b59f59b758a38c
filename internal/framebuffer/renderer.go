// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package framebuffer

import "github.com/ManuGH/playcore/internal/model"

// NopRenderer is used when the host renders nothing itself (headless daemon).
type NopRenderer struct{}

func (NopRenderer) DestroyFrameBuffer(model.FrameBuffer) error { return nil }
func (NopRenderer) ClearFrameBuffer(model.FrameBuffer) error   { return nil }
