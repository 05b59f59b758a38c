// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package drm answers native DRM license requests.
package drm

import (
	"context"

	"github.com/ManuGH/playcore/internal/engine"
	xglog "github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/metrics"
	"github.com/ManuGH/playcore/internal/model"
	"github.com/rs/zerolog"
)

// Request outcomes, as counted by playcore_drm_requests_total.
const (
	OutcomeLicense  = "license"
	OutcomeEmpty    = "empty"
	OutcomeDisabled = "disabled"
	OutcomeFailed   = "failed"
)

// Submitter hands the license parameters to the engine.
type Submitter interface {
	SetDRMLicense(serviceURL, customChallengeData string) engine.Result
}

// Negotiator holds the license request of the current load cycle. It is
// driven from the owner goroutine only.
type Negotiator struct {
	enabled bool
	submit  Submitter
	notify  func(*model.LicenseRequest)
	logger  zerolog.Logger

	preset *model.LicenseRequest
	req    *model.LicenseRequest
}

// New creates a negotiator. notify runs the host handlers with the request
// before it is submitted; it may be nil.
func New(enabled bool, submit Submitter, notify func(*model.LicenseRequest), logger zerolog.Logger) *Negotiator {
	return &Negotiator{enabled: enabled, submit: submit, notify: notify, logger: logger}
}

func (n *Negotiator) Enabled() bool { return n.enabled }

func (n *Negotiator) SetEnabled(enabled bool) { n.enabled = enabled }

// Preset pre-populates the request used for every following load cycle.
func (n *Negotiator) Preset(req model.LicenseRequest) {
	cp := clone(&req)
	n.preset = cp
	n.req = nil
}

// ClearPreset drops a preset installed with Preset.
func (n *Negotiator) ClearPreset() {
	n.preset = nil
}

// Reset starts a new load cycle. The preset survives.
func (n *Negotiator) Reset() {
	n.req = nil
}

// Request returns the request of the current load cycle, or nil.
func (n *Negotiator) Request() *model.LicenseRequest {
	return n.req
}

// OnLicenseRequested builds the request, lets the host fill it and submits
// the result. An empty service URL is submitted as "no license".
func (n *Negotiator) OnLicenseRequested(ctx context.Context) engine.Result {
	logger := xglog.WithContext(ctx, n.logger)
	if n.submit == nil {
		metrics.IncDRMRequest(OutcomeFailed)
		return engine.ResultNotCreated
	}
	if !n.enabled {
		logger.Warn().Str(xglog.FieldEvent, "drm.disabled").Msg("license requested while DRM is disabled")
		metrics.IncDRMRequest(OutcomeDisabled)
		return n.submit.SetDRMLicense("", "")
	}

	if n.req == nil {
		n.req = clone(n.preset)
	}
	if n.notify != nil {
		n.notify(n.req)
	}

	r := n.submit.SetDRMLicense(n.req.ServiceURL, n.req.CustomData())
	switch {
	case r.Failed():
		metrics.IncDRMRequest(OutcomeFailed)
	case n.req.ServiceURL == "":
		metrics.IncDRMRequest(OutcomeEmpty)
		logger.Info().Str(xglog.FieldEvent, "drm.no_license").Msg("no license service configured")
	default:
		metrics.IncDRMRequest(OutcomeLicense)
		logger.Debug().
			Str(xglog.FieldURI, n.req.ServiceURL).
			Str(xglog.FieldEvent, "drm.license_submitted").
			Msg("license submitted")
	}
	return r
}

// ConfigHandler returns a host handler that fills the request from static
// configuration. An empty serviceURL makes it a no-op.
func ConfigHandler(serviceURL, customChallengeData string) func(*model.LicenseRequest) {
	return func(req *model.LicenseRequest) {
		if req == nil || serviceURL == "" {
			return
		}
		req.ServiceURL = serviceURL
		if customChallengeData != "" {
			custom := customChallengeData
			req.CustomChallengeData = &custom
		}
	}
}

func clone(req *model.LicenseRequest) *model.LicenseRequest {
	if req == nil {
		return &model.LicenseRequest{}
	}
	cp := &model.LicenseRequest{ServiceURL: req.ServiceURL}
	if req.CustomChallengeData != nil {
		custom := *req.CustomChallengeData
		cp.CustomChallengeData = &custom
	}
	return cp
}
