// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package model invokes a Generative AI API in one of four fixed enrichment
// roles. Implements: prd003-enrichment-pipeline R3 (model invocation);
//
//	docs/ARCHITECTURE § Model Invocation.
package model

import (
	"context"
	"errors"
)

// ErrUnavailable wraps model service failures, including timeouts. Callers
// treat it as a degradable condition.
var ErrUnavailable = errors.New("model service unavailable")

// Role selects the system prompt and behavior contract for an invocation.
type Role string

const (
	RoleResearcher  Role = "researcher"
	RoleFactChecker Role = "fact-checker"
	RoleLinker      Role = "linker"
	RoleIntegrator  Role = "integrator"
)

// Input carries the section material an invocation works on. Notes holds
// role-specific context: lookup summaries for the researcher, corroboration
// extracts for the fact-checker, accumulated stage text for the integrator.
type Input struct {
	Heading string
	Body    string
	Notes   string
}

// Backend abstracts the Generative AI API so tests can supply a mock.
// Per the Strategy pattern.
type Backend interface {
	Name() string
	Invoke(ctx context.Context, role Role, in Input) (string, error)
}
