// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RecordKind categorizes a memory record within a document's namespace.
// Per prd002-section-memory R1.1.
type RecordKind string

const (
	KindResearch  RecordKind = "research"
	KindFactCheck RecordKind = "factcheck"
	KindLink      RecordKind = "link"
)

// ValidRecordKinds is the set of accepted RecordKind values.
var ValidRecordKinds = map[RecordKind]bool{
	KindResearch:  true,
	KindFactCheck: true,
	KindLink:      true,
}

// MemoryRecord is a deduplicated unit of completed enrichment work, scoped
// to one document. Records persist across runs and are garbage-collected
// only by explicit user action. Per prd002-section-memory R1-R3.
type MemoryRecord struct {
	// ID is a stable identifier derived from (document, kind, topic).
	ID string `json:"id" yaml:"id"`

	// DocumentID scopes the record to one input document.
	DocumentID string `json:"document_id" yaml:"document_id"`

	// Kind is the type of work the record represents.
	Kind RecordKind `json:"kind" yaml:"kind"`

	// Topic is the term or subject the work was about.
	Topic string `json:"topic" yaml:"topic"`

	// Payload is the stored result: a research summary, a verified claim
	// verdict, or a link target URL.
	Payload string `json:"payload" yaml:"payload"`

	// Embedding is the vector for Topic, used for similarity lookups.
	// Omitted from exports.
	Embedding []float32 `json:"-" yaml:"-"`

	// CreatedAt is when the record was first stored.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// UpdatedAt is refreshed when a near-duplicate insert lands on this
	// record instead of creating a new one.
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}
