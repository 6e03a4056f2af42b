// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package memory

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/pdiddy/enrichdoc/internal/embedding"
	"github.com/pdiddy/enrichdoc/pkg/types"
)

const (
	defaultDedupThreshold = 0.92
	defaultLinkThreshold  = 0.95
)

// SectionMemory is the namespaced view of the store for one document run.
// It is shared by concurrent section workers; Record performs its
// check-then-write under a per-kind mutex so two workers cannot insert
// near-duplicate records for the same topic simultaneously (R5.1).
type SectionMemory struct {
	store          *Store
	embedder       embedding.Embedder
	documentID     string
	dedupThreshold float64
	linkThreshold  float64

	mu    sync.Mutex
	kinds map[types.RecordKind]*sync.Mutex
}

// NewSectionMemory binds a store and embedder to one document's namespace.
func NewSectionMemory(store *Store, embedder embedding.Embedder, documentID string, cfg types.MemoryConfig) *SectionMemory {
	dedup := cfg.DedupThreshold
	if dedup <= 0 {
		dedup = defaultDedupThreshold
	}
	link := cfg.LinkThreshold
	if link <= 0 {
		link = defaultLinkThreshold
	}
	return &SectionMemory{
		store:          store,
		embedder:       embedder,
		documentID:     documentID,
		dedupThreshold: dedup,
		linkThreshold:  link,
		kinds:          make(map[types.RecordKind]*sync.Mutex),
	}
}

// DocumentID returns the namespace this memory is bound to.
func (m *SectionMemory) DocumentID() string { return m.documentID }

// DedupThreshold is the similarity above which work on a topic counts as
// already done.
func (m *SectionMemory) DedupThreshold() float64 { return m.dedupThreshold }

// LinkThreshold is the similarity above which a term counts as already
// linked in this document.
func (m *SectionMemory) LinkThreshold() float64 { return m.linkThreshold }

// HasSimilar reports whether a prior record of kind in this document has
// similarity >= threshold to topic (R2.1). Stages use it to skip duplicate
// research and re-linking of already-linked terms.
func (m *SectionMemory) HasSimilar(ctx context.Context, kind types.RecordKind, topic string, threshold float64) (bool, error) {
	vec, err := m.embedder.Embed(ctx, topic)
	if err != nil {
		return false, err
	}
	matches, err := m.store.Query(ctx, m.documentID, kind, vec, 1, threshold)
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}

// Record dedup-upserts a unit of completed work and returns the stored
// record. An insert whose topic is within the dedup threshold of an
// existing record of the same kind refreshes that record's recency instead
// of creating a duplicate (R2.2).
func (m *SectionMemory) Record(ctx context.Context, kind types.RecordKind, topic, payload string) (types.MemoryRecord, error) {
	if !types.ValidRecordKinds[kind] {
		return types.MemoryRecord{}, fmt.Errorf("invalid record kind %q", kind)
	}

	vec, err := m.embedder.Embed(ctx, topic)
	if err != nil {
		return types.MemoryRecord{}, err
	}

	lock := m.kindLock(kind)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC()

	matches, err := m.store.Query(ctx, m.documentID, kind, vec, 1, m.dedupThreshold)
	if err != nil {
		return types.MemoryRecord{}, err
	}
	if len(matches) > 0 {
		rec := matches[0].Record
		if err := m.store.Touch(ctx, rec.ID, now); err != nil {
			return types.MemoryRecord{}, err
		}
		rec.UpdatedAt = now
		return rec, nil
	}

	rec := types.MemoryRecord{
		ID:         recordID(m.documentID, kind, topic),
		DocumentID: m.documentID,
		Kind:       kind,
		Topic:      topic,
		Payload:    payload,
		Embedding:  vec,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := m.store.Upsert(ctx, rec); err != nil {
		return types.MemoryRecord{}, err
	}
	return rec, nil
}

// Recall returns up to k stored payloads of kind most similar to topic,
// best match first. Supports cross-section consistency checks (R2.3).
func (m *SectionMemory) Recall(ctx context.Context, kind types.RecordKind, topic string, k int) ([]string, error) {
	vec, err := m.embedder.Embed(ctx, topic)
	if err != nil {
		return nil, err
	}
	matches, err := m.store.Query(ctx, m.documentID, kind, vec, k, 0)
	if err != nil {
		return nil, err
	}
	payloads := make([]string, 0, len(matches))
	for _, match := range matches {
		payloads = append(payloads, match.Record.Payload)
	}
	return payloads, nil
}

// kindLock returns the mutex serializing dedup-upserts for one kind.
func (m *SectionMemory) kindLock(kind types.RecordKind) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.kinds[kind]
	if !ok {
		lock = &sync.Mutex{}
		m.kinds[kind] = lock
	}
	return lock
}

// recordID derives a stable identifier from the record's namespace and topic,
// consistent across runs for unchanged topics.
func recordID(documentID string, kind types.RecordKind, topic string) string {
	sum := sha256.Sum256([]byte(documentID + "\x00" + string(kind) + "\x00" + topic))
	return fmt.Sprintf("%x", sum[:8])
}
