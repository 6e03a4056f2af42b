// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enrich drives the per-section enrichment pipeline: a fixed
// four-stage state machine (research, fact-check, link, integrate) whose
// stages consult the section memory and whose output is filtered by the
// consistency gate. Sections run concurrently under a bounded worker pool;
// stages within a section are strictly sequential.
// Implements: prd003-enrichment-pipeline (R1-R5);
//
//	docs/ARCHITECTURE § Agent Pipeline.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/pdiddy/enrichdoc/internal/document"
	"github.com/pdiddy/enrichdoc/internal/gate"
	"github.com/pdiddy/enrichdoc/internal/memory"
	"github.com/pdiddy/enrichdoc/internal/model"
	"github.com/pdiddy/enrichdoc/internal/wiki"
	"github.com/pdiddy/enrichdoc/pkg/types"
)

// State is a section's position in the pipeline. Transitions are strictly
// forward; a degraded or discarded stage still advances the state with
// unchanged text.
type State string

const (
	StatePending     State = "pending"
	StateResearched  State = "researched"
	StateFactChecked State = "fact-checked"
	StateLinked      State = "linked"
	StateIntegrated  State = "integrated"
)

const (
	defaultWorkers    = 4
	defaultMaxLinks   = 4
	defaultMaxTopics  = 3
	defaultMaxRetries = 2
	maxClaims         = 3
)

// retryBackoffBase controls the base duration for exponential backoff on
// failed external calls. Package-level var so tests can shrink it.
var retryBackoffBase = 500 * time.Millisecond

// Deps are the external collaborators a run needs. All four must be set.
type Deps struct {
	Model  model.Backend
	Wiki   wiki.Backend
	Memory *memory.SectionMemory
	Gate   *gate.Gate
}

// Summary reports what a run did across all sections.
type Summary struct {
	// Sections is the number of sections processed.
	Sections int

	// Enriched counts sections whose body grew.
	Enriched int

	// Unchanged counts sections left exactly as parsed.
	Unchanged int

	// Degraded counts stage executions abandoned after external failures.
	Degraded int

	// Violations counts stage outputs discarded for breaking the
	// preservation contract.
	Violations int

	// States holds each section's final pipeline state, in document order.
	States []State
}

// String formats the summary for end-of-run reporting.
func (s Summary) String() string {
	return fmt.Sprintf("sections: %d, enriched: %d, unchanged: %d, degraded stages: %d, integrity violations: %d",
		s.Sections, s.Enriched, s.Unchanged, s.Degraded, s.Violations)
}

// stageDef binds a stage name to the state it advances to and the function
// that produces its candidate text.
type stageDef struct {
	name  string
	state State
	fn    func(ctx context.Context, sec *document.Section, text string) (string, error)
}

// runner holds per-run state shared by section workers.
type runner struct {
	deps       Deps
	cfg        types.PipelineConfig
	maxRetries int

	mu      sync.Mutex // guards log and summary
	log     io.Writer
	summary Summary
}

// Run enriches every section of doc in place and returns a run summary.
// Progress and degradation warnings go to w (nil discards them). Sections
// run concurrently, bounded by cfg.Workers; on context cancellation,
// in-flight sections finish their current stage and the rest are skipped, so
// the document always serializes with whatever enrichment completed. The
// only errors are missing collaborators and cancellation; per-section
// failures degrade and are reported in the summary instead.
func Run(ctx context.Context, doc *document.Document, deps Deps, cfg types.PipelineConfig, w io.Writer) (Summary, error) {
	if doc == nil || len(doc.Sections) == 0 {
		return Summary{}, errors.New("no document to enrich")
	}
	if deps.Model == nil || deps.Wiki == nil || deps.Memory == nil || deps.Gate == nil {
		return Summary{}, errors.New("pipeline dependencies incomplete")
	}
	if w == nil {
		w = io.Discard
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	r := &runner{
		deps:       deps,
		cfg:        cfg,
		maxRetries: maxRetries,
		log:        w,
		summary: Summary{
			Sections: len(doc.Sections),
			States:   make([]State, len(doc.Sections)),
		},
	}
	for i := range r.summary.States {
		r.summary.States[i] = StatePending
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, sec := range doc.Sections {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, sec *document.Section) {
			defer wg.Done()
			defer func() { <-sem }()
			r.runSection(ctx, i, sec)
		}(i, sec)
	}
	wg.Wait()

	r.mu.Lock()
	for _, sec := range doc.Sections {
		if sec.EnrichedBody != sec.OriginalBody {
			r.summary.Enriched++
		} else {
			r.summary.Unchanged++
		}
	}
	summary := r.summary
	r.mu.Unlock()

	return summary, ctx.Err()
}

// runSection walks one section through the four stages. Each stage receives
// the cumulative text of the previous ones; its candidate passes the gate
// before replacing it. Degraded and discarded stages pass the pre-stage
// text forward unchanged.
func (r *runner) runSection(ctx context.Context, idx int, sec *document.Section) {
	stages := []stageDef{
		{"research", StateResearched, r.research},
		{"fact-check", StateFactChecked, r.factCheck},
		{"link", StateLinked, r.link},
		{"integrate", StateIntegrated, r.integrate},
	}

	text := sec.EnrichedBody
	for _, st := range stages {
		if ctx.Err() != nil {
			break
		}

		candidate, stageErr := st.fn(ctx, sec, text)
		if stageErr != nil {
			r.logf("warning: section %d: %s stage degraded: %v\n", idx, st.name, stageErr)
			r.count(func(s *Summary) { s.Degraded++ })
			if candidate == "" || candidate == text {
				r.setState(idx, st.state)
				continue
			}
			// The stage made progress before failing (partially-linked text
			// with matching memory records); gate it like a full candidate.
		}
		if candidate == text {
			r.setState(idx, st.state)
			continue
		}

		res, err := r.deps.Gate.Evaluate(ctx, text, candidate)
		if err != nil {
			var ie *gate.IntegrityError
			if errors.As(err, &ie) {
				r.logf("error: section %d: %s stage output discarded: %v\n", idx, st.name, err)
				r.count(func(s *Summary) { s.Violations++ })
			} else {
				r.logf("warning: section %d: %s stage degraded: %v\n", idx, st.name, err)
				r.count(func(s *Summary) { s.Degraded++ })
			}
			r.setState(idx, st.state)
			continue
		}
		if res.Decision == gate.Truncate {
			r.logf("warning: section %d: %s stage addition off topic (similarity %.2f), dropped\n",
				idx, st.name, res.Similarity)
		}
		text = res.Text
		r.setState(idx, st.state)
	}

	sec.EnrichedBody = text
}

// callWithRetry runs fn up to 1+maxRetries times with exponential backoff,
// honoring context cancellation during waits.
func (r *runner) callWithRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * retryBackoffBase
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}

// lookup queries the wiki backend. The backend carries its own bounded HTTP
// retry policy; wrapping a second retry layer here would multiply attempts.
func (r *runner) lookup(ctx context.Context, query string) ([]wiki.Result, error) {
	return r.deps.Wiki.Lookup(ctx, query)
}

// invoke calls the model backend with the run's retry policy.
func (r *runner) invoke(ctx context.Context, role model.Role, in model.Input) (string, error) {
	var out string
	err := r.callWithRetry(ctx, func() error {
		var e error
		out, e = r.deps.Model.Invoke(ctx, role, in)
		return e
	})
	return out, err
}

func (r *runner) logf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.log, format, args...)
}

func (r *runner) count(f func(*Summary)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f(&r.summary)
}

func (r *runner) setState(idx int, state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.States[idx] = state
}
