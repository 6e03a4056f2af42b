// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/enrichdoc/internal/document"
	"github.com/pdiddy/enrichdoc/internal/model"
	"github.com/pdiddy/enrichdoc/pkg/types"
)

// research looks up novel topics from the section, records the findings, and
// has the model weave them into the body. Topics already researched in this
// document (memory similarity >= dedup threshold) are skipped; zero novel
// topics is a legitimate no-op.
func (r *runner) research(ctx context.Context, sec *document.Section, text string) (string, error) {
	maxTopics := r.cfg.MaxTopics
	if maxTopics <= 0 {
		maxTopics = defaultMaxTopics
	}

	type finding struct {
		topic   string
		summary string
	}

	var notes strings.Builder
	var findings []finding
	for _, topic := range Topics(sec.Heading, sec.OriginalBody, maxTopics*2) {
		if len(findings) >= maxTopics {
			break
		}
		seen, err := r.deps.Memory.HasSimilar(ctx, types.KindResearch, topic, r.deps.Memory.DedupThreshold())
		if err != nil {
			return "", err
		}
		if seen {
			continue
		}
		results, err := r.lookup(ctx, topic)
		if err != nil {
			return "", err
		}
		if len(results) == 0 {
			continue
		}
		top := results[0]
		fmt.Fprintf(&notes, "%s: %s (%s)\n", top.Title, top.Summary, top.URL)
		findings = append(findings, finding{topic: topic, summary: top.Summary})
	}
	if notes.Len() == 0 {
		return text, nil
	}

	out, err := r.invoke(ctx, model.RoleResearcher, model.Input{
		Heading: sec.Heading,
		Body:    text,
		Notes:   notes.String(),
	})
	if err != nil {
		return "", err
	}
	// Record only after the stage produced output, so a degraded stage does
	// not mark its topics as researched.
	for _, f := range findings {
		if _, err := r.deps.Memory.Record(ctx, types.KindResearch, f.topic, f.summary); err != nil {
			return "", err
		}
	}
	return out, nil
}

// factCheck gathers corroboration for checkable claims and has the model
// add marked corrections after manifestly contradicted ones. Claims already
// checked in this document are skipped; the claim text itself is never
// touched, the gate discards any output that does.
func (r *runner) factCheck(ctx context.Context, sec *document.Section, text string) (string, error) {
	claims := Claims(text, maxClaims)
	if len(claims) == 0 {
		return text, nil
	}

	type corroboration struct {
		claim string
		ref   string
	}

	var notes strings.Builder
	var checked []corroboration
	for _, claim := range claims {
		seen, err := r.deps.Memory.HasSimilar(ctx, types.KindFactCheck, claim, r.deps.Memory.DedupThreshold())
		if err != nil {
			return "", err
		}
		if seen {
			continue
		}
		results, err := r.lookup(ctx, claim)
		if err != nil {
			return "", err
		}
		if len(results) == 0 {
			continue
		}
		ref := fmt.Sprintf("%s: %s", results[0].Title, results[0].Summary)
		fmt.Fprintf(&notes, "Claim: %s\nReference: %s\n\n", claim, ref)
		checked = append(checked, corroboration{claim: claim, ref: ref})
	}
	if notes.Len() == 0 {
		return text, nil
	}

	out, err := r.invoke(ctx, model.RoleFactChecker, model.Input{
		Heading: sec.Heading,
		Body:    text,
		Notes:   notes.String(),
	})
	if err != nil {
		return "", err
	}
	// The payload is the corroborating reference, so Recall can answer what
	// a claim was verified against.
	for _, c := range checked {
		if _, err := r.deps.Memory.Record(ctx, types.KindFactCheck, c.claim, c.ref); err != nil {
			return "", err
		}
	}
	return out, nil
}

// link wraps first occurrences of notable terms in inline Markdown links.
// The wrapping is mechanical, no model call: the term text is preserved
// exactly and only markup is added around it. Terms already linked anywhere
// in the document (memory similarity >= link threshold) are skipped, so a
// term linked in section 1 is not re-linked in section 3.
//
// Each term is recorded as it is wrapped, so a failure on a later term must
// not discard the wraps already made: the error is returned together with
// the partially-linked text, keeping the document consistent with memory.
func (r *runner) link(ctx context.Context, sec *document.Section, text string) (string, error) {
	maxLinks := r.cfg.MaxLinks
	if maxLinks <= 0 {
		maxLinks = defaultMaxLinks
	}

	linked := 0
	for _, term := range LinkTerms(sec.OriginalBody, maxLinks*2) {
		if linked >= maxLinks {
			break
		}
		if strings.Contains(text, "["+term+"]") {
			continue
		}
		seen, err := r.deps.Memory.HasSimilar(ctx, types.KindLink, term, r.deps.Memory.LinkThreshold())
		if err != nil {
			return text, err
		}
		if seen {
			continue
		}
		results, err := r.lookup(ctx, term)
		if err != nil {
			return text, err
		}
		if len(results) == 0 {
			continue
		}
		wrapped, ok := wrapFirstOccurrence(text, term, results[0].URL)
		if !ok {
			continue
		}
		text = wrapped
		if _, err := r.deps.Memory.Record(ctx, types.KindLink, term, results[0].URL); err != nil {
			return text, err
		}
		linked++
	}
	return text, nil
}

// integrate has the model smooth the transitions around accumulated
// enrichment. A body no prior stage touched needs no smoothing.
func (r *runner) integrate(ctx context.Context, sec *document.Section, text string) (string, error) {
	if text == sec.OriginalBody {
		return text, nil
	}
	return r.invoke(ctx, model.RoleIntegrator, model.Input{
		Heading: sec.Heading,
		Body:    text,
	})
}
