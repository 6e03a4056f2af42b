// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"text/template"
	"time"

	"github.com/pdiddy/enrichdoc/pkg/types"
)

// systemPrompts holds the fixed behavior contract for each role. Every role
// is bound by the same hard rule: original text is never removed or
// rewritten, only added to. The consistency gate enforces this structurally;
// the prompts keep well-behaved models from tripping it.
var systemPrompts = map[Role]string{
	RoleResearcher: `You enrich encyclopedic and technical documents. You receive a document section and research notes gathered from Wikipedia. Reproduce the section text exactly as given, then weave in additional factual detail from the notes, adding sentences after or between the existing ones. Never delete, shorten, reorder, or paraphrase any existing sentence. Stay on the section's subject. Respond with the full section body only, no heading and no commentary.`,

	RoleFactChecker: `You verify factual claims in documents. You receive a document section and corroboration notes from Wikipedia. If a claim in the section is manifestly contradicted by the notes, add a line starting with "> **Correction:**" directly after the line containing the claim, citing the correct fact. Never change, delete, or rewrite the claim itself or any other text. If nothing is manifestly wrong, return the section unchanged. Respond with the full section body only.`,

	RoleLinker: `You add inline Wikipedia links to documents. You receive a document section and a list of terms with their article URLs. Wrap the first occurrence of each term in a Markdown link [term](url), keeping the term text exactly as written. Do not link inside headings or existing links, do not alter any other text. Respond with the full section body only.`,

	RoleIntegrator: `You are a Markdown editor. You receive a document section whose enrichments were added mechanically. Smooth the transitions around the added material by inserting short connective phrases where helpful. Never delete, shorten, reorder, or paraphrase any existing sentence; only additions are allowed. Respond with the full section body only.`,
}

// userTmpl renders the per-invocation material for all roles.
var userTmpl = template.Must(template.New("user").Parse(`{{if .Heading}}Section heading: {{.Heading}}

{{end}}Section body:
{{.Body}}
{{if .Notes}}
Notes:
{{.Notes}}
{{end}}`))

// claudeAPIURL is the Claude API endpoint. Package-level var for test
// substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

const (
	defaultMaxTokens = 4096
	defaultTimeout   = 30 * time.Second
)

// ClaudeBackend calls the Claude Messages API with a role-specific system
// prompt.
type ClaudeBackend struct {
	Config types.AIConfig
	Client *http.Client
}

// Name returns the backend identifier.
func (c *ClaudeBackend) Name() string { return "claude/" + c.Config.Model }

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []claudeMessage `json:"messages"`
}

// claudeMessage is a single message in the Claude API conversation.
type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

// claudeContent is a content block in the Claude API response.
type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Invoke calls the Claude API for one role invocation. Service failures are
// wrapped in ErrUnavailable.
func (c *ClaudeBackend) Invoke(ctx context.Context, role Role, in Input) (string, error) {
	system, ok := systemPrompts[role]
	if !ok {
		return "", fmt.Errorf("unknown role %q", role)
	}

	var user bytes.Buffer
	if err := userTmpl.Execute(&user, in); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	maxTokens := c.Config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	reqBody := claudeRequest{
		Model:     c.Config.Model,
		MaxTokens: maxTokens,
		System:    system,
		Messages: []claudeMessage{
			{Role: "user", Content: user.String()},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.Config.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: Claude API returned %d: %s", ErrUnavailable, resp.StatusCode, string(body))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("%w: parsing Claude response: %v", ErrUnavailable, err)
	}

	var text bytes.Buffer
	for _, block := range cResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("%w: empty model response", ErrUnavailable)
	}
	return text.String(), nil
}
