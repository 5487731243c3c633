package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/boogieLing/tsugie/internal/domain"
)

// Polisher turns a raw, possibly ungrammatical scraped description into
// the six-field multilingual polish bundle: a polished description and a
// one-liner teaser, each in Japanese, Chinese, and English.
type Polisher interface {
	Polish(ctx context.Context, rawText string) (domain.PolishBundle, error)
}

const polishPromptTemplate = `You are editing a short festival or fireworks-show listing for a travel app.
Given the raw Japanese text below, produce a JSON object with exactly these
six string fields: description_ja, one_liner_ja, description_zh, one_liner_zh,
description_en, one_liner_en. Each description should be two to four
sentences; each one-liner must be under 45 characters in its own language.
Do not invent facts not present in the source text.

Raw text:
%s`

// RemoteChatPolisher calls an OpenAI-chat-completions-shaped backend in
// JSON mode. It is the production polisher when an API key is configured.
type RemoteChatPolisher struct {
	client *openai.Client
	model  string
}

// NewRemoteChatPolisher builds a polisher against an OpenAI-compatible
// chat completions endpoint; an empty baseURL targets OpenAI itself.
func NewRemoteChatPolisher(apiKey, baseURL, model string) *RemoteChatPolisher {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &RemoteChatPolisher{client: openai.NewClientWithConfig(cfg), model: model}
}

// Polish implements Polisher.
func (p *RemoteChatPolisher) Polish(ctx context.Context, rawText string) (domain.PolishBundle, error) {
	prompt := fmt.Sprintf(polishPromptTemplate, rawText)
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return domain.PolishBundle{}, fmt.Errorf("polish request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.PolishBundle{}, fmt.Errorf("polish response had no choices")
	}
	return parsePolishBundle(resp.Choices[0].Message.Content)
}

// LocalSubprocessPolisher shells out to a locally installed "codex"
// CLI (`codex exec <prompt>`) instead of calling a hosted API, for
// operators who run enrichment against a local model gateway with no
// network egress. It is otherwise interchangeable with RemoteChatPolisher.
type LocalSubprocessPolisher struct {
	binaryPath string
}

// NewLocalSubprocessPolisher builds a polisher that shells out to the
// named binary (normally "codex" on $PATH).
func NewLocalSubprocessPolisher(binaryPath string) *LocalSubprocessPolisher {
	if binaryPath == "" {
		binaryPath = "codex"
	}
	return &LocalSubprocessPolisher{binaryPath: binaryPath}
}

// Polish implements Polisher.
func (p *LocalSubprocessPolisher) Polish(ctx context.Context, rawText string) (domain.PolishBundle, error) {
	prompt := fmt.Sprintf(polishPromptTemplate, rawText)
	cmd := exec.CommandContext(ctx, p.binaryPath, "exec", prompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return domain.PolishBundle{}, fmt.Errorf("codex exec: %w: %s", err, stderr.String())
	}
	return parsePolishBundle(stdout.String())
}

// NoopPolisher returns the raw text unchanged in the ja slot and leaves
// the rest empty, used when polish_mode is "none" — callers still get a
// usable (if unpolished) description.
type NoopPolisher struct{}

// Polish implements Polisher.
func (NoopPolisher) Polish(_ context.Context, rawText string) (domain.PolishBundle, error) {
	return domain.PolishBundle{
		PolishedDescriptionJA: rawText,
		OneLinerJA:            FallbackOneLiner(rawText),
	}, nil
}

// FallbackOneLiner truncates a description to a teaser when no polisher
// produced one, mirroring the original crawler's ellipsis truncation.
func FallbackOneLiner(rawText string) string {
	text := cleanInline(rawText)
	if text == "" {
		return ""
	}
	r := []rune(text)
	if len(r) <= 45 {
		return text
	}
	return strings.TrimRight(string(r[:44]), " ") + "…"
}

var reFencedJSONBlock = regexp.MustCompile(`(?is)` + "```" + `(?:json)?\s*(\{.*?\})\s*` + "```")

func parsePolishBundle(text string) (domain.PolishBundle, error) {
	raw := strings.TrimSpace(text)
	if m := reFencedJSONBlock.FindStringSubmatch(raw); m != nil {
		raw = strings.TrimSpace(m[1])
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return domain.PolishBundle{}, fmt.Errorf("polish output is not a JSON object")
	}
	var obj struct {
		DescriptionJA string `json:"description_ja"`
		OneLinerJA    string `json:"one_liner_ja"`
		DescriptionZH string `json:"description_zh"`
		OneLinerZH    string `json:"one_liner_zh"`
		DescriptionEN string `json:"description_en"`
		OneLinerEN    string `json:"one_liner_en"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &obj); err != nil {
		return domain.PolishBundle{}, fmt.Errorf("decode polish output: %w", err)
	}
	return domain.PolishBundle{
		PolishedDescriptionJA: strings.TrimSpace(obj.DescriptionJA),
		OneLinerJA:            strings.TrimSpace(obj.OneLinerJA),
		PolishedDescriptionZH: strings.TrimSpace(obj.DescriptionZH),
		OneLinerZH:            strings.TrimSpace(obj.OneLinerZH),
		PolishedDescriptionEN: strings.TrimSpace(obj.DescriptionEN),
		OneLinerEN:            strings.TrimSpace(obj.OneLinerEN),
	}, nil
}
