package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// AIScorer judges one event's heat and surprise scores. RemoteScorer is
// the production implementation; tests substitute a stub.
type AIScorer interface {
	Score(ctx context.Context, input ModelInput) (heat, surprise int, reason string, err error)
}

// RemoteScorer calls an OpenAI-chat-completions-shaped backend in JSON
// mode, prompting it with a caller-supplied template that embeds the
// model input as a JSON blob. DeepSeek (the original scoring backend)
// and most self-hosted OpenAI-compatible servers all speak this same
// wire shape, so the go-openai client only needs its base URL pointed
// elsewhere to target them.
type RemoteScorer struct {
	client         *openai.Client
	model          string
	promptTemplate string
}

// NewRemoteScorer builds a scorer against an OpenAI-compatible chat
// completions endpoint. promptTemplate must contain the literal
// placeholder "{输入JSON}", which is replaced with the compact JSON
// encoding of the model input.
func NewRemoteScorer(apiKey, baseURL, model, promptTemplate string) *RemoteScorer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &RemoteScorer{
		client:         openai.NewClientWithConfig(cfg),
		model:          model,
		promptTemplate: promptTemplate,
	}
}

const promptPlaceholder = "{输入JSON}"

// Score implements AIScorer.
func (s *RemoteScorer) Score(ctx context.Context, input ModelInput) (int, int, string, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return 0, 0, "", fmt.Errorf("marshal model input: %w", err)
	}
	prompt := strings.Replace(s.promptTemplate, promptPlaceholder, string(payload), 1)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return 0, 0, "", fmt.Errorf("score request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, 0, "", fmt.Errorf("score response had no choices")
	}

	obj, err := parseJSONObject(resp.Choices[0].Message.Content)
	if err != nil {
		return 0, 0, "", err
	}

	heat, ok := ParseScoreValue(fmt.Sprint(obj["initial_heat_score"]))
	if !ok {
		return 0, 0, "", fmt.Errorf("missing initial_heat_score in model output")
	}
	surprise, ok := ParseScoreValue(fmt.Sprint(obj["surprise_score"]))
	if !ok {
		return 0, 0, "", fmt.Errorf("missing surprise_score in model output")
	}
	reason := truncate(strings.TrimSpace(fmt.Sprint(obj["reason"])), 80)
	return heat, surprise, reason, nil
}

var reFencedJSON = regexp.MustCompile(`(?is)` + "```" + `(?:json)?\s*(\{.*?\})\s*` + "```")

// parseJSONObject extracts a JSON object from a chat completion's text,
// tolerating markdown code fences and leading/trailing commentary a
// model sometimes wraps its answer in.
func parseJSONObject(text string) (map[string]any, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return nil, fmt.Errorf("empty model output")
	}
	if m := reFencedJSON.FindStringSubmatch(raw); m != nil {
		raw = strings.TrimSpace(m[1])
	}

	var obj map[string]any
	if strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}") {
		if err := json.Unmarshal([]byte(raw), &obj); err == nil {
			return obj, nil
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("model output is not a valid JSON object")
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &obj); err != nil {
		return nil, fmt.Errorf("model output is not a valid JSON object: %w", err)
	}
	return obj, nil
}
