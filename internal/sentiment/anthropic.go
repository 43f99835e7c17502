package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

// AnthropicClassifier is the LLM-backed provider, for deployments that
// run without a locally trained artifact.
type AnthropicClassifier struct {
	client    anthropic.Client
	model     string
	batchSize int
}

func NewAnthropicClassifier(apiKey, model string, batchSize int) *AnthropicClassifier {
	if model == "" {
		model = defaultAnthropicModel
	}
	if batchSize < 1 {
		batchSize = 50
	}
	return &AnthropicClassifier{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		batchSize: batchSize,
	}
}

type classifiedItem struct {
	ID         int     `json:"id"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

func (a *AnthropicClassifier) Classify(ctx context.Context, texts []string) ([]Prediction, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	// Pre-slice all batches.
	var batches [][]string
	for start := 0; start < len(texts); start += a.batchSize {
		end := start + a.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batches = append(batches, texts[start:end])
	}

	type batchResult struct {
		preds []Prediction
		err   error
	}
	results := make([]batchResult, len(batches))

	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		go func(idx int, batch []string) {
			defer wg.Done()
			log.Printf("llm sentiment-classify model=%s items=%d batch=%d", a.model, len(batch), idx)
			preds, err := a.classifyBatch(ctx, batch)
			results[idx] = batchResult{preds: preds, err: err}
		}(i, batch)
	}
	wg.Wait()

	var all []Prediction
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		all = append(all, r.preds...)
	}
	return all, nil
}

func (a *AnthropicClassifier) classifyBatch(ctx context.Context, texts []string) ([]Prediction, error) {
	var itemLines strings.Builder
	for i, text := range texts {
		itemLines.WriteString(fmt.Sprintf("ID:%d - %s\n", i, strings.TrimSpace(text)))
	}

	systemPrompt := `You classify customer feedback from a fitness business into one sentiment.
Choose exactly one label for each item from: positive, negative, neutral.
Set confidence between 0 and 1.

Respond with JSON only (no markdown):
[{"id": 0, "label": "positive", "confidence": 0.93}, ...]`

	userPrompt := "Classify these feedback texts:\n\n" + itemLines.String()

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		log.Printf("llm anthropic error: %v", err)
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}
	if responseText == "" {
		return nil, fmt.Errorf("no text content in anthropic response")
	}
	return parseClassifyResponse(responseText, len(texts))
}

func parseClassifyResponse(responseText string, n int) ([]Prediction, error) {
	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	responseText = strings.TrimSpace(responseText)

	var items []classifiedItem
	if err := json.Unmarshal([]byte(responseText), &items); err != nil {
		return nil, fmt.Errorf("parsing classify response: %w (response: %s)", err, responseText)
	}

	// Positional results; ids outside the batch are dropped, missing
	// ids come back with an empty label and fall back downstream.
	preds := make([]Prediction, n)
	for _, item := range items {
		if item.ID < 0 || item.ID >= n {
			continue
		}
		preds[item.ID] = Prediction{Label: item.Label, Confidence: item.Confidence}
	}
	return preds, nil
}
