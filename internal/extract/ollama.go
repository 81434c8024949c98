package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmynk/finagent/internal/models"
)

const (
	DefaultOllamaTextModel   = "llama3.1"
	DefaultOllamaVisionModel = "llama3.2-vision"
	DefaultOllamaTimeout     = 60 * time.Second

	chatPath = "/api/chat"
)

const textPrompt = `You are an expert financial data extraction assistant.
Extract every distinct purchase in the user's text. Separate purchases are at different merchants or different times; an itemized bill at one merchant is one purchase.
Reply with JSON only: {"transactions": [{"merchant": string, "amount": number, "date": string, "category": string, "notes": string, "currency": string, "is_split": bool, "split_with": [string], "split_amounts": {name: number}, "my_share": number, "gst": number}]}
Guidelines:
- amount is the TOTAL bill, not the user's share.
- categories: Food & Dining, Groceries, Transportation, Shopping, Entertainment, Utilities, Healthcare, Other.
- dates: YYYY-MM-DD, or "today"/"yesterday" as written; "today" if none is mentioned.
- splits: set is_split and list names in split_with. For uneven splits convert ratios to amounts, e.g. "split 70/30 with Mike" on 100 gives my_share 70 and split_amounts {"Mike": 30}.
- leave split_amounts, my_share and gst null when not stated. Never use 0 for an unknown value.`

const receiptPrompt = `Extract the transaction from this receipt.
Reply with JSON only: {"merchant": string, "amount": number, "date": string, "category": string, "notes": string, "currency": string, "gst": number}
amount is the receipt total. Leave gst null if no tax line is printed.`

// OllamaParser implements Parser against an Ollama chat endpoint.
type OllamaParser struct {
	httpClient  *http.Client
	baseURL     string
	textModel   string
	visionModel string
}

// Ensure OllamaParser implements Parser
var _ Parser = (*OllamaParser)(nil)

// NewOllamaParser creates a Parser for the Ollama server at baseURL.
// Empty models and a non-positive timeout select the defaults.
func NewOllamaParser(baseURL, textModel, visionModel string, timeout time.Duration) *OllamaParser {
	if textModel == "" {
		textModel = DefaultOllamaTextModel
	}
	if visionModel == "" {
		visionModel = DefaultOllamaVisionModel
	}
	if timeout <= 0 {
		timeout = DefaultOllamaTimeout
	}
	return &OllamaParser{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(baseURL, "/"),
		textModel:   textModel,
		visionModel: visionModel,
	}
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Format   string         `json:"format"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// ParseText asks the text model for every purchase in text.
func (p *OllamaParser) ParseText(ctx context.Context, text string) ([]models.Transaction, error) {
	content, err := p.chat(ctx, p.textModel, []chatMessage{
		{Role: "system", Content: textPrompt},
		{Role: "user", Content: text},
	})
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Transactions []models.Transaction `json:"transactions"`
	}
	if err := json.Unmarshal([]byte(content), &envelope); err != nil {
		return nil, fmt.Errorf("%w: invalid model output: %v", ErrExtractionFailed, err)
	}
	txs := envelope.Transactions

	// Some models answer a single purchase without the envelope.
	if len(txs) == 0 {
		var single models.Transaction
		if err := json.Unmarshal([]byte(content), &single); err == nil && found(single) {
			txs = []models.Transaction{single}
		}
	}

	kept := txs[:0]
	for _, tx := range txs {
		if found(tx) {
			kept = append(kept, tx)
		}
	}
	if len(kept) == 0 {
		return nil, ErrExtractionFailed
	}

	slog.Debug("Extracted transactions from text", "model", p.textModel, "count", len(kept))
	return kept, nil
}

// ParseReceipt asks the vision model for the purchase on a receipt image.
func (p *OllamaParser) ParseReceipt(ctx context.Context, image []byte, hint string) (models.Transaction, error) {
	prompt := receiptPrompt
	if hint = strings.TrimSpace(hint); hint != "" {
		prompt += "\nContext from the user: " + hint
	}

	content, err := p.chat(ctx, p.visionModel, []chatMessage{
		{Role: "user", Content: prompt, Images: []string{base64.StdEncoding.EncodeToString(image)}},
	})
	if err != nil {
		return models.Transaction{}, err
	}

	var tx models.Transaction
	if err := json.Unmarshal([]byte(content), &tx); err != nil {
		return models.Transaction{}, fmt.Errorf("%w: invalid model output: %v", ErrExtractionFailed, err)
	}
	if !found(tx) {
		return models.Transaction{}, ErrExtractionFailed
	}
	return tx, nil
}

func (p *OllamaParser) chat(ctx context.Context, model string, messages []chatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: messages,
		Format:   "json",
		Options:  map[string]any{"temperature": 0},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call model %s: %w", model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("model %s returned status %d: %s", model, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	return payload.Message.Content, nil
}

// found reports whether the model returned something usable.
func found(tx models.Transaction) bool {
	return strings.TrimSpace(tx.Merchant) != "" && tx.Amount > 0
}
