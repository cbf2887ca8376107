package tickers

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"searchvolume-go/pkg/logger"
)

const systemPrompt = "You are a financial analyst expert who identifies publicly traded companies and their stock ticker symbols."

const promptTemplate = `Analyze the following keyword/name and determine:
1. Is this a publicly traded company? (Yes/No)
2. If yes, what is the primary stock ticker symbol?

Keyword: %q

Please respond in this exact format:
Is Publicly Traded: [Yes/No]
Ticker Symbol: [SYMBOL or None]

Important:
- Only answer "Yes" if this is clearly a publicly traded company
- For the ticker symbol, provide the most common/primary ticker (e.g., for Google/Alphabet, use GOOGL)
- If it's a subsidiary of a public company, use the parent company's ticker
- If not publicly traded or not a company, respond with "No" and "None"`

// TickerInfo is the answer for one keyword.
type TickerInfo struct {
	Keyword          string `json:"keyword"`
	IsPubliclyTraded bool   `json:"is_publicly_traded"`
	TickerSymbol     string `json:"ticker_symbol,omitempty"`
}

// Lookup resolves keywords to stock tickers via a chat model. Many tracked
// keywords are company or product names; knowing the ticker lets volume
// trends be lined up against market data downstream.
type Lookup struct {
	client openai.Client
	model  openai.ChatModel
	log    *logger.Logger
}

// NewLookup creates a lookup against the given model (e.g. "gpt-5").
func NewLookup(apiKey, model string, log *logger.Logger) *Lookup {
	if log == nil {
		log = logger.Nop()
	}
	return &Lookup{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  openai.ChatModel(model),
		log:    log.WithField("component", "ticker_lookup"),
	}
}

// Resolve asks the model about a single keyword.
func (l *Lookup) Resolve(ctx context.Context, keyword string) (*TickerInfo, error) {
	resp, err := l.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: l.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(fmt.Sprintf(promptTemplate, keyword)),
		},
		MaxCompletionTokens: openai.Int(100),
	})
	if err != nil {
		return nil, fmt.Errorf("tickers: completion failed for %q: %w", keyword, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("tickers: empty completion for %q", keyword)
	}

	info := parseReply(keyword, resp.Choices[0].Message.Content)
	l.log.WithFields(map[string]interface{}{
		"keyword": keyword,
		"traded":  info.IsPubliclyTraded,
		"ticker":  info.TickerSymbol,
	}).Debug("Resolved ticker")
	return info, nil
}

// ResolveAll resolves keywords one at a time, skipping failures. The result
// holds an entry for every keyword that got a usable reply.
func (l *Lookup) ResolveAll(ctx context.Context, keywords []string) []TickerInfo {
	out := make([]TickerInfo, 0, len(keywords))
	for _, kw := range keywords {
		info, err := l.Resolve(ctx, kw)
		if err != nil {
			l.log.WithError(err).WithField("keyword", kw).Warn("Ticker lookup failed, skipping")
			continue
		}
		out = append(out, *info)
	}
	return out
}

// parseReply extracts the two answer lines from the model's reply, which
// follows the strict format requested in the prompt. Anything unparseable
// degrades to "not publicly traded".
func parseReply(keyword, reply string) *TickerInfo {
	info := &TickerInfo{Keyword: keyword}

	for _, line := range strings.Split(reply, "\n") {
		switch {
		case strings.Contains(line, "Is Publicly Traded:"):
			info.IsPubliclyTraded = strings.Contains(strings.ToLower(line), "yes")
		case strings.Contains(line, "Ticker Symbol:"):
			_, symbol, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			symbol = strings.TrimSpace(symbol)
			if symbol != "" && !strings.EqualFold(symbol, "none") && symbol != "N/A" {
				info.TickerSymbol = strings.ToUpper(symbol)
			}
		}
	}

	if !info.IsPubliclyTraded {
		info.TickerSymbol = ""
	}
	return info
}
