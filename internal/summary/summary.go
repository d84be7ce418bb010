// Package summary turns scraped company text into a long summary and a short,
// neutral description using a language model.
package summary

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/vc-portfolio-digest/internal/crawler"
	"github.com/JakeFAU/vc-portfolio-digest/internal/llm"
)

// Failure kinds. The returned Summary carries the matching sentinel text.
var (
	ErrLongSummary  = errors.New("long summary failed")
	ErrShortSummary = errors.New("short summary failed")
)

// Sentinel texts stored in a Summary when generation fails.
const (
	LongSentinel  = "Unable to generate summary due to API error."
	ShortSentinel = "Unable to generate brief summary due to API error."
)

// Prompt parameters.
const (
	MaxInputChars   = 1000
	LongMaxTokens   = 150
	ShortMaxTokens  = 100
	longSystem      = "You are a helpful assistant that summarizes company information."
	longUserPrefix  = "Summarize the following company information concisely:\n\n"
	shortSystem     = "You are an objective analyst that creates neutral, factual summaries of companies."
	shortUserPrefix = "Based on the following summary, create a brief, neutral summary (no more than 50 words) " +
		"that objectively describes the company's main product or service, its key features, and its target market. " +
		"Avoid marketing language or subjective claims. " +
		"Assume the reader has a strong understanding of the industry the company operates in.:\n\n"
)

var markupTag = regexp.MustCompile(`<[^>]+>`)

// Summary is the pair of texts generated for one company.
type Summary struct {
	Long  string
	Short string
}

// Generator produces summaries.
type Generator struct {
	llm    llm.Completer
	logger *zap.Logger
}

// New builds a Generator.
func New(completer llm.Completer, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{llm: completer, logger: logger}
}

// Summarize generates the long summary from the cleaned text, then the short
// summary from the long one. A failed long summary skips the short request.
func (g *Generator) Summarize(ctx context.Context, combinedText string) (Summary, error) {
	input := CleanAndTruncate(combinedText, MaxInputChars)

	long, err := g.llm.Complete(ctx, llm.Request{
		Purpose:   "long_summary",
		System:    longSystem,
		User:      longUserPrefix + input,
		MaxTokens: LongMaxTokens,
	})
	if err != nil {
		g.logger.Warn("long summary failed", zap.Error(err))
		return Summary{Long: LongSentinel, Short: ShortSentinel}, fmt.Errorf("%w: %w", ErrLongSummary, err)
	}

	short, err := g.llm.Complete(ctx, llm.Request{
		Purpose:   "short_summary",
		System:    shortSystem,
		User:      shortUserPrefix + long,
		MaxTokens: ShortMaxTokens,
	})
	if err != nil {
		g.logger.Warn("short summary failed", zap.Error(err))
		return Summary{Long: long, Short: ShortSentinel}, fmt.Errorf("%w: %w", ErrShortSummary, err)
	}
	return Summary{Long: long, Short: short}, nil
}

// IsSentinel reports whether text is one of the failure placeholders.
func IsSentinel(text string) bool {
	return text == LongSentinel || text == ShortSentinel
}

// CleanAndTruncate strips markup remnants, collapses whitespace and cuts the
// result to limit characters.
func CleanAndTruncate(text string, limit int) string {
	text = markupTag.ReplaceAllString(text, "")
	text = strings.Join(strings.Fields(text), " ")
	return crawler.Truncate(text, limit)
}
