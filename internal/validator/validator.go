// Package validator asks a language model whether a URL looks like a
// company website before any crawling happens.
package validator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/vc-portfolio-digest/internal/llm"
)

// FailOpenReason is reported when the model could not be consulted.
const FailOpenReason = "VALID: Error during validation, proceeding with caution"

// DisabledReason is reported when validation is turned off.
const DisabledReason = "VALID: Validation disabled"

const (
	maxTokens = 50
	system    = "You are a URL validator that categorizes URLs as either potential company websites or not."
	prompt    = `Analyze this URL: %s
Question: Could this be the URL for a startup/company website, or is it obviously something else (like social media, news, etc.)?
Please respond with ONLY 'VALID' or 'INVALID' followed by a brief reason.
Example responses:
'VALID: Appears to be a company domain'
'INVALID: This is a LinkedIn profile page'`
)

// Verdict is the classification of one URL.
type Verdict struct {
	Valid  bool
	Reason string
}

// Validator classifies URLs.
type Validator struct {
	llm     llm.Completer
	enabled bool
	logger  *zap.Logger
}

// New builds a Validator. When enabled is false every URL is valid and the
// model is never called.
func New(completer llm.Completer, enabled bool, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{llm: completer, enabled: enabled && completer != nil, logger: logger}
}

// Validate never fails: model errors yield a valid verdict.
func (v *Validator) Validate(ctx context.Context, url string) Verdict {
	if !v.enabled {
		return Verdict{Valid: true, Reason: DisabledReason}
	}
	answer, err := v.llm.Complete(ctx, llm.Request{
		Purpose:   "validate",
		System:    system,
		User:      fmt.Sprintf(prompt, url),
		MaxTokens: maxTokens,
	})
	if err != nil {
		v.logger.Warn("url validation failed; proceeding", zap.String("url", url), zap.Error(err))
		return Verdict{Valid: true, Reason: FailOpenReason}
	}
	answer = strings.TrimSpace(answer)
	return Verdict{
		Valid:  strings.HasPrefix(strings.ToUpper(answer), "VALID"),
		Reason: answer,
	}
}
