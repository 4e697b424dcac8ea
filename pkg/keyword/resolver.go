package keyword

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/domain"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/logger"
)

type SkipReason string

const (
	ReasonUnmatchedKeyword SkipReason = "unmatched keyword"
	ReasonIncompleteParams SkipReason = "incomplete params"
)

// SkipError means the request is not for this resolver and should fall
// through silently. It is not reported to the user.
type SkipError struct {
	Reason  SkipReason
	Keyword string
}

func (e *SkipError) Error() string {
	if e.Keyword != "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Keyword)
	}
	return string(e.Reason)
}

func IsSkip(err error) bool {
	var skipErr *SkipError
	return errors.As(err, &skipErr)
}

// UnmatchedMode controls what happens to a keyword that matches no rule.
type UnmatchedMode string

const (
	UnmatchedAbort  UnmatchedMode = "abort"
	UnmatchedAppend UnmatchedMode = "append"
)

type PromptTranslator interface {
	DetectLanguage(text string) string
	Translate(ctx context.Context, text, toLang string) (string, error)
}

type Resolver struct {
	rules      []domain.Rule
	defaults   domain.Params
	unmatched  UnmatchedMode
	translator PromptTranslator
}

// NewResolver creates a resolver over rules in priority order. A nil
// translator leaves prompts untranslated.
func NewResolver(
	rules []domain.Rule,
	defaults domain.Params,
	unmatched UnmatchedMode,
	translator PromptTranslator,
) *Resolver {
	if unmatched == "" {
		unmatched = UnmatchedAbort
	}
	return &Resolver{
		rules:      rules,
		defaults:   defaults,
		unmatched:  unmatched,
		translator: translator,
	}
}

// Resolve merges the params of the first rule matching each keyword on top of
// the defaults and appends the prompt.
func (r *Resolver) Resolve(ctx context.Context, q Query) (domain.Params, error) {
	var (
		ruleParams domain.Params
		unused     []string
	)
	for _, kw := range q.Keywords {
		rule, ok := r.match(kw)
		if ok {
			ruleParams = ruleParams.Merge(rule.Params)
			continue
		}

		if r.unmatched == UnmatchedAbort {
			slog.InfoContext(ctx, "Keyword not matched, skipping", "keyword", kw)
			return domain.Params{}, &SkipError{Reason: ReasonUnmatchedKeyword, Keyword: kw}
		}
		slog.InfoContext(ctx, "Keyword not matched, adding to prompt", "keyword", kw)
		unused = append(unused, kw)
	}

	params := r.defaults.Merge(ruleParams)

	prompt := q.Prompt
	if len(unused) > 0 {
		prompt = strings.Join(append(nonEmpty(prompt), unused...), ", ")
	}
	if prompt != "" {
		if len(unused) == 0 {
			prompt = r.translate(ctx, prompt)
		}
		params.Prompt += ", " + prompt
	}

	slog.InfoContext(ctx, "Params resolved", "params", params.Map())

	if !params.HasTarget() {
		slog.InfoContext(ctx, "Model or version not set, skipping")
		return domain.Params{}, &SkipError{Reason: ReasonIncompleteParams}
	}

	return params, nil
}

func (r *Resolver) match(keyword string) (domain.Rule, bool) {
	for _, rule := range r.rules {
		if rule.Matches(keyword) {
			return rule, true
		}
	}
	return domain.Rule{}, false
}

func (r *Resolver) translate(ctx context.Context, prompt string) string {
	if r.translator == nil {
		return prompt
	}

	lang := r.translator.DetectLanguage(prompt)
	if lang == "en" {
		return prompt
	}

	slog.InfoContext(ctx, "Translating prompt", "from", lang, "to", "en")

	translated, err := r.translator.Translate(ctx, prompt, "en")
	if err != nil {
		slog.WarnContext(ctx, "Translation failed, using original prompt", logger.Err(err))
		return prompt
	}

	slog.InfoContext(ctx, "Prompt translated", "prompt", translated)
	return translated
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}
