package keyword

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/domain"
)

type fakeTranslator struct {
	lang   string
	result string
	err    error
	calls  int
}

func (f *fakeTranslator) DetectLanguage(string) string { return f.lang }

func (f *fakeTranslator) Translate(_ context.Context, _, _ string) (string, error) {
	f.calls++
	return f.result, f.err
}

func testRules() []domain.Rule {
	return []domain.Rule{
		{
			Keywords: []string{"竖版", "portrait"},
			Params:   domain.Params{Model: "m1", Version: "v1", Extra: map[string]any{"width": 768, "height": 1024}},
			Desc:     "vertical",
		},
		{
			Keywords: []string{"横版"},
			Params:   domain.Params{Model: "m1", Version: "v1", Extra: map[string]any{"width": 1024, "height": 768}},
		},
		{
			Keywords: []string{"高清"},
			Params:   domain.Params{Extra: map[string]any{"num_inference_steps": 50}},
		},
		{
			Keywords: []string{"竖版", "二次元"},
			Params:   domain.Params{Model: "anime", Version: "v9"},
		},
		{
			Keywords: []string{"垫图"},
			Params:   domain.Params{Model: "img2img", Version: "v2", Image: "init_image"},
		},
	}
}

func TestResolveSingleKeyword(t *testing.T) {
	r := NewResolver(testRules(), domain.Params{}, UnmatchedAbort, nil)

	params, err := r.Resolve(context.Background(), Parse("竖版:girl"))
	require.NoError(t, err)

	assert.Equal(t, domain.Params{
		Model:   "m1",
		Version: "v1",
		Prompt:  ", girl",
		Extra:   map[string]any{"width": 768, "height": 1024},
	}, params)
}

func TestResolveFirstMatchWinsPerKeyword(t *testing.T) {
	r := NewResolver(testRules(), domain.Params{}, UnmatchedAbort, nil)

	params, err := r.Resolve(context.Background(), Parse("竖版:girl"))
	require.NoError(t, err)

	// "竖版" also appears in the anime rule further down, which must not apply.
	assert.Equal(t, "m1", params.Model)
	assert.Equal(t, "v1", params.Version)
}

func TestResolveUnionOfMatchedRules(t *testing.T) {
	r := NewResolver(testRules(), domain.Params{}, UnmatchedAbort, nil)

	params, err := r.Resolve(context.Background(), Parse("二次元 横版 高清:cat"))
	require.NoError(t, err)

	assert.Equal(t, "m1", params.Model, "later keyword overrides shared keys")
	assert.Equal(t, "v1", params.Version)
	assert.Equal(t, map[string]any{"width": 1024, "height": 768, "num_inference_steps": 50}, params.Extra)
}

func TestResolveDefaultsUnderRules(t *testing.T) {
	defaults := domain.Params{
		Prompt: "masterpiece",
		Extra:  map[string]any{"width": 512, "guidance_scale": 7.5},
	}
	r := NewResolver(testRules(), defaults, UnmatchedAbort, nil)

	params, err := r.Resolve(context.Background(), Parse("横版:cat"))
	require.NoError(t, err)

	assert.Equal(t, "masterpiece, cat", params.Prompt)
	assert.Equal(t, map[string]any{"width": 1024, "height": 768, "guidance_scale": 7.5}, params.Extra)
}

func TestResolveUnmatchedKeywordSkips(t *testing.T) {
	r := NewResolver(testRules(), domain.Params{}, UnmatchedAbort, nil)

	_, err := r.Resolve(context.Background(), Parse("竖版 unknown:girl"))
	require.Error(t, err)
	assert.True(t, IsSkip(err))

	var skipErr *SkipError
	require.True(t, errors.As(err, &skipErr))
	assert.Equal(t, ReasonUnmatchedKeyword, skipErr.Reason)
	assert.Equal(t, "unknown", skipErr.Keyword)
}

func TestResolveUnmatchedKeywordAppendMode(t *testing.T) {
	translator := &fakeTranslator{lang: "zh", result: "translated"}
	r := NewResolver(testRules(), domain.Params{}, UnmatchedAppend, translator)

	params, err := r.Resolve(context.Background(), Parse("竖版 红色:女孩"))
	require.NoError(t, err)

	assert.Equal(t, ", 女孩, 红色", params.Prompt)
	assert.Zero(t, translator.calls, "prompts with leftover keywords are not translated")
}

func TestResolveMissingModelOrVersionSkips(t *testing.T) {
	r := NewResolver(testRules(), domain.Params{}, UnmatchedAbort, nil)

	_, err := r.Resolve(context.Background(), Parse("高清:cat"))
	require.Error(t, err)

	var skipErr *SkipError
	require.True(t, errors.As(err, &skipErr))
	assert.Equal(t, ReasonIncompleteParams, skipErr.Reason)
}

func TestResolveWithoutKeywordsUsesDefaults(t *testing.T) {
	r := NewResolver(testRules(), domain.Params{Model: "d", Version: "dv"}, UnmatchedAbort, nil)

	params, err := r.Resolve(context.Background(), Parse("a cat"))
	require.Error(t, err, "text without colon is keywords only")
	assert.True(t, IsSkip(err))

	params, err = r.Resolve(context.Background(), Parse(":a cat"))
	require.NoError(t, err)
	assert.Equal(t, "d", params.Model)
	assert.Equal(t, ", a cat", params.Prompt)
}

func TestResolveImageRule(t *testing.T) {
	r := NewResolver(testRules(), domain.Params{}, UnmatchedAbort, nil)

	params, err := r.Resolve(context.Background(), Parse("垫图:oil painting"))
	require.NoError(t, err)

	assert.True(t, params.NeedsImage())
	assert.Equal(t, "init_image", params.Image)
}

func TestResolveTranslation(t *testing.T) {
	tests := []struct {
		name       string
		translator *fakeTranslator
		wantPrompt string
		wantCalls  int
	}{
		{"non english is translated", &fakeTranslator{lang: "zh", result: "a girl"}, ", a girl", 1},
		{"english is kept", &fakeTranslator{lang: "en", result: "unused"}, ", 女孩", 0},
		{"failure keeps original", &fakeTranslator{lang: "zh", err: errors.New("boom")}, ", 女孩", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(testRules(), domain.Params{}, UnmatchedAbort, tt.translator)

			params, err := r.Resolve(context.Background(), Parse("竖版:女孩"))
			require.NoError(t, err)

			assert.Equal(t, tt.wantPrompt, params.Prompt)
			assert.Equal(t, tt.wantCalls, tt.translator.calls)
		})
	}
}

func TestResolveDoesNotMutateRules(t *testing.T) {
	rules := testRules()
	r := NewResolver(rules, domain.Params{}, UnmatchedAbort, nil)

	_, err := r.Resolve(context.Background(), Parse("竖版 高清:girl"))
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"width": 768, "height": 1024}, rules[0].Params.Extra)
}
