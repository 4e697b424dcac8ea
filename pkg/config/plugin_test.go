package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/keyword"
)

const jsonConfig = `{
  "rules": [
    {"keywords": ["竖版"], "params": {"model": "stability-ai/sdxl", "version": "v1", "width": 768}, "desc": "vertical"}
  ],
  "defaults": {"prompt": "best quality", "num_inference_steps": 30},
  "replicate_api_token": "r8_file",
  "translate_prompt": true
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func clearTokenEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"REPLICATE_API_TOKEN", "replicate_api_token", "REPLICATE_UNMATCHED_KEYWORDS", "REPLICATE_TRANSLATE_PROMPT"} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

func TestLoadPluginJSON(t *testing.T) {
	clearTokenEnv(t)
	path := writeFile(t, t.TempDir(), "config.json", jsonConfig)

	cfg, err := LoadPlugin(path)
	require.NoError(t, err)

	require.Len(t, cfg.Rules, 1)
	assert.Equal(t, "stability-ai/sdxl", cfg.Rules[0].Params.Model)
	assert.Equal(t, float64(768), cfg.Rules[0].Params.Extra["width"])
	assert.Equal(t, "best quality", cfg.Defaults.Prompt)
	assert.Equal(t, "r8_file", cfg.ReplicateAPIToken)
	assert.True(t, cfg.TranslatePrompt)
	assert.Equal(t, keyword.UnmatchedAbort, cfg.UnmatchedKeywords)
}

func TestLoadPluginYAML(t *testing.T) {
	clearTokenEnv(t)
	path := writeFile(t, t.TempDir(), "config.yaml", `
rules:
  - keywords: [横版, landscape]
    params:
      model: stability-ai/sdxl
      version: v1
      width: 1024
defaults:
  prompt: masterpiece
replicate_api_token: r8_yaml
unmatched_keywords: append
`)

	cfg, err := LoadPlugin(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"横版", "landscape"}, cfg.Rules[0].Keywords)
	assert.Equal(t, 1024, cfg.Rules[0].Params.Extra["width"])
	assert.Equal(t, keyword.UnmatchedAppend, cfg.UnmatchedKeywords)
}

func TestLoadPluginFallsBackToTemplate(t *testing.T) {
	clearTokenEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "config.json.template", jsonConfig)

	cfg, err := LoadPlugin(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, "r8_file", cfg.ReplicateAPIToken)
}

func TestLoadPluginTokenFromEnv(t *testing.T) {
	clearTokenEnv(t)
	path := writeFile(t, t.TempDir(), "config.json", jsonConfig)

	t.Setenv("replicate_api_token", "r8_lower")
	cfg, err := LoadPlugin(path)
	require.NoError(t, err)
	assert.Equal(t, "r8_lower", cfg.ReplicateAPIToken)

	t.Setenv("REPLICATE_API_TOKEN", "r8_upper")
	cfg, err = LoadPlugin(path)
	require.NoError(t, err)
	assert.Equal(t, "r8_upper", cfg.ReplicateAPIToken)
}

func TestLoadPluginRejectsPlaceholderToken(t *testing.T) {
	clearTokenEnv(t)
	path := writeFile(t, t.TempDir(), "config.json", `{"rules": [], "defaults": {}, "replicate_api_token": "YOUR API TOKEN"}`)

	_, err := LoadPlugin(path)
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestLoadPluginMissingFiles(t *testing.T) {
	clearTokenEnv(t)

	_, err := LoadPlugin(filepath.Join(t.TempDir(), "config.json"))
	assert.Error(t, err)
}

func TestLoadPluginRejectsInvalidRule(t *testing.T) {
	clearTokenEnv(t)
	path := writeFile(t, t.TempDir(), "config.json", `{"rules": [{"keywords": [], "params": {}}], "replicate_api_token": "r8"}`)

	_, err := LoadPlugin(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule 0")
}

func TestLoadPluginAcceptsNonStringInputValues(t *testing.T) {
	clearTokenEnv(t)
	path := writeFile(t, t.TempDir(), "config.json", `{
  "rules": [{"keywords": ["v2"], "params": {"model": "o/n", "version": "abc", "_version": 2}}],
  "defaults": {},
  "replicate_api_token": "r8"
}`)

	cfg, err := LoadPlugin(path)
	require.NoError(t, err)
	assert.Equal(t, float64(2), cfg.Rules[0].Params.InputVersion)
	assert.Equal(t, float64(2), cfg.Rules[0].Params.Input("")["version"])
}
