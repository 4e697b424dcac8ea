// Package config loads the replicate plugin configuration file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/domain"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/keyword"
)

const (
	templateSuffix    = ".template"
	placeholderToken  = "YOUR API TOKEN"
	DefaultPluginPath = "plugins/replicate/config.json"
)

var ErrMissingToken = errors.New("please set your api token in config or environment variable")

// Plugin is the replicate plugin configuration. The token can be overridden
// by REPLICATE_API_TOKEN or replicate_api_token, the upper-case name wins.
type Plugin struct {
	Rules             []domain.Rule         `json:"rules" yaml:"rules"`
	Defaults          domain.Params         `json:"defaults" yaml:"defaults"`
	ReplicateAPIToken string                `json:"replicate_api_token" yaml:"replicate_api_token" env:"REPLICATE_API_TOKEN,replicate_api_token"`
	TranslatePrompt   bool                  `json:"translate_prompt" yaml:"translate_prompt" env:"REPLICATE_TRANSLATE_PROMPT"`
	UnmatchedKeywords keyword.UnmatchedMode `json:"unmatched_keywords" yaml:"unmatched_keywords" env:"REPLICATE_UNMATCHED_KEYWORDS" env-default:"abort"`
}

// LoadPlugin reads the config at path, or path+".template" when path does
// not exist, and applies environment overrides.
func LoadPlugin(path string) (*Plugin, error) {
	var cfg Plugin

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		template := path + templateSuffix
		slog.Info("Config file not found, using template", "path", path, "template", template)
		if err := readTemplate(template, &cfg); err != nil {
			return nil, err
		}
	} else if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// readTemplate decodes a template by the extension before ".template" and
// then applies the environment, which cleanenv.ReadConfig cannot do for an
// unknown extension.
func readTemplate(path string, cfg *Plugin) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config template: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(strings.TrimSuffix(path, templateSuffix))); ext {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return fmt.Errorf("decoding config template %s: %w", path, err)
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("reading env: %w", err)
	}
	return nil
}

func (p *Plugin) Validate() error {
	if p.ReplicateAPIToken == "" || p.ReplicateAPIToken == placeholderToken {
		return ErrMissingToken
	}

	switch p.UnmatchedKeywords {
	case keyword.UnmatchedAbort, keyword.UnmatchedAppend:
	default:
		return fmt.Errorf("unmatched_keywords: unknown mode %q", p.UnmatchedKeywords)
	}

	for i, rule := range p.Rules {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}
