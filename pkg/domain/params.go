package domain

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Keys with a dedicated field in Params. Everything else lands in Params.Extra.
const (
	ParamModel        = "model"
	ParamVersion      = "version"
	ParamPrompt       = "prompt"
	ParamImage        = "image"
	ParamInputModel   = "_model"
	ParamInputVersion = "_version"
)

// Params is the parameter set of a single prediction request.
//
// Model and Version route the request, the remaining fields become the model
// input. Image names the input slot that receives an uploaded picture; a
// non-empty Image means the request has to wait for an upload. InputModel and
// InputVersion carry values of any type for model inputs literally called
// "model" and "version", which would otherwise collide with the routing keys.
type Params struct {
	Model        string
	Version      string
	Prompt       string
	Image        string
	InputModel   any
	InputVersion any
	Extra        map[string]any
}

// ParamsFromMap splits a flat option map into named fields and Extra.
func ParamsFromMap(m map[string]any) (Params, error) {
	var p Params
	for key, value := range m {
		switch key {
		case ParamInputModel:
			p.InputModel = value
			continue
		case ParamInputVersion:
			p.InputVersion = value
			continue
		}

		field := p.field(key)
		if field == nil {
			if p.Extra == nil {
				p.Extra = make(map[string]any)
			}
			p.Extra[key] = value
			continue
		}

		switch v := value.(type) {
		case nil:
			*field = ""
		case string:
			*field = v
		default:
			return Params{}, fmt.Errorf("param %q: expected string, got %T", key, value)
		}
	}
	return p, nil
}

var stringFields = []string{ParamModel, ParamVersion, ParamPrompt, ParamImage}

func (p *Params) field(key string) *string {
	switch key {
	case ParamModel:
		return &p.Model
	case ParamVersion:
		return &p.Version
	case ParamPrompt:
		return &p.Prompt
	case ParamImage:
		return &p.Image
	}
	return nil
}

// Map flattens the parameter set back into the option map it was read from.
func (p Params) Map() map[string]any {
	m := make(map[string]any, len(p.Extra)+6)
	for k, v := range p.Extra {
		m[k] = v
	}
	for _, key := range stringFields {
		if value := *p.field(key); value != "" {
			m[key] = value
		}
	}
	if p.InputModel != nil {
		m[ParamInputModel] = p.InputModel
	}
	if p.InputVersion != nil {
		m[ParamInputVersion] = p.InputVersion
	}
	return m
}

// Merge returns p overlaid with other. Non-empty string fields and non-nil
// input values of other win, Extra keys are merged one by one. An empty
// string in other keeps the value of p.
func (p Params) Merge(other Params) Params {
	merged := p.Clone()
	for _, key := range stringFields {
		if value := *other.field(key); value != "" {
			*merged.field(key) = value
		}
	}
	if other.InputModel != nil {
		merged.InputModel = other.InputModel
	}
	if other.InputVersion != nil {
		merged.InputVersion = other.InputVersion
	}
	if len(other.Extra) > 0 && merged.Extra == nil {
		merged.Extra = make(map[string]any, len(other.Extra))
	}
	for k, v := range other.Extra {
		merged.Extra[k] = v
	}
	return merged
}

// Clone copies p so the Extra map is not shared.
func (p Params) Clone() Params {
	c := p
	if p.Extra != nil {
		c.Extra = make(map[string]any, len(p.Extra))
		for k, v := range p.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// HasTarget reports whether both routing keys are set.
func (p Params) HasTarget() bool {
	return p.Model != "" && p.Version != ""
}

// NeedsImage reports whether the request waits for an uploaded picture.
func (p Params) NeedsImage() bool {
	return p.Image != ""
}

// Input builds the model input. imageURI fills the slot named by Image and is
// skipped when empty.
func (p Params) Input(imageURI string) map[string]any {
	input := make(map[string]any, len(p.Extra)+4)
	for k, v := range p.Extra {
		input[k] = v
	}
	input[ParamPrompt] = p.Prompt
	if p.InputModel != nil {
		input[ParamModel] = p.InputModel
	}
	if p.InputVersion != nil {
		input[ParamVersion] = p.InputVersion
	}
	if p.Image != "" && imageURI != "" {
		input[p.Image] = imageURI
	}
	return input
}

func (p Params) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Map())
}

func (p *Params) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	parsed, err := ParamsFromMap(m)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p Params) MarshalYAML() (any, error) {
	return p.Map(), nil
}

func (p *Params) UnmarshalYAML(value *yaml.Node) error {
	var m map[string]any
	if err := value.Decode(&m); err != nil {
		return err
	}
	parsed, err := ParamsFromMap(m)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
