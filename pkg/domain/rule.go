package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Rule maps a group of keywords onto a parameter set.
type Rule struct {
	Keywords []string `json:"keywords" yaml:"keywords"`
	Params   Params   `json:"params" yaml:"params"`
	Desc     string   `json:"desc,omitempty" yaml:"desc,omitempty"`
}

func (r Rule) Matches(keyword string) bool {
	return lo.Contains(r.Keywords, keyword)
}

func (r Rule) Validate() error {
	if len(r.Keywords) == 0 {
		return errors.New("no keywords")
	}
	for _, kw := range r.Keywords {
		if strings.TrimSpace(kw) == "" {
			return errors.New("blank keyword")
		}
		if strings.ContainsAny(kw, " \t\n") {
			return fmt.Errorf("keyword %q contains whitespace", kw)
		}
	}
	return nil
}
