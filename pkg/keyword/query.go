package keyword

import (
	"strings"

	"github.com/samber/lo"
)

var helpKeywords = []string{"help", "帮助"}

var fullWidthReplacer = strings.NewReplacer("，", ",", "：", ":")

// Query is an image request split into keyword tokens and free-form prompt.
type Query struct {
	Keywords []string
	Prompt   string
}

// Parse splits "kw1 kw2 ...: prompt" on the first colon. Text without a colon
// is all keywords.
func Parse(text string) Query {
	text = fullWidthReplacer.Replace(text)
	keywords, prompt, _ := strings.Cut(text, ":")

	return Query{
		Keywords: strings.Fields(keywords),
		Prompt:   strings.TrimSpace(prompt),
	}
}

func (q Query) IsHelp() bool {
	return lo.Some(q.Keywords, helpKeywords)
}
