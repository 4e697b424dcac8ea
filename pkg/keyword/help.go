package keyword

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

const imageCreateDisabledText = "画图功能未启用"

// HelpText lists the keyword groups. An empty trigger means the host has image
// creation switched off.
func (r *Resolver) HelpText(trigger string, verbose bool) string {
	if trigger == "" {
		return imageCreateDisabledText
	}

	var sb strings.Builder
	sb.WriteString("利用replicate api来画图。\n")
	if !verbose {
		return sb.String()
	}

	fmt.Fprintf(&sb, "使用方法:\n使用\"%s[关键词1] [关键词2]...:提示语\"的格式作画，如\"%s竖版:girl\"\n", trigger, trigger)
	sb.WriteString("目前可用关键词：\n")
	for _, rule := range r.rules {
		keywords := lo.Map(rule.Keywords, func(kw string, _ int) string {
			return "[" + kw + "]"
		})
		sb.WriteString(strings.Join(keywords, ","))
		if rule.Desc != "" {
			sb.WriteString("-" + rule.Desc)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
