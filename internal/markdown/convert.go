// Package markdown turns job description HTML into Markdown.
//
// Conversion is html-to-markdown's commonmark rendering. Buttons are dropped along with
// scripts and styles, javascript: links degrade to their text, and LinkedIn's
// "Show more" noise and middot bullets are tidied afterwards.
package markdown

import (
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"golang.org/x/net/html"
)

var (
	blankRunRe  = regexp.MustCompile(`\n{3,}`)
	noiseLineRe = regexp.MustCompile(`(?m)^[ \t]*(Show more|Show less|See more|See less)[ \t]*$`)
	moreTailRe  = regexp.MustCompile(`\s*(…|\.\.\.)\s*more\s*$`)
	middotRe    = regexp.MustCompile(`(?m)^([ \t]*)·[ \t]*`)
)

var conv = newConverter()

func newConverter() *converter.Converter {
	c := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(
				commonmark.WithListEndComment(false),
				commonmark.WithLinkEmptyHrefBehavior(commonmark.LinkBehaviorSkip),
			),
		),
	)
	for _, tag := range []string{"button", "svg", "template"} {
		c.Register.TagType(tag, converter.TagTypeRemove, converter.PriorityStandard)
	}
	c.Register.Renderer(renderScriptLink, converter.PriorityEarly)
	return c
}

// renderScriptLink writes only the text of javascript: links.
func renderScriptLink(ctx converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
	if n.Type != html.ElementNode || n.Data != "a" {
		return converter.RenderTryNext
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(attr(n, "href"))), "javascript:") {
		return converter.RenderTryNext
	}
	ctx.RenderChildNodes(ctx, w, n)
	return converter.RenderSuccess
}

// Convert renders an HTML fragment or document as Markdown.
func Convert(src string) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}
	md, err := conv.ConvertString(src)
	if err != nil {
		return "", err
	}
	return tidy(md), nil
}

// tidy drops hard-break padding and LinkedIn's expander labels, and turns "·" lines into bullets.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	s = strings.Join(lines, "\n")

	s = noiseLineRe.ReplaceAllString(s, "")
	s = moreTailRe.ReplaceAllString(s, "")
	s = middotRe.ReplaceAllString(s, "$1- ")
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
