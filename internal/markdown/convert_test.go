package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "   ", want: ""},
		{name: "plain text", in: "Just text", want: "Just text"},
		{name: "bold keeps spacing", in: "<b>Bold </b>text", want: "**Bold** text"},
		{name: "emphasis", in: "an <em>important</em> role", want: "an *important* role"},
		{name: "double br opens paragraph", in: "<strong>About</strong><br><br>We build", want: "**About**\n\nWe build"},
		{name: "single br", in: "line one<br>line two", want: "line one\nline two"},
		{name: "paragraphs", in: "<p>One</p><p>Two</p>", want: "One\n\nTwo"},
		{name: "unordered list", in: "<ul><li>A</li><li>B</li></ul>", want: "- A\n- B"},
		{name: "ordered list", in: "<ol><li>a</li><li>b</li></ol>", want: "1. a\n2. b"},
		{name: "paragraphs inside items stay tight", in: "<ul><li><p>A</p></li><li><p>B</p></li></ul>", want: "- A\n- B"},
		{name: "paragraph then list", in: "<p>Intro</p><ul><li>X</li></ul>", want: "Intro\n\n- X"},
		{name: "link", in: `<a href="https://example.com">site</a>`, want: "[site](https://example.com)"},
		{name: "javascript link degrades", in: `<a href="javascript:void(0)">click</a>`, want: "click"},
		{name: "heading", in: "<h2>Title</h2><p>Body</p>", want: "## Title\n\nBody"},
		{name: "blockquote", in: "<blockquote>Quote</blockquote>", want: "> Quote"},
		{name: "unknown tags keep text", in: "<span>Hello <custom-tag>world</custom-tag></span>", want: "Hello world"},
		{name: "buttons and scripts dropped", in: "<p>Hi<script>x()</script></p><button>Apply</button>", want: "Hi"},
		{name: "empty bold leaves nothing", in: "<p>a<strong> </strong>b</p>", want: "a b"},
		{name: "show more noise", in: "<p>Text</p><p>Show more</p>", want: "Text"},
		{name: "middot bullets", in: "<p>· Item one</p><p>· Item two</p>", want: "- Item one\n\n- Item two"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvert_NestedListIndentsUnderParent(t *testing.T) {
	got, err := Convert("<ul><li>A<ul><li>B</li></ul></li><li>C</li></ul>")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "- A\n"), got)
	assert.Contains(t, got, "\n  - B\n")
	assert.True(t, strings.HasSuffix(got, "\n- C"), got)
}

func TestConvert_NoTrailingWhitespace(t *testing.T) {
	got, err := Convert("<p>one<br>two<br><br>three</p><ul><li>x<ul><li>y</li></ul></li></ul>")
	require.NoError(t, err)
	for _, line := range strings.Split(got, "\n") {
		assert.Equal(t, strings.TrimRight(line, " \t"), line)
	}
	assert.NotContains(t, got, "\n\n\n")
}

func TestConvert_LinkedInDescription(t *testing.T) {
	in := `<div class="show-more-less-html__markup">
  <strong>About the role</strong><br><br>
  We are hiring a <em>Go engineer</em>.<br><br>
  <strong>Requirements</strong>
  <ul>
    <li>3+ years of Go</li>
    <li>Experience with <b>Kubernetes</b></li>
  </ul>
</div>
<button class="show-more-less-html__button">Show more</button>`

	got, err := Convert(in)
	require.NoError(t, err)
	assert.Equal(t, "**About the role**\n\nWe are hiring a *Go engineer*.\n\n**Requirements**\n\n- 3+ years of Go\n- Experience with **Kubernetes**", got)
}
