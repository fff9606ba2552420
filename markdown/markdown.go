// Package markdown renders the constrained markdown dialect used by folio
// posts and projects: headings (levels 1-3), bold, italic, inline code, links,
// images, unordered lists, fenced code blocks and blank-line paragraphs.
//
// Parsing produces a flat list of blocks; there is no tree. Each block renders
// independently.
package markdown

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

var (
	reImg              = regexp.MustCompile(`!\[(.*?)\]\((.*?)\)`)
	reLink             = regexp.MustCompile(`\[(.*?)\]\((.*?)\)(\^)?`)
	reBold             = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBoldUnderscore   = regexp.MustCompile(`__(.+?)__`)
	reItalic           = regexp.MustCompile(`\*([^*]+)\*`)
	reItalicUnderscore = regexp.MustCompile(`_([^_]+)_`)
	reInlineCode       = regexp.MustCompile("`([^`]+)`")
)

// Kind identifies the type of a rendered block.
type Kind int

const (
	KindParagraph Kind = iota
	KindHeading
	KindList
	KindCode
)

func (k Kind) String() string {
	switch k {
	case KindParagraph:
		return "paragraph"
	case KindHeading:
		return "heading"
	case KindList:
		return "list"
	case KindCode:
		return "code"
	default:
		return "unknown"
	}
}

// Block is one top-level element of a document. HTML and Items hold inline
// markup that is already escaped and formatted; Code holds raw source.
type Block struct {
	Kind  Kind
	Level int
	HTML  string
	Items []string
	Lang  string
	Code  string
}

// Render writes the block as HTML.
func (b Block) Render(w io.Writer) error {
	var buf bytes.Buffer
	switch b.Kind {
	case KindHeading:
		tag := "h" + strconv.Itoa(b.Level)
		buf.WriteString("<" + tag + ">" + b.HTML + "</" + tag + ">")
	case KindList:
		buf.WriteString("<ul>")
		for _, item := range b.Items {
			buf.WriteString("<li>" + item + "</li>")
		}
		buf.WriteString("</ul>")
	case KindCode:
		code := html.EscapeString(b.Code)
		if b.Lang != "" {
			lang := html.EscapeString(b.Lang)
			buf.WriteString(`<div class="code-block-wrapper"><span class="code-lang code-lang-` + lang + `">` + lang + `</span>`)
			buf.WriteString(`<pre class="code-block"><code class="language-` + lang + `">` + code + `</code></pre></div>`)
		} else {
			buf.WriteString(`<pre class="code-block"><code>` + code + `</code></pre>`)
		}
	default:
		buf.WriteString("<p>" + b.HTML + "</p>")
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// state is the scanner position between lines.
type state int

const (
	stateDefault state = iota
	stateParagraph
	stateList
	stateCode
)

type parser struct {
	state  state
	blocks []Block
	para   []string
	items  []string
	code   []string
	lang   string
}

// Parse splits md into blocks.
func Parse(md string) []Block {
	p := &parser{}
	for _, raw := range strings.Split(md, "\n") {
		p.line(strings.TrimRight(raw, "\r"))
	}
	p.flush()
	return p.blocks
}

func (p *parser) line(line string) {
	if p.state == stateCode {
		if isFence(line) {
			p.flush()
			return
		}
		p.code = append(p.code, line)
		return
	}

	if isFence(line) {
		p.flush()
		p.state = stateCode
		p.lang = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "`"))
		return
	}

	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		p.flush()
		return
	}

	if level, text, ok := heading(trimmed); ok {
		p.flush()
		p.blocks = append(p.blocks, Block{Kind: KindHeading, Level: level, HTML: FormatInline(text)})
		return
	}

	if item, ok := listItem(trimmed); ok {
		if p.state != stateList {
			p.flush()
			p.state = stateList
		}
		p.items = append(p.items, FormatInline(item))
		return
	}

	if p.state != stateParagraph {
		p.flush()
		p.state = stateParagraph
	}
	p.para = append(p.para, FormatInline(trimmed))
}

// flush emits whatever the current state has accumulated and returns to
// stateDefault. An unterminated code fence is closed here at end of input.
func (p *parser) flush() {
	switch p.state {
	case stateParagraph:
		p.blocks = append(p.blocks, Block{Kind: KindParagraph, HTML: strings.Join(p.para, " ")})
	case stateList:
		p.blocks = append(p.blocks, Block{Kind: KindList, Items: p.items})
	case stateCode:
		p.blocks = append(p.blocks, Block{Kind: KindCode, Lang: p.lang, Code: strings.Join(p.code, "\n")})
	}
	p.state = stateDefault
	p.para = nil
	p.items = nil
	p.code = nil
	p.lang = ""
}

func isFence(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "```")
}

func heading(line string) (int, string, bool) {
	for level := 3; level >= 1; level-- {
		prefix := strings.Repeat("#", level) + " "
		if strings.HasPrefix(line, prefix) {
			return level, strings.TrimSpace(line[len(prefix):]), true
		}
	}
	return 0, "", false
}

func listItem(line string) (string, bool) {
	if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
		return strings.TrimSpace(line[2:]), true
	}
	return "", false
}

// Render writes blocks to w in order.
func Render(w io.Writer, blocks []Block) error {
	for _, b := range blocks {
		if err := b.Render(w); err != nil {
			return err
		}
	}
	return nil
}

// RenderString parses and renders md in one step.
func RenderString(md string) string {
	var buf bytes.Buffer
	_ = Render(&buf, Parse(md))
	return buf.String()
}

// Markdown returns a templ.Component that renders md as HTML.
func Markdown(content string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return Render(w, Parse(content))
	})
}

// ApplyOutsideTags applies fn only to text segments outside HTML tags,
// so that formatting regexes never touch URLs inside href attributes, etc.
func ApplyOutsideTags(s string, fn func(string) string) string {
	var buf strings.Builder
	for len(s) > 0 {
		lt := strings.Index(s, "<")
		if lt < 0 {
			buf.WriteString(fn(s))
			break
		}
		if lt > 0 {
			buf.WriteString(fn(s[:lt]))
		}
		gt := strings.Index(s[lt:], ">")
		if gt < 0 {
			buf.WriteString(s[lt:])
			break
		}
		buf.WriteString(s[lt : lt+gt+1])
		s = s[lt+gt+1:]
	}
	return buf.String()
}

// FormatInline escapes s and applies inline formatting. Substitutions run in
// a fixed order: images, links, bold, italic, inline code.
func FormatInline(s string) string {
	escaped := html.EscapeString(s)
	escaped = reImg.ReplaceAllStringFunc(escaped, func(m string) string {
		match := reImg.FindStringSubmatch(m)
		src := SafeURL(match[2])
		if src == "" {
			return match[1]
		}
		return `<img src="` + src + `" alt="` + match[1] + `" loading="lazy" decoding="async"/>`
	})
	escaped = reLink.ReplaceAllStringFunc(escaped, func(m string) string {
		match := reLink.FindStringSubmatch(m)
		href := SafeURL(match[2])
		if href == "" {
			return match[1]
		}
		attrs := `class="underline decoration-2 underline-offset-4"`
		if match[3] == "^" {
			attrs += ` target="_blank" rel="noopener noreferrer"`
		}
		return `<a href="` + href + `" ` + attrs + `>` + match[1] + `</a>`
	})
	// Code spans are parked behind placeholders so bold and italic never
	// reach their contents.
	var codeSpans []string
	escaped = reInlineCode.ReplaceAllStringFunc(escaped, func(m string) string {
		match := reInlineCode.FindStringSubmatch(m)
		codeSpans = append(codeSpans, "<code>"+match[1]+"</code>")
		return codePlaceholder(len(codeSpans) - 1)
	})
	escaped = ApplyOutsideTags(escaped, func(seg string) string {
		seg = reBold.ReplaceAllString(seg, "<strong>$1</strong>")
		seg = reBoldUnderscore.ReplaceAllString(seg, "<strong>$1</strong>")
		return seg
	})
	escaped = ApplyOutsideTags(escaped, func(seg string) string {
		seg = reItalic.ReplaceAllString(seg, "<em>$1</em>")
		seg = reItalicUnderscore.ReplaceAllString(seg, "<em>$1</em>")
		return seg
	})
	for i, code := range codeSpans {
		escaped = strings.Replace(escaped, codePlaceholder(i), code, 1)
	}
	return escaped
}

func codePlaceholder(i int) string {
	return "\x00IC" + strconv.Itoa(i) + "\x00"
}

// SafeURL validates and sanitizes a URL for use in HTML attributes.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
