package views

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/eringen/folio"
)

// PageMeta carries per-page OpenGraph and SEO metadata into the <head>.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
	JSONLD      string
}

// html accumulates the first write error so page bodies read top to bottom.
type html struct {
	w   io.Writer
	err error
}

func (h *html) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

// f writes a format string; string arguments are escaped.
func (h *html) f(format string, args ...any) {
	for i, a := range args {
		if s, ok := a.(string); ok {
			args[i] = templ.EscapeString(s)
		}
	}
	h.raw(fmt.Sprintf(format, args...))
}

func (h *html) component(ctx context.Context, c templ.Component) {
	if h.err == nil {
		h.err = c.Render(ctx, h.w)
	}
}

// page wraps body in the shared document shell.
func page(site folio.Site, meta PageMeta, body func(ctx context.Context, h *html)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		title := site.Name
		if meta.Title != "" && meta.Title != site.Name {
			title = meta.Title + " | " + site.Name
		}
		desc := meta.Description
		if desc == "" {
			desc = site.Description
		}
		ogType := meta.OGType
		if ogType == "" {
			ogType = "website"
		}
		canonical := meta.URL
		if canonical == "" {
			canonical = folio.BuildURL(site.URL)
		}

		h.raw(`<!doctype html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.f(`<title>%s</title>`, title)
		h.f(`<meta name="description" content="%s">`, desc)
		h.f(`<link rel="canonical" href="%s">`, canonical)
		h.f(`<meta property="og:title" content="%s">`, title)
		h.f(`<meta property="og:description" content="%s">`, desc)
		h.f(`<meta property="og:type" content="%s">`, ogType)
		h.f(`<meta property="og:url" content="%s">`, canonical)
		h.f(`<meta property="og:site_name" content="%s">`, site.Name)
		if meta.Image != "" {
			h.f(`<meta property="og:image" content="%s">`, folio.AbsoluteURL(site.URL, meta.Image))
		}
		h.f(`<link rel="alternate" type="application/rss+xml" title="%s" href="/feed.xml">`, site.Name)
		h.raw(`<link rel="icon" href="/favicon.svg" type="image/svg+xml">`)
		h.raw(`<link rel="stylesheet" href="/public/styles.css">`)
		if meta.JSONLD != "" {
			// JSON-LD is produced by json.Marshal, which escapes <, > and &.
			h.raw(`<script type="application/ld+json">` + meta.JSONLD + `</script>`)
		}
		h.raw(`</head><body class="bg-paper text-ink dark:bg-neutral-900 dark:text-white">`)
		h.raw(`<header class="mx-auto max-w-3xl px-4 py-6 flex items-center justify-between">`)
		h.f(`<a href="/" class="text-xl font-bold">%s</a>`, site.Name)
		h.raw(`<nav class="flex gap-4 text-sm"><a href="/#posts">Blog</a><a href="/#projects">Projects</a><a href="/feed.xml">RSS</a></nav></header>`)
		h.raw(`<main class="mx-auto max-w-3xl px-4">`)
		body(ctx, h)
		h.raw(`</main><footer class="mx-auto max-w-3xl px-4 py-10 text-sm text-stone-500">`)
		if site.Author != "" {
			h.f(`<p>&copy; %s</p>`, site.Author)
		}
		h.raw(`</footer></body></html>`)
		return h.err
	})
}
