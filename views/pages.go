// Package views is the default folio theme. Default returns the ViewFuncs
// that render the guest pages.
package views

import (
	"context"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/folio"
	"github.com/eringen/folio/markdown"
)

// Default returns the theme's views.
func Default() folio.ViewFuncs {
	return folio.ViewFuncs{
		Home:        Home,
		Post:        Post,
		Project:     Project,
		NotFound:    NotFound,
		ServerError: ServerError,
	}
}

func Home(site folio.Site, posts []folio.Post, projects []folio.Project, tags []string, activeTag string) templ.Component {
	meta := PageMeta{JSONLD: folio.WebsiteJsonLD(site)}
	return page(site, meta, func(ctx context.Context, h *html) {
		if site.Description != "" {
			h.f(`<p class="mb-8 text-lg">%s</p>`, site.Description)
		}

		h.raw(`<section id="projects" class="mb-12"><h2 class="mb-4 text-2xl font-bold">Projects</h2>`)
		if len(projects) == 0 {
			h.raw(`<p class="text-stone-500">No projects yet.</p>`)
		}
		h.raw(`<div class="grid gap-4 sm:grid-cols-2">`)
		for _, p := range projects {
			projectCard(h, p)
		}
		h.raw(`</div></section>`)

		h.raw(`<section id="posts"><h2 class="mb-4 text-2xl font-bold">Posts</h2>`)
		if len(tags) > 0 {
			h.raw(`<div class="mb-6 flex flex-wrap gap-2">`)
			for _, t := range tags {
				h.f(`<a href="%s" class="%s">%s</a>`, TagLink(t, activeTag), TagClass(strings.EqualFold(t, activeTag)), t)
			}
			h.raw(`</div>`)
		}
		if len(posts) == 0 {
			if activeTag != "" {
				h.f(`<p class="text-stone-500">No posts tagged %s.</p>`, activeTag)
			} else {
				h.raw(`<p class="text-stone-500">No posts yet.</p>`)
			}
		}
		h.raw(`<ul class="space-y-6">`)
		for _, p := range posts {
			h.raw(`<li>`)
			postSummary(h, p)
			h.raw(`</li>`)
		}
		h.raw(`</ul></section>`)
	})
}

func Post(site folio.Site, post folio.Post, related []folio.RelatedPost, liked bool) templ.Component {
	meta := PageMeta{
		Title:       post.Title,
		Description: post.Description,
		URL:         folio.BuildURL(site.URL, "blog", post.Slug),
		OGType:      "article",
		Image:       post.Thumbnail,
		JSONLD:      folio.BlogPostingJsonLD(post, site),
	}
	return page(site, meta, func(ctx context.Context, h *html) {
		h.raw(`<article>`)
		if post.Thumbnail != "" {
			h.f(`<img src="%s" alt="%s" class="mb-6 w-full rounded">`, post.Thumbnail, post.Title)
		}
		h.f(`<h1 class="mb-2 text-3xl font-bold">%s</h1>`, post.Title)
		h.f(`<p class="mb-4 text-sm text-stone-500"><time datetime="%s">%s</time> · %d min read · %s</p>`,
			post.Date(), FormatDate(post.PublishedAt), ReadingTime(post.Content), Plural(post.Views, "view", "views"))
		if len(post.Categories) > 0 {
			h.raw(`<p class="mb-4 text-sm">`)
			for i, c := range post.Categories {
				if i > 0 {
					h.raw(`, `)
				}
				h.text(c.Name)
			}
			h.raw(`</p>`)
		}
		h.raw(`<div class="prose dark:prose-invert">`)
		h.component(ctx, markdown.Markdown(post.Content))
		h.raw(`</div>`)
		tagList(h, post.Tags)
		likeButton(h, post, liked)
		h.raw(`</article>`)

		if len(related) > 0 {
			h.raw(`<section class="mt-12"><h2 class="mb-4 text-xl font-bold">Related posts</h2><ul class="space-y-4">`)
			for _, r := range related {
				h.raw(`<li>`)
				postSummary(h, r.Post)
				h.raw(`</li>`)
			}
			h.raw(`</ul></section>`)
		}
	})
}

func Project(site folio.Site, project folio.Project) templ.Component {
	meta := PageMeta{
		Title:       project.Title,
		Description: project.Description,
		URL:         folio.BuildURL(site.URL, "projects", project.Slug),
		OGType:      "article",
		Image:       project.Thumbnail,
		JSONLD:      folio.ProjectJsonLD(project, site),
	}
	return page(site, meta, func(ctx context.Context, h *html) {
		h.raw(`<article>`)
		if project.Thumbnail != "" {
			h.f(`<img src="%s" alt="%s" class="mb-6 w-full rounded">`, project.Thumbnail, project.Title)
		}
		h.f(`<h1 class="mb-2 text-3xl font-bold">%s</h1>`, project.Title)
		if project.Description != "" {
			h.f(`<p class="mb-4 text-lg">%s</p>`, project.Description)
		}
		if len(project.TechStack) > 0 {
			h.f(`<p class="mb-4 text-sm font-mono">%s</p>`, folio.JoinTags(project.TechStack))
		}
		h.raw(`<p class="mb-6 flex gap-4 text-sm">`)
		if href := markdown.SafeURL(project.RepoURL); href != "" {
			h.raw(`<a href="` + href + `" rel="noopener" target="_blank">Source</a>`)
		}
		if href := markdown.SafeURL(project.LiveURL); href != "" {
			h.raw(`<a href="` + href + `" rel="noopener" target="_blank">Live</a>`)
		}
		h.raw(`</p><div class="prose dark:prose-invert">`)
		h.component(ctx, markdown.Markdown(project.Content))
		h.raw(`</div>`)
		tagList(h, project.Tags)
		h.raw(`</article>`)
	})
}

func NotFound(site folio.Site) templ.Component {
	return errorPage(site, "Not found", "The page you are looking for does not exist.")
}

func ServerError(site folio.Site) templ.Component {
	return errorPage(site, "Something went wrong", "Please try again later.")
}

func errorPage(site folio.Site, title, message string) templ.Component {
	return page(site, PageMeta{Title: title}, func(ctx context.Context, h *html) {
		h.f(`<h1 class="mb-4 text-3xl font-bold">%s</h1><p class="mb-6">%s</p><a href="/">Back home</a>`, title, message)
	})
}

func postSummary(h *html, p folio.Post) {
	h.f(`<a href="%s" class="text-lg font-semibold">%s</a>`, p.Link(), p.Title)
	h.f(`<p class="text-xs text-stone-500"><time datetime="%s">%s</time></p>`, p.Date(), FormatDate(p.PublishedAt))
	if p.Description != "" {
		h.f(`<p>%s</p>`, p.Description)
	}
}

func projectCard(h *html, p folio.Project) {
	h.raw(`<div class="rounded border border-ink p-4 dark:border-white/30">`)
	if p.Featured {
		h.raw(`<span class="text-[11px] font-semibold uppercase tracking-[0.12em]">Featured</span>`)
	}
	h.f(`<a href="%s" class="block text-lg font-semibold">%s</a>`, p.Link(), p.Title)
	if p.Description != "" {
		h.f(`<p class="text-sm">%s</p>`, p.Description)
	}
	if len(p.TechStack) > 0 {
		h.f(`<p class="mt-2 text-xs font-mono">%s</p>`, folio.JoinTags(p.TechStack))
	}
	h.raw(`</div>`)
}

func tagList(h *html, tags []string) {
	if len(tags) == 0 {
		return
	}
	h.raw(`<div class="mt-6 flex flex-wrap gap-2">`)
	for _, t := range tags {
		h.f(`<a href="%s" class="%s">%s</a>`, TagLink(t, ""), TagClass(false), t)
	}
	h.raw(`</div>`)
}

// likeButton is wired up by /public/folio.js.
func likeButton(h *html, p folio.Post, liked bool) {
	pressed := "false"
	if liked {
		pressed = "true"
	}
	h.f(`<button type="button" class="mt-6" data-like="%s" aria-pressed="%s">♥ <span>%d</span></button>`,
		"/api/posts/"+folio.PathEscape(p.Slug)+"/like", pressed, p.Likes)
	h.raw(`<script src="/public/folio.js" defer></script>`)
}
