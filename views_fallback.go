package folio

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/eringen/folio/markdown"
)

// withFallbacks fills nil views with plain built-in pages so the app serves
// something sensible before a theme is supplied.
func (v ViewFuncs) withFallbacks() ViewFuncs {
	if v.Home == nil {
		v.Home = fallbackHome
	}
	if v.Post == nil {
		v.Post = fallbackPost
	}
	if v.Project == nil {
		v.Project = fallbackProject
	}
	if v.NotFound == nil {
		v.NotFound = func(site Site) templ.Component {
			return fallbackPage(site.Name, "Not found", "The page you are looking for does not exist.")
		}
	}
	if v.ServerError == nil {
		v.ServerError = func(site Site) templ.Component {
			return fallbackPage(site.Name, "Something went wrong", "Please try again later.")
		}
	}
	return v
}

func fallbackPage(siteName, title, message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<!doctype html><html lang=\"en\"><head><meta charset=\"utf-8\"><title>%s | %s</title></head><body><h1>%s</h1><p>%s</p><p><a href=\"/\">Home</a></p></body></html>",
			templ.EscapeString(title), templ.EscapeString(siteName), templ.EscapeString(title), templ.EscapeString(message))
		return err
	})
}

func fallbackHome(site Site, posts []Post, projects []Project, _ []string, _ string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, "<!doctype html><html lang=\"en\"><head><meta charset=\"utf-8\"><title>%s</title></head><body><h1>%s</h1><h2>Posts</h2><ul>",
			templ.EscapeString(site.Name), templ.EscapeString(site.Name)); err != nil {
			return err
		}
		for _, p := range posts {
			if _, err := fmt.Fprintf(w, "<li><a href=\"%s\">%s</a></li>", templ.EscapeString(p.Link()), templ.EscapeString(p.Title)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</ul><h2>Projects</h2><ul>"); err != nil {
			return err
		}
		for _, p := range projects {
			if _, err := fmt.Fprintf(w, "<li><a href=\"%s\">%s</a></li>", templ.EscapeString(p.Link()), templ.EscapeString(p.Title)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</ul></body></html>")
		return err
	})
}

func fallbackPost(site Site, post Post, _ []RelatedPost, _ bool) templ.Component {
	return fallbackArticle(site, post.Title, post.Content)
}

func fallbackProject(site Site, project Project) templ.Component {
	return fallbackArticle(site, project.Title, project.Content)
}

func fallbackArticle(site Site, title, content string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, "<!doctype html><html lang=\"en\"><head><meta charset=\"utf-8\"><title>%s | %s</title></head><body><article><h1>%s</h1>",
			templ.EscapeString(title), templ.EscapeString(site.Name), templ.EscapeString(title)); err != nil {
			return err
		}
		if err := markdown.Markdown(content).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</article></body></html>")
		return err
	})
}
