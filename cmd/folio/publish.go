package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/eringen/folio"
	"github.com/eringen/folio/client"
	"github.com/eringen/folio/editor"
)

// mdDocument is a markdown file split into its title heading and body.
type mdDocument struct {
	Title string
	Body  string
}

// parseDocument takes the first "# " heading as the title. Everything after
// it is the body.
func parseDocument(src string) (mdDocument, error) {
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "# ") {
			break
		}
		return mdDocument{
			Title: strings.TrimSpace(strings.TrimPrefix(trimmed, "# ")),
			Body:  strings.TrimSpace(strings.Join(lines[i+1:], "\n")),
		}, nil
	}
	return mdDocument{}, errors.New("markdown file must start with a '# Title' heading")
}

func runPublish(args []string) error {
	fs := flag.NewFlagSet("publish", flag.ContinueOnError)
	publish := fs.Bool("publish", false, "publish immediately")
	slug := fs.String("slug", "", "override the derived slug")
	tags := fs.String("tags", "", "comma-separated tags")
	description := fs.String("description", "", "short description")

	// Allow the file before or after the flags.
	var path string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		path, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if path == "" {
		path = fs.Arg(0)
	}
	if path == "" {
		return errors.New("usage: folio publish <file.md> [-publish] [-slug s] [-tags a,b] [-description s]")
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc, err := parseDocument(string(src))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	api, err := client.New(folio.EnvOr("FOLIO_API_URL", "http://localhost:3000"), folio.MustEnv("FOLIO_TOKEN"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	post, err := publishDocument(ctx, api, doc, publishOptions{
		Publish:     *publish,
		Slug:        *slug,
		Tags:        splitTags(*tags),
		Description: *description,
	}, os.Stdout)
	if err != nil {
		return err
	}
	fmt.Printf("Saved %q as %s: %s\n", post.Title, post.Status, post.Link())
	return nil
}

type publishOptions struct {
	Publish     bool
	Slug        string
	Tags        []string
	Description string
}

// postAPI is the part of client.Client the publish command needs.
type postAPI interface {
	editor.SlugLookup
	CreatePost(ctx context.Context, in folio.PostInput) (folio.Post, error)
	Me(ctx context.Context) (folio.Admin, error)
}

// publishDocument confirms the token, derives the slug through an editor draft, checks that it
// is free and creates the post.
func publishDocument(ctx context.Context, api postAPI, doc mdDocument, opts publishOptions, out io.Writer) (folio.Post, error) {
	admin, err := api.Me(ctx)
	if err != nil {
		return folio.Post{}, fmt.Errorf("check token: %w", err)
	}
	fmt.Fprintf(out, "publishing as %s\n", admin.Username)

	var d editor.Draft
	d.SetTitle(doc.Title)
	d.Content = doc.Body
	d.Description = opts.Description
	d.Tags = opts.Tags
	if opts.Slug != "" {
		if err := d.SetSlug(opts.Slug); err != nil {
			return folio.Post{}, err
		}
	}
	if d.Slug == "" {
		return folio.Post{}, errors.New("title does not produce a usable slug; pass -slug")
	}

	checker := editor.NewSlugChecker(api, time.Millisecond)
	defer checker.Stop()
	checker.Check(d.Slug)
	state, err := checker.Wait(ctx)
	if err != nil {
		return folio.Post{}, fmt.Errorf("check slug %q: %w", d.Slug, err)
	}
	fmt.Fprintf(out, "slug %s: %s\n", d.Slug, state)
	if !checker.CanSave() {
		return folio.Post{}, fmt.Errorf("slug %q is already taken; pass -slug", d.Slug)
	}

	status := folio.StatusDraft
	if opts.Publish {
		status = folio.StatusPublished
	}
	in := folio.PostInput{
		Title:       &d.Title,
		Slug:        &d.Slug,
		Content:     &d.Content,
		Description: &d.Description,
		Status:      &status,
	}
	if len(d.Tags) > 0 {
		in.Tags = &d.Tags
	}
	return api.CreatePost(ctx, in)
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
