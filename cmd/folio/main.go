// Command folio serves a folio site and manages its content from the shell.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	args := []string{}
	if len(os.Args) > 2 {
		args = os.Args[2:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe()
	case "create-admin":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: folio create-admin <username> <email>")
			os.Exit(1)
		}
		err = runCreateAdmin(args[0], args[1])
	case "publish":
		err = runPublish(args)
	case "version":
		fmt.Printf("folio %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`folio - A portfolio, blog and project showcase built with Go, Echo, and templ

Usage:
  folio [command] [arguments]

Commands:
  serve                           Run the web server (default)
  create-admin <username> <email> Create an admin; password from FOLIO_ADMIN_PASSWORD
  publish <file.md> [flags]       Create a post from a markdown file through the API
  version                         Print the folio version
  help                            Show this help message

Publish flags:
  -publish          Publish immediately instead of saving a draft
  -slug <slug>      Override the slug derived from the title
  -tags <a,b>       Comma-separated tags
  -description <s>  Short description

Environment:
  FOLIO_JWT_SECRET, FOLIO_SESSION_SECRET   Required by serve
  FOLIO_API_URL, FOLIO_TOKEN               Used by publish

Examples:
  folio
  FOLIO_ADMIN_PASSWORD=secret123 folio create-admin ada ada@example.com
  folio publish notes/hello.md -publish -tags go,web`)
}
