// Command docgen builds the dashboard API reference from the @Title,
// @Route, @Description, @Body and @Response annotations on the handlers in
// internal/api.
package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/urfave/cli.v1"
)

type Endpoint struct {
	Title       string
	Route       string
	Description string
	Body        string
	Response    string
}

// Method returns the HTTP method part of the route.
func (e Endpoint) Method() string {
	return strings.Fields(e.Route)[0]
}

// Path returns the route without its method.
func (e Endpoint) Path() string {
	return strings.TrimSpace(strings.TrimPrefix(e.Route, e.Method()))
}

var (
	reTitle = regexp.MustCompile(`// @Title: (.*)`)
	reRoute = regexp.MustCompile(`// @Route: (.*)`)
	reDesc  = regexp.MustCompile(`// @Description: (.*)`)
	reBody  = regexp.MustCompile(`// @Body: (.*)`)
	reResp  = regexp.MustCompile(`// @Response: (.*)`)
)

func main() {
	app := cli.NewApp()
	app.Name = "docgen"
	app.Usage = "generate the rcn API reference"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "api-dir",
			Value: "internal/api",
			Usage: "directory holding the annotated handlers",
		},
		cli.StringFlag{
			Name:  "out, o",
			Value: "API.md",
			Usage: "output markdown file",
		},
	}
	app.Action = func(c *cli.Context) error {
		endpoints, err := parseDir(c.String("api-dir"))
		if err != nil {
			return err
		}
		f, err := os.Create(c.String("out"))
		if err != nil {
			return err
		}
		defer f.Close()
		if err := renderMarkdown(f, endpoints); err != nil {
			return err
		}
		fmt.Printf("Generated %s (%d endpoints)\n", c.String("out"), len(endpoints))
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// parseDir collects the endpoints annotated in every non-test Go file of dir.
func parseDir(dir string) ([]Endpoint, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var endpoints []Endpoint
	for _, file := range files {
		name := file.Name()
		if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		eps, err := parse(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		endpoints = append(endpoints, eps...)
	}

	sort.SliceStable(endpoints, func(i, j int) bool {
		return endpoints[i].Path() < endpoints[j].Path()
	})
	return endpoints, nil
}

// parse reads one annotated source file. @Response closes a block.
func parse(r io.Reader) ([]Endpoint, error) {
	var endpoints []Endpoint
	var current Endpoint

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		if match := reTitle.FindStringSubmatch(line); len(match) > 1 {
			current.Title = strings.TrimSpace(match[1])
		}
		if match := reRoute.FindStringSubmatch(line); len(match) > 1 {
			current.Route = strings.TrimSpace(match[1])
		}
		if match := reDesc.FindStringSubmatch(line); len(match) > 1 {
			current.Description = strings.TrimSpace(match[1])
		}
		if match := reBody.FindStringSubmatch(line); len(match) > 1 {
			current.Body = strings.TrimSpace(match[1])
		}
		if match := reResp.FindStringSubmatch(line); len(match) > 1 {
			current.Response = strings.TrimSpace(match[1])
			if current.Title != "" && current.Route != "" {
				endpoints = append(endpoints, current)
			}
			current = Endpoint{}
		}
	}
	return endpoints, scanner.Err()
}

func renderMarkdown(w io.Writer, endpoints []Endpoint) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# rcn API reference")
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "Auto-generated from code comments by `go run ./cmd/docgen`.")
	fmt.Fprintln(bw, "Amounts are decimal strings with up to 8 fractional digits.")
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "| Method | Path | Summary |")
	fmt.Fprintln(bw, "|---|---|---|")
	for _, ep := range endpoints {
		fmt.Fprintf(bw, "| %s | `%s` | %s |\n", ep.Method(), ep.Path(), ep.Title)
	}

	for _, ep := range endpoints {
		fmt.Fprintf(bw, "\n## %s\n\n", ep.Title)
		fmt.Fprintf(bw, "`%s`\n\n", ep.Route)
		if ep.Description != "" {
			fmt.Fprintf(bw, "%s\n\n", ep.Description)
		}
		if ep.Body != "" {
			fmt.Fprintf(bw, "Request body:\n\n```json\n%s\n```\n\n", ep.Body)
		}
		fmt.Fprintf(bw, "Response: `%s`\n", ep.Response)
	}
	return bw.Flush()
}
