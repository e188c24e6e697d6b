// Command flashbuild reads a line-doc file and writes a persisted flash
// index directory: the four posting streams, the term dictionary, the doc
// store, and the doc-length store.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/wizenheimer/flash"
	"github.com/wizenheimer/flash/ingest"
)

const (
	exitSuccess        = 0
	exitInputError     = 1
	exitIOError        = 2
	exitInvariantError = 3
)

type cli struct {
	LineDocPath string `arg:"" help:"Path to the tab-separated line-doc file to ingest."`
	OutputDir   string `arg:"" help:"Directory to write the persisted flash index to."`
}

func main() {
	var c cli
	kong.Parse(&c,
		kong.Name("flashbuild"),
		kong.Description("Builds a persisted flash search index from a line-doc file."),
	)
	os.Exit(run(c))
}

func run(c cli) int {
	f, err := os.Open(c.LineDocPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "flashbuild: opening line-doc file:", err)
		return exitIOError
	}
	defer f.Close()

	docs, err := ingest.ReadAll(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "flashbuild:", err)
		if _, ok := err.(*ingest.ParseError); ok {
			return exitInputError
		}
		return exitIOError
	}

	builder := flash.NewFlashBuilder(flash.DefaultFlashConfig())
	for _, doc := range docs {
		if len(doc.Tokens) == 0 && doc.Body != "" {
			// No usable token data at all (malformed optional columns
			// already would have failed in ingest.ReadAll); fall back
			// to indexing the body as-is.
			builder.AddDocument(doc.Body)
			continue
		}
		builder.AddParsedDocument(doc.Body, doc.Tokens, doc.Offsets)
	}

	if err := builder.Flush(c.OutputDir); err != nil {
		fmt.Fprintln(os.Stderr, "flashbuild: flushing index:", err)
		if fe, ok := err.(*flash.FlashError); ok && fe.Kind == flash.KindInvariant {
			return exitInvariantError
		}
		return exitIOError
	}

	fmt.Printf("flashbuild: wrote %d documents to %s\n", len(docs), c.OutputDir)
	return exitSuccess
}
