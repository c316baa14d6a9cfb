package scraper

import (
	"context"
	"fmt"
	"log"
	"strings"

	"rankwatch/llm"
)

// MarkupArchiver stores captured page markup for later selector debugging.
type MarkupArchiver interface {
	ArchivePage(ctx context.Context, key, markup string) error
}

// PageAnalyzer captures a rendered page through the run's shared browser
// session and forwards it, together with a task instruction, to the language
// model. It never retries: retry policy belongs to the caller or is absent.
type PageAnalyzer struct {
	nav     PageNavigator
	model   llm.Client
	archive MarkupArchiver
	prefix  string
	seq     int
}

// NewPageAnalyzer wires an analyzer to the run's navigator and model client.
// archive may be nil; prefix namespaces archived markup per run.
func NewPageAnalyzer(nav PageNavigator, model llm.Client, archive MarkupArchiver, prefix string) *PageAnalyzer {
	return &PageAnalyzer{nav: nav, model: model, archive: archive, prefix: prefix}
}

// CapturePage navigates to the URL and returns the rendered markup without
// involving the model.
func (a *PageAnalyzer) CapturePage(ctx context.Context, url string) (string, error) {
	markup, err := a.nav.Navigate(ctx, url)
	if err != nil {
		return "", err
	}
	a.archiveMarkup(ctx, markup)
	return markup, nil
}

// AnalyzePage captures the page and asks the model to apply the instruction
// to its markup, returning the model's raw text response.
func (a *PageAnalyzer) AnalyzePage(ctx context.Context, url, instruction string) (string, error) {
	markup, err := a.CapturePage(ctx, url)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(analysisPromptV1, instruction, markup)
	response, err := a.model.Invoke(ctx, prompt)
	if err != nil {
		return "", ErrModelInvocation{Err: err}
	}

	response = strings.TrimSpace(response)
	if response == "" {
		return "", ErrEmptyAnalysis{URL: url}
	}
	return response, nil
}

// archiveMarkup uploads captured markup when an archive is configured.
// Archive failures are logged, never fatal to the run.
func (a *PageAnalyzer) archiveMarkup(ctx context.Context, markup string) {
	if a.archive == nil {
		return
	}
	a.seq++
	key := fmt.Sprintf("%s/%03d.html", a.prefix, a.seq)
	if err := a.archive.ArchivePage(ctx, key, markup); err != nil {
		log.Printf("Failed to archive markup %s: %v", key, err)
	}
}
