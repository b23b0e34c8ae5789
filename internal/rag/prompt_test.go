package rag

import (
	"fmt"
	"strings"
	"testing"

	"webpagegenie/models"
)

func TestBuildPromptEditMode(t *testing.T) {
	system, user := BuildPrompt(PromptRequest{
		Question:     "make the header sticky",
		Retrieved:    []models.Chunk{{Content: "header markup here"}},
		CurrentHTML:  "<html><body><header>x</header></body></html>",
		SelectedHTML: "<header>x</header>",
		PageExists:   true,
	})

	if !strings.Contains(system, "WebPageGenie") {
		t.Fatalf("system prompt missing assistant role: %q", system)
	}
	if !strings.Contains(user, "make the header sticky") {
		t.Fatalf("user prompt missing the task")
	}
	if !strings.Contains(user, "Current page markup") {
		t.Fatalf("edit prompt should carry the current markup")
	}
	if !strings.Contains(user, "Selected element") || !strings.Contains(user, "<header>x</header>") {
		t.Fatalf("edit prompt should focus on the selected fragment")
	}
	if !strings.Contains(user, "minimal edits") {
		t.Fatalf("edit prompt should ask for minimal edits")
	}
}

func TestBuildPromptCreateMode(t *testing.T) {
	_, user := BuildPrompt(PromptRequest{
		Question:   "build a landing page for a bakery",
		Retrieved:  []models.Chunk{{Content: "bakery hours and address"}},
		PageExists: false,
	})

	if !strings.Contains(user, "single-file HTML document") {
		t.Fatalf("create prompt should demand a single-file document")
	}
	if strings.Contains(user, "minimal edits") {
		t.Fatalf("create prompt should not carry edit instructions")
	}
	if !strings.Contains(user, "bakery hours and address") {
		t.Fatalf("create prompt should carry retrieved context")
	}
}

func TestBuildPromptCapsValidationErrors(t *testing.T) {
	errs := make([]string, 25)
	for i := range errs {
		errs[i] = fmt.Sprintf("error number %d", i)
	}

	_, user := BuildPrompt(PromptRequest{
		Question:         "fix",
		PageExists:       true,
		ValidationErrors: errs,
	})

	if !strings.Contains(user, "error number 9") {
		t.Fatalf("tenth error should be present")
	}
	if strings.Contains(user, "error number 10") {
		t.Fatalf("errors past the cap must be dropped")
	}
}

func TestBuildPromptReferenceDesignData(t *testing.T) {
	_, user := BuildPrompt(PromptRequest{
		Question:   "recreate this site",
		PageExists: false,
		Reference: &models.ScrapedSite{
			URL:      "https://example.com",
			Title:    "Example",
			Headings: []string{"Welcome"},
			Colors:   []string{"#102030"},
			Images:   []models.ScrapedImage{{URL: "https://example.com/hero.png", Alt: "hero"}},
		},
	})

	for _, want := range []string{"https://example.com", "Welcome", "#102030", "hero.png"} {
		if !strings.Contains(user, want) {
			t.Fatalf("reference prompt missing %q", want)
		}
	}
}

func TestBuildPromptCustomSystemContext(t *testing.T) {
	system, _ := BuildPrompt(PromptRequest{
		Question:      "edit",
		SystemContext: "You work for a bank.",
	})
	if !strings.Contains(system, "You work for a bank.") {
		t.Fatalf("custom system context should replace the default")
	}
	if strings.Contains(system, "expert frontend developer") {
		t.Fatalf("default context should be dropped when a custom one is given")
	}
}

func TestBuildPromptTruncatesHugeCurrentMarkup(t *testing.T) {
	big := strings.Repeat("x", maxCurrentHTML+500)
	_, user := BuildPrompt(PromptRequest{
		Question:    "edit",
		PageExists:  true,
		CurrentHTML: big,
	})
	if !strings.Contains(user, strings.Repeat("x", maxCurrentHTML)) {
		t.Fatalf("markup up to the cap should survive")
	}
	if strings.Contains(user, strings.Repeat("x", maxCurrentHTML+1)) {
		t.Fatalf("current markup should be truncated to the cap")
	}
}
