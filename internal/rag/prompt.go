package rag

import (
	"fmt"
	"strings"

	"webpagegenie/models"
)

// maxPromptErrors caps how many validation findings a retry prompt
// carries; past the first ten the model gets no additional signal.
const maxPromptErrors = 10

// maxCurrentHTML caps how much of the current page markup an edit
// prompt carries.
const maxCurrentHTML = 100_000

const defaultSystemContext = "You are an expert frontend developer familiar with the latest frontend JS frameworks " +
	"and tasked as a contractor to create SPAs with enterprise-grade professional designs. " +
	"Make modern-looking pages with tasteful graphics, subtle animations, and modals where appropriate. " +
	"Here is your task from the client:"

const assistantRole = "You are WebPageGenie, an assistant that edits or creates single-file HTML5/CSS3/JS webpages. " +
	"Prefer small, targeted edits to the existing page when possible. Preserve existing structure, styles, and links. " +
	"Only replace or add the minimal necessary sections. " +
	"All CSS and JS must be inlined; the result must be one complete, self-contained HTML document."

// PromptRequest is everything the assembler needs. It is a pure function
// of this struct: no network, no side effects.
type PromptRequest struct {
	Question         string
	Retrieved        []models.Chunk
	CurrentHTML      string
	SelectedHTML     string
	SelectedPath     []string
	ValidationErrors []string
	PageExists       bool
	SystemContext    string
	Reference        *models.ScrapedSite
}

// BuildPrompt assembles the system and user prompt text for one
// generation call.
func BuildPrompt(req PromptRequest) (systemPrompt, userPrompt string) {
	sysContext := req.SystemContext
	if sysContext == "" {
		sysContext = defaultSystemContext
	}
	systemPrompt = sysContext + "\n\n" + assistantRole

	var sb strings.Builder
	sb.WriteString("Task: ")
	sb.WriteString(req.Question)
	sb.WriteString("\n\n")

	if req.PageExists {
		if cur := strings.TrimSpace(req.CurrentHTML); cur != "" {
			sb.WriteString("Current page markup (minified; keep any <!--note:N--> placeholders exactly where they are):\n")
			if len(cur) > maxCurrentHTML {
				cur = cur[:maxCurrentHTML]
			}
			sb.WriteString(cur)
			sb.WriteString("\n\n")
			if len(req.Retrieved) > 0 {
				sb.WriteString("Most relevant sections for this task:\n")
				writeContext(&sb, req.Retrieved)
				sb.WriteString("\n")
			}
		} else {
			sb.WriteString("Current page content (may be partial):\n")
			writeContext(&sb, req.Retrieved)
			sb.WriteString("\n")
		}

		if errs := capErrors(req.ValidationErrors); len(errs) > 0 {
			sb.WriteString("Known client errors to fix (from browser validation):\n")
			for _, e := range errs {
				sb.WriteString("- ")
				sb.WriteString(e)
				sb.WriteString("\n")
			}
			sb.WriteString("\n")
		}

		if fragment := strings.TrimSpace(req.SelectedHTML); fragment != "" {
			sb.WriteString("Selected element (focus your edits here):\n")
			if len(req.SelectedPath) > 0 {
				fmt.Fprintf(&sb, "Location: %s\n", strings.Join(req.SelectedPath, ">"))
			}
			sb.WriteString(fragment)
			sb.WriteString("\n\n")
		}

		sb.WriteString("Instructions:\n" +
			"- Make minimal edits to satisfy the task.\n" +
			"- Keep existing classes/IDs and asset references (images, CSS, JS) intact when possible.\n" +
			"- Inline all CSS and JS; do not reference externally-hosted stylesheets or scripts.\n" +
			"- Do not link or redirect to other HTML documents.\n" +
			"- Return a complete, valid HTML document.")
	} else {
		if req.Reference != nil {
			writeReference(&sb, req.Reference)
		}
		sb.WriteString("Context:\n")
		writeContext(&sb, req.Retrieved)

		if errs := capErrors(req.ValidationErrors); len(errs) > 0 {
			sb.WriteString("\nKnown client errors to fix (from browser validation):\n")
			for _, e := range errs {
				sb.WriteString("- ")
				sb.WriteString(e)
				sb.WriteString("\n")
			}
		}

		sb.WriteString("\nProduce a complete single-file HTML document with all CSS and JS inlined.")
	}

	return systemPrompt, sb.String()
}

func writeContext(sb *strings.Builder, chunks []models.Chunk) {
	for i, c := range chunks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(c.Content)
	}
	sb.WriteString("\n")
}

func writeReference(sb *strings.Builder, ref *models.ScrapedSite) {
	sb.WriteString("Reference site design data (follow its layout, styling, and libraries):\n")
	fmt.Fprintf(sb, "URL: %s\nTitle: %s\n", ref.URL, ref.Title)
	if len(ref.Headings) > 0 {
		fmt.Fprintf(sb, "Headings: %s\n", strings.Join(ref.Headings, " | "))
	}
	if len(ref.Stylesheets) > 0 {
		fmt.Fprintf(sb, "Stylesheets: %s\n", strings.Join(ref.Stylesheets, ", "))
	}
	if len(ref.Scripts) > 0 {
		fmt.Fprintf(sb, "JS libraries: %s\n", strings.Join(ref.Scripts, ", "))
	}
	if len(ref.Fonts) > 0 {
		fmt.Fprintf(sb, "Fonts: %s\n", strings.Join(ref.Fonts, ", "))
	}
	if len(ref.Colors) > 0 {
		fmt.Fprintf(sb, "Colors: %s\n", strings.Join(ref.Colors, ", "))
	}
	if len(ref.Images) > 0 {
		sb.WriteString("Images to place (with alt text):\n")
		for _, img := range ref.Images {
			fmt.Fprintf(sb, "- %s (%s)\n", img.URL, img.Alt)
		}
	}
	sb.WriteString("\n")
}

func capErrors(errs []string) []string {
	if len(errs) > maxPromptErrors {
		return errs[:maxPromptErrors]
	}
	return errs
}
