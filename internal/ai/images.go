package ai

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"webpagegenie/internal/config"
	"webpagegenie/internal/logger"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ImageResult describes one generated asset on disk.
type ImageResult struct {
	Path     string `json:"path"`
	URL      string `json:"url"`
	Provider string `json:"provider"`
}

// ImageGenerator produces page assets via the Gemini image model, falling
// back to a deterministic SVG placeholder when the provider fails. Pages
// must always end up with a usable asset reference.
type ImageGenerator struct {
	client   *genai.Client
	model    string
	pagesDir string
}

func NewImageGenerator(ctx context.Context, cfg *config.Config) (*ImageGenerator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}
	return &ImageGenerator{
		client:   client,
		model:    cfg.ImageModel,
		pagesDir: cfg.PagesDir,
	}, nil
}

// Generate creates an image for prompt and writes it under the slug's
// assets directory. The returned URL is relative to the page root so the
// generated HTML can reference it as ./assets/<name>.
func (ig *ImageGenerator) Generate(ctx context.Context, prompt, slug string) (*ImageResult, error) {
	dir, err := ig.assetDir(slug)
	if err != nil {
		return nil, err
	}

	data, mime, genErr := ig.callModel(ctx, prompt)
	if genErr != nil {
		logger.Warn("Image generation failed, writing placeholder", "error", genErr)
		name := fmt.Sprintf("img_%d.svg", time.Now().UnixMilli())
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(placeholderSVG(prompt)), 0o644); err != nil {
			return nil, err
		}
		return &ImageResult{Path: path, URL: "./assets/" + name, Provider: "placeholder"}, nil
	}

	ext := extensionFor(mime)
	name := fmt.Sprintf("img_%d%s", time.Now().UnixMilli(), ext)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, err
	}
	return &ImageResult{Path: path, URL: "./assets/" + name, Provider: "gemini"}, nil
}

func (ig *ImageGenerator) callModel(ctx context.Context, prompt string) ([]byte, string, error) {
	model := ig.client.GenerativeModel(ig.model)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, "", upstream("image", err)
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if blob, ok := part.(genai.Blob); ok && len(blob.Data) > 0 {
				return blob.Data, blob.MIMEType, nil
			}
		}
	}
	return nil, "", upstream("image", fmt.Errorf("no image data in response"))
}

func (ig *ImageGenerator) assetDir(slug string) (string, error) {
	dir := filepath.Join(ig.pagesDir, "assets")
	if slug != "" {
		dir = filepath.Join(ig.pagesDir, slug, "assets")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func extensionFor(mime string) string {
	switch {
	case strings.Contains(mime, "png"):
		return ".png"
	case strings.Contains(mime, "jpeg"), strings.Contains(mime, "jpg"):
		return ".jpg"
	case strings.Contains(mime, "webp"):
		return ".webp"
	default:
		return ".png"
	}
}

func placeholderSVG(prompt string) string {
	safe := strings.TrimSpace(prompt)
	if len(safe) > 200 {
		safe = safe[:200]
	}
	safe = strings.NewReplacer("<", "&lt;", ">", "&gt;", "&", "&amp;").Replace(safe)
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="1024" height="1024" viewBox="0 0 1024 1024">
  <defs>
    <linearGradient id="g" x1="0" y1="0" x2="1" y2="1">
      <stop offset="0%%" stop-color="#4f46e5"/>
      <stop offset="100%%" stop-color="#06b6d4"/>
    </linearGradient>
  </defs>
  <rect width="1024" height="1024" fill="url(#g)"/>
  <g transform="translate(512,480)">
    <circle r="220" fill="rgba(255,255,255,0.15)"/>
    <circle r="340" stroke="rgba(255,255,255,0.18)" stroke-width="10" fill="none"/>
  </g>
  <text x="512" y="760" font-size="36" font-family="system-ui, sans-serif" text-anchor="middle" fill="#ffffff" opacity="0.9">%s</text>
</svg>`, safe)
}

func (ig *ImageGenerator) Close() error {
	if ig.client != nil {
		return ig.client.Close()
	}
	return nil
}
