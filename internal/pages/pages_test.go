package pages

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestManager(t *testing.T, maxVersions int) *Manager {
	t.Helper()
	return NewManager(t.TempDir(), maxVersions)
}

func TestWriteAndRead(t *testing.T) {
	m := newTestManager(t, 5)

	if m.Exists("landing") {
		t.Fatalf("page should not exist yet")
	}
	if err := m.Write("landing", "<html><body>v1</body></html>"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !m.Exists("landing") {
		t.Fatalf("page should exist after write")
	}

	got, err := m.Read("landing")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != "<html><body>v1</body></html>" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestWriteSnapshotsPreviousVersion(t *testing.T) {
	m := newTestManager(t, 5)

	if err := m.Write("landing", "v1"); err != nil {
		t.Fatalf("write v1: %v", err)
	}
	versions, _ := m.Versions("landing")
	if len(versions) != 0 {
		t.Fatalf("first write must not snapshot, got %d versions", len(versions))
	}

	if err := m.Write("landing", "v2"); err != nil {
		t.Fatalf("write v2: %v", err)
	}
	versions, err := m.Versions("landing")
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(versions))
	}

	data, err := os.ReadFile(filepath.Join(filepath.Dir(m.Path("landing")), "versions", versions[0].Name))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if string(data) != "v1" {
		t.Fatalf("snapshot should hold the overwritten markup, got %q", data)
	}
}

func TestVersionsPrunedPastCap(t *testing.T) {
	m := newTestManager(t, 3)

	for i := 0; i < 8; i++ {
		if err := m.Write("landing", strings.Repeat("x", i+1)); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		// Snapshot names are timestamped; keep them distinct.
		time.Sleep(2 * time.Millisecond)
	}

	versions, err := m.Versions("landing")
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if len(versions) > 3 {
		t.Fatalf("expected at most 3 snapshots, got %d", len(versions))
	}
}

func TestRestore(t *testing.T) {
	m := newTestManager(t, 5)

	if err := m.Write("landing", "old markup"); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if err := m.Write("landing", "new markup"); err != nil {
		t.Fatalf("write: %v", err)
	}

	versions, _ := m.Versions("landing")
	if len(versions) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(versions))
	}
	if err := m.Restore("landing", versions[0].Name); err != nil {
		t.Fatalf("restore: %v", err)
	}

	got, _ := m.Read("landing")
	if got != "old markup" {
		t.Fatalf("expected restored markup, got %q", got)
	}
}

func TestListExcludesNonPages(t *testing.T) {
	m := newTestManager(t, 5)

	if err := m.Write("alpha", "a"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := m.Write("beta", "b"); err != nil {
		t.Fatalf("write: %v", err)
	}

	list, err := m.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Slug != "alpha" || list[1].Slug != "beta" {
		t.Fatalf("unexpected listing: %+v", list)
	}
}

func TestValidSlugRejectsTraversal(t *testing.T) {
	bad := []string{"", "../etc", "a/b", "UPPER", ".hidden", "-leading", strings.Repeat("a", 200)}
	for _, slug := range bad {
		if ValidSlug(slug) {
			t.Fatalf("slug %q should be rejected", slug)
		}
	}
	good := []string{"landing", "my-page", "page_2", "a1"}
	for _, slug := range good {
		if !ValidSlug(slug) {
			t.Fatalf("slug %q should be accepted", slug)
		}
	}
}

func TestWithReloadScriptInjection(t *testing.T) {
	page := "<html><body><p>hi</p></body></html>"
	out := WithReloadScript(page, "/ws", "landing")

	if !strings.Contains(out, "WebSocket") {
		t.Fatalf("reload client missing from served markup")
	}
	if !strings.Contains(out, `"landing"`) {
		t.Fatalf("slug missing from reload client")
	}
	idx := strings.Index(out, "<script>")
	if idx == -1 || idx > strings.Index(out, "</body>") {
		t.Fatalf("script should be injected before </body>")
	}

	// No body tag: script is appended.
	frag := "<p>bare fragment</p>"
	if out := WithReloadScript(frag, "/ws", "x"); !strings.HasPrefix(out, frag) {
		t.Fatalf("fragment should be preserved at the front")
	}
}
