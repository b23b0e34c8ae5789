package pages

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"webpagegenie/internal/logger"
	"webpagegenie/models"
)

const (
	indexFile   = "index.html"
	versionsDir = "versions"
)

var slugRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Manager owns the on-disk page tree: pages/<slug>/index.html with
// timestamped snapshots under pages/<slug>/versions/. Writes to the
// same slug are serialized; a snapshot of the current markup is taken
// before every overwrite.
type Manager struct {
	dir         string
	maxVersions int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewManager(dir string, maxVersions int) *Manager {
	if maxVersions <= 0 {
		maxVersions = 20
	}
	return &Manager{
		dir:         dir,
		maxVersions: maxVersions,
		locks:       map[string]*sync.Mutex{},
	}
}

// ValidSlug reports whether slug is safe to use as a directory name.
func ValidSlug(slug string) bool {
	return slug != "" && len(slug) <= 100 && slugRe.MatchString(slug)
}

func (m *Manager) slugLock(slug string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[slug]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[slug] = lock
	}
	return lock
}

// Path returns the on-disk location of a slug's markup.
func (m *Manager) Path(slug string) string {
	return filepath.Join(m.dir, slug, indexFile)
}

// Exists reports whether the slug has markup on disk.
func (m *Manager) Exists(slug string) bool {
	if !ValidSlug(slug) {
		return false
	}
	info, err := os.Stat(m.Path(slug))
	return err == nil && !info.IsDir()
}

// Read returns the current markup for slug.
func (m *Manager) Read(slug string) (string, error) {
	if !ValidSlug(slug) {
		return "", fmt.Errorf("invalid slug %q", slug)
	}
	data, err := os.ReadFile(m.Path(slug))
	if err != nil {
		return "", fmt.Errorf("read page %s: %w", slug, err)
	}
	return string(data), nil
}

// Write stores new markup for slug, snapshotting the previous markup
// first. The write itself goes through a temp file and rename so a
// concurrent reader never sees a partial page.
func (m *Manager) Write(slug, htmlText string) error {
	if !ValidSlug(slug) {
		return fmt.Errorf("invalid slug %q", slug)
	}

	lock := m.slugLock(slug)
	lock.Lock()
	defer lock.Unlock()

	pageDir := filepath.Join(m.dir, slug)
	if err := os.MkdirAll(pageDir, 0o755); err != nil {
		return fmt.Errorf("create page dir %s: %w", slug, err)
	}

	target := m.Path(slug)
	if current, err := os.ReadFile(target); err == nil {
		if err := m.snapshot(slug, current); err != nil {
			logger.Warn("Failed to snapshot page before overwrite", "slug", slug, "error", err)
		}
	}

	tmp, err := os.CreateTemp(pageDir, ".index-*.tmp")
	if err != nil {
		return fmt.Errorf("write page %s: %w", slug, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(htmlText); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write page %s: %w", slug, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write page %s: %w", slug, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write page %s: %w", slug, err)
	}
	return nil
}

func (m *Manager) snapshot(slug string, content []byte) error {
	dir := filepath.Join(m.dir, slug, versionsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	name := time.Now().UTC().Format("20060102-150405.000000") + ".html"
	if err := os.WriteFile(filepath.Join(dir, name), content, 0o644); err != nil {
		return err
	}
	return m.pruneVersions(slug)
}

// pruneVersions keeps only the newest maxVersions snapshots.
func (m *Manager) pruneVersions(slug string) error {
	versions, err := m.Versions(slug)
	if err != nil {
		return err
	}
	if len(versions) <= m.maxVersions {
		return nil
	}
	// Versions is newest first; everything past the cap goes.
	for _, v := range versions[m.maxVersions:] {
		path := filepath.Join(m.dir, slug, versionsDir, v.Name)
		if err := os.Remove(path); err != nil {
			return err
		}
	}
	return nil
}

// Prune drops snapshots past the retention cap for one slug. Writes
// already prune as they go; this catches slugs whose cap was lowered.
func (m *Manager) Prune(slug string) error {
	if !ValidSlug(slug) {
		return fmt.Errorf("invalid slug %q", slug)
	}
	lock := m.slugLock(slug)
	lock.Lock()
	defer lock.Unlock()
	return m.pruneVersions(slug)
}

// Versions lists a slug's snapshots, newest first.
func (m *Manager) Versions(slug string) ([]models.PageVersion, error) {
	if !ValidSlug(slug) {
		return nil, fmt.Errorf("invalid slug %q", slug)
	}
	entries, err := os.ReadDir(filepath.Join(m.dir, slug, versionsDir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list versions for %s: %w", slug, err)
	}

	var versions []models.PageVersion
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".html") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		versions = append(versions, models.PageVersion{
			Slug:      slug,
			Name:      entry.Name(),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Name > versions[j].Name
	})
	return versions, nil
}

// Restore replaces the current markup with the named snapshot. The
// markup being replaced is snapshotted first, so a restore is itself
// undoable.
func (m *Manager) Restore(slug, versionName string) error {
	if !ValidSlug(slug) {
		return fmt.Errorf("invalid slug %q", slug)
	}
	if versionName != filepath.Base(versionName) || !strings.HasSuffix(versionName, ".html") {
		return fmt.Errorf("invalid version name %q", versionName)
	}
	data, err := os.ReadFile(filepath.Join(m.dir, slug, versionsDir, versionName))
	if err != nil {
		return fmt.Errorf("read version %s of %s: %w", versionName, slug, err)
	}
	return m.Write(slug, string(data))
}

// List returns every managed page, sorted by slug.
func (m *Manager) List() ([]models.Page, error) {
	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	var pages []models.Page
	for _, entry := range entries {
		if !entry.IsDir() || !ValidSlug(entry.Name()) {
			continue
		}
		slug := entry.Name()
		info, err := os.Stat(m.Path(slug))
		if err != nil {
			continue
		}
		versions, _ := m.Versions(slug)
		pages = append(pages, models.Page{
			Slug:      slug,
			Path:      m.Path(slug),
			Size:      info.Size(),
			UpdatedAt: info.ModTime(),
			Versions:  len(versions),
		})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Slug < pages[j].Slug })
	return pages, nil
}

// Delete removes a page and all its snapshots.
func (m *Manager) Delete(slug string) error {
	if !ValidSlug(slug) {
		return fmt.Errorf("invalid slug %q", slug)
	}
	lock := m.slugLock(slug)
	lock.Lock()
	defer lock.Unlock()
	return os.RemoveAll(filepath.Join(m.dir, slug))
}

// AssetsDir returns the slug's asset directory, creating it if needed.
func (m *Manager) AssetsDir(slug string) (string, error) {
	if !ValidSlug(slug) {
		return "", fmt.Errorf("invalid slug %q", slug)
	}
	dir := filepath.Join(m.dir, slug, "assets")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
