package models

import "time"

// Page describes one managed page directory on disk.
type Page struct {
	Slug      string    `json:"slug"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
	Versions  int       `json:"versions"`
}

// PageVersion is a timestamped snapshot taken before every overwrite.
type PageVersion struct {
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}
