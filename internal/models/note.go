// Package models defines shared domain types for Laguz.
package models

import "time"

// Note represents a parsed Markdown file in the vault.
type Note struct {
	Path        string                 `json:"path"`
	Content     []byte                 `json:"-"`
	Body        string                 `json:"body"`
	Frontmatter map[string]interface{} `json:"frontmatter,omitempty"`
	Title       string                 `json:"title,omitempty"`
	Aliases     []string               `json:"aliases,omitempty"`
	Links       []string               `json:"links,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	Checksum    string                 `json:"checksum"`
	ModifiedAt  time.Time              `json:"modified_at"`
}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path       string    `json:"path"`
	Checksum   string    `json:"checksum"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Link is a directed reference from one note to an entity or note.
type Link struct {
	SourcePath string `json:"source_path"`
	Target     string `json:"target"`
	TargetPath string `json:"target_path,omitempty"`
	LineNumber int    `json:"line_number,omitempty"`
}
