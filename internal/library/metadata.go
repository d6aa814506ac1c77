package library

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// Recording describes a loaded file for display
type Recording struct {
	Name   string // file name as selected
	Title  string
	Artist string
}

// MetadataReader extracts display metadata from audio files
type MetadataReader struct{}

// NewMetadataReader creates a new metadata reader
func NewMetadataReader() *MetadataReader {
	return &MetadataReader{}
}

// Read extracts metadata from the file bytes. Files without readable tags
// are titled after their file name.
func (r *MetadataReader) Read(name string, data []byte) Recording {
	rec := Recording{
		Name:  name,
		Title: titleFromName(name),
	}

	metadata, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return rec
	}

	rec.Title = getOrDefault(metadata.Title(), rec.Title)
	rec.Artist = metadata.Artist()
	return rec
}

// titleFromName strips directory and extension
func titleFromName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// getOrDefault returns the value if non-empty, otherwise returns the default
func getOrDefault(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}
