package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Writer saves exported tag documents under a base directory
type Writer struct {
	basePath string
}

// NewWriter creates a writer rooted at basePath
func NewWriter(basePath string) *Writer {
	return &Writer{basePath: basePath}
}

// FileName builds "<title>-<session prefix>.tags.json"
func FileName(title, sessionID string) string {
	name := sanitize(title)
	if name == "" {
		name = "recording"
	}
	if len(sessionID) > 8 {
		sessionID = sessionID[:8]
	}
	if sessionID != "" {
		name += "-" + sessionID
	}
	return name + ".tags.json"
}

// Write stores doc and returns the path written
func (w *Writer) Write(title, sessionID string, doc []byte) (string, error) {
	if err := os.MkdirAll(w.basePath, 0755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	path := filepath.Join(w.basePath, FileName(title, sessionID))
	data := make([]byte, 0, len(doc)+1)
	data = append(append(data, doc...), '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}

	return path, nil
}

// sanitize keeps file names portable
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			return '_'
		case r < 0x20:
			return -1
		default:
			return r
		}
	}, strings.TrimSpace(s))
}
