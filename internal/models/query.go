package models

import (
	"fmt"
	"strings"
)

const (
	// DefaultTopK matches the number of chunks the chat flow asks for by default.
	DefaultTopK = 4
	// MaxTopK caps a single request when no cap is configured.
	MaxTopK = 100
)

// SearchRequest is a retrieval request scoped to one document type and optional projects.
type SearchRequest struct {
	Query      string       `json:"query"`
	Type       DocumentType `json:"type,omitempty"`
	ProjectIDs []string     `json:"project_ids,omitempty"`
	TopK       int          `json:"top_k,omitempty"`
}

// Validate ensures the request has a query and a known type, and defaults TopK. The
// configured cap is applied by the search engine.
func (r *SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrInvalidInput)
	}
	if r.Type != "" {
		if _, err := ParseDocumentType(string(r.Type)); err != nil {
			return err
		}
	}
	if r.TopK <= 0 {
		r.TopK = DefaultTopK
	}
	return nil
}

// Scope returns the candidate filter for this request. Only active documents are searched.
func (r *SearchRequest) Scope() Scope {
	return Scope{Type: r.Type, ProjectIDs: r.ProjectIDs, ActiveOnly: true}
}
