package models

import (
	"testing"
)

func TestSearchRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     *SearchRequest
		wantErr bool
		topK    int
	}{
		{"empty query", &SearchRequest{Query: ""}, true, 0},
		{"whitespace query", &SearchRequest{Query: "  \n"}, true, 0},
		{"valid query", &SearchRequest{Query: "hello"}, false, DefaultTopK},
		{"keeps topK", &SearchRequest{Query: "x", TopK: 7}, false, 7},
		{"leaves cap to caller", &SearchRequest{Query: "x", TopK: 500}, false, 500},
		{"bad type", &SearchRequest{Query: "x", Type: "poem"}, true, 0},
		{"style type", &SearchRequest{Query: "x", Type: DocumentTypeStyle}, false, DefaultTopK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tt.req.TopK != tt.topK {
				t.Errorf("TopK = %d, want %d", tt.req.TopK, tt.topK)
			}
		})
	}
}

func TestSearchRequest_Scope(t *testing.T) {
	req := &SearchRequest{Query: "x", Type: DocumentTypeContent, ProjectIDs: []string{"p1"}}
	s := req.Scope()
	if !s.ActiveOnly {
		t.Error("search scope should only include active documents")
	}
	if s.Type != DocumentTypeContent || len(s.ProjectIDs) != 1 {
		t.Errorf("unexpected scope %+v", s)
	}
}

func TestParseDocumentType(t *testing.T) {
	if _, err := ParseDocumentType("style"); err != nil {
		t.Errorf("style: %v", err)
	}
	if _, err := ParseDocumentType("content"); err != nil {
		t.Errorf("content: %v", err)
	}
	if _, err := ParseDocumentType("STYLE"); err == nil {
		t.Error("type tags are case sensitive")
	}
}
