package search

import "github.com/hyperjump/ghostwriter/internal/models"

// ProcessRequest applies the configured top-k default and cap, then validates the request.
func ProcessRequest(req *models.SearchRequest, defaultTopK, maxTopK int) error {
	if req.TopK <= 0 && defaultTopK > 0 {
		req.TopK = defaultTopK
	}
	if maxTopK <= 0 {
		maxTopK = models.MaxTopK
	}
	if req.TopK > maxTopK {
		req.TopK = maxTopK
	}
	return req.Validate()
}
