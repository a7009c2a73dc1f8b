package search

import "github.com/hyperjump/cognidocs/internal/models"

// ProcessQuery validates the request and clamps its result limit to topK.
func ProcessQuery(req *models.QueryRequest, topK int) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if topK > 0 && req.MaxResults > topK {
		req.MaxResults = topK
	}
	return nil
}
