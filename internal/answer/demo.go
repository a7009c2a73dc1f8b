package answer

import (
	"strings"

	"github.com/hyperjump/cognidocs/internal/models"
)

type demoResponse struct {
	keyword string
	answer  string
	source  models.Source
}

// demoResponses are checked in order; the first keyword contained in the question wins.
var demoResponses = []demoResponse{
	{
		keyword: "tesla",
		answer: "Based on Tesla's 2023 10-K report, Tesla's total revenues were $96.8 billion in 2023, " +
			"representing a 19% increase from the previous year. The company's automotive segment " +
			"contributed $82.4 billion of this revenue.",
		source: models.Source{Document: "Tesla_2023_10K_Report.pdf", PageNumber: 45, ChunkIndex: 12, Relevance: RelevanceHigh},
	},
	{
		keyword: "revenue",
		answer: "According to the financial documents, total revenues for 2023 were $96.8 billion, " +
			"with automotive sales representing the largest segment at $82.4 billion.",
		source: models.Source{Document: "Tesla_2023_10K_Report.pdf", PageNumber: 45, ChunkIndex: 12, Relevance: RelevanceHigh},
	},
	{
		keyword: "reset",
		answer: "To reset the main console according to the technical manual, hold down both scroll wheels " +
			"on the steering wheel for 10 seconds until the screen goes black, then wait for the system to reboot.",
		source: models.Source{Document: "Technical_Manual_Model-X.pdf", PageNumber: 23, ChunkIndex: 7, Relevance: RelevanceHigh},
	},
}

func matchDemo(question string) (demoResponse, bool) {
	q := strings.ToLower(question)
	for _, d := range demoResponses {
		if strings.Contains(q, d.keyword) {
			return d, true
		}
	}
	return demoResponse{}, false
}
