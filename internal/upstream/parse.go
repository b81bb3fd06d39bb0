package upstream

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/infomap/infomap/internal/model"
)

// declineThreshold is the length above which non-JSON text is read as a refusal.
const declineThreshold = 10

// Completion is the decoded model answer.
type Completion struct {
	News   []model.NewsItem
	Trends []string
	// Placeholder is set when the answer was generated locally without
	// calling the model. Placeholder completions are never recorded.
	Placeholder bool
}

// StripCodeFences removes Markdown code fence markup around a JSON answer.
func StripCodeFences(content string) string {
	clean := strings.ReplaceAll(content, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	return strings.TrimSpace(clean)
}

// ParseCompletion decodes the model answer.
//
// Text that does not look like JSON yields ErrNoSignal; JSON that fails to
// decode yields ErrMalformedResponse. An object with no news items is also
// treated as ErrNoSignal.
func ParseCompletion(content string) (*Completion, error) {
	clean := StripCodeFences(content)

	var body struct {
		News   []model.NewsItem `json:"news"`
		Trends []string         `json:"trends"`
	}
	if err := json.Unmarshal([]byte(clean), &body); err != nil {
		if len(clean) > declineThreshold && !looksLikeJSON(clean) {
			return nil, ErrNoSignal
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if len(body.News) == 0 {
		return nil, ErrNoSignal
	}
	if body.Trends == nil {
		body.Trends = []string{}
	}

	return &Completion{News: body.News, Trends: body.Trends}, nil
}

func looksLikeJSON(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}
