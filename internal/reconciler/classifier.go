package reconciler

import (
	"strings"

	"github.com/kodinohjaus/gateway/internal/models"
)

// defaultAuthKeywords is the fallback vocabulary matched against response
// error text. Deliberately narrow; the structured RequiresAuth flag is the
// primary signal and the list must not grow without revisiting callers.
var defaultAuthKeywords = []string{"auth", "token"}

// Classifier decides whether a failed response means the backend wants the
// client to (re)authenticate.
type Classifier struct {
	keywords []string
}

// NewClassifier builds a classifier with the given keyword fallback; with no
// arguments the default vocabulary is used.
func NewClassifier(keywords ...string) Classifier {
	if len(keywords) == 0 {
		keywords = defaultAuthKeywords
	}
	lowered := make([]string, len(keywords))
	for i, kw := range keywords {
		lowered[i] = strings.ToLower(kw)
	}
	return Classifier{keywords: lowered}
}

// IsAuthFailure reports whether the response is an authentication failure.
// The explicit RequiresAuth flag wins; keyword matching over the error and
// message text is a heuristic fallback for older backends.
func (c Classifier) IsAuthFailure(resp models.Response) bool {
	if resp.Success {
		return false
	}
	if resp.RequiresAuth {
		return true
	}

	text := strings.ToLower(resp.Error + " " + resp.Message)
	if strings.TrimSpace(text) == "" {
		return false
	}
	for _, keyword := range c.keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
