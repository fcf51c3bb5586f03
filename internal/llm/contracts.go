package llm

import (
	"context"

	"github.com/joseph-ayodele/syllabus-review/constants"
)

// FieldRequest asks a model for one review field of one document.
type FieldRequest struct {
	Field    constants.Field
	Column   string // template header, used in the prompt
	Filename string
	Excerpt  string // bounded document text
}

// FieldAnswer is the normalized shape we want from the LLM.
type FieldAnswer struct {
	Value string `json:"value"`
	Found bool   `json:"found"`
}

// Provider is the interface the fallback resolver depends on. The raw JSON returned
// alongside the answer is kept for logging.
type Provider interface {
	Name() string
	ResolveField(ctx context.Context, req FieldRequest) (FieldAnswer, []byte /*rawJSON*/, error)
}
