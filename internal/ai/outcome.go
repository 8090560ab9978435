package ai

import "context"

// Outcome is the two-variant result of an answer attempt: either the model
// produced an answer grounded in the FAQ corpus, or the conversation must be
// handed to a human. Failure-to-answer is a typed outcome, never an error.
type Outcome struct {
	Answer   string
	Escalate bool
}

// Answered wraps a successful answer.
func Answered(text string) Outcome {
	return Outcome{Answer: text}
}

// Escalated is the human-handoff outcome.
func Escalated() Outcome {
	return Outcome{Escalate: true}
}

// Provider answers a customer query strictly from a tenant's FAQ corpus.
// Implementations absorb every transport failure, empty payload and
// unparseable response into the Escalated outcome; the conversation engine
// never sees a provider error.
type Provider interface {
	Answer(ctx context.Context, query, faqCorpus string) Outcome
}
