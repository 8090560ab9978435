package ai

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rs/zerolog/log"
)

type answerPayload struct {
	Answer   string `json:"answer"`
	Escalate bool   `json:"escalate"`
}

// parseOutcome turns raw model output into an Outcome. Models wrap JSON in
// markdown fences, truncate it, or skip it entirely; anything that cannot be
// recovered into a non-empty answer escalates.
func parseOutcome(response string) Outcome {
	jsonStr := extractJSON(response)
	if jsonStr == "" {
		log.Warn().Int("response_len", len(response)).Msg("No JSON found in model response")
		return Escalated()
	}

	var payload answerPayload
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(jsonStr)
		if repairErr != nil {
			log.Warn().Err(err).Msg("Model response unparseable even after repair")
			return Escalated()
		}
		if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
			log.Warn().Err(err).Msg("Repaired model response still unparseable")
			return Escalated()
		}
		log.Debug().
			Int("original_bytes", len(jsonStr)).
			Int("repaired_bytes", len(repaired)).
			Msg("Model JSON repaired")
	}

	answer := strings.TrimSpace(payload.Answer)
	if payload.Escalate || answer == "" {
		return Escalated()
	}
	return Answered(answer)
}

// extractJSON pulls the JSON object out of a response that may wrap it in a
// markdown code block.
func extractJSON(response string) string {
	trimmed := strings.TrimSpace(response)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return trimmed
	}

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 {
		return ""
	}
	if end <= start {
		// Possibly truncated output; hand the open brace onward and let the
		// repair pass close it.
		return strings.TrimSpace(response[start:])
	}
	return response[start : end+1]
}
