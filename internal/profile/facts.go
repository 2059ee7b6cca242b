package profile

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/pianocrm-backend/internal/types"
)

// FactExtraction is the schema-validated form of the extractor's JSON
// output. The raw payload comes from an LLM and is untrusted: every field
// is optional, scalars may appear where lists are expected, and values
// outside the known enums must be dropped rather than stored.
type FactExtraction struct {
	ClientLevels      []string
	LearningGoals     []string
	PurchasedProducts []string
	ClientPains       []string
	Emails            []string
	LeadQualification string
	FunnelStage       string
	ClientActivity    string
}

type rawFactExtraction struct {
	ClientLevel       json.RawMessage `json:"client_level"`
	LearningGoals     json.RawMessage `json:"learning_goals"`
	PurchasedProducts json.RawMessage `json:"purchased_products"`
	ClientPains       json.RawMessage `json:"client_pains"`
	Email             json.RawMessage `json:"email"`
	LeadQualification json.RawMessage `json:"lead_qualification"`
	FunnelStage       json.RawMessage `json:"funnel_stage"`
	ClientActivity    json.RawMessage `json:"client_activity"`
}

// ParseFactExtraction decodes the extractor reply. The model sometimes
// wraps the object in a ```json fence; the fence is stripped before
// parsing. A reply that is not a JSON object after stripping is a fatal
// error for the cycle.
func ParseFactExtraction(raw string) (FactExtraction, error) {
	var out FactExtraction

	body := StripJSONFence(raw)
	if strings.TrimSpace(body) == "" {
		return out, fmt.Errorf("empty fact extraction payload")
	}

	var parsed rawFactExtraction
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return out, fmt.Errorf("parse fact extraction: %w", err)
	}

	out.ClientLevels = stringList(parsed.ClientLevel)
	out.LearningGoals = stringList(parsed.LearningGoals)
	out.PurchasedProducts = stringList(parsed.PurchasedProducts)
	out.ClientPains = stringList(parsed.ClientPains)
	out.Emails = stringList(parsed.Email)
	out.LeadQualification = scalarString(parsed.LeadQualification)
	out.FunnelStage = scalarString(parsed.FunnelStage)

	// Absence of evidence of activity is passivity, not "unknown".
	activity := strings.ToLower(scalarString(parsed.ClientActivity))
	if activity != types.ActivityActive {
		activity = types.ActivityPassive
	}
	out.ClientActivity = activity

	return out, nil
}

// StripJSONFence removes an optional markdown code fence around a JSON
// payload.
func StripJSONFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the info string ("json", "JSON", or empty).
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// stringList coerces a raw JSON value into a list of trimmed strings.
// Accepts an array (non-string elements dropped) or a bare string; any
// other shape yields nil.
func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		var out []string
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				continue
			}
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			out = append(out, s)
		}
		return out
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		single = strings.TrimSpace(single)
		if single == "" {
			return nil
		}
		return []string{single}
	}

	return nil
}

func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
