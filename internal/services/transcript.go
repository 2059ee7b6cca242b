package services

import (
	"strings"

	"github.com/yungbote/pianocrm-backend/internal/types"
)

func roleLabel(role string) string {
	switch role {
	case types.RoleCustomer:
		return "Client"
	case types.RoleAssistant:
		return "Assistant"
	case types.RoleOperator:
		return "Manager"
	default:
		return "Unknown"
	}
}

// renderTranscript formats a message window oldest-first for embedding in
// an LLM prompt.
func renderTranscript(window []*types.DialogueMessage) string {
	var b strings.Builder
	for _, m := range window {
		b.WriteString(roleLabel(m.Role))
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(m.Message))
		b.WriteString("\n")
	}
	return b.String()
}
