package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/pianocrm-backend/internal/platform/logger"
	"github.com/yungbote/pianocrm-backend/internal/platform/openai"
	"github.com/yungbote/pianocrm-backend/internal/types"
)

// Summarizer produces the updated narrative summary for a customer. The
// contract requires the result to preserve everything already in the
// existing summary; that contract is trusted, not enforced.
type Summarizer interface {
	Summarize(ctx context.Context, existingSummary string, window []*types.DialogueMessage) (string, error)
}

const summarizerSystemPrompt = `You maintain the dialogue summary for a customer of an online piano school.
You are given the current summary and the newest messages of the conversation.
Rewrite the summary so that it includes every piece of information from the
current summary plus everything new from the messages. Never drop facts that
are already in the summary. Reply with the summary text only, no preamble.`

type summarizerService struct {
	llm openai.Client
	log *logger.Logger
}

func NewSummarizerService(llm openai.Client, baseLog *logger.Logger) Summarizer {
	return &summarizerService{
		llm: llm,
		log: baseLog.With("service", "SummarizerService"),
	}
}

func (s *summarizerService) Summarize(ctx context.Context, existingSummary string, window []*types.DialogueMessage) (string, error) {
	existingSummary = strings.TrimSpace(existingSummary)
	if existingSummary == "" {
		existingSummary = "(no summary yet)"
	}

	user := fmt.Sprintf("Current summary:\n%s\n\nNew messages:\n%s", existingSummary, renderTranscript(window))

	out, err := s.llm.GenerateText(ctx, summarizerSystemPrompt, user)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
