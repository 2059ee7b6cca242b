package services

import (
	"context"
	"fmt"

	"github.com/yungbote/pianocrm-backend/internal/platform/logger"
	"github.com/yungbote/pianocrm-backend/internal/platform/openai"
	"github.com/yungbote/pianocrm-backend/internal/profile"
	"github.com/yungbote/pianocrm-backend/internal/types"
)

// FactExtractor mines structured profile updates from a message window.
type FactExtractor interface {
	Extract(ctx context.Context, window []*types.DialogueMessage) (profile.FactExtraction, error)
}

const extractorSystemPrompt = `You analyze a fragment of a sales dialogue between an online piano school
and a potential student. Extract facts about the client and reply with one
JSON object only, using exactly these keys:

{
  "client_level": ["playing level mentioned, e.g. beginner"],
  "learning_goals": ["goals the client states"],
  "purchased_products": ["course or product names the client has bought"],
  "client_pains": ["difficulties or objections the client voices"],
  "email": ["email addresses mentioned"],
  "lead_qualification": "cold | warm | hot | customer | не определено",
  "funnel_stage": "not-applicable | offer-not-yet-made | offer-made | new-offer-made | client-considering | purchase-declined | payment-pending | purchase-completed",
  "client_activity": "active | passive"
}

Omit list entries you are not sure about; use empty lists when nothing
applies. Do not invent purchases.`

type factExtractorService struct {
	llm openai.Client
	log *logger.Logger
}

func NewFactExtractorService(llm openai.Client, baseLog *logger.Logger) FactExtractor {
	return &factExtractorService{
		llm: llm,
		log: baseLog.With("service", "FactExtractorService"),
	}
}

func (s *factExtractorService) Extract(ctx context.Context, window []*types.DialogueMessage) (profile.FactExtraction, error) {
	user := fmt.Sprintf("Dialogue fragment:\n%s", renderTranscript(window))

	out, err := s.llm.GenerateText(ctx, extractorSystemPrompt, user)
	if err != nil {
		return profile.FactExtraction{}, err
	}

	facts, err := profile.ParseFactExtraction(out)
	if err != nil {
		return profile.FactExtraction{}, err
	}
	return facts, nil
}
