package services_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/yungbote/pianocrm-backend/internal/funnel"
	"github.com/yungbote/pianocrm-backend/internal/profile"
	"github.com/yungbote/pianocrm-backend/internal/repos"
	"github.com/yungbote/pianocrm-backend/internal/repos/testutil"
	"github.com/yungbote/pianocrm-backend/internal/services"
	"github.com/yungbote/pianocrm-backend/internal/types"
)

type fakeSummarizer struct {
	summary string
	err     error
	calls   int
}

func (f *fakeSummarizer) Summarize(ctx context.Context, existing string, window []*types.DialogueMessage) (string, error) {
	f.calls++
	return f.summary, f.err
}

type fakeExtractor struct {
	facts profile.FactExtraction
	err   error
	calls int
}

func (f *fakeExtractor) Extract(ctx context.Context, window []*types.DialogueMessage) (profile.FactExtraction, error) {
	f.calls++
	return f.facts, f.err
}

func seedDialogue(tb testing.TB, repo repos.DialogueRepo, customerID int64, n int) {
	tb.Helper()
	start := time.Now().Add(-time.Hour).Truncate(time.Microsecond)
	msgs := make([]*types.DialogueMessage, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, &types.DialogueMessage{
			CustomerID: customerID,
			Role:       types.RoleCustomer,
			Message:    fmt.Sprintf("message %d", i),
			CreatedAt:  start.Add(time.Duration(i) * time.Second),
		})
	}
	if _, err := repo.Append(context.Background(), nil, msgs); err != nil {
		tb.Fatalf("seed dialogue: %v", err)
	}
}

func TestRequalifyFullCycle(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	profileRepo := repos.NewProfileRepo(db, log)
	dialogueRepo := repos.NewDialogueRepo(db, log)
	productRepo := repos.NewProductRepo(db, log)

	customerID := testutil.NewCustomerID()
	testutil.CleanupCustomer(t, db, customerID)

	_, err := profileRepo.Create(ctx, nil, []*types.CustomerProfile{{
		CustomerID:        customerID,
		QualificationTags: []string{types.TagWarm},
		FunnelStage:       funnel.StageOfferMade,
		Emails:            []string{"a@x.com"},
		DialogueSummary:   "old summary",
	}})
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if err := productRepo.Append(ctx, nil, customerID, []string{"Trial Lesson"}); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	seedDialogue(t, dialogueRepo, customerID, 12)

	summarizer := &fakeSummarizer{summary: "old summary plus everything discussed since"}
	extractor := &fakeExtractor{facts: profile.FactExtraction{
		LeadQualification: "hot",
		FunnelStage:       funnel.StageConsidering,
		Emails:            []string{"b@x.com"},
		PurchasedProducts: []string{"Trial Lesson", "Intro Course"},
		ClientActivity:    types.ActivityActive,
	}}

	svc := services.NewRequalifyService(db, log, profileRepo, dialogueRepo, productRepo, summarizer, extractor,
		services.CycleConfig{WindowSize: 10, KeepCount: 5, LLMTimeout: 10 * time.Second})

	result, err := svc.Run(ctx, customerID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Skipped {
		t.Fatal("cycle skipped with 12 stored messages")
	}
	if summarizer.calls != 1 || extractor.calls != 1 {
		t.Fatalf("llm calls=%d/%d, want 1/1", summarizer.calls, extractor.calls)
	}
	if result.WindowSize != 10 {
		t.Fatalf("window size=%d, want 10", result.WindowSize)
	}
	if result.FunnelStage != funnel.StageConsidering {
		t.Fatalf("stage=%q, want %q", result.FunnelStage, funnel.StageConsidering)
	}
	if want := []string{types.TagHot}; !reflect.DeepEqual(result.QualificationTags, want) {
		t.Fatalf("tags=%v, want %v", result.QualificationTags, want)
	}
	if want := []string{"Intro Course"}; !reflect.DeepEqual(result.NewProducts, want) {
		t.Fatalf("new products=%v, want %v", result.NewProducts, want)
	}
	if result.TrimmedRows != 7 {
		t.Fatalf("trimmed=%d, want 7 (12 stored, keep 5)", result.TrimmedRows)
	}

	stored, err := profileRepo.GetByCustomerID(ctx, nil, customerID)
	if err != nil || stored == nil {
		t.Fatalf("reload profile: %v %v", stored, err)
	}
	if stored.DialogueSummary != summarizer.summary {
		t.Fatalf("stored summary=%q, want %q", stored.DialogueSummary, summarizer.summary)
	}
	if want := []string{"a@x.com", "b@x.com"}; !reflect.DeepEqual([]string(stored.Emails), want) {
		t.Fatalf("stored emails=%v, want %v", stored.Emails, want)
	}
	if stored.ActivityFlag != types.ActivityActive {
		t.Fatalf("stored activity=%q, want %q", stored.ActivityFlag, types.ActivityActive)
	}
	if stored.LastUpdated.IsZero() {
		t.Fatal("last_updated not set")
	}

	names, err := productRepo.ListNames(ctx, nil, customerID)
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if want := []string{"Intro Course", "Trial Lesson"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("products=%v, want %v", names, want)
	}

	remaining, err := dialogueRepo.CountByCustomer(ctx, nil, customerID)
	if err != nil {
		t.Fatalf("count dialogue: %v", err)
	}
	if remaining != 5 {
		t.Fatalf("remaining messages=%d, want 5", remaining)
	}
}

func TestRequalifySkipsWithoutMessages(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	profileRepo := repos.NewProfileRepo(db, log)
	dialogueRepo := repos.NewDialogueRepo(db, log)
	productRepo := repos.NewProductRepo(db, log)

	customerID := testutil.NewCustomerID()
	testutil.CleanupCustomer(t, db, customerID)

	if _, err := profileRepo.Create(ctx, nil, []*types.CustomerProfile{{CustomerID: customerID}}); err != nil {
		t.Fatalf("create profile: %v", err)
	}

	summarizer := &fakeSummarizer{summary: "should not be called"}
	extractor := &fakeExtractor{}
	svc := services.NewRequalifyService(db, log, profileRepo, dialogueRepo, productRepo, summarizer, extractor, services.CycleConfig{})

	result, err := svc.Run(ctx, customerID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Skipped {
		t.Fatal("expected skipped cycle for empty dialogue")
	}
	if summarizer.calls != 0 || extractor.calls != 0 {
		t.Fatalf("llm calls=%d/%d, want 0/0", summarizer.calls, extractor.calls)
	}
}

func TestRequalifyUnknownCustomer(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)

	profileRepo := repos.NewProfileRepo(db, log)
	dialogueRepo := repos.NewDialogueRepo(db, log)
	productRepo := repos.NewProductRepo(db, log)

	svc := services.NewRequalifyService(db, log, profileRepo, dialogueRepo, productRepo,
		&fakeSummarizer{}, &fakeExtractor{}, services.CycleConfig{})

	_, err := svc.Run(context.Background(), testutil.NewCustomerID())
	var notFound *services.ProfileNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err=%v, want ProfileNotFoundError", err)
	}
}

func TestRequalifyExternalFailureLeavesStateUntouched(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	profileRepo := repos.NewProfileRepo(db, log)
	dialogueRepo := repos.NewDialogueRepo(db, log)
	productRepo := repos.NewProductRepo(db, log)

	customerID := testutil.NewCustomerID()
	testutil.CleanupCustomer(t, db, customerID)

	if _, err := profileRepo.Create(ctx, nil, []*types.CustomerProfile{{
		CustomerID:      customerID,
		DialogueSummary: "old summary",
	}}); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	seedDialogue(t, dialogueRepo, customerID, 3)

	svc := services.NewRequalifyService(db, log, profileRepo, dialogueRepo, productRepo,
		&fakeSummarizer{err: errors.New("model unavailable")}, &fakeExtractor{}, services.CycleConfig{})

	_, err := svc.Run(ctx, customerID)
	var external *services.ExternalServiceError
	if !errors.As(err, &external) {
		t.Fatalf("err=%v, want ExternalServiceError", err)
	}

	stored, err := profileRepo.GetByCustomerID(ctx, nil, customerID)
	if err != nil || stored == nil {
		t.Fatalf("reload profile: %v %v", stored, err)
	}
	if stored.DialogueSummary != "old summary" {
		t.Fatalf("summary changed on failed cycle: %q", stored.DialogueSummary)
	}
	count, err := dialogueRepo.CountByCustomer(ctx, nil, customerID)
	if err != nil {
		t.Fatalf("count dialogue: %v", err)
	}
	if count != 3 {
		t.Fatalf("messages=%d, want 3 untouched", count)
	}
}
