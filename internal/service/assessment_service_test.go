package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/assesshub/assesshub-backend/internal/model"
)

// fakeTestStore serves a single test and its linked questions.
type fakeTestStore struct {
	test      *model.Test
	questions []model.TestQuestion
}

func (f *fakeTestStore) GetBySlug(_ context.Context, slug string) (*model.Test, error) {
	if f.test == nil || f.test.Slug != slug {
		return nil, pgx.ErrNoRows
	}
	cp := *f.test
	return &cp, nil
}

func (f *fakeTestStore) ListQuestions(_ context.Context, testID uuid.UUID) ([]model.TestQuestion, error) {
	if f.test == nil || f.test.ID != testID {
		return nil, nil
	}
	return f.questions, nil
}

// fakeAssessmentStore keeps assessments and answers in memory and mirrors the
// conditional-transition contract of the real repository: terminal flips only
// succeed from STARTED.
type fakeAssessmentStore struct {
	assessments map[uuid.UUID]*model.Assessment
	answers     map[uuid.UUID]map[uuid.UUID][]string
	abandonCall int
}

func newFakeAssessmentStore() *fakeAssessmentStore {
	return &fakeAssessmentStore{
		assessments: make(map[uuid.UUID]*model.Assessment),
		answers:     make(map[uuid.UUID]map[uuid.UUID][]string),
	}
}

func (f *fakeAssessmentStore) Create(_ context.Context, a *model.Assessment) error {
	a.ID = uuid.New()
	if a.StartedAt.IsZero() {
		a.StartedAt = time.Now()
	}
	cp := *a
	f.assessments[a.ID] = &cp
	return nil
}

func (f *fakeAssessmentStore) GetByID(_ context.Context, id uuid.UUID) (*model.Assessment, error) {
	a, ok := f.assessments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAssessmentStore) UpsertAnswer(_ context.Context, assessmentID, questionID uuid.UUID, selected []string) (bool, error) {
	if a, ok := f.assessments[assessmentID]; !ok || a.Status != model.AssessmentStatusStarted {
		return false, nil
	}
	m, ok := f.answers[assessmentID]
	if !ok {
		m = make(map[uuid.UUID][]string)
		f.answers[assessmentID] = m
	}
	m[questionID] = append([]string(nil), selected...)
	return true, nil
}

func (f *fakeAssessmentStore) CountAnswers(_ context.Context, assessmentID uuid.UUID) (int, error) {
	return len(f.answers[assessmentID]), nil
}

func (f *fakeAssessmentStore) ListAnswers(_ context.Context, assessmentID uuid.UUID) ([]model.AssessmentAnswer, error) {
	var out []model.AssessmentAnswer
	for qid, sel := range f.answers[assessmentID] {
		out = append(out, model.AssessmentAnswer{
			AssessmentID:      assessmentID,
			QuestionID:        qid,
			SelectedOptionIDs: sel,
		})
	}
	return out, nil
}

func (f *fakeAssessmentStore) Abandon(_ context.Context, id uuid.UUID) (bool, error) {
	f.abandonCall++
	a, ok := f.assessments[id]
	if !ok || a.Status != model.AssessmentStatusStarted {
		return false, nil
	}
	now := time.Now()
	a.Status = model.AssessmentStatusAbandoned
	a.CompletedAt = &now
	return true, nil
}

func (f *fakeAssessmentStore) Finalize(_ context.Context, id uuid.UUID, _ map[uuid.UUID]bool, score float64) (time.Time, bool, error) {
	a, ok := f.assessments[id]
	if !ok || a.Status != model.AssessmentStatusStarted {
		return time.Time{}, false, nil
	}
	now := time.Now()
	a.Status = model.AssessmentStatusCompleted
	a.CompletedAt = &now
	a.ScorePercentage = &score
	return now, true, nil
}

// fakeNotifier records completion events.
type fakeNotifier struct {
	events []CompletionEvent
}

func (f *fakeNotifier) NotifyCompletion(_ context.Context, _ uuid.UUID, event CompletionEvent) {
	f.events = append(f.events, event)
}

func singleQuestion(correctKey string, weight int, keys ...string) model.TestQuestion {
	opts := model.OptionMap{}
	for _, k := range keys {
		opts[k] = model.Option{Text: "option " + k, IsCorrect: k == correctKey}
	}
	return model.TestQuestion{
		Question: model.Question{
			ID:           uuid.New(),
			QuestionText: "pick one",
			QuestionType: model.QuestionTypeSingle,
			Options:      opts,
		},
		Weight: weight,
	}
}

func multipleQuestion(correctKeys []string, weight int, keys ...string) model.TestQuestion {
	correct := make(map[string]bool, len(correctKeys))
	for _, k := range correctKeys {
		correct[k] = true
	}
	opts := model.OptionMap{}
	for _, k := range keys {
		opts[k] = model.Option{Text: "option " + k, IsCorrect: correct[k]}
	}
	return model.TestQuestion{
		Question: model.Question{
			ID:           uuid.New(),
			QuestionText: "pick all that apply",
			QuestionType: model.QuestionTypeMultiple,
			Options:      opts,
		},
		Weight: weight,
	}
}

func newTestService(tests *fakeTestStore, store AssessmentStore, notifier CompletionNotifier, timeout time.Duration) *AssessmentService {
	return NewAssessmentService(tests, store, notifier, timeout, zerolog.Nop())
}

func enabledTest(slug string) *model.Test {
	return &model.Test{
		ID:      uuid.New(),
		Title:   "Sample Test",
		Slug:    slug,
		Enabled: true,
	}
}

func TestStartStripsAnswers(t *testing.T) {
	q1 := singleQuestion("b", 1, "a", "b", "c")
	q2 := multipleQuestion([]string{"a", "c"}, 2, "a", "b", "c")
	tests := &fakeTestStore{test: enabledTest("go-basics"), questions: []model.TestQuestion{q1, q2}}
	store := newFakeAssessmentStore()
	svc := newTestService(tests, store, nil, time.Hour)

	result, err := svc.Start(context.Background(), "go-basics", "Ada")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if result.AssessmentID == uuid.Nil {
		t.Fatal("expected assessment id to be assigned")
	}
	if result.Test.QuestionCount != 2 {
		t.Errorf("QuestionCount = %d, want 2", result.Test.QuestionCount)
	}
	if len(result.Questions) != 2 {
		t.Fatalf("got %d snapshot questions, want 2", len(result.Questions))
	}
	for i, q := range result.Questions {
		if q.Number != i+1 {
			t.Errorf("question %d has display number %d", i, q.Number)
		}
		for key, opt := range q.Options {
			if opt.Text == "" {
				t.Errorf("option %s lost its text", key)
			}
		}
	}
	// The snapshot type has no correctness fields at all; verify weights rode
	// along so the client can show them.
	if result.Questions[1].Weight != 2 {
		t.Errorf("weight = %d, want 2", result.Questions[1].Weight)
	}
}

func TestStartUnknownSlug(t *testing.T) {
	svc := newTestService(&fakeTestStore{}, newFakeAssessmentStore(), nil, time.Hour)
	if _, err := svc.Start(context.Background(), "missing", "Ada"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStartDisabledOrArchivedTest(t *testing.T) {
	disabled := enabledTest("disabled")
	disabled.Enabled = false
	archived := enabledTest("archived")
	archived.Archived = true

	for _, tc := range []struct {
		name string
		test *model.Test
	}{
		{"disabled", disabled},
		{"archived", archived},
	} {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(&fakeTestStore{test: tc.test}, newFakeAssessmentStore(), nil, time.Hour)
			if _, err := svc.Start(context.Background(), tc.test.Slug, "Ada"); !errors.Is(err, ErrTestDisabled) {
				t.Errorf("err = %v, want ErrTestDisabled", err)
			}
		})
	}
}

func TestRecordAnswerProgressAndOverwrite(t *testing.T) {
	q1 := singleQuestion("a", 1, "a", "b")
	q2 := singleQuestion("b", 1, "a", "b")
	tests := &fakeTestStore{test: enabledTest("quiz"), questions: []model.TestQuestion{q1, q2}}
	store := newFakeAssessmentStore()
	svc := newTestService(tests, store, nil, time.Hour)

	started, err := svc.Start(context.Background(), "quiz", "Ada")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	progress, err := svc.RecordAnswer(context.Background(), started.AssessmentID, q1.ID, []string{"b"})
	if err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if progress.AnsweredCount != 1 || progress.TotalCount != 2 {
		t.Errorf("progress = %d/%d, want 1/2", progress.AnsweredCount, progress.TotalCount)
	}

	// Re-answering the same question overwrites, it does not add.
	progress, err = svc.RecordAnswer(context.Background(), started.AssessmentID, q1.ID, []string{"a"})
	if err != nil {
		t.Fatalf("RecordAnswer overwrite: %v", err)
	}
	if progress.AnsweredCount != 1 {
		t.Errorf("answered count after overwrite = %d, want 1", progress.AnsweredCount)
	}
	if got := store.answers[started.AssessmentID][q1.ID]; len(got) != 1 || got[0] != "a" {
		t.Errorf("stored selection = %v, want [a]", got)
	}
}

func TestRecordAnswerRejectsBadInput(t *testing.T) {
	q := singleQuestion("a", 1, "a", "b")
	tests := &fakeTestStore{test: enabledTest("quiz"), questions: []model.TestQuestion{q}}
	store := newFakeAssessmentStore()
	svc := newTestService(tests, store, nil, time.Hour)

	started, err := svc.Start(context.Background(), "quiz", "Ada")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := svc.RecordAnswer(context.Background(), started.AssessmentID, uuid.New(), []string{"a"}); !errors.Is(err, ErrQuestionNotInTest) {
		t.Errorf("unknown question: err = %v, want ErrQuestionNotInTest", err)
	}
	if _, err := svc.RecordAnswer(context.Background(), started.AssessmentID, q.ID, []string{"z"}); !errors.Is(err, ErrUnknownOptionKey) {
		t.Errorf("unknown option: err = %v, want ErrUnknownOptionKey", err)
	}
	// Rejected answers must not count toward progress.
	if n := len(store.answers[started.AssessmentID]); n != 0 {
		t.Errorf("stored %d answers after rejections, want 0", n)
	}
}

func TestSubmitWeightedScore(t *testing.T) {
	// Weights 1, 2, 2: only the weight-1 question correct gives 20%.
	q1 := singleQuestion("a", 1, "a", "b")
	q2 := singleQuestion("a", 2, "a", "b")
	q3 := multipleQuestion([]string{"a", "b"}, 2, "a", "b", "c")
	tests := &fakeTestStore{test: enabledTest("quiz"), questions: []model.TestQuestion{q1, q2, q3}}
	store := newFakeAssessmentStore()
	notifier := &fakeNotifier{}
	svc := newTestService(tests, store, notifier, time.Hour)

	started, err := svc.Start(context.Background(), "quiz", "Ada")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustRecord := func(qid uuid.UUID, sel []string) {
		t.Helper()
		if _, err := svc.RecordAnswer(context.Background(), started.AssessmentID, qid, sel); err != nil {
			t.Fatalf("RecordAnswer: %v", err)
		}
	}
	mustRecord(q1.ID, []string{"a"})
	mustRecord(q2.ID, []string{"b"})
	// q3 left unanswered; it counts as wrong.

	result, err := svc.Submit(context.Background(), started.AssessmentID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.ScorePercentage != 20 {
		t.Errorf("score = %v, want 20", result.ScorePercentage)
	}
	if result.TotalQuestions != 3 {
		t.Errorf("total questions = %d, want 3", result.TotalQuestions)
	}
	if len(notifier.events) != 1 {
		t.Fatalf("got %d completion events, want 1", len(notifier.events))
	}
	if notifier.events[0].ScorePercentage != 20 || notifier.events[0].CandidateName != "Ada" {
		t.Errorf("unexpected completion event: %+v", notifier.events[0])
	}
}

func TestSubmitPerfectScore(t *testing.T) {
	q1 := singleQuestion("a", 1, "a", "b")
	q2 := multipleQuestion([]string{"a", "c"}, 2, "a", "b", "c")
	tests := &fakeTestStore{test: enabledTest("quiz"), questions: []model.TestQuestion{q1, q2}}
	store := newFakeAssessmentStore()
	svc := newTestService(tests, store, nil, time.Hour)

	started, err := svc.Start(context.Background(), "quiz", "Ada")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.RecordAnswer(context.Background(), started.AssessmentID, q1.ID, []string{"a"}); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	// Selection order must not matter for MULTIPLE.
	if _, err := svc.RecordAnswer(context.Background(), started.AssessmentID, q2.ID, []string{"c", "a"}); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}

	result, err := svc.Submit(context.Background(), started.AssessmentID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.ScorePercentage != 100 {
		t.Errorf("score = %v, want 100", result.ScorePercentage)
	}
}

func TestSubmitEmptyTestScoresZero(t *testing.T) {
	tests := &fakeTestStore{test: enabledTest("empty")}
	store := newFakeAssessmentStore()
	svc := newTestService(tests, store, nil, time.Hour)

	started, err := svc.Start(context.Background(), "empty", "Ada")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	result, err := svc.Submit(context.Background(), started.AssessmentID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.ScorePercentage != 0 {
		t.Errorf("score = %v, want 0", result.ScorePercentage)
	}
}

func TestSubmitTwiceRejectsSecond(t *testing.T) {
	q := singleQuestion("a", 1, "a", "b")
	tests := &fakeTestStore{test: enabledTest("quiz"), questions: []model.TestQuestion{q}}
	store := newFakeAssessmentStore()
	svc := newTestService(tests, store, nil, time.Hour)

	started, err := svc.Start(context.Background(), "quiz", "Ada")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.Submit(context.Background(), started.AssessmentID); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if _, err := svc.Submit(context.Background(), started.AssessmentID); !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("second submit: err = %v, want ErrAlreadyCompleted", err)
	}
	// The stored score must not have changed.
	a, _ := store.GetByID(context.Background(), started.AssessmentID)
	if a.Status != model.AssessmentStatusCompleted {
		t.Errorf("status = %s, want COMPLETED", a.Status)
	}
}

func TestSubmitLostRaceReportsWinner(t *testing.T) {
	q := singleQuestion("a", 1, "a", "b")
	tests := &fakeTestStore{test: enabledTest("quiz"), questions: []model.TestQuestion{q}}
	store := newFakeAssessmentStore()
	raceSvc := newTestService(tests, &raceStore{fakeAssessmentStore: store}, nil, time.Hour)

	started, err := raceSvc.Start(context.Background(), "quiz", "Ada")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := raceSvc.Submit(context.Background(), started.AssessmentID); !errors.Is(err, ErrAbandoned) {
		t.Errorf("err = %v, want ErrAbandoned", err)
	}
	a, _ := store.GetByID(context.Background(), started.AssessmentID)
	if a.ScorePercentage != nil {
		t.Errorf("lost race must not record a score, got %v", *a.ScorePercentage)
	}
}

// raceStore flips the assessment to ABANDONED right before Finalize,
// modelling the expiry sweep winning the terminal transition between the
// liveness check and the conditional update.
type raceStore struct {
	*fakeAssessmentStore
}

func (r *raceStore) Finalize(ctx context.Context, id uuid.UUID, verdicts map[uuid.UUID]bool, score float64) (time.Time, bool, error) {
	if a, ok := r.assessments[id]; ok && a.Status == model.AssessmentStatusStarted {
		a.Status = model.AssessmentStatusAbandoned
	}
	return r.fakeAssessmentStore.Finalize(ctx, id, verdicts, score)
}

// answerRaceStore flips the assessment to ABANDONED right before the answer
// upsert, modelling the sweep winning between RecordAnswer's liveness check
// and the guarded write.
type answerRaceStore struct {
	*fakeAssessmentStore
}

func (r *answerRaceStore) UpsertAnswer(ctx context.Context, assessmentID, questionID uuid.UUID, selected []string) (bool, error) {
	if a, ok := r.assessments[assessmentID]; ok && a.Status == model.AssessmentStatusStarted {
		a.Status = model.AssessmentStatusAbandoned
	}
	return r.fakeAssessmentStore.UpsertAnswer(ctx, assessmentID, questionID, selected)
}

func TestRecordAnswerLostRaceLeavesNoAnswer(t *testing.T) {
	q := singleQuestion("a", 1, "a", "b")
	tests := &fakeTestStore{test: enabledTest("quiz"), questions: []model.TestQuestion{q}}
	store := newFakeAssessmentStore()
	svc := newTestService(tests, &answerRaceStore{fakeAssessmentStore: store}, nil, time.Hour)

	started, err := svc.Start(context.Background(), "quiz", "Ada")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := svc.RecordAnswer(context.Background(), started.AssessmentID, q.ID, []string{"a"}); !errors.Is(err, ErrAbandoned) {
		t.Errorf("err = %v, want ErrAbandoned", err)
	}
	if got := len(store.answers[started.AssessmentID]); got != 0 {
		t.Errorf("answers stored after lost race = %d, want 0", got)
	}
}

func TestExpiredAssessmentAbandonedOnTouch(t *testing.T) {
	q := singleQuestion("a", 1, "a", "b")
	tests := &fakeTestStore{test: enabledTest("quiz"), questions: []model.TestQuestion{q}}
	store := newFakeAssessmentStore()
	svc := newTestService(tests, store, nil, 30*time.Minute)

	started, err := svc.Start(context.Background(), "quiz", "Ada")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Advance the service clock past the timeout.
	svc.now = func() time.Time { return time.Now().Add(31 * time.Minute) }

	if _, err := svc.RecordAnswer(context.Background(), started.AssessmentID, q.ID, []string{"a"}); !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
	if store.abandonCall == 0 {
		t.Error("expected the expired row to be abandoned on touch")
	}
	a, _ := store.GetByID(context.Background(), started.AssessmentID)
	if a.Status != model.AssessmentStatusAbandoned {
		t.Errorf("status = %s, want ABANDONED", a.Status)
	}

	// Further touches converge on the same answer.
	if _, err := svc.Submit(context.Background(), started.AssessmentID); !errors.Is(err, ErrAbandoned) {
		t.Errorf("submit after expiry: err = %v, want ErrAbandoned", err)
	}
}

func TestVerify(t *testing.T) {
	q := singleQuestion("a", 1, "a", "b")
	tests := &fakeTestStore{test: enabledTest("quiz"), questions: []model.TestQuestion{q}}
	store := newFakeAssessmentStore()
	svc := newTestService(tests, store, nil, time.Hour)

	started, err := svc.Start(context.Background(), "quiz", "Ada")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	result, err := svc.Verify(context.Background(), started.AssessmentID)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !result.Valid || result.Status != model.AssessmentStatusStarted {
		t.Errorf("result = %+v, want valid STARTED", result)
	}

	if _, err := svc.Verify(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id: err = %v, want ErrNotFound", err)
	}

	if _, err := svc.Submit(context.Background(), started.AssessmentID); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := svc.Verify(context.Background(), started.AssessmentID); !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("completed: err = %v, want ErrAlreadyCompleted", err)
	}
}
