package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/radiq/radiq-backend/internal/platform/apierr"
	"github.com/radiq/radiq-backend/internal/repos"
	"github.com/radiq/radiq-backend/internal/repos/testutil"
	"github.com/radiq/radiq-backend/internal/types"
)

// engineFixture wires the full service stack over one rolled-back
// transaction.
type engineFixture struct {
	tx          *gorm.DB
	invitations InvitationService
	sessions    SessionService
	vision      VisionService
	sampler     SamplerService
	taskGen     TaskGenService
	evaluations EvaluationService
}

func newEngineFixture(t *testing.T, seed int64) *engineFixture {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	studyRepo := repos.NewStudyRepo(tx, log)
	invitationRepo := repos.NewInvitationRepo(tx, log)
	profileRepo := repos.NewObserverProfileRepo(tx, log)
	sessionRepo := repos.NewSessionRepo(tx, log)
	resultRepo := repos.NewVisionTestResultRepo(tx, log)
	imageRepo := repos.NewImageRepo(tx, log)
	taskRepo := repos.NewPairwiseTaskRepo(tx, log)
	evaluationRepo := repos.NewPairwiseEvaluationRepo(tx, log)

	sampler := newTestSampler(t, seed)
	sampler.db = tx
	sampler.sessionRepo = sessionRepo
	sampler.imageRepo = imageRepo
	sampler.taskRepo = taskRepo

	return &engineFixture{
		tx:          tx,
		invitations: NewInvitationService(tx, log, invitationRepo, profileRepo, sessionRepo, studyRepo),
		sessions:    NewSessionService(tx, log, sessionRepo, studyRepo),
		vision:      NewVisionService(tx, log, DefaultGatePolicy(), sessionRepo, resultRepo),
		sampler:     sampler,
		taskGen:     NewTaskGenService(tx, log, studyRepo, imageRepo, taskRepo),
		evaluations: NewEvaluationService(tx, log, sessionRepo, taskRepo, evaluationRepo),
	}
}

func validObserver() ObserverInput {
	return ObserverInput{
		ExpertiseType:   types.ExpertiseRadiology,
		ConsentAccepted: true,
	}
}

func TestRedeemCreatesSessionAndConsumesUse(t *testing.T) {
	fx := newEngineFixture(t, 1)
	ctx := context.Background()

	study := testutil.SeedStudy(t, ctx, fx.tx, "redeem-ok")
	maxUses := 2
	invite := testutil.SeedInvitation(t, ctx, fx.tx, study.ID, &maxUses)

	result, err := fx.invitations.Redeem(ctx, invite.Token, validObserver())
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if result.StudyID != study.ID {
		t.Fatalf("study id: want=%s got=%s", study.ID, result.StudyID)
	}

	var session types.Session
	if err := fx.tx.WithContext(ctx).First(&session, "id = ?", result.SessionID).Error; err != nil {
		t.Fatalf("load session: %v", err)
	}
	if session.Status != types.SessionInProgress {
		t.Fatalf("session status: want=%q got=%q", types.SessionInProgress, session.Status)
	}
	if session.ObserverID == nil || *session.ObserverID != result.ObserverID {
		t.Fatalf("session observer: want=%s got=%v", result.ObserverID, session.ObserverID)
	}

	var reloaded types.StudyInvitation
	if err := fx.tx.WithContext(ctx).First(&reloaded, "id = ?", invite.ID).Error; err != nil {
		t.Fatalf("reload invitation: %v", err)
	}
	if reloaded.UsedCount != 1 {
		t.Fatalf("used count: want=1 got=%d", reloaded.UsedCount)
	}
}

func TestRedeemExhaustsAfterMaxUses(t *testing.T) {
	fx := newEngineFixture(t, 2)
	ctx := context.Background()

	study := testutil.SeedStudy(t, ctx, fx.tx, "redeem-exhaust")
	maxUses := 1
	invite := testutil.SeedInvitation(t, ctx, fx.tx, study.ID, &maxUses)

	if _, err := fx.invitations.Redeem(ctx, invite.Token, validObserver()); err != nil {
		t.Fatalf("first Redeem: %v", err)
	}
	_, err := fx.invitations.Redeem(ctx, invite.Token, validObserver())
	if !apierr.IsCode(err, apierr.CodeExhaustedUses) {
		t.Fatalf("second Redeem: want exhausted_uses, got %v", err)
	}

	// The failed attempt must not leave a stray session behind.
	var count int64
	if err := fx.tx.WithContext(ctx).Model(&types.Session{}).Where("study_id = ?", study.ID).Count(&count).Error; err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if count != 1 {
		t.Fatalf("session count: want=1 got=%d", count)
	}
}

func TestRedeemExpiredToken(t *testing.T) {
	fx := newEngineFixture(t, 3)
	ctx := context.Background()

	study := testutil.SeedStudy(t, ctx, fx.tx, "redeem-expired")
	past := time.Now().Add(-time.Hour)
	invite := &types.StudyInvitation{
		ID:        uuid.New(),
		Token:     "tok-" + uuid.NewString(),
		StudyID:   study.ID,
		ExpiresAt: &past,
	}
	if err := fx.tx.WithContext(ctx).Create(invite).Error; err != nil {
		t.Fatalf("seed invitation: %v", err)
	}

	_, err := fx.invitations.Redeem(ctx, invite.Token, validObserver())
	if !apierr.IsCode(err, apierr.CodeExpired) {
		t.Fatalf("want expired, got %v", err)
	}
}

func TestRedeemUnknownToken(t *testing.T) {
	fx := newEngineFixture(t, 4)

	_, err := fx.invitations.Redeem(context.Background(), "no-such-token", validObserver())
	if !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Fatalf("want not_found, got %v", err)
	}
}

func TestRecordEvaluationDuplicateIsConflict(t *testing.T) {
	fx := newEngineFixture(t, 5)
	ctx := context.Background()

	study := testutil.SeedStudy(t, ctx, fx.tx, "eval-dup")
	session := testutil.SeedSession(t, ctx, fx.tx, study.ID)
	left := testutil.SeedDICOMImage(t, ctx, fx.tx, study.ID, "1.2.3.1", 1)
	right := testutil.SeedDICOMImage(t, ctx, fx.tx, study.ID, "1.2.3.1", 2)
	task := testutil.SeedTask(t, ctx, fx.tx, study.ID, left.ID, right.ID)

	if _, err := fx.evaluations.Record(ctx, session.ID, task.ID, types.ChoiceLeftBetter, nil); err != nil {
		t.Fatalf("first Record: %v", err)
	}
	_, err := fx.evaluations.Record(ctx, session.ID, task.ID, types.ChoiceRightBetter, nil)
	if !apierr.IsCode(err, apierr.CodeConflict) {
		t.Fatalf("second Record: want conflict, got %v", err)
	}

	var count int64
	if err := fx.tx.WithContext(ctx).Model(&types.PairwiseEvaluation{}).
		Where("session_id = ? AND task_id = ?", session.ID, task.ID).Count(&count).Error; err != nil {
		t.Fatalf("count evaluations: %v", err)
	}
	if count != 1 {
		t.Fatalf("evaluation rows: want=1 got=%d", count)
	}
}

func TestRecordEvaluationValidation(t *testing.T) {
	fx := newEngineFixture(t, 6)
	ctx := context.Background()

	study := testutil.SeedStudy(t, ctx, fx.tx, "eval-validate")
	session := testutil.SeedSession(t, ctx, fx.tx, study.ID)
	left := testutil.SeedDICOMImage(t, ctx, fx.tx, study.ID, "1.2.3.1", 1)
	right := testutil.SeedDICOMImage(t, ctx, fx.tx, study.ID, "1.2.3.1", 2)
	task := testutil.SeedTask(t, ctx, fx.tx, study.ID, left.ID, right.ID)

	if _, err := fx.evaluations.Record(ctx, session.ID, task.ID, "MAYBE", nil); !apierr.IsCode(err, apierr.CodeInvalidInput) {
		t.Fatalf("bad choice: want invalid_input, got %v", err)
	}
	if _, err := fx.evaluations.Record(ctx, session.ID, uuid.New(), types.ChoiceEqual, nil); !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Fatalf("missing task: want not_found, got %v", err)
	}
	if _, err := fx.evaluations.Record(ctx, uuid.New(), task.ID, types.ChoiceEqual, nil); !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Fatalf("missing session: want not_found, got %v", err)
	}
}

func TestRegenerateSwapsTaskSetAtomically(t *testing.T) {
	fx := newEngineFixture(t, 7)
	ctx := context.Background()

	study := testutil.SeedStudy(t, ctx, fx.tx, "taskgen")
	testutil.SeedDICOMImage(t, ctx, fx.tx, study.ID, "1.2.3.1", 1)
	testutil.SeedDICOMImage(t, ctx, fx.tx, study.ID, "1.2.3.1", 2)
	testutil.SeedDICOMImage(t, ctx, fx.tx, study.ID, "1.2.3.1", 3)

	first, err := fx.taskGen.Regenerate(ctx, GenerateRequest{StudyID: study.ID, Strategy: StrategyAdjacent})
	if err != nil {
		t.Fatalf("Regenerate adjacent: %v", err)
	}
	if first.Created != 2 || first.Deleted != 0 {
		t.Fatalf("adjacent: want created=2 deleted=0, got created=%d deleted=%d", first.Created, first.Deleted)
	}

	second, err := fx.taskGen.Regenerate(ctx, GenerateRequest{StudyID: study.ID, Strategy: StrategyAllPairs})
	if err != nil {
		t.Fatalf("Regenerate all_pairs: %v", err)
	}
	if second.Created != 3 || second.Deleted != 2 {
		t.Fatalf("all_pairs: want created=3 deleted=2, got created=%d deleted=%d", second.Created, second.Deleted)
	}

	tasks, err := fx.taskGen.List(ctx, study.ID, 100)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("task count after swap: want=3 got=%d", len(tasks))
	}
}

func TestRegenerateRejectsBadInput(t *testing.T) {
	fx := newEngineFixture(t, 8)
	ctx := context.Background()

	study := testutil.SeedStudy(t, ctx, fx.tx, "taskgen-bad")
	testutil.SeedDICOMImage(t, ctx, fx.tx, study.ID, "1.2.3.1", 1)

	if _, err := fx.taskGen.Regenerate(ctx, GenerateRequest{StudyID: study.ID, Strategy: "spiral"}); !apierr.IsCode(err, apierr.CodeInvalidInput) {
		t.Fatalf("bad strategy: want invalid_input, got %v", err)
	}
	if _, err := fx.taskGen.Regenerate(ctx, GenerateRequest{StudyID: uuid.New()}); !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Fatalf("missing study: want not_found, got %v", err)
	}
	if _, err := fx.taskGen.Regenerate(ctx, GenerateRequest{StudyID: study.ID}); !apierr.IsCode(err, apierr.CodeInsufficientPool) {
		t.Fatalf("single image: want insufficient_pool, got %v", err)
	}
}

func TestQueueProgressesToDone(t *testing.T) {
	fx := newEngineFixture(t, 9)
	ctx := context.Background()

	study := testutil.SeedStudy(t, ctx, fx.tx, "queue")
	left := testutil.SeedDICOMImage(t, ctx, fx.tx, study.ID, "1.2.3.1", 1)
	mid := testutil.SeedDICOMImage(t, ctx, fx.tx, study.ID, "1.2.3.1", 2)
	right := testutil.SeedDICOMImage(t, ctx, fx.tx, study.ID, "1.2.3.1", 3)
	taskA := testutil.SeedTask(t, ctx, fx.tx, study.ID, left.ID, mid.ID)
	taskB := testutil.SeedTask(t, ctx, fx.tx, study.ID, mid.ID, right.ID)
	// Pin queue order: creation timestamps drawn in the same transaction can
	// collide at microsecond resolution.
	if err := fx.tx.WithContext(ctx).Model(&types.PairwiseTask{}).Where("id = ?", taskB.ID).
		UpdateColumn("created_at", taskA.CreatedAt.Add(time.Second)).Error; err != nil {
		t.Fatalf("pin task order: %v", err)
	}

	userID := uuid.New()
	session, err := fx.sessions.Start(ctx, study.ID, userID, nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	next, err := fx.sampler.NextFromQueue(ctx, study.ID, userID)
	if err != nil {
		t.Fatalf("NextFromQueue: %v", err)
	}
	if next.Done || next.Task == nil || next.Task.ID != taskA.ID {
		t.Fatalf("first next: want task %s, got %+v", taskA.ID, next)
	}
	if _, err := fx.evaluations.RecordForUser(ctx, userID, taskA.ID, types.ChoiceLeftBetter, nil); err != nil {
		t.Fatalf("answer first: %v", err)
	}

	next, err = fx.sampler.NextFromQueue(ctx, study.ID, userID)
	if err != nil {
		t.Fatalf("NextFromQueue: %v", err)
	}
	if next.Done || next.Task == nil || next.Task.ID != taskB.ID {
		t.Fatalf("second next: want task %s, got %+v", taskB.ID, next)
	}
	if _, err := fx.evaluations.RecordForUser(ctx, userID, taskB.ID, types.ChoiceEqual, nil); err != nil {
		t.Fatalf("answer second: %v", err)
	}

	next, err = fx.sampler.NextFromQueue(ctx, study.ID, userID)
	if err != nil {
		t.Fatalf("NextFromQueue: %v", err)
	}
	if !next.Done || next.Task != nil {
		t.Fatalf("want done, got %+v", next)
	}
	if next.SessionID != session.ID {
		t.Fatalf("done session id: want=%s got=%s", session.ID, next.SessionID)
	}
}

func TestQueueNextWithoutActiveSession(t *testing.T) {
	fx := newEngineFixture(t, 10)
	ctx := context.Background()

	study := testutil.SeedStudy(t, ctx, fx.tx, "queue-no-session")
	_, err := fx.sampler.NextFromQueue(ctx, study.ID, uuid.New())
	if !apierr.IsCode(err, apierr.CodeInvalidInput) {
		t.Fatalf("want invalid_input, got %v", err)
	}
}

func TestVisionFailDoesNotBlockSampling(t *testing.T) {
	fx := newEngineFixture(t, 11)
	ctx := context.Background()

	study := testutil.SeedStudy(t, ctx, fx.tx, "vision-advisory")
	session := testutil.SeedSession(t, ctx, fx.tx, study.ID)
	testutil.SeedDICOMImage(t, ctx, fx.tx, study.ID, "1.2.3.1", 1)
	testutil.SeedDICOMImage(t, ctx, fx.tx, study.ID, "1.2.3.1", 2)

	verdict, err := fx.vision.SubmitForSession(ctx, session.ID, VisionSubmission{
		IshiharaScore: 2,
		IshiharaTotal: 24,
		ContrastScore: 0.1,
	})
	if err != nil {
		t.Fatalf("SubmitForSession: %v", err)
	}
	if verdict.Status != types.VisionFail {
		t.Fatalf("verdict: want=%q got=%q", types.VisionFail, verdict.Status)
	}

	task, err := fx.sampler.NextForSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("NextForSession after FAIL: %v", err)
	}
	if task.Left.ID == task.Right.ID {
		t.Fatalf("pool task pairs an image with itself")
	}
	if task.Left.SeriesInstanceUID != task.Right.SeriesInstanceUID {
		t.Fatalf("pool task crosses series: %s vs %s", task.Left.SeriesInstanceUID, task.Right.SeriesInstanceUID)
	}
}

func TestSessionCompleteIsTerminal(t *testing.T) {
	fx := newEngineFixture(t, 12)
	ctx := context.Background()

	study := testutil.SeedStudy(t, ctx, fx.tx, "session-complete")
	userID := uuid.New()
	session, err := fx.sessions.Start(ctx, study.ID, userID, nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Starting again returns the same in-progress session.
	again, err := fx.sessions.Start(ctx, study.ID, userID, nil)
	if err != nil {
		t.Fatalf("Start again: %v", err)
	}
	if again.ID != session.ID {
		t.Fatalf("second start: want session %s, got %s", session.ID, again.ID)
	}

	if err := fx.sessions.Complete(ctx, session.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := fx.sessions.Complete(ctx, session.ID); !apierr.IsCode(err, apierr.CodeConflict) {
		t.Fatalf("second Complete: want conflict, got %v", err)
	}

	// A completed session is no longer "active"; a fresh one is created.
	fresh, err := fx.sessions.Start(ctx, study.ID, userID, nil)
	if err != nil {
		t.Fatalf("Start after complete: %v", err)
	}
	if fresh.ID == session.ID {
		t.Fatalf("expected a new session after completion")
	}
}

func TestPoolSamplingInsufficientPool(t *testing.T) {
	fx := newEngineFixture(t, 13)
	ctx := context.Background()

	study := testutil.SeedStudy(t, ctx, fx.tx, "pool-insufficient")
	session := testutil.SeedSession(t, ctx, fx.tx, study.ID)
	testutil.SeedDICOMImage(t, ctx, fx.tx, study.ID, "1.2.3.1", 1)
	testutil.SeedDICOMImage(t, ctx, fx.tx, study.ID, "1.2.3.2", 1)

	_, err := fx.sampler.NextForSession(ctx, session.ID)
	if !apierr.IsCode(err, apierr.CodeInsufficientPool) {
		t.Fatalf("want insufficient_pool, got %v", err)
	}
}
