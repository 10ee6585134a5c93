package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyBusinesspace/MBP-sub007/internal/apperrors"
	"github.com/MyBusinesspace/MBP-sub007/internal/auth"
	"github.com/MyBusinesspace/MBP-sub007/internal/models"
)

var carla = auth.Actor{ID: "carla"}

func completedSession(t *testing.T, h *harness, actor auth.Actor, minutes int) *models.Session {
	t.Helper()
	ctx := context.Background()
	_, err := h.svc.ClockIn(ctx, actor, ClockInInput{AssignmentID: "X"})
	require.NoError(t, err)
	h.clock.Advance(time.Duration(minutes) * time.Minute)
	res, err := h.svc.ClockOut(ctx, actor, ClockOutInput{})
	require.NoError(t, err)
	return res.Session
}

func ptr(t time.Time) *time.Time { return &t }

func TestEditThenApprove(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := completedSession(t, h, carla, 60)

	h.clock.Advance(time.Hour)
	edited, err := h.svc.RequestEdit(ctx, carla, EditInput{
		SessionID: sess.ID,
		ClockIn:   ptr(t0.Add(-30 * time.Minute)),
		Notes:     "forgot to clock in at the gate",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingApproval, edited.Status)
	assert.True(t, edited.WasEdited)
	assert.False(t, edited.IsOpen)
	assert.True(t, edited.ClockInTime.Equal(t0.Add(-30*time.Minute)))
	assert.Equal(t, 90, edited.TotalDurationMinutes)
	require.NotNil(t, edited.OriginalClockInTime)
	assert.True(t, edited.OriginalClockInTime.Equal(t0))
	// segments are historical fact and stay as recorded
	assert.True(t, edited.Segments[0].StartTime.Equal(t0))
	assert.Equal(t, 60, edited.Segments[0].DurationMinutes)

	approved, err := h.svc.Approve(ctx, dana, ApprovalInput{SessionID: sess.ID, Notes: "confirmed"})
	require.NoError(t, err)

	got := h.reload(t, sess.ID)
	assert.Equal(t, approved.ID, got.ID)
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.Equal(t, "dana", got.ApproverID)
	assert.Equal(t, "confirmed", got.ApprovalNotes)
	require.NotNil(t, got.ApprovalTime)
	assert.True(t, got.ApprovalTime.Equal(t0.Add(2*time.Hour)))

	requireInvariants(t, h.store)
}

func TestRequestEditValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := completedSession(t, h, ana, 60)

	tests := []struct {
		name   string
		caller auth.Actor
		in     EditInput
		code   apperrors.Code
	}{
		{name: "nothing proposed", caller: ana, in: EditInput{SessionID: sess.ID, Notes: "  "}, code: apperrors.CodeInvalidRequest},
		{name: "missing id", caller: ana, in: EditInput{Notes: "x"}, code: apperrors.CodeInvalidRequest},
		{name: "unknown session", caller: ana, in: EditInput{SessionID: "nope", Notes: "x"}, code: apperrors.CodeNotFound},
		{name: "not the owner", caller: ben, in: EditInput{SessionID: sess.ID, Notes: "x"}, code: apperrors.CodeForbidden},
		{name: "privileged without policy", caller: dana, in: EditInput{SessionID: sess.ID, Notes: "x"}, code: apperrors.CodeForbidden},
		{name: "inverted bounds", caller: ana, in: EditInput{SessionID: sess.ID, ClockOut: ptr(t0.Add(-time.Minute))}, code: apperrors.CodeInvalidRequest},
		{name: "empty span", caller: ana, in: EditInput{SessionID: sess.ID, ClockIn: ptr(t0), ClockOut: ptr(t0)}, code: apperrors.CodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.RequestEdit(ctx, tt.caller, tt.in)
			requireCode(t, err, tt.code)
		})
	}

	got := h.reload(t, sess.ID)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.False(t, got.WasEdited)
}

func TestPrivilegedEditPolicy(t *testing.T) {
	h := newHarness(t, WithPolicy(Policy{StrictApproval: true, AllowPrivilegedEdit: true}))
	sess := completedSession(t, h, ana, 30)

	edited, err := h.svc.RequestEdit(context.Background(), dana, EditInput{SessionID: sess.ID, Notes: "badge reader was down"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingApproval, edited.Status)
	assert.Equal(t, "badge reader was down", edited.EditNotes)
	assert.Equal(t, 30, edited.TotalDurationMinutes)
}

func TestRequestEditOnOpenSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sess, err := h.svc.ClockIn(ctx, ana, ClockInInput{AssignmentID: "X"})
	require.NoError(t, err)
	h.clock.Advance(45 * time.Minute)

	edited, err := h.svc.RequestEdit(ctx, ana, EditInput{SessionID: sess.ID, Notes: "left early, phone died"})
	require.NoError(t, err)

	assert.False(t, edited.IsOpen)
	assert.Equal(t, models.StatusPendingApproval, edited.Status)
	require.NotNil(t, edited.ClockOutTime)
	assert.True(t, edited.ClockOutTime.Equal(t0.Add(45*time.Minute)))
	assert.Equal(t, 45, edited.TotalDurationMinutes)
	require.NotNil(t, edited.Segments[0].EndTime)
	assert.Equal(t, 45, edited.Segments[0].DurationMinutes)
	assert.Nil(t, edited.OriginalClockOutTime)

	// the actor is free to clock in again
	_, err = h.svc.ClockIn(ctx, ana, ClockInInput{AssignmentID: "Y"})
	require.NoError(t, err)

	requireInvariants(t, h.store)
}

func TestRepeatedEditKeepsFirstOriginals(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := completedSession(t, h, ana, 60)

	_, err := h.svc.RequestEdit(ctx, ana, EditInput{SessionID: sess.ID, ClockOut: ptr(t0.Add(70 * time.Minute))})
	require.NoError(t, err)
	second, err := h.svc.RequestEdit(ctx, ana, EditInput{SessionID: sess.ID, ClockOut: ptr(t0.Add(80 * time.Minute))})
	require.NoError(t, err)

	assert.True(t, second.OriginalClockOutTime.Equal(t0.Add(60*time.Minute)))
	assert.True(t, second.ClockOutTime.Equal(t0.Add(80*time.Minute)))
	assert.Equal(t, 80, second.TotalDurationMinutes)
}

func TestRejectRequiresNotes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := completedSession(t, h, ana, 60)
	_, err := h.svc.RequestEdit(ctx, ana, EditInput{SessionID: sess.ID, Notes: "please fix"})
	require.NoError(t, err)

	_, err = h.svc.Reject(ctx, dana, ApprovalInput{SessionID: sess.ID, Notes: " "})
	requireCode(t, err, apperrors.CodeMissingReason)
	assert.Equal(t, apperrors.ClassInvalidRequest, apperrors.CodeOf(err).Class())

	got := h.reload(t, sess.ID)
	assert.Equal(t, models.StatusPendingApproval, got.Status)
	assert.Empty(t, got.ApproverID)

	rejected, err := h.svc.Reject(ctx, dana, ApprovalInput{SessionID: sess.ID, Notes: "no evidence"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	assert.Equal(t, "no evidence", rejected.ApprovalNotes)

	requireInvariants(t, h.store)
}

func TestApprovalRequiresPrivilege(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := completedSession(t, h, ana, 60)
	_, err := h.svc.RequestEdit(ctx, ana, EditInput{SessionID: sess.ID, Notes: "x"})
	require.NoError(t, err)

	_, err = h.svc.Approve(ctx, ana, ApprovalInput{SessionID: sess.ID})
	requireCode(t, err, apperrors.CodeForbidden)
	_, err = h.svc.Reject(ctx, ben, ApprovalInput{SessionID: sess.ID, Notes: "no"})
	requireCode(t, err, apperrors.CodeForbidden)
	_, err = h.svc.Approve(ctx, dana, ApprovalInput{SessionID: "missing"})
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestStrictApprovalGuard(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := completedSession(t, h, ana, 60)

	_, err := h.svc.Approve(ctx, dana, ApprovalInput{SessionID: sess.ID})
	requireCode(t, err, apperrors.CodeInvalidTransition)
	assert.Equal(t, apperrors.ClassConflict, apperrors.CodeOf(err).Class())

	_, err = h.svc.RequestEdit(ctx, ana, EditInput{SessionID: sess.ID, Notes: "x"})
	require.NoError(t, err)
	_, err = h.svc.Approve(ctx, dana, ApprovalInput{SessionID: sess.ID})
	require.NoError(t, err)

	// approved sessions are final
	_, err = h.svc.Reject(ctx, dana, ApprovalInput{SessionID: sess.ID, Notes: "changed my mind"})
	requireCode(t, err, apperrors.CodeInvalidTransition)
	_, err = h.svc.RequestEdit(ctx, ana, EditInput{SessionID: sess.ID, Notes: "again"})
	requireCode(t, err, apperrors.CodeInvalidTransition)
}

func TestPermissiveApproval(t *testing.T) {
	h := newHarness(t, WithPolicy(Policy{StrictApproval: false}))
	sess := completedSession(t, h, ana, 60)

	got, err := h.svc.Approve(context.Background(), dana, ApprovalInput{SessionID: sess.ID})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.Equal(t, "dana", got.ApproverID)
}

func TestResubmitAfterRejection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := completedSession(t, h, ana, 60)

	_, err := h.svc.RequestEdit(ctx, ana, EditInput{SessionID: sess.ID, Notes: "x"})
	require.NoError(t, err)
	_, err = h.svc.Reject(ctx, dana, ApprovalInput{SessionID: sess.ID, Notes: "attach proof"})
	require.NoError(t, err)

	again, err := h.svc.RequestEdit(ctx, ana, EditInput{SessionID: sess.ID, Notes: "proof attached"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingApproval, again.Status)
	assert.Empty(t, again.ApproverID)
	assert.Nil(t, again.ApprovalTime)
	requireInvariants(t, h.store)
}

func TestConcurrentModificationCarriesFreshRecord(t *testing.T) {
	h := newHarness(t)
	sess := completedSession(t, h, ana, 60)

	stale := newHarnessWithStore(t, staleStore{h.store})
	_, err := stale.svc.RequestEdit(context.Background(), ana, EditInput{SessionID: sess.ID, Notes: "x"})
	requireCode(t, err, apperrors.CodeConcurrentModification)

	rec, ok := apperrors.RecordOf(err).(*models.Session)
	require.True(t, ok)
	assert.Equal(t, sess.ID, rec.ID)
	assert.Equal(t, models.StatusCompleted, rec.Status)
}

func TestConcurrentModificationWithoutReload(t *testing.T) {
	h := newHarness(t)
	sess := completedSession(t, h, ana, 60)

	lost := newHarnessWithStore(t, &vanishingStore{SessionStore: h.store})
	_, err := lost.svc.RequestEdit(context.Background(), ana, EditInput{SessionID: sess.ID, Notes: "x"})
	requireCode(t, err, apperrors.CodeConcurrentModification)
	assert.Nil(t, apperrors.RecordOf(err))
}

func TestNotesOnlyEditOnZeroLengthSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := completedSession(t, h, carla, 0)
	require.Equal(t, 0, sess.TotalDurationMinutes)

	edited, err := h.svc.RequestEdit(ctx, carla, EditInput{SessionID: sess.ID, Notes: "please review"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingApproval, edited.Status)
	assert.Equal(t, "please review", edited.EditNotes)
	assert.Equal(t, 0, edited.TotalDurationMinutes)
	assert.True(t, edited.ClockInTime.Equal(*edited.ClockOutTime))

	requireInvariants(t, h.store)
}

func TestStaleWriteIsRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sess, err := h.svc.ClockIn(ctx, ana, ClockInInput{AssignmentID: "X"})
	require.NoError(t, err)

	// a reader loads the session, then someone else writes it
	loaded := h.reload(t, sess.ID)
	h.clock.Advance(10 * time.Minute)
	_, err = h.svc.SwitchAssignment(ctx, ana, SwitchInput{AssignmentID: "Y"})
	require.NoError(t, err)

	loaded.Status = models.StatusCompleted
	err = h.store.Update(ctx, loaded)
	require.Error(t, err)
	got := h.reload(t, sess.ID)
	assert.Len(t, got.Segments, 2)
}
