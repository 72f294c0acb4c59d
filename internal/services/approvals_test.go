package services_test

import (
	"testing"

	"github.com/localnerve/actudb/internal/models"
	"github.com/localnerve/actudb/internal/services"
	"github.com/localnerve/actudb/internal/types"
	"gorm.io/gorm"
)

func setupApprovalTest(t *testing.T) (*gorm.DB, *services.VersioningService, *services.ApprovalService, *services.VersionMeta) {
	db := setupTestDB(t)
	tableID := seedMortalityTable(t, db)
	versioning := newVersioning(db)
	approvals := services.NewApprovalService(db, testConfig(), versioning)

	meta, err := versioning.CreateVersion(testActor(models.RoleAnalyst), tableID, "Snapshot under review")
	if err != nil {
		t.Fatalf("Failed to create version: %v", err)
	}
	return db, versioning, approvals, meta
}

// TestSubmitApproveFlow walks the happy path to approval
func TestSubmitApproveFlow(t *testing.T) {
	_, _, approvals, meta := setupApprovalTest(t)
	analyst := testActor(models.RoleAnalyst)
	admin := testActor(models.RoleAdmin)

	submitted, err := approvals.Submit(analyst, meta.ID, "")
	if err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}
	if submitted.Status != models.StatusSubmitted {
		t.Errorf("Expected submitted status, got %s", submitted.Status)
	}

	approved, err := approvals.Approve(admin, meta.ID, "Looks correct")
	if err != nil {
		t.Fatalf("Failed to approve: %v", err)
	}
	if approved.Status != models.StatusApproved {
		t.Errorf("Expected approved status, got %s", approved.Status)
	}

	history, err := approvals.GetHistory(analyst, meta.ID)
	if err != nil {
		t.Fatalf("Failed to get history: %v", err)
	}
	// creation, submit, approve
	if len(history) != 3 {
		t.Fatalf("Expected 3 history entries, got %d", len(history))
	}
	if history[0].FromStatus != nil {
		t.Error("Expected creation entry to have null from_status")
	}
	if history[0].ToStatus != models.StatusDraft {
		t.Errorf("Expected creation entry to_status draft, got %s", history[0].ToStatus)
	}
	if history[2].ToStatus != models.StatusApproved {
		t.Errorf("Expected final entry to_status approved, got %s", history[2].ToStatus)
	}
	if history[2].Comment == nil || *history[2].Comment != "Looks correct" {
		t.Errorf("Expected approval comment in history, got %v", history[2].Comment)
	}
}

// TestRejectRequiresComment verifies the rejection comment rules
func TestRejectRequiresComment(t *testing.T) {
	_, _, approvals, meta := setupApprovalTest(t)
	analyst := testActor(models.RoleAnalyst)
	admin := testActor(models.RoleAdmin)

	if _, err := approvals.Submit(analyst, meta.ID, ""); err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}

	// Too short
	if _, err := approvals.Reject(admin, meta.ID, "bad"); types.KindOf(err) != types.ErrValidation {
		t.Errorf("Expected validation error for short comment, got %v", err)
	}

	rejected, err := approvals.Reject(admin, meta.ID, "qx values look wrong for ages above 60")
	if err != nil {
		t.Fatalf("Failed to reject: %v", err)
	}
	if rejected.Status != models.StatusRejected {
		t.Errorf("Expected rejected status, got %s", rejected.Status)
	}

	// Resubmit also requires a substantive comment
	if _, err := approvals.Resubmit(analyst, meta.ID, "fixed"); types.KindOf(err) != types.ErrValidation {
		t.Errorf("Expected validation error for short resubmit comment, got %v", err)
	}
	resubmitted, err := approvals.Resubmit(analyst, meta.ID, "Corrected qx values for ages above 60")
	if err != nil {
		t.Fatalf("Failed to resubmit: %v", err)
	}
	if resubmitted.Status != models.StatusSubmitted {
		t.Errorf("Expected submitted status after resubmit, got %s", resubmitted.Status)
	}
}

// TestResubmitClearsReview verifies reviewer fields reset on resubmission
func TestResubmitClearsReview(t *testing.T) {
	db, _, approvals, meta := setupApprovalTest(t)
	analyst := testActor(models.RoleAnalyst)
	admin := testActor(models.RoleAdmin)

	if _, err := approvals.Submit(analyst, meta.ID, ""); err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}
	if _, err := approvals.Reject(admin, meta.ID, "Wrong basis table, use the 2024 study"); err != nil {
		t.Fatalf("Failed to reject: %v", err)
	}

	var approval models.VersionApproval
	if err := db.Where("version_id = ?", meta.ID).First(&approval).Error; err != nil {
		t.Fatalf("Failed to load approval: %v", err)
	}
	if approval.ReviewedBy == nil || approval.ReviewedAt == nil {
		t.Fatal("Expected reviewer fields set after rejection")
	}

	if _, err := approvals.Resubmit(analyst, meta.ID, "Switched to the 2024 study basis"); err != nil {
		t.Fatalf("Failed to resubmit: %v", err)
	}
	// Reload into a fresh struct: scanning NULL columns into the used one
	// would leave the old non-nil pointers behind
	var resubmitted models.VersionApproval
	if err := db.Where("version_id = ?", meta.ID).First(&resubmitted).Error; err != nil {
		t.Fatalf("Failed to reload approval: %v", err)
	}
	if resubmitted.ReviewedBy != nil || resubmitted.ReviewedAt != nil {
		t.Error("Expected reviewer fields cleared after resubmission")
	}
	if resubmitted.SubmittedBy == nil || *resubmitted.SubmittedBy != analyst.UserID {
		t.Error("Expected submitted_by to track the resubmitting analyst")
	}
}

// TestInvalidTransitions verifies the state machine rejects bad edges
func TestInvalidTransitions(t *testing.T) {
	_, _, approvals, meta := setupApprovalTest(t)
	analyst := testActor(models.RoleAnalyst)
	admin := testActor(models.RoleAdmin)

	// Approve straight from draft
	_, err := approvals.Approve(admin, meta.ID, "")
	if types.KindOf(err) != types.ErrInvalidStateTransition {
		t.Fatalf("Expected invalid_state_transition, got %v", err)
	}
	var engineErr *types.Error
	if !asEngineError(err, &engineErr) || engineErr.CurrentStatus != models.StatusDraft {
		t.Errorf("Expected current status draft on error, got %+v", engineErr)
	}

	// Reject straight from draft
	if _, err := approvals.Reject(admin, meta.ID, "Not even submitted yet, rejecting"); types.KindOf(err) != types.ErrInvalidStateTransition {
		t.Errorf("Expected invalid_state_transition rejecting a draft, got %v", err)
	}

	// Resubmit a draft
	if _, err := approvals.Resubmit(analyst, meta.ID, "Nothing was rejected here yet"); types.KindOf(err) != types.ErrInvalidStateTransition {
		t.Errorf("Expected invalid_state_transition resubmitting a draft, got %v", err)
	}

	// Double submit
	if _, err := approvals.Submit(analyst, meta.ID, ""); err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}
	if _, err := approvals.Submit(analyst, meta.ID, ""); types.KindOf(err) != types.ErrInvalidStateTransition {
		t.Errorf("Expected invalid_state_transition on double submit, got %v", err)
	}
}

// TestApprovedIsTerminal verifies no edges leave the approved state
func TestApprovedIsTerminal(t *testing.T) {
	_, _, approvals, meta := setupApprovalTest(t)
	analyst := testActor(models.RoleAnalyst)
	admin := testActor(models.RoleAdmin)

	if _, err := approvals.Submit(analyst, meta.ID, ""); err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}
	if _, err := approvals.Approve(admin, meta.ID, ""); err != nil {
		t.Fatalf("Failed to approve: %v", err)
	}

	if _, err := approvals.Submit(analyst, meta.ID, ""); types.KindOf(err) != types.ErrInvalidStateTransition {
		t.Errorf("Expected invalid_state_transition submitting approved, got %v", err)
	}
	if _, err := approvals.Reject(admin, meta.ID, "Changed my mind about this one"); types.KindOf(err) != types.ErrInvalidStateTransition {
		t.Errorf("Expected invalid_state_transition rejecting approved, got %v", err)
	}

	// History records exactly the three real transitions
	history, err := approvals.GetHistory(analyst, meta.ID)
	if err != nil {
		t.Fatalf("Failed to get history: %v", err)
	}
	if len(history) != 3 {
		t.Errorf("Expected 3 history entries after refused transitions, got %d", len(history))
	}
}

// TestApprovalRoles verifies role gates on each transition
func TestApprovalRoles(t *testing.T) {
	_, _, approvals, meta := setupApprovalTest(t)
	analyst := testActor(models.RoleAnalyst)
	viewer := testActor(models.RoleViewer)

	if _, err := approvals.Submit(viewer, meta.ID, ""); types.KindOf(err) != types.ErrForbidden {
		t.Errorf("Expected forbidden for viewer submit, got %v", err)
	}
	if _, err := approvals.Submit(analyst, meta.ID, ""); err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}
	// Analysts cannot review their own tier
	if _, err := approvals.Approve(analyst, meta.ID, ""); types.KindOf(err) != types.ErrForbidden {
		t.Errorf("Expected forbidden for analyst approve, got %v", err)
	}
	if _, err := approvals.Reject(analyst, meta.ID, "Trying to reject without the role"); types.KindOf(err) != types.ErrForbidden {
		t.Errorf("Expected forbidden for analyst reject, got %v", err)
	}
}

func asEngineError(err error, target **types.Error) bool {
	e, ok := err.(*types.Error)
	if ok {
		*target = e
	}
	return ok
}
