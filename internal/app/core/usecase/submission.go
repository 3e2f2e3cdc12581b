package usecase

import (
	"context"

	"github.com/JoeShih716/go-star-ledger/internal/app/core/domain"
)

// SubmissionWorkflow 任務提交的審核流程
//
// Approve 是提交進入 approved 的唯一路徑，而且一定經過 ApprovePayout 入帳；
// 不提供直接改狀態的操作。
type SubmissionWorkflow struct {
	core *CoreUseCase
}

func NewSubmissionWorkflow(core *CoreUseCase) *SubmissionWorkflow {
	return &SubmissionWorkflow{core: core}
}

// Submit 小孩提交完成的任務，星星數在此固定
func (w *SubmissionWorkflow) Submit(ctx context.Context, childID, taskTemplateID string, stars int64) (domain.TaskSubmission, error) {
	in := domain.SubmissionInput{ChildID: childID, TaskTemplateID: taskTemplateID, Stars: stars}
	if err := domain.Validate(in); err != nil {
		w.core.metrics.invalid(opSubmit)
		return domain.TaskSubmission{}, err
	}
	var sub domain.TaskSubmission
	err := w.core.run(ctx, opSubmit, childID, func(tx Tx) error {
		sub = domain.NewTaskSubmission(in, w.core.now())
		return tx.SaveSubmission(sub)
	})
	if err != nil {
		return domain.TaskSubmission{}, err
	}
	return sub, nil
}

// Approve 家長核准，透過 ApprovePayout 同時改狀態與入帳
func (w *SubmissionWorkflow) Approve(ctx context.Context, submissionID, description string) error {
	if err := domain.ValidateID("submission_id", submissionID); err != nil {
		w.core.metrics.invalid(opApprove)
		return err
	}
	sub, err := w.core.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return err
	}
	if !sub.Pending() {
		return domain.ErrSubmissionNotPending
	}
	if description == "" {
		description = "Task approved: " + sub.TaskTemplateID
	}
	return w.core.ApprovePayout(ctx, sub.ID, sub.ChildID, sub.Stars, description)
}

// Reject 家長退回，只寫狀態
func (w *SubmissionWorkflow) Reject(ctx context.Context, submissionID, reason string) error {
	if err := domain.ValidateID("submission_id", submissionID); err != nil {
		w.core.metrics.invalid(opReject)
		return err
	}
	sub, err := w.core.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return err
	}
	return w.core.run(ctx, opReject, sub.ChildID, func(tx Tx) error {
		current, err := tx.Submission(submissionID)
		if err != nil {
			return err
		}
		if err := current.MarkRejected(reason, w.core.now()); err != nil {
			return err
		}
		return tx.SaveSubmission(current)
	})
}

// Get 查詢任務提交
func (w *SubmissionWorkflow) Get(ctx context.Context, submissionID string) (domain.TaskSubmission, error) {
	return w.core.store.GetSubmission(ctx, submissionID)
}
