package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus 任務提交狀態
type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionApproved  SubmissionStatus = "approved"
	SubmissionRejected  SubmissionStatus = "rejected"
)

// TaskSubmission 一次任務完成的提交
//
// 狀態只能 submitted -> approved 或 submitted -> rejected，兩者皆為終態。
// Stars 在提交時由任務模板決定，之後不會變動。
type TaskSubmission struct {
	ID             string           `json:"id"`
	TaskTemplateID string           `json:"task_template_id"`
	ChildID        string           `json:"child_id"`
	Status         SubmissionStatus `json:"status"`
	Stars          int64            `json:"stars"`
	RejectReason   string           `json:"reject_reason,omitempty"`
	SubmittedAt    time.Time        `json:"submitted_at"`
	ReviewedAt     *time.Time       `json:"reviewed_at,omitempty"`
}

// SubmissionInput 建立提交的輸入
type SubmissionInput struct {
	ChildID        string `validate:"required,max=64"`
	TaskTemplateID string `validate:"required,max=64"`
	Stars          int64  `validate:"gt=0"`
}

// NewTaskSubmission 建立 submitted 狀態的提交
func NewTaskSubmission(in SubmissionInput, at time.Time) TaskSubmission {
	return TaskSubmission{
		ID:             uuid.NewString(),
		TaskTemplateID: in.TaskTemplateID,
		ChildID:        in.ChildID,
		Status:         SubmissionSubmitted,
		Stars:          in.Stars,
		SubmittedAt:    at,
	}
}

// Pending 是否仍可審核
func (s *TaskSubmission) Pending() bool {
	return s.Status == SubmissionSubmitted
}

// MarkApproved 只能在發放星星的同一個交易範圍內呼叫
func (s *TaskSubmission) MarkApproved(at time.Time) error {
	if !s.Pending() {
		return ErrSubmissionNotPending
	}
	s.Status = SubmissionApproved
	s.ReviewedAt = &at
	return nil
}

// MarkRejected 退回提交，不影響帳本
func (s *TaskSubmission) MarkRejected(reason string, at time.Time) error {
	if !s.Pending() {
		return ErrSubmissionNotPending
	}
	s.Status = SubmissionRejected
	s.RejectReason = reason
	s.ReviewedAt = &at
	return nil
}
