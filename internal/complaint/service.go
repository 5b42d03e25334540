package complaint

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/evrental/evrental/internal/common/errs"
	"github.com/evrental/evrental/internal/common/logger"
	"github.com/google/uuid"
)

// Notifier 回复客诉后通知提交用户。尽力而为，失败不传播。
type Notifier interface {
	ComplaintResponded(ctx context.Context, complaintID, userID, response string)
}

// Auditor 审计落盘接口。
type Auditor interface {
	Record(ctx context.Context, actorID, action string)
}

// Service 客诉用例：用户提交，员工回复。
type Service struct {
	repo     *Repo
	notifier Notifier
	audit    Auditor
	log      logger.Logger
}

func NewService(repo *Repo, notifier Notifier, audit Auditor, log logger.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, audit: audit, log: log}
}

// CreateInput 提交客诉入参。
type CreateInput struct {
	BookingID   string
	Subject     string
	Description string
}

func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*Complaint, error) {
	if userID == "" {
		return nil, errs.New(errs.KindInvalidInput, "user id is required")
	}
	if strings.TrimSpace(in.Subject) == "" {
		return nil, errs.New(errs.KindInvalidInput, "complaint subject is required")
	}

	c := &Complaint{
		ID:          uuid.NewString(),
		UserID:      userID,
		BookingID:   strings.TrimSpace(in.BookingID),
		Subject:     strings.TrimSpace(in.Subject),
		Description: strings.TrimSpace(in.Description),
		Status:      StatusOpen,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create complaint: %w", err)
	}

	if s.audit != nil {
		s.audit.Record(ctx, userID, "Filed complaint "+c.ID)
	}
	return c, nil
}

// Respond 员工回复客诉：Open -> Responded，并通知提交用户。
// 已回复的客诉不允许二次回复。
func (s *Service) Respond(ctx context.Context, staffID, complaintID, response string) (*Complaint, error) {
	if staffID == "" {
		return nil, errs.New(errs.KindInvalidInput, "staff id is required")
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, errs.New(errs.KindInvalidInput, "complaint response is required")
	}

	c, err := s.repo.FindByID(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if c.Status == StatusResponded {
		return nil, errs.New(errs.KindInvalidState, "complaint %s has already been responded to", complaintID)
	}

	now := time.Now()
	c.Response = response
	c.StaffID = staffID
	c.Status = StatusResponded
	c.RespondedAt = &now
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("respond complaint: %w", err)
	}

	if s.audit != nil {
		s.audit.Record(ctx, staffID, "Responded to complaint "+complaintID)
	}
	if s.notifier != nil {
		s.notifier.ComplaintResponded(ctx, c.ID, c.UserID, response)
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, complaintID string) (*Complaint, error) {
	return s.repo.FindByID(ctx, complaintID)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Complaint, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) ListOpen(ctx context.Context) ([]Complaint, error) {
	return s.repo.ListOpen(ctx)
}
