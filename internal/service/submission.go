package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/sakif/brief-builder/internal/apperror"
	"github.com/sakif/brief-builder/internal/model"
	"github.com/sakif/brief-builder/internal/report"
	"github.com/sakif/brief-builder/internal/repository"
)

// ReportRenderer turns a report document into file bytes.
// *report.PDFRenderer is the production implementation.
type ReportRenderer interface {
	Render(doc *report.Document) ([]byte, error)
}

// SubmissionService accepts anonymous submissions and serves them back to
// the brief owner (by brief) or to whoever holds the session id.
type SubmissionService struct {
	submissions repository.SubmissionRepository
	briefs      repository.BriefRepository
	renderer    ReportRenderer
	logger      *slog.Logger
}

func NewSubmissionService(
	submissions repository.SubmissionRepository,
	briefs repository.BriefRepository,
	renderer ReportRenderer,
	logger *slog.Logger,
) *SubmissionService {
	return &SubmissionService{
		submissions: submissions,
		briefs:      briefs,
		renderer:    renderer,
		logger:      logger,
	}
}

// Create stores answers for briefID under a fresh session id. Answers are
// kept exactly as sent, in key order; they are not checked against the
// brief's questions.
func (s *SubmissionService) Create(ctx context.Context, briefID string, answers model.Answers) (*model.Submission, error) {
	if strings.TrimSpace(briefID) == "" {
		return nil, apperror.ValidationFailed("brief_id", "brief_id is required")
	}
	if answers == nil {
		return nil, apperror.ValidationFailed("answers", "answers must be a JSON object")
	}

	brief, err := s.briefs.GetBrief(ctx, briefID)
	if err != nil {
		return nil, fmt.Errorf("service/submission: loading brief %s: %w", briefID, err)
	}

	sub := &model.Submission{
		BriefID:   briefID,
		SessionID: uuid.NewString(),
		Answers:   answers,
	}
	if err := s.submissions.CreateSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("service/submission: creating submission: %w", err)
	}
	sub.Brief = brief

	s.logger.Info("submission received",
		slog.String("briefID", briefID),
		slog.String("submissionID", sub.ID),
		slog.Int("answers", len(answers)),
	)
	return sub, nil
}

// ListForBrief returns the brief's submissions, newest first, each carrying
// the current brief. Only the brief owner may list them.
func (s *SubmissionService) ListForBrief(ctx context.Context, briefID, ownerID string) ([]model.Submission, error) {
	brief, err := s.briefs.GetBrief(ctx, briefID)
	if err != nil {
		return nil, fmt.Errorf("service/submission: loading brief %s: %w", briefID, err)
	}
	if brief.OwnerID != ownerID {
		return nil, apperror.Forbidden("brief does not belong to the current user")
	}

	subs, err := s.submissions.ListSubmissionsByBrief(ctx, briefID)
	if err != nil {
		return nil, fmt.Errorf("service/submission: listing submissions of %s: %w", briefID, err)
	}
	for i := range subs {
		subs[i].Brief = brief
	}
	return subs, nil
}

// GetBySession returns the hydrated submission. The session id is the only
// credential required.
func (s *SubmissionService) GetBySession(ctx context.Context, sessionID string) (*model.Submission, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, apperror.ValidationFailed("session_id", "session id is required")
	}
	sub, err := s.submissions.GetSubmissionBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("service/submission: getting submission %s: %w", sessionID, err)
	}
	return sub, nil
}

// Report renders the PDF report of a submission.
func (s *SubmissionService) Report(ctx context.Context, sessionID string) ([]byte, error) {
	sub, err := s.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	out, err := s.renderer.Render(report.Build(sub))
	if err != nil {
		return nil, fmt.Errorf("service/submission: rendering report for %s: %w", sessionID, err)
	}

	s.logger.Info("report generated",
		slog.String("submissionID", sub.ID),
		slog.Int("bytes", len(out)),
	)
	return out, nil
}
