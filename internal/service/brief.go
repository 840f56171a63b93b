package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/brief-builder/internal/apperror"
	"github.com/sakif/brief-builder/internal/model"
	"github.com/sakif/brief-builder/internal/repository"
)

// Validation limits for brief payloads.
const (
	MaxBriefTitleLength   = 200
	MaxStepTitleLength    = 200
	MaxQuestionTypeLength = 50
	MaxStepsPerBrief      = 100
	MaxQuestionsPerStep   = 200
)

// BriefService owns the structural rules of briefs (required titles, question
// text and type) and delegates persistence, ordering and ownership checks to
// the repository.
type BriefService struct {
	repo   repository.BriefRepository
	logger *slog.Logger
}

func NewBriefService(repo repository.BriefRepository, logger *slog.Logger) *BriefService {
	return &BriefService{
		repo:   repo,
		logger: logger,
	}
}

// Create validates the input and stores a new brief owned by ownerID.
// Steps and questions get orders 0..n-1 from their position in the input.
func (s *BriefService) Create(ctx context.Context, ownerID string, in model.BriefInput) (*model.Brief, error) {
	in, err := normalizeBriefInput(in)
	if err != nil {
		return nil, err
	}

	brief := &model.Brief{
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		Steps:       in.ToSteps(),
	}
	if err := s.repo.CreateBrief(ctx, brief); err != nil {
		return nil, fmt.Errorf("service/brief: creating brief: %w", err)
	}

	s.logger.Info("brief created",
		slog.String("briefID", brief.ID),
		slog.String("ownerID", ownerID),
		slog.Int("steps", len(brief.Steps)),
	)
	return brief, nil
}

// Get returns the hydrated brief. Briefs are publicly readable so anonymous
// respondents can fill them in.
func (s *BriefService) Get(ctx context.Context, id string) (*model.Brief, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.ValidationFailed("id", "brief ID is required")
	}
	brief, err := s.repo.GetBrief(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/brief: getting brief %s: %w", id, err)
	}
	return brief, nil
}

// List returns the owner's briefs, newest first.
func (s *BriefService) List(ctx context.Context, ownerID string) ([]model.Brief, error) {
	briefs, err := s.repo.ListBriefsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("service/brief: listing briefs: %w", err)
	}
	return briefs, nil
}

// Update fully replaces the brief's title, description and step tree.
// Every step and question gets a new ID; nothing from the previous tree is
// kept. The main flag and creation time are untouched.
func (s *BriefService) Update(ctx context.Context, id, ownerID string, in model.BriefInput) (*model.Brief, error) {
	in, err := normalizeBriefInput(in)
	if err != nil {
		return nil, err
	}

	brief := &model.Brief{
		ID:          id,
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		Steps:       in.ToSteps(),
	}
	if err := s.repo.ReplaceBrief(ctx, brief); err != nil {
		return nil, fmt.Errorf("service/brief: replacing brief %s: %w", id, err)
	}

	s.logger.Info("brief replaced",
		slog.String("briefID", id),
		slog.Int("steps", len(brief.Steps)),
	)
	return s.Get(ctx, id)
}

// SetMain makes id the owner's single main brief.
func (s *BriefService) SetMain(ctx context.Context, id, ownerID string) (*model.Brief, error) {
	if err := s.repo.SetMainBrief(ctx, id, ownerID); err != nil {
		return nil, fmt.Errorf("service/brief: setting main brief %s: %w", id, err)
	}
	s.logger.Info("main brief set", slog.String("briefID", id), slog.String("ownerID", ownerID))
	return s.Get(ctx, id)
}

// Delete removes the brief together with its steps, questions and
// submissions.
func (s *BriefService) Delete(ctx context.Context, id, ownerID string) error {
	if err := s.repo.DeleteBrief(ctx, id, ownerID); err != nil {
		return fmt.Errorf("service/brief: deleting brief %s: %w", id, err)
	}
	s.logger.Info("brief deleted", slog.String("briefID", id), slog.String("ownerID", ownerID))
	return nil
}

// GetMain returns the public landing brief: the first registered owner's main
// brief, or their oldest brief when none is flagged.
func (s *BriefService) GetMain(ctx context.Context) (*model.Brief, error) {
	brief, err := s.repo.GetMainBrief(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/brief: getting main brief: %w", err)
	}
	return brief, nil
}

// normalizeBriefInput trims text fields and enforces the structural rules.
// Field names in errors point into the payload, e.g. "steps[1].questions[0].text".
func normalizeBriefInput(in model.BriefInput) (model.BriefInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	switch {
	case in.Title == "":
		return in, apperror.ValidationFailed("title", "brief title is required")
	case utf8.RuneCountInString(in.Title) > MaxBriefTitleLength:
		return in, apperror.ValidationFailed("title",
			fmt.Sprintf("brief title must be %d characters or less", MaxBriefTitleLength))
	case len(in.Steps) > MaxStepsPerBrief:
		return in, apperror.ValidationFailed("steps",
			fmt.Sprintf("a brief can have at most %d steps", MaxStepsPerBrief))
	}

	steps := make([]model.StepInput, len(in.Steps))
	for i, step := range in.Steps {
		prefix := fmt.Sprintf("steps[%d]", i)
		step.Title = strings.TrimSpace(step.Title)
		switch {
		case step.Title == "":
			return in, apperror.ValidationFailed(prefix+".title", "step title is required")
		case utf8.RuneCountInString(step.Title) > MaxStepTitleLength:
			return in, apperror.ValidationFailed(prefix+".title",
				fmt.Sprintf("step title must be %d characters or less", MaxStepTitleLength))
		case len(step.Questions) > MaxQuestionsPerStep:
			return in, apperror.ValidationFailed(prefix+".questions",
				fmt.Sprintf("a step can have at most %d questions", MaxQuestionsPerStep))
		}

		questions := make([]model.QuestionInput, len(step.Questions))
		for j, q := range step.Questions {
			qprefix := fmt.Sprintf("%s.questions[%d]", prefix, j)
			q.Text = strings.TrimSpace(q.Text)
			q.QuestionType = strings.TrimSpace(q.QuestionType)
			switch {
			case q.Text == "":
				return in, apperror.ValidationFailed(qprefix+".text", "question text is required")
			case q.QuestionType == "":
				return in, apperror.ValidationFailed(qprefix+".question_type", "question type is required")
			case len(q.QuestionType) > MaxQuestionTypeLength:
				return in, apperror.ValidationFailed(qprefix+".question_type",
					fmt.Sprintf("question type must be %d characters or less", MaxQuestionTypeLength))
			}
			questions[j] = q
		}
		step.Questions = questions
		steps[i] = step
	}
	in.Steps = steps

	return in, nil
}
