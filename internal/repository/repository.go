// Package repository declares the storage contracts used by the service
// layer. internal/repository/sqlite is the production implementation.
package repository

import (
	"context"

	"github.com/sakif/brief-builder/internal/model"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	// LinkGitHub attaches a GitHub account id to an existing user.
	LinkGitHub(ctx context.Context, userID string, githubID int64) error
}

// BriefRepository persists brief aggregates. Every mutating method runs in a
// single transaction; ownership checks happen inside that transaction.
type BriefRepository interface {
	// CreateBrief inserts the brief and its whole step/question tree, filling
	// in IDs, orders and timestamps on the passed aggregate.
	CreateBrief(ctx context.Context, brief *model.Brief) error
	GetBrief(ctx context.Context, id string) (*model.Brief, error)
	// ListBriefsByOwner returns hydrated briefs, newest first.
	ListBriefsByOwner(ctx context.Context, ownerID string) ([]model.Brief, error)
	// ReplaceBrief overwrites title and description and swaps the entire
	// step/question tree for brief.Steps. brief.OwnerID must own the row.
	ReplaceBrief(ctx context.Context, brief *model.Brief) error
	SetMainBrief(ctx context.Context, id, ownerID string) error
	// DeleteBrief removes the brief with its steps, questions and submissions.
	DeleteBrief(ctx context.Context, id, ownerID string) error
	// GetMainBrief resolves the public brief of the first registered owner.
	GetMainBrief(ctx context.Context) (*model.Brief, error)
}

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, sub *model.Submission) error
	// ListSubmissionsByBrief returns submissions newest first, without the
	// hydrated brief.
	ListSubmissionsByBrief(ctx context.Context, briefID string) ([]model.Submission, error)
	GetSubmissionBySession(ctx context.Context, sessionID string) (*model.Submission, error)
}
