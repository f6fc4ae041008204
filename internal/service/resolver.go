// Package service provides the messaging business logic (conversations,
// messages, groups).
package service

import (
	"context"
	"errors"

	"greenline/internal/models"
	"greenline/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Resolver maps a (sender, target) pair to the single canonical conversation,
// creating one lazily on first contact. Uniqueness is enforced by the store's
// pair/group constraints, so two concurrent first-sends race at the database
// and the loser simply re-reads the winner's row.
type Resolver struct {
	convRepo  repository.ConversationRepository
	groupRepo repository.GroupRepository
	userRepo  repository.UserRepository
}

// NewResolver returns a new Resolver.
func NewResolver(
	convRepo repository.ConversationRepository,
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
) *Resolver {
	return &Resolver{
		convRepo:  convRepo,
		groupRepo: groupRepo,
		userRepo:  userRepo,
	}
}

// ResolveDirect finds or creates the DIRECT conversation for the unordered
// pair {senderID, recipientID}. The returned flag is true when the
// conversation was created by this call.
func (r *Resolver) ResolveDirect(ctx context.Context, senderID, recipientID uint) (*models.Conversation, bool, error) {
	if senderID == recipientID {
		return nil, false, models.NewValidationError("Cannot send a message to yourself")
	}

	recipient, err := r.userRepo.GetByID(ctx, recipientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, models.NewNotFoundError("User", recipientID)
		}
		return nil, false, err
	}
	if !recipient.Active {
		return nil, false, models.NewValidationError("Recipient is not an active user")
	}

	conv, err := r.convRepo.FindDirect(ctx, senderID, recipientID)
	switch {
	case err == nil:
		return conv, false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		// First contact between this pair; create below.
	default:
		return nil, false, err
	}

	pairKey := models.DirectPairKey(senderID, recipientID)
	conv = &models.Conversation{
		Type:      models.ConversationDirect,
		UserOneID: &senderID,
		UserTwoID: &recipientID,
		PairKey:   &pairKey,
	}
	if createErr := r.convRepo.Create(ctx, conv); createErr != nil {
		if !isUniqueViolation(createErr) {
			return nil, false, createErr
		}
		// Lost the creation race; the pair's conversation now exists.
		existing, findErr := r.convRepo.FindDirect(ctx, senderID, recipientID)
		if findErr != nil {
			return nil, false, findErr
		}
		return existing, false, nil
	}

	return conv, true, nil
}

// ResolveGroup finds or creates the GROUP conversation for groupID. The
// sender must be a current member of a live (not soft-deleted) group.
func (r *Resolver) ResolveGroup(ctx context.Context, senderID, groupID uint) (*models.Conversation, bool, error) {
	if _, err := r.groupRepo.GetByID(ctx, groupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, models.NewNotFoundError("Group", groupID)
		}
		return nil, false, err
	}

	if _, err := r.groupRepo.GetMember(ctx, groupID, senderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, models.NewUnauthorizedError("You are not a member of this group")
		}
		return nil, false, err
	}

	conv, err := r.convRepo.FindByGroup(ctx, groupID)
	switch {
	case err == nil:
		return conv, false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		// First message in this group; create below.
	default:
		return nil, false, err
	}

	conv = &models.Conversation{
		Type:    models.ConversationGroup,
		GroupID: &groupID,
	}
	if createErr := r.convRepo.Create(ctx, conv); createErr != nil {
		if !isUniqueViolation(createErr) {
			return nil, false, createErr
		}
		existing, findErr := r.convRepo.FindByGroup(ctx, groupID)
		if findErr != nil {
			return nil, false, findErr
		}
		return existing, false, nil
	}

	return conv, true, nil
}

// isUniqueViolation reports whether err is a unique-constraint violation.
// GORM translates these to ErrDuplicatedKey when the dialect supports it;
// the pgx error code is checked as well for raw postgres errors.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
