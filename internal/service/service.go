package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/patric-chuzhbe/essayshare/internal/access"
	"github.com/patric-chuzhbe/essayshare/internal/auth"
	"github.com/patric-chuzhbe/essayshare/internal/essay"
	"github.com/patric-chuzhbe/essayshare/internal/models"
	"github.com/patric-chuzhbe/essayshare/internal/password"
	"github.com/patric-chuzhbe/essayshare/internal/user"
)

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User) (*user.User, error)

	GetUserByUsername(ctx context.Context, username string) (*user.User, error)
}

type essayKeeper interface {
	CreateEssay(ctx context.Context, e *essay.Essay) (*essay.Essay, error)

	GetEssay(ctx context.Context, id int64) (*essay.Essay, error)

	ListPublicEssays(ctx context.Context) ([]essay.Essay, error)

	ListEssaysByOwner(ctx context.Context, userID int64) ([]essay.Essay, error)

	UpdateEssay(ctx context.Context, id int64, fields essay.Fields) (*essay.Essay, error)

	DeleteEssay(ctx context.Context, id int64) error

	GetEssayOwner(ctx context.Context, id int64) (*int64, error)
}

type statsKeeper interface {
	GetNumberOfUsers(ctx context.Context) (int64, error)

	GetNumberOfEssays(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	userKeeper
	essayKeeper
	statsKeeper
	pinger
}

type passwordHasher interface {
	Hash(plaintext string) (string, error)

	Verify(plaintext, digest string) bool
}

type tokenIssuer interface {
	Issue(usr *user.User) (string, error)
}

// forbiddenError is a permission denial carrying an operation-specific message.
type forbiddenError struct {
	message string
}

func (e *forbiddenError) Error() string {
	return e.message
}

func (e *forbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

var (
	// ErrValidation is returned when a username or password is empty.
	ErrValidation = errors.New("username and password are required")

	// ErrPasswordTooLong is returned for passwords bcrypt cannot hash.
	ErrPasswordTooLong = errors.New("password must not exceed 72 bytes")

	ErrDuplicateUsername = models.ErrDuplicateUsername

	// ErrBadCredentials is returned by Login for an unknown user or a wrong password.
	ErrBadCredentials = errors.New("invalid username or password")

	ErrEmptyEssay = essay.ErrEmpty

	ErrNotFound = errors.New("essay not found")

	// ErrNoCredential is returned when an operation needs a credential and none was presented.
	ErrNoCredential = auth.ErrMissingCredential

	// ErrAuthentication is returned when a presented credential failed verification.
	ErrAuthentication = errors.New("authentication failed")

	// ErrForbidden matches every permission denial below.
	ErrForbidden = errors.New("forbidden")

	ErrReadForbidden   error = &forbiddenError{message: "no permission to access this private essay"}
	ErrUpdateForbidden error = &forbiddenError{message: "no permission to modify this essay"}
	ErrDeleteForbidden error = &forbiddenError{message: "no permission to delete this essay"}
)

type Service struct {
	db     storage
	hasher passwordHasher
	issuer tokenIssuer
}

func New(
	db storage,
	hasher passwordHasher,
	issuer tokenIssuer,
) *Service {
	return &Service{
		db:     db,
		hasher: hasher,
		issuer: issuer,
	}
}

// Register creates a user with a hashed password.
func (s *Service) Register(ctx context.Context, username, plaintext string) (*user.User, error) {
	if username == "" || plaintext == "" {
		return nil, ErrValidation
	}

	digest, err := s.hasher.Hash(plaintext)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return nil, ErrPasswordTooLong
		}
		return nil, fmt.Errorf("in internal/service/service.go/Register(): error while `s.hasher.Hash()` calling: %w", err)
	}

	created, err := s.db.CreateUser(ctx, &user.User{Username: username, PasswordHash: digest})
	if err != nil {
		if errors.Is(err, models.ErrDuplicateUsername) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("in internal/service/service.go/Register(): error while `s.db.CreateUser()` calling: %w", err)
	}

	return created, nil
}

// Login checks the password and issues a token. An unknown username and a
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, plaintext string) (*models.LoginResponse, error) {
	if username == "" || plaintext == "" {
		return nil, ErrValidation
	}

	usr, err := s.db.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, fmt.Errorf("in internal/service/service.go/Login(): error while `s.db.GetUserByUsername()` calling: %w", err)
	}

	if !s.hasher.Verify(plaintext, usr.PasswordHash) {
		return nil, ErrBadCredentials
	}

	token, err := s.issuer.Issue(usr)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/Login(): error while `s.issuer.Issue()` calling: %w", err)
	}

	return &models.LoginResponse{
		Token: token,
		User: models.LoginUser{
			ID:       usr.ID,
			Username: usr.Username,
		},
	}, nil
}

// ListPublic returns every public essay, newest first.
func (s *Service) ListPublic(ctx context.Context) ([]essay.Essay, error) {
	essays, err := s.db.ListPublicEssays(ctx)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/ListPublic(): error while `s.db.ListPublicEssays()` calling: %w", err)
	}
	return essays, nil
}

// ListByOwner returns every essay of the caller regardless of visibility.
// The whole request fails without a valid credential.
func (s *Service) ListByOwner(ctx context.Context, identity *user.Identity, credErr error) ([]essay.Essay, error) {
	if err := verdictError(access.RequireCredential(identity, credErr), ErrForbidden); err != nil {
		return nil, err
	}

	essays, err := s.db.ListEssaysByOwner(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/ListByOwner(): error while `s.db.ListEssaysByOwner()` calling: %w", err)
	}
	return essays, nil
}

// CreateEssay stores a new essay owned by the caller.
func (s *Service) CreateEssay(ctx context.Context, identity *user.Identity, fields essay.Fields) (*essay.Essay, error) {
	if err := verdictError(access.RequireCredential(identity, nil), ErrForbidden); err != nil {
		return nil, err
	}
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	ownerID := identity.UserID
	created, err := s.db.CreateEssay(ctx, &essay.Essay{
		Title:    fields.Title,
		Content:  fields.Content,
		UserID:   &ownerID,
		IsPublic: fields.IsPublic,
	})
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/CreateEssay(): error while `s.db.CreateEssay()` calling: %w", err)
	}

	return created, nil
}

// GetEssay returns an essay when the caller may read it. credErr is the
// verification error of a presented but rejected credential.
func (s *Service) GetEssay(ctx context.Context, id int64, identity *user.Identity, credErr error) (*essay.Essay, error) {
	found, err := s.db.GetEssay(ctx, id)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("in internal/service/service.go/GetEssay(): error while `s.db.GetEssay()` calling: %w", err)
	}

	if err := verdictError(access.CanRead(found, identity, credErr), ErrReadForbidden); err != nil {
		return nil, err
	}

	return found, nil
}

// UpdateEssay overwrites an essay of the caller. The ownership check and the
// write are two round trips: a concurrent delete in between makes the write
// report ErrNotFound, which is acceptable.
func (s *Service) UpdateEssay(ctx context.Context, id int64, identity *user.Identity, fields essay.Fields) (*essay.Essay, error) {
	if err := s.checkOwnership(ctx, id, identity, ErrUpdateForbidden); err != nil {
		return nil, err
	}

	updated, err := s.db.UpdateEssay(ctx, id, fields)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("in internal/service/service.go/UpdateEssay(): error while `s.db.UpdateEssay()` calling: %w", err)
	}

	return updated, nil
}

// DeleteEssay removes an essay of the caller.
func (s *Service) DeleteEssay(ctx context.Context, id int64, identity *user.Identity) error {
	if err := s.checkOwnership(ctx, id, identity, ErrDeleteForbidden); err != nil {
		return err
	}

	if err := s.db.DeleteEssay(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("in internal/service/service.go/DeleteEssay(): error while `s.db.DeleteEssay()` calling: %w", err)
	}

	return nil
}

// GetInternalStats returns the number of users and essays.
func (s *Service) GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error) {
	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	essays, err := s.db.GetNumberOfEssays(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	return models.InternalStatsResponse{
		Users:  users,
		Essays: essays,
	}, nil
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Service) checkOwnership(ctx context.Context, id int64, identity *user.Identity, forbidden error) error {
	if err := verdictError(access.RequireCredential(identity, nil), forbidden); err != nil {
		return err
	}

	ownerID, err := s.db.GetEssayOwner(ctx, id)
	found := true
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("in internal/service/service.go/checkOwnership(): error while `s.db.GetEssayOwner()` calling: %w", err)
		}
		found = false
	}

	return verdictError(access.CanModify(ownerID, found, identity), forbidden)
}

func verdictError(verdict access.Verdict, forbidden error) error {
	switch verdict.Decision {
	case access.Allow:
		return nil
	case access.NotFound:
		return ErrNotFound
	case access.RequireAuth:
		return ErrNoCredential
	}

	if verdict.Reason == access.ReasonAuthFailed {
		return ErrAuthentication
	}
	return forbidden
}
