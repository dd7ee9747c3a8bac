package grpcserver

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/essayshare/internal/auth"
	"github.com/patric-chuzhbe/essayshare/internal/essay"
	"github.com/patric-chuzhbe/essayshare/internal/logger"
	"github.com/patric-chuzhbe/essayshare/internal/models"
	"github.com/patric-chuzhbe/essayshare/internal/service"
	"github.com/patric-chuzhbe/essayshare/internal/user"
)

type essayService interface {
	Register(ctx context.Context, username, plaintext string) (*user.User, error)

	Login(ctx context.Context, username, plaintext string) (*models.LoginResponse, error)

	ListPublic(ctx context.Context) ([]essay.Essay, error)

	ListByOwner(ctx context.Context, identity *user.Identity, credErr error) ([]essay.Essay, error)

	CreateEssay(ctx context.Context, identity *user.Identity, fields essay.Fields) (*essay.Essay, error)

	GetEssay(ctx context.Context, id int64, identity *user.Identity, credErr error) (*essay.Essay, error)

	UpdateEssay(ctx context.Context, id int64, identity *user.Identity, fields essay.Fields) (*essay.Essay, error)

	DeleteEssay(ctx context.Context, id int64, identity *user.Identity) error

	GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error)

	Ping(ctx context.Context) error
}

// EssayHandler serves the essay service on top of the same use cases as
// the HTTP router.
type EssayHandler struct {
	svc essayService
}

func NewEssayHandler(svc essayService) *EssayHandler {
	return &EssayHandler{svc: svc}
}

func (h *EssayHandler) Register(ctx context.Context, req *models.CredentialsRequest) (*models.MessageResponse, error) {
	if _, err := h.svc.Register(ctx, req.Username, req.Password); err != nil {
		return nil, statusFromError("h.svc.Register()", err)
	}
	return &models.MessageResponse{Message: "user registered"}, nil
}

func (h *EssayHandler) Login(ctx context.Context, req *models.CredentialsRequest) (*models.LoginResponse, error) {
	result, err := h.svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, statusFromError("h.svc.Login()", err)
	}
	return result, nil
}

func (h *EssayHandler) ListEssays(ctx context.Context, req *ListEssaysRequest) (*models.EssaysResponse, error) {
	var (
		essays []essay.Essay
		err    error
	)
	if req.Type == models.ListMine {
		essays, err = h.svc.ListByOwner(ctx, auth.IdentityFromContext(ctx), auth.CredentialErrorFromContext(ctx))
	} else {
		essays, err = h.svc.ListPublic(ctx)
	}
	if err != nil {
		return nil, statusFromError("h.svc.List*()", err)
	}
	if essays == nil {
		essays = []essay.Essay{}
	}
	return &models.EssaysResponse{Essays: essays}, nil
}

func (h *EssayHandler) CreateEssay(ctx context.Context, req *models.EssayRequest) (*models.EssayResponse, error) {
	created, err := h.svc.CreateEssay(ctx, auth.IdentityFromContext(ctx), req.Fields())
	if err != nil {
		return nil, statusFromError("h.svc.CreateEssay()", err)
	}
	return &models.EssayResponse{Essay: created}, nil
}

func (h *EssayHandler) GetEssay(ctx context.Context, req *EssayIDRequest) (*models.EssayResponse, error) {
	if req.ID <= 0 {
		return nil, status.Error(codes.NotFound, service.ErrNotFound.Error())
	}

	found, err := h.svc.GetEssay(ctx, req.ID, auth.IdentityFromContext(ctx), auth.CredentialErrorFromContext(ctx))
	if err != nil {
		return nil, statusFromError("h.svc.GetEssay()", err)
	}
	return &models.EssayResponse{Essay: found}, nil
}

func (h *EssayHandler) UpdateEssay(ctx context.Context, req *UpdateEssayRequest) (*models.EssayResponse, error) {
	if req.ID <= 0 {
		return nil, status.Error(codes.NotFound, service.ErrNotFound.Error())
	}

	updated, err := h.svc.UpdateEssay(ctx, req.ID, auth.IdentityFromContext(ctx), req.Fields())
	if err != nil {
		return nil, statusFromError("h.svc.UpdateEssay()", err)
	}
	return &models.EssayResponse{Essay: updated}, nil
}

func (h *EssayHandler) DeleteEssay(ctx context.Context, req *EssayIDRequest) (*models.MessageResponse, error) {
	if req.ID <= 0 {
		return nil, status.Error(codes.NotFound, service.ErrNotFound.Error())
	}

	if err := h.svc.DeleteEssay(ctx, req.ID, auth.IdentityFromContext(ctx)); err != nil {
		return nil, statusFromError("h.svc.DeleteEssay()", err)
	}
	return &models.MessageResponse{Message: "essay deleted"}, nil
}

func (h *EssayHandler) Ping(ctx context.Context, _ *Empty) (*Empty, error) {
	if err := h.svc.Ping(ctx); err != nil {
		logger.Log.Errorln("Error calling the `h.svc.Ping()`: ", zap.Error(err))
		return nil, status.Error(codes.Unavailable, "storage is unavailable")
	}
	return &Empty{}, nil
}

func (h *EssayHandler) GetInternalStats(ctx context.Context, _ *Empty) (*models.InternalStatsResponse, error) {
	stats, err := h.svc.GetInternalStats(ctx)
	if err != nil {
		return nil, statusFromError("h.svc.GetInternalStats()", err)
	}
	return &stats, nil
}

// statusFromError maps service errors onto gRPC codes the way the router
// maps them onto HTTP statuses. Unexpected errors are logged and hidden.
func statusFromError(call string, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrPasswordTooLong),
		errors.Is(err, service.ErrEmptyEssay):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrDuplicateUsername):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, service.ErrBadCredentials),
		errors.Is(err, service.ErrAuthentication):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, service.ErrNoCredential),
		errors.Is(err, service.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	}

	logger.Log.Errorln("Error calling the `"+call+"`: ", zap.Error(err))
	return status.Error(codes.Internal, "internal server error")
}
