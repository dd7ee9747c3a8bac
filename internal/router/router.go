// Package router exposes the essay API over HTTP with chi.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/essayshare/internal/auth"
	"github.com/patric-chuzhbe/essayshare/internal/authenticator"
	"github.com/patric-chuzhbe/essayshare/internal/essay"
	"github.com/patric-chuzhbe/essayshare/internal/gzippedhttp"
	"github.com/patric-chuzhbe/essayshare/internal/logger"
	"github.com/patric-chuzhbe/essayshare/internal/models"
	"github.com/patric-chuzhbe/essayshare/internal/service"
	"github.com/patric-chuzhbe/essayshare/internal/user"
)

const (
	msgUserRegistered = "user registered"
	msgEssayDeleted   = "essay deleted"
	msgInternalError  = "internal server error"
	msgInvalidBody    = "invalid request body"
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

type trustedNetwork interface {
	TrustedOnly(h http.Handler) http.Handler
}

type Router struct {
	svc       essayService
	auth      authenticator.Authenticator
	network   trustedNetwork
	validate  *validator.Validate
	useGzip   bool
	allowCORS bool
}

type initOptions struct {
	useGzip   bool
	allowCORS bool
}

// InitOption configures the router.
type InitOption func(*initOptions)

// WithGzip enables gzip request and response compression.
func WithGzip(value bool) InitOption {
	return func(options *initOptions) {
		options.useGzip = value
	}
}

// WithCORS toggles the permissive CORS headers. They are on by default.
func WithCORS(value bool) InitOption {
	return func(options *initOptions) {
		options.allowCORS = value
	}
}

// New builds the HTTP handler of the API.
func New(
	svc essayService,
	authMiddleware authenticator.Authenticator,
	network trustedNetwork,
	optionsProto ...InitOption,
) *chi.Mux {
	options := &initOptions{
		useGzip:   false,
		allowCORS: true,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	myRouter := Router{
		svc:       svc,
		auth:      authMiddleware,
		network:   network,
		validate:  validator.New(),
		useGzip:   options.useGzip,
		allowCORS: options.allowCORS,
	}

	return myRouter.routes()
}

func (router *Router) routes() *chi.Mux {
	mux := chi.NewRouter()
	mux.Use(logger.WithLoggingHTTPMiddleware)
	if router.allowCORS {
		mux.Use(allowAllOrigins)
	}
	if router.useGzip {
		mux.Use(gzippedhttp.UngzipRequest, gzippedhttp.GzipResponse)
	}

	mux.Get(`/ping`, router.GetPing)

	mux.Route(`/api`, func(api chi.Router) {
		api.Post(`/register`, router.PostApiregister)
		api.Post(`/login`, router.PostApilogin)

		api.Get(`/essays`, router.GetApiessays)
		api.With(router.auth.RequireIdentity).Post(`/essays`, router.PostApiessays)
		api.With(router.auth.Authenticate).Get(`/essays/{id}`, router.GetApiessaysID)
		api.With(router.auth.RequireIdentity).Put(`/essays/{id}`, router.PutApiessaysID)
		api.With(router.auth.RequireIdentity).Delete(`/essays/{id}`, router.DeleteApiessaysID)

		api.With(router.network.TrustedOnly).Get(`/internal/stats`, router.GetApiinternalstats)
	})

	return mux
}

// allowAllOrigins permits every origin, method and header. Preflight
// requests are answered with 200 and no body.
func allowAllOrigins(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		headers := response.Header()
		headers.Set("Access-Control-Allow-Origin", "*")
		headers.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		requested := request.Header.Get("Access-Control-Request-Headers")
		if requested == "" {
			requested = "Content-Type, Authorization"
		}
		headers.Set("Access-Control-Allow-Headers", requested)

		if request.Method == http.MethodOptions {
			response.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

// GetPing reports whether the storage is reachable.
func (router *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := router.svc.Ping(request.Context()); err != nil {
		logger.Log.Errorln("Error calling the `router.svc.Ping()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}

// PostApiregister creates an account.
func (router *Router) PostApiregister(response http.ResponseWriter, request *http.Request) {
	var credentials models.CredentialsRequest
	if !router.decodeCredentials(response, request, &credentials) {
		return
	}

	if _, err := router.svc.Register(request.Context(), credentials.Username, credentials.Password); err != nil {
		writeServiceError(response, "router.svc.Register()", err)
		return
	}

	writeJSON(response, http.StatusCreated, models.MessageResponse{Message: msgUserRegistered})
}

// PostApilogin exchanges credentials for a token.
func (router *Router) PostApilogin(response http.ResponseWriter, request *http.Request) {
	var credentials models.CredentialsRequest
	if !router.decodeCredentials(response, request, &credentials) {
		return
	}

	result, err := router.svc.Login(request.Context(), credentials.Username, credentials.Password)
	if err != nil {
		writeServiceError(response, "router.svc.Login()", err)
		return
	}

	writeJSON(response, http.StatusOK, result)
}

// GetApiessays lists public essays, or with ?type=my the essays of the caller.
func (router *Router) GetApiessays(response http.ResponseWriter, request *http.Request) {
	if models.ListType(request.URL.Query().Get("type")) == models.ListMine {
		router.auth.RequireIdentity(http.HandlerFunc(router.getOwnEssays)).ServeHTTP(response, request)
		return
	}

	essays, err := router.svc.ListPublic(request.Context())
	if err != nil {
		writeServiceError(response, "router.svc.ListPublic()", err)
		return
	}

	writeJSON(response, http.StatusOK, models.EssaysResponse{Essays: essays})
}

func (router *Router) getOwnEssays(response http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	essays, err := router.svc.ListByOwner(ctx, auth.IdentityFromContext(ctx), auth.CredentialErrorFromContext(ctx))
	if err != nil {
		writeServiceError(response, "router.svc.ListByOwner()", err)
		return
	}

	writeJSON(response, http.StatusOK, models.EssaysResponse{Essays: essays})
}

// PostApiessays creates an essay owned by the caller.
func (router *Router) PostApiessays(response http.ResponseWriter, request *http.Request) {
	var body models.EssayRequest
	if !decodeBody(response, request, &body) {
		return
	}

	ctx := request.Context()
	created, err := router.svc.CreateEssay(ctx, auth.IdentityFromContext(ctx), body.Fields())
	if err != nil {
		writeServiceError(response, "router.svc.CreateEssay()", err)
		return
	}

	writeJSON(response, http.StatusCreated, models.EssayResponse{Essay: created})
}

// GetApiessaysID returns one essay if the caller may read it.
func (router *Router) GetApiessaysID(response http.ResponseWriter, request *http.Request) {
	id, ok := essayID(response, request)
	if !ok {
		return
	}

	ctx := request.Context()
	found, err := router.svc.GetEssay(ctx, id, auth.IdentityFromContext(ctx), auth.CredentialErrorFromContext(ctx))
	if err != nil {
		writeServiceError(response, "router.svc.GetEssay()", err)
		return
	}

	writeJSON(response, http.StatusOK, models.EssayResponse{Essay: found})
}

// PutApiessaysID overwrites an essay of the caller.
func (router *Router) PutApiessaysID(response http.ResponseWriter, request *http.Request) {
	id, ok := essayID(response, request)
	if !ok {
		return
	}

	var body models.EssayRequest
	if !decodeBody(response, request, &body) {
		return
	}

	ctx := request.Context()
	updated, err := router.svc.UpdateEssay(ctx, id, auth.IdentityFromContext(ctx), body.Fields())
	if err != nil {
		writeServiceError(response, "router.svc.UpdateEssay()", err)
		return
	}

	writeJSON(response, http.StatusOK, models.EssayResponse{Essay: updated})
}

// DeleteApiessaysID removes an essay of the caller.
func (router *Router) DeleteApiessaysID(response http.ResponseWriter, request *http.Request) {
	id, ok := essayID(response, request)
	if !ok {
		return
	}

	ctx := request.Context()
	if err := router.svc.DeleteEssay(ctx, id, auth.IdentityFromContext(ctx)); err != nil {
		writeServiceError(response, "router.svc.DeleteEssay()", err)
		return
	}

	writeJSON(response, http.StatusOK, models.MessageResponse{Message: msgEssayDeleted})
}

// GetApiinternalstats reports the number of users and essays.
func (router *Router) GetApiinternalstats(response http.ResponseWriter, request *http.Request) {
	stats, err := router.svc.GetInternalStats(request.Context())
	if err != nil {
		writeServiceError(response, "router.svc.GetInternalStats()", err)
		return
	}

	writeJSON(response, http.StatusOK, stats)
}

func (router *Router) decodeCredentials(
	response http.ResponseWriter,
	request *http.Request,
	credentials *models.CredentialsRequest,
) bool {
	if !decodeBody(response, request, credentials) {
		return false
	}

	if err := router.validate.Struct(credentials); err != nil {
		writeServiceError(response, "router.validate.Struct()", service.ErrValidation)
		return false
	}

	return true
}

func decodeBody(response http.ResponseWriter, request *http.Request, target any) bool {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		logger.Log.Debugln("Error calling the `json.NewDecoder().Decode()`: ", zap.Error(err))
		writeJSON(response, http.StatusBadRequest, models.ErrorResponse{Error: msgInvalidBody})
		return false
	}

	return true
}

// essayID parses the {id} path parameter. Anything but a positive integer
// can not match a stored essay and is answered with 404.
func essayID(response http.ResponseWriter, request *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(request, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(response, http.StatusNotFound, models.ErrorResponse{Error: service.ErrNotFound.Error()})
		return 0, false
	}

	return id, true
}

// statusFor maps a service error onto the status code of the response.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrPasswordTooLong),
		errors.Is(err, service.ErrEmptyEssay):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrDuplicateUsername):
		return http.StatusConflict
	case errors.Is(err, service.ErrBadCredentials),
		errors.Is(err, service.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNoCredential),
		errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeServiceError(response http.ResponseWriter, call string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Log.Errorln("Error calling the `"+call+"`: ", zap.Error(err))
		writeJSON(response, status, models.ErrorResponse{Error: msgInternalError})
		return
	}

	writeJSON(response, status, models.ErrorResponse{Error: err.Error()})
}

func writeJSON(response http.ResponseWriter, status int, body any) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if err := json.NewEncoder(response).Encode(body); err != nil {
		logger.Log.Errorln("Error calling the `json.NewEncoder().Encode()`: ", zap.Error(err))
	}
}
