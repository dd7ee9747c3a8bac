// Package models holds the request and response bodies of the HTTP API
// and the errors shared by every storage backend.
package models

import (
	"errors"

	"github.com/patric-chuzhbe/essayshare/internal/essay"
)

type CredentialsRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type LoginResponse struct {
	Token string    `json:"token"`
	User  LoginUser `json:"user"`
}

// EssayRequest is the body of create and update requests.
type EssayRequest struct {
	Title    essay.Text       `json:"title"`
	Content  essay.Text       `json:"content"`
	IsPublic essay.PublicFlag `json:"is_public"`
}

// Fields converts the request into the essay columns it sets.
func (r EssayRequest) Fields() essay.Fields {
	return essay.Fields{
		Title:    string(r.Title),
		Content:  string(r.Content),
		IsPublic: bool(r.IsPublic),
	}
}

type EssayResponse struct {
	Essay *essay.Essay `json:"essay"`
}

type EssaysResponse struct {
	Essays []essay.Essay `json:"essays"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type InternalStatsResponse struct {
	Users  int64 `json:"users"`
	Essays int64 `json:"essays"`
}

// ListType selects the essay collection returned by the listing endpoint.
type ListType string

const (
	ListPublic ListType = "public"
	ListMine   ListType = "my"
)

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeSQLite
	StorageTypeFile
	StorageTypeMemory
)

var (
	// ErrNotFound is returned by storages when the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUsername is returned when the username uniqueness constraint is violated.
	ErrDuplicateUsername = errors.New("username already exists")
)
