// Package mockstorage provides a testify-based mock implementation
// of the storage interfaces used by the service package.
// It is used for unit testing use cases by simulating storage behavior.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/essayshare/internal/essay"
	"github.com/patric-chuzhbe/essayshare/internal/user"
)

// StorageMock is a testify mock that implements every storage interface
// consumed by the service.
//
// Use it in service and router tests to simulate database behavior.
type StorageMock struct {
	mock.Mock

	// OnGetNumberOfUsers is an optional function field that can be assigned
	// to define custom mock behavior for GetNumberOfUsers in tests.
	//
	// If set, GetNumberOfUsers will delegate to this function instead of
	// using testify's generic mock handler.
	OnGetNumberOfUsers func(ctx context.Context) (int64, error)

	// OnGetNumberOfEssays is an optional function field that can be used
	// to customize the return values of GetNumberOfEssays in tests.
	OnGetNumberOfEssays func(ctx context.Context) (int64, error)
}

// Ping mocks the pinger interface to simulate a health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks closing the storage and releasing resources.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// CreateUser mocks user creation.
func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User) (*user.User, error) {
	args := m.Called(ctx, usr)
	created, _ := args.Get(0).(*user.User)
	return created, args.Error(1)
}

// GetUserByUsername mocks the login lookup.
func (m *StorageMock) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	args := m.Called(ctx, username)
	found, _ := args.Get(0).(*user.User)
	return found, args.Error(1)
}

// CreateEssay mocks essay creation.
func (m *StorageMock) CreateEssay(ctx context.Context, e *essay.Essay) (*essay.Essay, error) {
	args := m.Called(ctx, e)
	created, _ := args.Get(0).(*essay.Essay)
	return created, args.Error(1)
}

// GetEssay mocks fetching an essay by id.
func (m *StorageMock) GetEssay(ctx context.Context, id int64) (*essay.Essay, error) {
	args := m.Called(ctx, id)
	found, _ := args.Get(0).(*essay.Essay)
	return found, args.Error(1)
}

// ListPublicEssays mocks the public listing.
func (m *StorageMock) ListPublicEssays(ctx context.Context) ([]essay.Essay, error) {
	args := m.Called(ctx)
	essays, _ := args.Get(0).([]essay.Essay)
	return essays, args.Error(1)
}

// ListEssaysByOwner mocks the per-owner listing.
func (m *StorageMock) ListEssaysByOwner(ctx context.Context, userID int64) ([]essay.Essay, error) {
	args := m.Called(ctx, userID)
	essays, _ := args.Get(0).([]essay.Essay)
	return essays, args.Error(1)
}

// UpdateEssay mocks overwriting an essay.
func (m *StorageMock) UpdateEssay(ctx context.Context, id int64, fields essay.Fields) (*essay.Essay, error) {
	args := m.Called(ctx, id, fields)
	updated, _ := args.Get(0).(*essay.Essay)
	return updated, args.Error(1)
}

// DeleteEssay mocks removing an essay.
func (m *StorageMock) DeleteEssay(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// GetEssayOwner mocks the ownership lookup.
func (m *StorageMock) GetEssayOwner(ctx context.Context, id int64) (*int64, error) {
	args := m.Called(ctx, id)
	owner, _ := args.Get(0).(*int64)
	return owner, args.Error(1)
}

// GetNumberOfUsers returns the number of users as defined by the mock.
//
// If OnGetNumberOfUsers is non-nil, it will be called to produce the result.
// Otherwise, the method returns 0 and no error by default.
func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfUsers != nil {
		return m.OnGetNumberOfUsers(ctx)
	}
	return 0, nil
}

// GetNumberOfEssays returns the number of stored essays.
//
// If OnGetNumberOfEssays is defined, the method will call it and return
// its result. Otherwise, it defaults to returning 0 and no error.
func (m *StorageMock) GetNumberOfEssays(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfEssays != nil {
		return m.OnGetNumberOfEssays(ctx)
	}
	return 0, nil
}
