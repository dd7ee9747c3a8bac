package router

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/essayshare/internal/essay"
	"github.com/patric-chuzhbe/essayshare/internal/user"
)

func TestAccessMatrix(t *testing.T) {
	server, db, handler, verifier := setupTestRouter(t)
	server.Close()

	ctx := context.Background()
	aliceID, bobID := int64(1), int64(2)

	aliceToken, err := verifier.Issue(&user.User{ID: aliceID, Username: "alice"})
	require.NoError(t, err)
	bobToken, err := verifier.Issue(&user.User{ID: bobID, Username: "bob"})
	require.NoError(t, err)

	private, err := db.CreateEssay(ctx, &essay.Essay{Title: "private", UserID: &aliceID})
	require.NoError(t, err)
	public, err := db.CreateEssay(ctx, &essay.Essay{Title: "public", UserID: &aliceID, IsPublic: true})
	require.NoError(t, err)
	legacy, err := db.CreateEssay(ctx, &essay.Essay{Title: "legacy", IsPublic: true})
	require.NoError(t, err)
	legacyPrivate, err := db.CreateEssay(ctx, &essay.Essay{Title: "legacy private"})
	require.NoError(t, err)

	const (
		noPermission = "no permission to access this private essay"
		authFailed   = "authentication failed"
		notFound     = "essay not found"
	)

	reads := []struct {
		name      string
		id        int64
		header    string
		wantCode  int
		wantTitle string
		wantError string
	}{
		{name: "public without token", id: public.ID, wantCode: http.StatusOK, wantTitle: "public"},
		{name: "public for a stranger", id: public.ID, header: "Bearer " + bobToken, wantCode: http.StatusOK, wantTitle: "public"},
		{name: "public with a malformed header", id: public.ID, header: "Bearer", wantCode: http.StatusOK, wantTitle: "public"},
		{name: "ownerless public", id: legacy.ID, wantCode: http.StatusOK, wantTitle: "legacy"},
		{name: "private for the owner", id: private.ID, header: "Bearer " + aliceToken, wantCode: http.StatusOK, wantTitle: "private"},
		{name: "private for a stranger", id: private.ID, header: "Bearer " + bobToken, wantCode: http.StatusForbidden, wantError: noPermission},
		{name: "private without token", id: private.ID, wantCode: http.StatusForbidden, wantError: noPermission},
		{name: "private with a malformed header", id: private.ID, header: "Bearer " + aliceToken + " extra", wantCode: http.StatusUnauthorized, wantError: authFailed},
		{name: "private with a bad signature", id: private.ID, header: "Bearer " + aliceToken + "x", wantCode: http.StatusUnauthorized, wantError: authFailed},
		{name: "ownerless private", id: legacyPrivate.ID, header: "Bearer " + aliceToken, wantCode: http.StatusForbidden, wantError: noPermission},
		{name: "missing", id: 1000, header: "Bearer " + aliceToken, wantCode: http.StatusNotFound, wantError: notFound},
	}

	for _, test := range reads {
		t.Run("read "+test.name, func(t *testing.T) {
			request := apitest.New().
				Handler(handler).
				Get(fmt.Sprintf("/api/essays/%d", test.id))
			if test.header != "" {
				request = request.Header("Authorization", test.header)
			}

			response := request.Expect(t).Status(test.wantCode)
			if test.wantError != "" {
				response = response.Assert(jsonpath.Equal("$.error", test.wantError))
			} else {
				response = response.Assert(jsonpath.Equal("$.essay.title", test.wantTitle))
			}
			response.End()
		})
	}

	writes := []struct {
		name      string
		method    string
		id        int64
		header    string
		wantCode  int
		wantError string
	}{
		{name: "update without token", method: http.MethodPut, id: private.ID, wantCode: http.StatusForbidden, wantError: "no token provided"},
		{name: "update with malformed header", method: http.MethodPut, id: private.ID, header: aliceToken, wantCode: http.StatusUnauthorized, wantError: "invalid token format"},
		{name: "update by a stranger", method: http.MethodPut, id: private.ID, header: "Bearer " + bobToken, wantCode: http.StatusForbidden, wantError: "no permission to modify this essay"},
		{name: "update an ownerless essay", method: http.MethodPut, id: legacy.ID, header: "Bearer " + aliceToken, wantCode: http.StatusForbidden, wantError: "no permission to modify this essay"},
		{name: "update a missing essay", method: http.MethodPut, id: 1000, header: "Bearer " + aliceToken, wantCode: http.StatusNotFound, wantError: notFound},
		{name: "delete without token", method: http.MethodDelete, id: private.ID, wantCode: http.StatusForbidden, wantError: "no token provided"},
		{name: "delete by a stranger", method: http.MethodDelete, id: public.ID, header: "Bearer " + bobToken, wantCode: http.StatusForbidden, wantError: "no permission to delete this essay"},
		{name: "delete a missing essay", method: http.MethodDelete, id: 1000, header: "Bearer " + bobToken, wantCode: http.StatusNotFound, wantError: notFound},
	}

	for _, test := range writes {
		t.Run(test.name, func(t *testing.T) {
			request := apitest.New().
				Handler(handler).
				Method(test.method).
				URL(fmt.Sprintf("/api/essays/%d", test.id)).
				JSON(`{"title":"changed"}`)
			if test.header != "" {
				request = request.Header("Authorization", test.header)
			}

			request.Expect(t).
				Status(test.wantCode).
				Assert(jsonpath.Equal("$.error", test.wantError)).
				End()
		})
	}

	t.Run("listings", func(t *testing.T) {
		apitest.New().
			Handler(handler).
			Get("/api/essays").
			Expect(t).
			Status(http.StatusOK).
			Assert(jsonpath.Len("$.essays", 2)).
			Assert(jsonpath.Equal("$.essays[0].title", "legacy")).
			Assert(jsonpath.Equal("$.essays[1].title", "public")).
			End()

		apitest.New().
			Handler(handler).
			Get("/api/essays").
			Query("type", "my").
			Header("Authorization", "Bearer "+aliceToken).
			Expect(t).
			Status(http.StatusOK).
			Assert(jsonpath.Len("$.essays", 2)).
			Assert(jsonpath.Equal("$.essays[0].title", "public")).
			Assert(jsonpath.Equal("$.essays[1].title", "private")).
			End()

		apitest.New().
			Handler(handler).
			Get("/api/essays").
			Query("type", "my").
			Expect(t).
			Status(http.StatusForbidden).
			Assert(jsonpath.Equal("$.error", "no token provided")).
			End()

		apitest.New().
			Handler(handler).
			Get("/api/essays").
			Query("type", "my").
			Header("Authorization", "Bearer "+bobToken+"x").
			Expect(t).
			Status(http.StatusUnauthorized).
			Assert(jsonpath.Equal("$.error", "invalid or expired token")).
			End()
	})

	t.Run("nothing was modified", func(t *testing.T) {
		apitest.New().
			Handler(handler).
			Get(fmt.Sprintf("/api/essays/%d", private.ID)).
			Header("Authorization", "Bearer "+aliceToken).
			Expect(t).
			Status(http.StatusOK).
			Assert(jsonpath.Equal("$.essay.title", "private")).
			Assert(jsonpath.Equal("$.essay.is_public", false)).
			End()
	})
}
