// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// New / Errorf
// ---------------------------------------------------------------------------

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := cmerr.New(
		cmerr.CodeConfigValidateInvalidValue,
		"invalid window",
		cmerr.FieldProject("core"),
		cmerr.FieldWindow(0),
	)

	require.Error(t, err)
	assert.Equal(t, cmerr.CodeConfigValidateInvalidValue, cmerr.CodeOf(err))
	assert.True(t, cmerr.HasCode(err, cmerr.CodeConfigValidateInvalidValue))

	fields := cmerr.FieldsOf(err)
	assert.Equal(t, "core", fields["project"])
	assert.Equal(t, 0, fields["window"])
}

func TestErrorfWrapsInnerError(t *testing.T) {
	inner := stderrors.New("disk full")
	err := cmerr.Errorf(cmerr.CodeStoreDatabaseFailure, "write failed: %w", inner)
	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, cmerr.CodeStoreDatabaseFailure, cmerr.CodeOf(err))
	assert.Contains(t, err.Error(), "write failed")
}

// ---------------------------------------------------------------------------
// Wrap / Wrapf / With
// ---------------------------------------------------------------------------

func TestWrapPreservesWrappedErrorAndCode(t *testing.T) {
	root := stderrors.New("record missing")
	err := cmerr.Wrap(root, cmerr.CodeStoreProjectNotFound, "loading project", cmerr.FieldProject("app"))

	require.Error(t, err)
	assert.ErrorIs(t, err, root)
	assert.True(t, cmerr.IsNotFound(err))
	assert.Equal(t, "app", cmerr.FieldsOf(err)["project"])
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, cmerr.Wrap(nil, cmerr.CodeServerInternalFailure, "ignored"))
	assert.NoError(t, cmerr.Wrapf(nil, cmerr.CodeServerInternalFailure, "ignored %s", "arg"))
	assert.NoError(t, cmerr.With(nil, cmerr.FieldProject("x")))
}

func TestWithOnPlainErrorDefaultsToInternalCode(t *testing.T) {
	enriched := cmerr.With(stderrors.New("something broke"), cmerr.FieldFilePath("a.ts"))

	require.Error(t, enriched)
	assert.Equal(t, cmerr.CodeServerInternalFailure, cmerr.CodeOf(enriched))
	assert.Equal(t, "a.ts", cmerr.FieldsOf(enriched)["file_path"])
}

func TestCodeOfReturnsInnermostCodedError(t *testing.T) {
	inner := cmerr.New(cmerr.CodeStoreDatabaseFailure, "db")
	outer := cmerr.Wrap(inner, cmerr.CodeServerInternalFailure, "handler")
	assert.Equal(t, cmerr.CodeStoreDatabaseFailure, cmerr.CodeOf(outer))
}

func TestErrorIsWithWrappedChain(t *testing.T) {
	sentinel := stderrors.New("root cause")
	outer := cmerr.Wrap(fmt.Errorf("mid: %w", sentinel), cmerr.CodeServerInternalFailure, "handler")
	assert.ErrorIs(t, outer, sentinel)
}

func TestFieldsWithEmptyKeyAreIgnored(t *testing.T) {
	err := cmerr.New(cmerr.CodeStoreDatabaseFailure, "oops",
		cmerr.Field("", "should-be-dropped"),
		cmerr.FieldCommit("abc123"),
	)
	fields := cmerr.FieldsOf(err)
	assert.Equal(t, "abc123", fields["commit"])
	assert.NotContains(t, fields, "")
}

// ---------------------------------------------------------------------------
// Classification helpers
// ---------------------------------------------------------------------------

func TestClassificationAndStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		code   cmerr.Code
		status int
		check  func(error) bool
	}{
		{name: "project not found", code: cmerr.CodeStoreProjectNotFound, status: 404, check: cmerr.IsNotFound},
		{name: "lock conflict", code: cmerr.CodeWorkspaceLockConflict, status: 409, check: cmerr.IsConflict},
		{name: "invalid value", code: cmerr.CodeConfigValidateInvalidValue, status: 400, check: cmerr.IsInvalidInput},
		{name: "invalid format", code: cmerr.CodeConfigParseInvalidFormat, status: 400, check: cmerr.IsInvalidInput},
		{name: "invalid input", code: cmerr.CodeStoreInvalidInput, status: 400, check: cmerr.IsInvalidInput},
		{name: "document invalid", code: cmerr.CodeWorkspaceDocumentInvalid, status: 400, check: cmerr.IsInvalidInput},
		{name: "window invalid", code: cmerr.CodeMetricsWindowInvalid, status: 400, check: cmerr.IsInvalidInput},
		{name: "internal", code: cmerr.CodeServerInternalFailure, status: 500, check: func(err error) bool { return !cmerr.IsUserFacing(err) }},
		{name: "database", code: cmerr.CodeStoreDatabaseFailure, status: 500, check: func(err error) bool { return !cmerr.IsUserFacing(err) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cmerr.New(tt.code, "boom")
			assert.Equal(t, tt.status, cmerr.HTTPStatus(err))
			assert.True(t, tt.check(err))
		})
	}
}

func TestClassificationOnNilAndPlainError(t *testing.T) {
	for _, err := range []error{nil, stderrors.New("plain")} {
		assert.False(t, cmerr.IsNotFound(err))
		assert.False(t, cmerr.IsConflict(err))
		assert.False(t, cmerr.IsInvalidInput(err))
		assert.False(t, cmerr.IsUserFacing(err))
		assert.Equal(t, http.StatusInternalServerError, cmerr.HTTPStatus(err))
	}
}

func TestJoinCombinesErrors(t *testing.T) {
	a := stderrors.New("first")
	b := stderrors.New("second")
	joined := cmerr.Join(a, b)

	require.Error(t, joined)
	assert.ErrorIs(t, joined, a)
	assert.ErrorIs(t, joined, b)
	assert.Equal(t, cmerr.CodeServerInternalFailure, cmerr.CodeOf(joined))
}
