package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		title  string
		detail bool
	}{
		{fmt.Errorf("%w: invalid start", ErrValidation), http.StatusBadRequest, "Validation Failed", true},
		{fmt.Errorf("%w: missing url", ErrUnavailable), http.StatusServiceUnavailable, "Service Unavailable", true},
		{fmt.Errorf("%w: login rejected", ErrUnauthorized), http.StatusBadGateway, "Upstream Authentication Failed", true},
		{fmt.Errorf("%w: timeout", ErrBadGateway), http.StatusBadGateway, "Upstream Failure", true},
		{errors.New("secret internals"), http.StatusInternalServerError, "Internal Error", false},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)

		require.Equal(t, tc.status, rr.Code)
		assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
		var problem ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
		assert.True(t, problem.Error)
		assert.Equal(t, tc.status, problem.Status)
		assert.Equal(t, tc.title, problem.Title)
		if tc.detail {
			assert.Equal(t, tc.err.Error(), problem.Detail)
		} else {
			assert.Empty(t, problem.Detail)
		}
	}
}

func TestAttachment(t *testing.T) {
	rr := httptest.NewRecorder()
	require.NoError(t, Attachment(rr, "text/csv", "report.csv", []byte("a,b\n")))
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="report.csv"`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "a,b\n", rr.Body.String())
}
