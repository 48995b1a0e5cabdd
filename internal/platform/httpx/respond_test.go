package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestRespondErrorKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{fmt.Errorf("%w: count must be > 0", shared.ErrValidation), http.StatusBadRequest, "validation failed: count must be > 0"},
		{fmt.Errorf("%w: stock document 4", shared.ErrNotFound), http.StatusNotFound, "not found: stock document 4"},
		{fmt.Errorf("%w: document already completed", shared.ErrConflict), http.StatusConflict, "conflict: document already completed"},
		{errors.New("connection reset"), http.StatusInternalServerError, "internal error, please retry later"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, nil, tc.err)
		require.Equal(t, tc.status, rec.Code)
		env := decode(t, rec)
		require.Equal(t, tc.status, env.Code)
		require.Equal(t, tc.msg, env.Message)
		require.Nil(t, env.Data)
	}
}

func TestRespondValidatorErrors(t *testing.T) {
	type body struct {
		Count int `validate:"gt=0"`
	}
	err := validator.New().Struct(body{})
	rec := httptest.NewRecorder()
	RespondError(rec, nil, err)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decode(t, rec).Message, "body.Count must satisfy gt=0")
}

func TestOK(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, "created", map[string]int{"id": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	env := decode(t, rec)
	require.Equal(t, 200, env.Code)
	require.Equal(t, "created", env.Message)
	require.Equal(t, map[string]any{"id": float64(3)}, env.Data)
}

func TestPageFromQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?page=3&limit=25", nil)
	require.Equal(t, shared.PageRequest{Page: 3, Limit: 25}, PageFromQuery(r))

	r = httptest.NewRequest(http.MethodGet, "/?pagination=false", nil)
	page := PageFromQuery(r)
	require.True(t, page.Disabled)
	require.Equal(t, 1, page.Page)
	require.Equal(t, 10, page.Limit)
}

func TestTimeQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?from=2026-01-20&to=2026-01-21T09:21:35Z&bad=yesterday", nil)

	from, err := TimeQuery(r, "from", nil)
	require.NoError(t, err)
	require.Equal(t, "2026-01-20T00:00:00Z", from.Format(time.RFC3339))

	to, err := TimeQuery(r, "to", nil)
	require.NoError(t, err)
	require.Equal(t, 9, to.Hour())

	missing, err := TimeQuery(r, "missing", nil)
	require.NoError(t, err)
	require.Nil(t, missing)

	_, err = TimeQuery(r, "bad", nil)
	require.ErrorIs(t, err, shared.ErrValidation)
}
