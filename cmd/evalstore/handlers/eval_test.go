package handlers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/memofn/evalstore/cmd/evalstore/middleware"
	"github.com/memofn/evalstore/cmd/evalstore/models"
	"github.com/memofn/evalstore/cmd/evalstore/repository"
	"github.com/memofn/evalstore/cmd/evalstore/service"
	"github.com/memofn/evalstore/common/bootstrap"
	"github.com/memofn/evalstore/common/logger"
	"github.com/memofn/evalstore/common/objectstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testComponents() *bootstrap.Components {
	return &bootstrap.Components{Logger: logger.New("error", "text")}
}

func mustUUID() uuid.UUID { return uuid.New() }

func framedBody(metadata any, payload []byte) *bytes.Buffer {
	meta, _ := json.Marshal(metadata)
	var buf bytes.Buffer
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(meta)))
	buf.Write(prefix[:])
	buf.Write(meta)
	buf.Write(payload)
	return &buf
}

func putEvalContext(e *echo.Echo, body *bytes.Buffer) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPut, "/api/v1/evals", body)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("evalstore.credential", middleware.APIKeyCredential("test-key"))
	return c, rec
}

// Upload failures must be reported before any database work happens,
// so these paths are exercised with no repository wired at all.
func TestPutEval_RejectsMismatchedHash(t *testing.T) {
	components := testComponents()
	store := service.NewStore(objectstore.NewMemoryBackend(), nil, components.Logger)
	h := NewEvalHandler(components, store, nil)

	payload := []byte("result bytes")
	wrong := sha256.Sum256([]byte("other bytes"))
	body := framedBody(map[string]any{
		"fn_key":         "pkg:fn",
		"fn_hash":        "abc",
		"args_hash":      "def",
		"content_hash":   hex.EncodeToString(wrong[:]),
		"content_length": len(payload),
	}, payload)

	e := echo.New()
	c, _ := putEvalContext(e, body)

	err := h.PutEval(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestPutEval_RejectsMalformedMetadata(t *testing.T) {
	components := testComponents()
	store := service.NewStore(objectstore.NewMemoryBackend(), nil, components.Logger)
	h := NewEvalHandler(components, store, nil)

	// Hand-build a frame whose metadata block is not valid JSON.
	var buf bytes.Buffer
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], 5)
	buf.Write(prefix[:])
	buf.WriteString(`{"fn`)
	buf.WriteString("x")

	e := echo.New()
	c, _ := putEvalContext(e, &buf)

	err := h.PutEval(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestPutEval_RejectsTruncatedBody(t *testing.T) {
	components := testComponents()
	store := service.NewStore(objectstore.NewMemoryBackend(), nil, components.Logger)
	h := NewEvalHandler(components, store, nil)

	var buf bytes.Buffer
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], 500)
	buf.Write(prefix[:])
	buf.WriteString(`{"fn_key":`)

	e := echo.New()
	c, _ := putEvalContext(e, &buf)

	err := h.PutEval(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestPutEval_RejectsSessionToken(t *testing.T) {
	components := testComponents()
	store := service.NewStore(objectstore.NewMemoryBackend(), nil, components.Logger)
	h := NewEvalHandler(components, store, nil)

	tokens := service.NewTokenService("test-secret", time.Hour)
	token, err := tokens.Issue(mustUUID())
	require.NoError(t, err)
	claims, err := tokens.Verify(token)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/evals", bytes.NewReader(nil))
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set("evalstore.credential", middleware.ClaimsCredential(claims))

	err = h.PutEval(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.Code)
}

type fakeEvalRepo struct {
	insertID uuid.UUID
	lastIns  *models.EvalInsert
	evals    []models.Eval
}

func (f *fakeEvalRepo) InsertWithBlob(ctx context.Context, apiKey string, ins *models.EvalInsert) (uuid.UUID, error) {
	f.lastIns = ins
	return f.insertID, nil
}

func (f *fakeEvalRepo) QueryByParams(ctx context.Context, apiKey string, params repository.EvalQuery) ([]models.Eval, error) {
	return f.evals, nil
}

func (f *fakeEvalRepo) RecentExperiments(ctx context.Context, apiKey string, count int64) ([]models.Eval, error) {
	return f.evals, nil
}

func TestPutEval_StoresEvalID(t *testing.T) {
	components := testComponents()
	store := service.NewStore(objectstore.NewMemoryBackend(), nil, components.Logger)
	repo := &fakeEvalRepo{insertID: mustUUID()}
	h := NewEvalHandler(components, store, repo)

	payload := []byte("result bytes")
	sum := sha256.Sum256(payload)
	body := framedBody(map[string]any{
		"fn_key":         "pkg:fn",
		"fn_hash":        "abc",
		"args_hash":      "def",
		"content_hash":   hex.EncodeToString(sum[:]),
		"content_length": len(payload),
	}, payload)

	e := echo.New()
	c, rec := putEvalContext(e, body)

	require.NoError(t, h.PutEval(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, repo.insertID.String(), rec.Body.String())
}

// An uppercase content hash claim is accepted, but the row must record
// the lowercase key the object was stored under, or later lookups and
// standalone blob uploads will never dedup against it.
func TestPutEval_RecordsNormalizedContentHash(t *testing.T) {
	components := testComponents()
	backend := objectstore.NewMemoryBackend()
	store := service.NewStore(backend, nil, components.Logger)
	repo := &fakeEvalRepo{insertID: mustUUID()}
	h := NewEvalHandler(components, store, repo)

	payload := []byte("case sensitive claim")
	sum := sha256.Sum256(payload)
	lower := hex.EncodeToString(sum[:])
	body := framedBody(map[string]any{
		"fn_key":         "pkg:fn",
		"fn_hash":        "abc",
		"args_hash":      "def",
		"content_hash":   strings.ToUpper(lower),
		"content_length": len(payload),
	}, payload)

	e := echo.New()
	c, rec := putEvalContext(e, body)

	require.NoError(t, h.PutEval(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, repo.lastIns)
	assert.Equal(t, lower, repo.lastIns.ContentHash)

	// The object itself lives under the same lowercase key.
	rc, err := store.Download(context.Background(), lower)
	require.NoError(t, err)
	rc.Close()
}

func TestGetExperiments_RejectsBadCount(t *testing.T) {
	components := testComponents()
	h := NewEvalHandler(components, nil, nil)

	e := echo.New()
	for _, v := range []string{"0", "-5", "abc"} {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/experiments?count=%s", v), nil)
		c := e.NewContext(req, httptest.NewRecorder())
		c.Set("evalstore.credential", middleware.APIKeyCredential("test-key"))

		err := h.GetExperiments(c)
		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr, "count=%s", v)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code, "count=%s", v)
	}
}
