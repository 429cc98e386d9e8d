// internal/api/handler_test.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mirror-sync/internal/database"
	custom_errors "mirror-sync/internal/errors"
	"mirror-sync/internal/model"
	"mirror-sync/internal/syncer"
	"mirror-sync/internal/webhook"
)

var testLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

// MockQuerier is a mock of the database.Querier interface.
type MockQuerier struct {
	mock.Mock
}

func (m *MockQuerier) CreateChangesets(ctx context.Context, arg database.CreateChangesetsParams) (int64, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuerier) GetMirrorByName(ctx context.Context, name string) (database.Mirror, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(database.Mirror), args.Error(1)
}

func (m *MockQuerier) ListChangesetsByMirror(ctx context.Context, arg database.ListChangesetsByMirrorParams) ([]database.Changeset, error) {
	args := m.Called(ctx, arg)
	changesets, _ := args.Get(0).([]database.Changeset)
	return changesets, args.Error(1)
}

func (m *MockQuerier) ListMirrors(ctx context.Context) ([]database.Mirror, error) {
	args := m.Called(ctx)
	mirrors, _ := args.Get(0).([]database.Mirror)
	return mirrors, args.Error(1)
}

func (m *MockQuerier) ListMirrorsByKind(ctx context.Context, kind string) ([]database.Mirror, error) {
	args := m.Called(ctx, kind)
	mirrors, _ := args.Get(0).([]database.Mirror)
	return mirrors, args.Error(1)
}

func (m *MockQuerier) UpdateMirrorSyncedAt(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockQuerier) UpsertMirror(ctx context.Context, arg database.UpsertMirrorParams) (database.Mirror, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.Mirror), args.Error(1)
}

// MockSyncer is a mock of the Syncer interface.
type MockSyncer struct {
	mock.Mock
}

func (m *MockSyncer) Sync(ctx context.Context, id model.RemoteIdentity) (syncer.Outcome, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(syncer.Outcome), args.Error(1)
}

func newTestRouter(db *MockQuerier, s *MockSyncer) http.Handler {
	return NewRouter(db, s, webhook.NewNormalizer(""), Options{SyncTimeout: time.Minute}, testLogger)
}

func postWebhook(t *testing.T, h http.Handler, contentType, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/bitbucketsync", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func assertAcknowledged(t *testing.T, rr *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/plain", rr.Header().Get("Content-Type"))
	assert.Empty(t, rr.Body.String())
}

var bitbucketIdentity = model.RemoteIdentity{
	Name:     "repo",
	Kind:     "git",
	FullName: "org/repo",
	SSHURL:   "git@bitbucket.org:org/repo.git",
	HTTPSURL: "https://bitbucket.org/org/repo.git",
}

func TestReceiveWebhook(t *testing.T) {
	bitbucketPayload := `{"repository": {"name": "repo", "full_name": "org/repo", "scm": "git"}}`

	t.Run("bitbucket json body triggers sync", func(t *testing.T) {
		s := new(MockSyncer)
		s.On("Sync", mock.Anything, bitbucketIdentity).
			Return(syncer.Outcome{Status: syncer.StatusSynced, Revisions: []string{"b2"}}, nil).Once()

		rr := postWebhook(t, newTestRouter(new(MockQuerier), s), "application/json", bitbucketPayload, nil)

		assertAcknowledged(t, rr)
		s.AssertExpectations(t)
	})

	t.Run("form encoded payload field", func(t *testing.T) {
		s := new(MockSyncer)
		s.On("Sync", mock.Anything, bitbucketIdentity).Return(syncer.Outcome{Status: syncer.StatusNoChanges}, nil).Once()
		form := url.Values{"payload": {bitbucketPayload}}

		rr := postWebhook(t, newTestRouter(new(MockQuerier), s), "application/x-www-form-urlencoded", form.Encode(), nil)

		assertAcknowledged(t, rr)
		s.AssertExpectations(t)
	})

	t.Run("sync context survives the request", func(t *testing.T) {
		s := new(MockSyncer)
		s.On("Sync", mock.MatchedBy(func(ctx context.Context) bool {
			_, hasDeadline := ctx.Deadline()
			return hasDeadline && ctx.Err() == nil
		}), bitbucketIdentity).Return(syncer.Outcome{Status: syncer.StatusNoChanges}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/bitbucketsync", strings.NewReader(bitbucketPayload))
		ctx, cancel := context.WithCancel(req.Context())
		cancel()
		rr := httptest.NewRecorder()
		newTestRouter(new(MockQuerier), s).ServeHTTP(rr, req.WithContext(ctx))

		assertAcknowledged(t, rr)
		s.AssertExpectations(t)
	})

	t.Run("missing repository name is acknowledged without sync", func(t *testing.T) {
		s := new(MockSyncer)

		rr := postWebhook(t, newTestRouter(new(MockQuerier), s), "application/json", `{"repository": {"full_name": "org/repo"}}`, nil)

		assertAcknowledged(t, rr)
		s.AssertNotCalled(t, "Sync", mock.Anything, mock.Anything)
	})

	t.Run("invalid json is acknowledged without sync", func(t *testing.T) {
		s := new(MockSyncer)

		rr := postWebhook(t, newTestRouter(new(MockQuerier), s), "application/json", `{"repository":`, nil)

		assertAcknowledged(t, rr)
		s.AssertNotCalled(t, "Sync", mock.Anything, mock.Anything)
	})

	t.Run("github push", func(t *testing.T) {
		s := new(MockSyncer)
		s.On("Sync", mock.Anything, model.RemoteIdentity{
			Name:     "repo",
			Kind:     "git",
			FullName: "octo/repo",
			SSHURL:   "git@github.com:octo/repo.git",
			HTTPSURL: "https://github.com/octo/repo.git",
		}).Return(syncer.Outcome{Status: syncer.StatusNotFound}, nil).Once()
		body := `{"repository": {"name": "repo", "full_name": "octo/repo",
			"ssh_url": "git@github.com:octo/repo.git", "clone_url": "https://github.com/octo/repo.git"}}`

		rr := postWebhook(t, newTestRouter(new(MockQuerier), s), "application/json", body, http.Header{"X-Github-Event": {"push"}})

		assertAcknowledged(t, rr)
		s.AssertExpectations(t)
	})

	t.Run("github ping is ignored", func(t *testing.T) {
		s := new(MockSyncer)

		rr := postWebhook(t, newTestRouter(new(MockQuerier), s), "application/json", `{"zen": "hi"}`, http.Header{"X-Github-Event": {"ping"}})

		assertAcknowledged(t, rr)
		s.AssertNotCalled(t, "Sync", mock.Anything, mock.Anything)
	})

	t.Run("sync failures are still acknowledged", func(t *testing.T) {
		for _, syncErr := range []error{
			&custom_errors.SpawnError{Binary: "git", Err: errors.New("not found")},
			custom_errors.ErrCommandTimeout,
			custom_errors.ErrNotImplemented,
			&custom_errors.UnsupportedKindError{Kind: "svn"},
		} {
			s := new(MockSyncer)
			s.On("Sync", mock.Anything, bitbucketIdentity).Return(syncer.Outcome{}, syncErr).Once()

			rr := postWebhook(t, newTestRouter(new(MockQuerier), s), "application/json", bitbucketPayload, nil)

			assertAcknowledged(t, rr)
		}
	})

	t.Run("panic is acknowledged", func(t *testing.T) {
		s := new(MockSyncer)
		s.On("Sync", mock.Anything, bitbucketIdentity).Run(func(mock.Arguments) {
			panic("boom")
		}).Return(syncer.Outcome{}, nil)

		rr := postWebhook(t, newTestRouter(new(MockQuerier), s), "application/json", bitbucketPayload, nil)

		assertAcknowledged(t, rr)
	})

	t.Run("custom path", func(t *testing.T) {
		s := new(MockSyncer)
		s.On("Sync", mock.Anything, bitbucketIdentity).Return(syncer.Outcome{Status: syncer.StatusNoChanges}, nil).Once()
		h := NewRouter(new(MockQuerier), s, webhook.NewNormalizer(""), Options{WebhookPath: "/hooks/push"}, testLogger)

		req := httptest.NewRequest(http.MethodPost, "/hooks/push", strings.NewReader(bitbucketPayload))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assertAcknowledged(t, rr)
		s.AssertExpectations(t)
	})
}

func TestHealthCheck(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(new(MockQuerier), new(MockSyncer)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rr.Body.String())
}

func TestListMirrors(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db := new(MockQuerier)
		db.On("ListMirrors", mock.Anything).Return([]database.Mirror{{ID: 1, Name: "repo", Kind: "git", Path: "/srv/repo.git"}}, nil)

		rr := httptest.NewRecorder()
		newTestRouter(db, new(MockSyncer)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/mirrors", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		var got []database.Mirror
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "repo", got[0].Name)
	})

	t.Run("empty registry", func(t *testing.T) {
		db := new(MockQuerier)
		db.On("ListMirrors", mock.Anything).Return(nil, nil)

		rr := httptest.NewRecorder()
		newTestRouter(db, new(MockSyncer)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/mirrors", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[]`, rr.Body.String())
	})

	t.Run("database error", func(t *testing.T) {
		db := new(MockQuerier)
		db.On("ListMirrors", mock.Anything).Return(nil, errors.New("connection reset"))

		rr := httptest.NewRecorder()
		newTestRouter(db, new(MockSyncer)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/mirrors", nil))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestGetChangesets(t *testing.T) {
	testCases := []struct {
		name         string
		query        string
		setupMock    func(db *MockQuerier)
		expectedCode int
	}{
		{
			name:  "default limit",
			query: "",
			setupMock: func(db *MockQuerier) {
				db.On("GetMirrorByName", mock.Anything, "repo").Return(database.Mirror{ID: 3, Name: "repo"}, nil)
				db.On("ListChangesetsByMirror", mock.Anything, database.ListChangesetsByMirrorParams{MirrorID: 3, Limit: 100}).
					Return([]database.Changeset{{ID: 1, MirrorID: 3, Revision: "a1"}}, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:  "explicit limit",
			query: "?limit=500",
			setupMock: func(db *MockQuerier) {
				db.On("GetMirrorByName", mock.Anything, "repo").Return(database.Mirror{ID: 3, Name: "repo"}, nil)
				db.On("ListChangesetsByMirror", mock.Anything, database.ListChangesetsByMirrorParams{MirrorID: 3, Limit: 500}).
					Return(nil, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:         "limit too large",
			query:        "?limit=501",
			setupMock:    func(db *MockQuerier) {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "limit not a number",
			query:        "?limit=ten",
			setupMock:    func(db *MockQuerier) {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:  "unknown mirror",
			query: "",
			setupMock: func(db *MockQuerier) {
				db.On("GetMirrorByName", mock.Anything, "repo").Return(database.Mirror{}, pgx.ErrNoRows)
			},
			expectedCode: http.StatusNotFound,
		},
		{
			name:  "database error",
			query: "",
			setupMock: func(db *MockQuerier) {
				db.On("GetMirrorByName", mock.Anything, "repo").Return(database.Mirror{ID: 3}, nil)
				db.On("ListChangesetsByMirror", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))
			},
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db := new(MockQuerier)
			tc.setupMock(db)

			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/v1/mirrors/repo/changesets"+tc.query, nil)
			newTestRouter(db, new(MockSyncer)).ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
			db.AssertExpectations(t)
		})
	}
}
