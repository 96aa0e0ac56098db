package aptly_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tierd/internal/aptly"
	"github.com/slok/tierd/internal/log"
	"github.com/slok/tierd/internal/model"
	"github.com/slok/tierd/internal/pkgrepo"
)

type response struct {
	status int
	body   string
}

// fakeAPI answers with canned responses by `<method> <path>` and records the requests.
type fakeAPI struct {
	responses map[string]response
	mu        sync.Mutex
	calls     []string
	bodies    map[string]string
	queries   map[string]string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.bodies[key] = string(body)
	f.queries[key] = r.URL.Query().Get("q")
	f.mu.Unlock()

	resp, ok := f.responses[key]
	if !ok {
		resp = response{status: http.StatusOK, body: "{}"}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = w.Write([]byte(resp.body))
}

var htopAMD = pkgrepo.Query{Name: "htop", Version: "3.3.0", PatchSuffix: "1", Arch: model.ArchAMD64}

func TestClient(t *testing.T) {
	tests := map[string]struct {
		responses  map[string]response
		call       func(ctx context.Context, t *testing.T, c *aptly.Client) error
		expErr     error
		expCalls   []string
		expBodies  map[string]string
		expQueries map[string]string
	}{
		"Exists should query the tier repository with the package query.": {
			responses: map[string]response{
				"GET /api/repos/leios-stable/packages": {http.StatusOK, `["Pamd64 htop 3.3.0leios1 1a2b"]`},
			},
			call: func(ctx context.Context, t *testing.T, c *aptly.Client) error {
				ok, err := c.Exists(ctx, model.TierStable, htopAMD)
				assert.True(t, ok)
				return err
			},
			expCalls: []string{"GET /api/repos/leios-stable/packages"},
			expQueries: map[string]string{
				"GET /api/repos/leios-stable/packages": "Name (htop), Version (3.3.0leios1), Architecture (amd64)",
			},
		},

		"Exists without matches should return false.": {
			responses: map[string]response{
				"GET /api/repos/leios-testing/packages": {http.StatusOK, `[]`},
			},
			call: func(ctx context.Context, t *testing.T, c *aptly.Client) error {
				ok, err := c.Exists(ctx, model.TierTesting, pkgrepo.Query{Name: "htop"})
				assert.False(t, ok)
				return err
			},
			expCalls: []string{"GET /api/repos/leios-testing/packages"},
		},

		"Delete should remove the matching refs and clean the database.": {
			responses: map[string]response{
				"GET /api/repos/leios-stable/packages": {http.StatusOK, `["Pamd64 htop 3.3.0 1a","Pamd64 htop 3.4.0 2b"]`},
			},
			call: func(ctx context.Context, t *testing.T, c *aptly.Client) error {
				return c.Delete(ctx, model.TierStable, pkgrepo.Query{Name: "htop", Arch: model.ArchAMD64})
			},
			expCalls: []string{
				"GET /api/repos/leios-stable/packages",
				"DELETE /api/repos/leios-stable/packages",
				"POST /api/db/cleanup",
			},
			expBodies: map[string]string{
				"DELETE /api/repos/leios-stable/packages": `{"PackageRefs":["Pamd64 htop 3.3.0 1a","Pamd64 htop 3.4.0 2b"]}`,
			},
		},

		"Delete without matches should do nothing.": {
			responses: map[string]response{
				"GET /api/repos/leios-stable/packages": {http.StatusOK, `[]`},
			},
			call: func(ctx context.Context, t *testing.T, c *aptly.Client) error {
				return c.Delete(ctx, model.TierStable, pkgrepo.Query{Name: "htop"})
			},
			expCalls: []string{"GET /api/repos/leios-stable/packages"},
		},

		"Copy should copy the archive artifact into the target tier.": {
			responses: map[string]response{
				"POST /api/repos/leios-stable/copy/leios-archive/htop_3.3.0leios1_amd64": {http.StatusOK, `{"Report":{"Added":["htop_3.3.0leios1_amd64 added"]}}`},
			},
			call: func(ctx context.Context, t *testing.T, c *aptly.Client) error {
				return c.Copy(ctx, model.TierStable, htopAMD)
			},
			expCalls: []string{"POST /api/repos/leios-stable/copy/leios-archive/htop_3.3.0leios1_amd64"},
		},

		"Copy without the artifact being added should fail.": {
			responses: map[string]response{
				"POST /api/repos/leios-stable/copy/leios-archive/htop_3.3.0leios1_amd64": {http.StatusOK, `{"Report":{"Added":[]}}`},
			},
			call: func(ctx context.Context, t *testing.T, c *aptly.Client) error {
				return c.Copy(ctx, model.TierStable, htopAMD)
			},
			expCalls: []string{"POST /api/repos/leios-stable/copy/leios-archive/htop_3.3.0leios1_amd64"},
			expErr:   model.ErrRemote,
		},

		"Copy with an incomplete query should fail without calling the API.": {
			call: func(ctx context.Context, t *testing.T, c *aptly.Client) error {
				return c.Copy(ctx, model.TierStable, pkgrepo.Query{Name: "htop"})
			},
			expErr: model.ErrNotValid,
		},

		"Creating an existing snapshot should fail as already exists.": {
			responses: map[string]response{
				"POST /api/repos/leios-stable/snapshots": {http.StatusBadRequest, `{"error":"snapshot with name leios-stable-2024.01.1 already exists"}`},
			},
			call: func(ctx context.Context, t *testing.T, c *aptly.Client) error {
				return c.CreateSnapshot(ctx, model.TierStable, "leios-stable-2024.01.1", "LeiOS Release")
			},
			expCalls: []string{"POST /api/repos/leios-stable/snapshots"},
			expErr:   model.ErrAlreadyExists,
		},

		"A snapshot server error should fail as a remote error.": {
			responses: map[string]response{
				"POST /api/repos/leios-stable/snapshots": {http.StatusInternalServerError, `{"error":"boom"}`},
			},
			call: func(ctx context.Context, t *testing.T, c *aptly.Client) error {
				return c.CreateSnapshot(ctx, model.TierStable, "leios-stable-2024.01.1", "LeiOS Release")
			},
			expCalls: []string{"POST /api/repos/leios-stable/snapshots"},
			expErr:   model.ErrRemote,
			expBodies: map[string]string{
				"POST /api/repos/leios-stable/snapshots": `{"Name":"leios-stable-2024.01.1","Description":"LeiOS Release"}`,
			},
		},

		"Publishing a snapshot should switch the distribution.": {
			call: func(ctx context.Context, t *testing.T, c *aptly.Client) error {
				return c.PublishSnapshot(ctx, "leios-stable-2024.01.1", "stable")
			},
			expCalls: []string{"PUT /api/publish/s3:leios-live-repo:./stable"},
			expBodies: map[string]string{
				"PUT /api/publish/s3:leios-live-repo:./stable": `{"Snapshots":[{"Name":"leios-stable-2024.01.1","Component":"main"}],"Signing":{"Skip":true,"Batch":false}}`,
			},
		},

		"Updating a published distribution should call the update endpoint.": {
			call: func(ctx context.Context, t *testing.T, c *aptly.Client) error {
				return c.UpdatePublished(ctx, "testing")
			},
			expCalls: []string{"POST /api/publish/s3:leios-live-repo:./testing/update"},
		},

		"Ensuring repositories should create only the missing ones.": {
			responses: map[string]response{
				"GET /api/repos": {http.StatusOK, `[{"Name":"leios-archive"},{"Name":"other"}]`},
			},
			call: func(ctx context.Context, t *testing.T, c *aptly.Client) error {
				return c.EnsureRepositories(ctx)
			},
			expCalls: []string{"GET /api/repos", "POST /api/repos", "POST /api/repos"},
		},

		"Ensuring publications should publish testing and an empty stable snapshot.": {
			responses: map[string]response{
				"GET /api/publish": {http.StatusOK, `[]`},
			},
			call: func(ctx context.Context, t *testing.T, c *aptly.Client) error {
				return c.EnsurePublished(ctx)
			},
			expCalls: []string{
				"GET /api/publish",
				"POST /api/publish/s3:leios-live-repo:.",
				"POST /api/repos/leios-stable/snapshots",
				"POST /api/publish/s3:leios-live-repo:.",
			},
		},

		"Ensuring publications already done should do nothing.": {
			responses: map[string]response{
				"GET /api/publish": {http.StatusOK, `[{"Storage":"s3:leios-live-repo","Distribution":"testing"},{"Storage":"s3:leios-live-repo","Distribution":"stable"}]`},
			},
			call: func(ctx context.Context, t *testing.T, c *aptly.Client) error {
				return c.EnsurePublished(ctx)
			},
			expCalls: []string{"GET /api/publish"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			api := &fakeAPI{responses: test.responses, bodies: map[string]string{}, queries: map[string]string{}}
			srv := httptest.NewServer(api)
			defer srv.Close()

			c, err := aptly.NewClient(aptly.ClientConfig{URL: srv.URL, Signing: aptly.Signing{Skip: true}, Logger: log.Noop})
			require.NoError(err)

			err = test.call(context.Background(), t, c)
			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
			} else {
				assert.NoError(err)
			}

			assert.Equal(test.expCalls, api.calls)
			for k, v := range test.expBodies {
				assert.JSONEq(v, api.bodies[k])
			}
			for k, v := range test.expQueries {
				assert.Equal(v, api.queries[k])
			}
		})
	}
}

func TestClientWaitReady(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	srv := httptest.NewServer(&fakeAPI{
		responses: map[string]response{"GET /api/version": {http.StatusOK, `{"Version":"1.6.0"}`}},
		bodies:    map[string]string{},
		queries:   map[string]string{},
	})
	defer srv.Close()

	c, err := aptly.NewClient(aptly.ClientConfig{URL: srv.URL})
	require.NoError(err)
	assert.NoError(c.WaitReady(context.Background(), time.Second))

	v, err := c.Version(context.Background())
	require.NoError(err)
	assert.Equal("1.6.0", v)

	srv.Close()
	assert.Error(c.WaitReady(context.Background(), 500*time.Millisecond))
}

func TestClientRepoName(t *testing.T) {
	c, err := aptly.NewClient(aptly.ClientConfig{RepoPrefix: "custom"})
	require.NoError(t, err)
	assert.Equal(t, "custom-testing", c.RepoName(model.TierTesting))
}

func TestClientFileSystemPublishStorage(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	api := &fakeAPI{
		responses: map[string]response{
			"GET /api/publish": {http.StatusOK, `[{"Storage":"filesystem:leios-live-repo","Distribution":"testing"},{"Storage":"s3:leios-live-repo","Distribution":"stable"}]`},
		},
		bodies:  map[string]string{},
		queries: map[string]string{},
	}
	srv := httptest.NewServer(api)
	defer srv.Close()

	c, err := aptly.NewClient(aptly.ClientConfig{URL: srv.URL, PublishStorage: aptly.PublishStorageFileSystem})
	require.NoError(err)

	// Only publications on the configured storage count.
	require.NoError(c.EnsurePublished(ctx))
	require.NoError(c.UpdatePublished(ctx, "testing"))

	assert.Equal([]string{
		"GET /api/publish",
		"POST /api/repos/leios-stable/snapshots",
		"POST /api/publish/filesystem:leios-live-repo:.",
		"POST /api/publish/filesystem:leios-live-repo:./testing/update",
	}, api.calls)
}

func TestNewClientInvalidPublishStorage(t *testing.T) {
	_, err := aptly.NewClient(aptly.ClientConfig{PublishStorage: "swift"})
	assert.Error(t, err)
}
