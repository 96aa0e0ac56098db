package aptly

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/slok/tierd/internal/conventions"
	"github.com/slok/tierd/internal/log"
	"github.com/slok/tierd/internal/model"
	"github.com/slok/tierd/internal/pkgrepo"
)

const (
	// DefaultPublishEndpoint is the S3 publish endpoint name in the aptly configuration.
	DefaultPublishEndpoint = "leios-live-repo"
	// InitialStableSnapshot is the empty snapshot the stable distribution is first published from.
	InitialStableSnapshot = "leios-stable-0000.00.0"

	defaultComponent = "main"
)

// PublishStorage is the kind of aptly publish endpoint the distributions go to.
type PublishStorage string

const (
	// PublishStorageS3 publishes to an S3 bucket (the live repository).
	PublishStorageS3 PublishStorage = "s3"
	// PublishStorageFileSystem publishes to a directory of the aptly host.
	PublishStorageFileSystem PublishStorage = "filesystem"
)

// Signing is the publish signing configuration.
type Signing struct {
	Skip          bool   `json:"Skip" yaml:"skip"`
	GpgKey        string `json:"GpgKey,omitempty" yaml:"gpg_key"`
	Keyring       string `json:"Keyring,omitempty" yaml:"keyring"`
	SecretKeyring string `json:"SecretKeyring,omitempty" yaml:"secret_keyring"`
	Batch         bool   `json:"Batch" yaml:"batch"`
}

// ClientConfig is the configuration for the aptly API client.
type ClientConfig struct {
	// URL is the aptly API base URL.
	URL        string
	HTTPClient *http.Client
	// RepoPrefix is the prefix of the tier repositories, named `<prefix>-<tier>`.
	RepoPrefix string
	// PublishEndpoint is the name of the endpoint the distributions are published to.
	PublishEndpoint string
	// PublishStorage is the kind of the publish endpoint, S3 by default.
	PublishStorage PublishStorage
	Signing        Signing
	Architectures  []model.Arch
	Logger         log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.URL == "" {
		c.URL = fmt.Sprintf("http://127.0.0.1:%d", conventions.AptlyDefaultPort)
	}
	c.URL = strings.TrimSuffix(c.URL, "/")

	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 5 * time.Minute}
	}

	if c.RepoPrefix == "" {
		c.RepoPrefix = conventions.RepoPrefix
	}

	if c.PublishEndpoint == "" {
		c.PublishEndpoint = DefaultPublishEndpoint
	}

	switch c.PublishStorage {
	case "":
		c.PublishStorage = PublishStorageS3
	case PublishStorageS3, PublishStorageFileSystem:
	default:
		return fmt.Errorf("unknown publish storage %q", c.PublishStorage)
	}

	if len(c.Architectures) == 0 {
		c.Architectures = model.Archs
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "aptly.Client"})

	return nil
}

// Client is a pkgrepo.Manager backed by the aptly API.
type Client struct {
	url           string
	http          *http.Client
	repoPrefix    string
	publishPrefix string
	signing       Signing
	archs         []model.Arch
	logger        log.Logger
}

var _ pkgrepo.Manager = &Client{}

// NewClient returns a new aptly API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		url:           cfg.URL,
		http:          cfg.HTTPClient,
		repoPrefix:    cfg.RepoPrefix,
		publishPrefix: string(cfg.PublishStorage) + ":" + cfg.PublishEndpoint + ":.",
		signing:       cfg.Signing,
		archs:         cfg.Architectures,
		logger:        cfg.Logger,
	}, nil
}

// RepoName returns the aptly local repository name of a tier.
func (c *Client) RepoName(tier model.Tier) string {
	return c.repoPrefix + "-" + string(tier)
}

// Version returns the aptly version.
func (c *Client) Version(ctx context.Context) (string, error) {
	var resp struct {
		Version string `json:"Version"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/version", nil, nil, &resp); err != nil {
		return "", err
	}

	return resp.Version, nil
}

// WaitReady polls the API until it answers or the timeout is reached.
func (c *Client) WaitReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	for {
		v, err := c.Version(ctx)
		if err == nil {
			c.logger.Debugf("Aptly API ready (version %s)", v)
			return nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return fmt.Errorf("aptly API not reachable after %s: %w", timeout, lastErr)
		case <-time.After(300 * time.Millisecond):
		}
	}
}

type repo struct {
	Name                string `json:"Name"`
	DefaultDistribution string `json:"DefaultDistribution"`
	DefaultComponent    string `json:"DefaultComponent"`
}

// EnsureRepositories creates the tier repositories that are missing.
func (c *Client) EnsureRepositories(ctx context.Context) error {
	var repos []repo
	if err := c.do(ctx, http.MethodGet, "/api/repos", nil, nil, &repos); err != nil {
		return fmt.Errorf("could not list repositories: %w", err)
	}

	for _, tier := range model.Tiers {
		name := c.RepoName(tier)
		if slices.ContainsFunc(repos, func(r repo) bool { return r.Name == name }) {
			continue
		}

		// The archive is never published, the distribution is informative.
		body := repo{Name: name, DefaultDistribution: string(tier), DefaultComponent: defaultComponent}
		if err := c.do(ctx, http.MethodPost, "/api/repos", nil, body, nil); err != nil {
			return fmt.Errorf("could not create repository %s: %w", name, err)
		}
		c.logger.Infof("Repository %s created", name)
	}

	return nil
}

type publishSource struct {
	Name      string `json:"Name"`
	Component string `json:"Component"`
}

type published struct {
	Storage      string `json:"Storage"`
	Prefix       string `json:"Prefix"`
	Distribution string `json:"Distribution"`
}

// EnsurePublished publishes the testing repository and an empty stable
// snapshot when their distributions aren't published yet.
func (c *Client) EnsurePublished(ctx context.Context) error {
	var pubs []published
	if err := c.do(ctx, http.MethodGet, "/api/publish", nil, nil, &pubs); err != nil {
		return fmt.Errorf("could not list published repositories: %w", err)
	}

	storage := strings.TrimSuffix(c.publishPrefix, ":.")
	isPublished := func(dist string) bool {
		return slices.ContainsFunc(pubs, func(p published) bool { return p.Storage == storage && p.Distribution == dist })
	}

	if !isPublished(conventions.TestingDistribution) {
		err := c.publish(ctx, "local", c.RepoName(model.TierTesting), conventions.TestingDistribution)
		if err != nil {
			return fmt.Errorf("could not publish testing repository: %w", err)
		}
		c.logger.Infof("Published initial state of %s", c.RepoName(model.TierTesting))
	}

	if !isPublished(conventions.StableDistribution) {
		err := c.CreateSnapshot(ctx, model.TierStable, InitialStableSnapshot, "Initial stable snapshot. This snapshot is empty.")
		if err != nil && !errors.Is(err, model.ErrAlreadyExists) {
			return fmt.Errorf("could not create initial stable snapshot: %w", err)
		}

		if err := c.publish(ctx, "snapshot", InitialStableSnapshot, conventions.StableDistribution); err != nil {
			return fmt.Errorf("could not publish stable repository: %w", err)
		}
		c.logger.Infof("Published initial state of %s", c.RepoName(model.TierStable))
	}

	return nil
}

func (c *Client) publish(ctx context.Context, kind, source, distribution string) error {
	archs := make([]string, 0, len(c.archs))
	for _, a := range c.archs {
		archs = append(archs, string(a))
	}

	body := struct {
		SourceKind    string          `json:"SourceKind"`
		Sources       []publishSource `json:"Sources"`
		Distribution  string          `json:"Distribution"`
		Architectures []string        `json:"Architectures"`
		Signing       Signing         `json:"Signing"`
	}{
		SourceKind:    kind,
		Sources:       []publishSource{{Name: source, Component: defaultComponent}},
		Distribution:  distribution,
		Architectures: archs,
		Signing:       c.signing,
	}

	return c.do(ctx, http.MethodPost, "/api/publish/"+url.PathEscape(c.publishPrefix), nil, body, nil)
}

func (c *Client) refs(ctx context.Context, tier model.Tier, q pkgrepo.Query) ([]string, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if !tier.Valid() {
		return nil, fmt.Errorf("tier %q is unknown: %w", tier, model.ErrNotValid)
	}

	var refs []string
	path := "/api/repos/" + url.PathEscape(c.RepoName(tier)) + "/packages"
	if err := c.do(ctx, http.MethodGet, path, url.Values{"q": {q.String()}}, nil, &refs); err != nil {
		return nil, fmt.Errorf("could not query packages: %w", err)
	}

	return refs, nil
}

func (c *Client) Exists(ctx context.Context, tier model.Tier, q pkgrepo.Query) (bool, error) {
	refs, err := c.refs(ctx, tier, q)
	if err != nil {
		return false, err
	}

	return len(refs) > 0, nil
}

func (c *Client) Copy(ctx context.Context, target model.Tier, q pkgrepo.Query) error {
	if !q.Complete() {
		return fmt.Errorf("query %q doesn't select a single artifact: %w", q, model.ErrNotValid)
	}
	if !target.Valid() || target == model.TierArchive {
		return fmt.Errorf("tier %q is not a valid copy target: %w", target, model.ErrNotValid)
	}

	var resp struct {
		Report struct {
			Added   []string `json:"Added"`
			Removed []string `json:"Removed"`
		} `json:"Report"`
	}
	path := fmt.Sprintf("/api/repos/%s/copy/%s/%s",
		url.PathEscape(c.RepoName(target)),
		url.PathEscape(c.RepoName(model.TierArchive)),
		url.PathEscape(q.Identifier()))
	if err := c.do(ctx, http.MethodPost, path, nil, struct{}{}, &resp); err != nil {
		return fmt.Errorf("could not copy %s into %s: %w", q.Identifier(), target, err)
	}

	if len(resp.Report.Added) == 0 || !strings.Contains(resp.Report.Added[0], "added") {
		return fmt.Errorf("package %s was not added to %s: %w", q.Identifier(), target, model.ErrRemote)
	}
	c.logger.Debugf("Copied %s into %s", q.Identifier(), target)

	return nil
}

func (c *Client) Delete(ctx context.Context, tier model.Tier, q pkgrepo.Query) error {
	refs, err := c.refs(ctx, tier, q)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return nil
	}

	body := struct {
		PackageRefs []string `json:"PackageRefs"`
	}{PackageRefs: refs}
	path := "/api/repos/" + url.PathEscape(c.RepoName(tier)) + "/packages"
	if err := c.do(ctx, http.MethodDelete, path, nil, body, nil); err != nil {
		return fmt.Errorf("could not delete %q from %s: %w", q, tier, err)
	}
	c.logger.Debugf("Deleted %d packages from %s (%s)", len(refs), tier, q)

	if err := c.do(ctx, http.MethodPost, "/api/db/cleanup", nil, nil, nil); err != nil {
		c.logger.Warningf("Could not clean up aptly database: %s", err)
	}

	return nil
}

func (c *Client) CreateSnapshot(ctx context.Context, tier model.Tier, name, description string) error {
	if !tier.Valid() {
		return fmt.Errorf("tier %q is unknown: %w", tier, model.ErrNotValid)
	}

	body := struct {
		Name        string `json:"Name"`
		Description string `json:"Description"`
	}{Name: name, Description: description}
	path := "/api/repos/" + url.PathEscape(c.RepoName(tier)) + "/snapshots"
	err := c.do(ctx, http.MethodPost, path, nil, body, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && strings.Contains(apiErr.Message, "already exists") {
			return fmt.Errorf("snapshot %s: %w", name, model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not create snapshot %s: %w", name, err)
	}

	return nil
}

func (c *Client) PublishSnapshot(ctx context.Context, name, distribution string) error {
	body := struct {
		Snapshots []publishSource `json:"Snapshots"`
		Signing   Signing         `json:"Signing"`
	}{
		Snapshots: []publishSource{{Name: name, Component: defaultComponent}},
		Signing:   c.signing,
	}
	path := "/api/publish/" + url.PathEscape(c.publishPrefix) + "/" + url.PathEscape(distribution)
	if err := c.do(ctx, http.MethodPut, path, nil, body, nil); err != nil {
		return fmt.Errorf("could not publish snapshot %s as %s: %w", name, distribution, err)
	}

	return nil
}

func (c *Client) UpdatePublished(ctx context.Context, distribution string) error {
	body := struct {
		Signing Signing `json:"Signing"`
	}{Signing: c.signing}
	path := "/api/publish/" + url.PathEscape(c.publishPrefix) + "/" + url.PathEscape(distribution) + "/update"
	if err := c.do(ctx, http.MethodPost, path, nil, body, nil); err != nil {
		return fmt.Errorf("could not update published %s: %w", distribution, err)
	}

	return nil
}

// APIError is a non-success aptly API response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("aptly API error (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap makes every API error a remote error.
func (e *APIError) Unwrap() error { return model.ErrRemote }

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.url + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("could not decode response: %w", err)
		}
	}

	return nil
}

// errorMessage gets the message of an aptly error body, `{"error": "..."}`.
func errorMessage(data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return body.Error
	}

	return strings.TrimSpace(string(data))
}
