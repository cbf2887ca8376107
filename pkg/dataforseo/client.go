package dataforseo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/semaphore"

	"searchvolume-go/pkg/logger"
)

const (
	// DefaultBaseURL is the production v3 API root.
	DefaultBaseURL = "https://api.dataforseo.com/v3"

	// DefaultRateLimit caps concurrent in-flight requests. The limit is a
	// concurrency gate, not a timed window.
	DefaultRateLimit = 12

	// statusOK is the provider's success sentinel, used at both the
	// envelope and the per-task level.
	statusOK = 20000

	maxKeywordsPerRequest = 1000
	minGlobalKeywordLen   = 3

	endpointSearchVolume           = "keywords_data/google/search_volume/live"
	endpointGlobalSearchVolume     = "keywords_data/clickstream_data/search_volume_normalized/live"
	endpointSearchVolumeByLocation = "keywords_data/clickstream_data/search_volume_by_location/live"
	endpointLocationsLanguages     = "keywords_data/clickstream_data/locations_and_languages"
)

// Client lifecycle states. Operations are only valid while acquired.
const (
	stateUnacquired int32 = iota
	stateAcquired
	stateReleased
)

// ConnectionConfig holds connection pool settings for the client.
type ConnectionConfig struct {
	MaxIdleConns        int           `json:"max_idle_conns"`
	MaxIdleConnsPerHost int           `json:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `json:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `json:"idle_conn_timeout"`
	DialTimeout         time.Duration `json:"dial_timeout"`
	KeepAlive           time.Duration `json:"keep_alive"`
	TLSHandshakeTimeout time.Duration `json:"tls_handshake_timeout"`
	RequestTimeout      time.Duration `json:"request_timeout"`
}

// DefaultConnectionConfig returns the settings used in production: a modest
// pool and a 30 second total request timeout.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     100,
		IdleConnTimeout:     90 * time.Second,
		DialTimeout:         10 * time.Second,
		KeepAlive:           30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		RequestTimeout:      30 * time.Second,
	}
}

// ClientConfig bundles optional client settings.
type ClientConfig struct {
	// RateLimit is the maximum number of concurrent in-flight requests.
	// Zero means DefaultRateLimit.
	RateLimit int
	// BaseURL overrides the API root, mainly for tests.
	BaseURL string
	// Logger receives request and per-task failure logs. Nil means a
	// no-op logger; the client never installs global logging state.
	Logger *logger.Logger
	// Connection tunes the underlying pool. Zero value means defaults.
	Connection ConnectionConfig
}

// Client is a rate-limited client for the provider's live search-volume
// endpoints. Construct it, Open it, run queries, Close it. A Client must not
// be reused after Close.
type Client struct {
	baseURL    string
	authHeader string
	rateLimit  int
	connConfig ConnectionConfig
	log        *logger.Logger

	gate       *semaphore.Weighted
	httpClient *http.Client
	transport  *http.Transport
	state      atomic.Int32
}

// NewClient creates a client with default settings. The Basic-Auth header is
// derived from login:password once, here.
func NewClient(login, password string) *Client {
	return NewClientWithConfig(login, password, ClientConfig{})
}

// NewClientWithConfig creates a client with explicit settings.
func NewClientWithConfig(login, password string, cfg ClientConfig) *Client {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Connection == (ConnectionConfig{}) {
		cfg.Connection = DefaultConnectionConfig()
	}

	auth := base64.StdEncoding.EncodeToString([]byte(login + ":" + password))

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		authHeader: "Basic " + auth,
		rateLimit:  cfg.RateLimit,
		connConfig: cfg.Connection,
		log:        cfg.Logger.WithField("component", "dataforseo_client"),
		gate:       semaphore.NewWeighted(int64(cfg.RateLimit)),
	}
}

// Open brings up the connection pool. Queries fail with
// ErrClientNotInitialized until Open succeeds.
func (c *Client) Open() error {
	if !c.state.CompareAndSwap(stateUnacquired, stateAcquired) {
		return errors.New("dataforseo: client already opened")
	}

	c.transport = &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   c.connConfig.DialTimeout,
			KeepAlive: c.connConfig.KeepAlive,
		}).DialContext,
		MaxIdleConns:        c.connConfig.MaxIdleConns,
		MaxIdleConnsPerHost: c.connConfig.MaxIdleConnsPerHost,
		MaxConnsPerHost:     c.connConfig.MaxConnsPerHost,
		IdleConnTimeout:     c.connConfig.IdleConnTimeout,
		TLSHandshakeTimeout: c.connConfig.TLSHandshakeTimeout,
	}
	c.httpClient = &http.Client{
		Transport: c.transport,
		Timeout:   c.connConfig.RequestTimeout,
	}

	c.log.WithField("rate_limit", c.rateLimit).Debug("Client opened")
	return nil
}

// Close shuts the connection pool down. Safe to call more than once; only
// the first call does anything.
func (c *Client) Close() error {
	if !c.state.CompareAndSwap(stateAcquired, stateReleased) {
		return nil
	}
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
	c.log.Debug("Client closed")
	return nil
}

// execute runs one request under the concurrency gate: acquire a slot, send,
// validate the envelope, release the slot on every exit path. It returns the
// raw body after the envelope status check so each operation can apply its
// own parsing strategy.
func (c *Client) execute(ctx context.Context, method, endpoint string, payload interface{}) ([]byte, error) {
	if c.state.Load() != stateAcquired {
		return nil, ErrClientNotInitialized
	}

	if err := c.gate.Acquire(ctx, 1); err != nil {
		return nil, &RequestError{Method: method, Endpoint: endpoint, Err: err}
	}
	defer c.gate.Release(1)

	url := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	start := time.Now()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &RequestError{Method: method, Endpoint: endpoint, Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, &RequestError{Method: method, Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WithError(err).WithFields(map[string]interface{}{
			"method":      method,
			"url":         url,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Error("Request failed")
		return nil, &RequestError{Method: method, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Method: method, Endpoint: endpoint, Err: err}
	}

	c.log.WithFields(map[string]interface{}{
		"method":      method,
		"url":         url,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Request completed")

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, &MalformedResponseError{Endpoint: endpoint, Err: err}
	}
	if env.StatusCode != statusOK {
		return nil, &ProviderError{StatusCode: env.StatusCode, StatusMessage: env.StatusMessage}
	}

	return respBody, nil
}

// searchVolumeTask is the single task-configuration object POSTed to the
// provider. The protocol accepts multiple tasks per call; this client only
// ever sends one.
type searchVolumeTask struct {
	Keywords       []string `json:"keywords"`
	UseClickstream *bool    `json:"use_clickstream,omitempty"`
	LocationName   string   `json:"location_name,omitempty"`
	LocationCode   int64    `json:"location_code,omitempty"`
	LanguageName   string   `json:"language_name,omitempty"`
	LanguageCode   string   `json:"language_code,omitempty"`
	Tag            string   `json:"tag,omitempty"`
}

// SearchVolume fetches monthly search volumes for keywords in one locale.
// An empty result list is a valid outcome, not an error.
func (c *Client) SearchVolume(ctx context.Context, req SearchVolumeRequest) ([]SearchVolumeResult, error) {
	if len(req.Keywords) == 0 {
		return nil, invalidArgument("keywords list cannot be empty")
	}
	if len(req.Keywords) > maxKeywordsPerRequest {
		return nil, invalidArgument("maximum %d keywords allowed per request", maxKeywordsPerRequest)
	}
	if req.LocationName == "" && req.LocationCode == 0 {
		return nil, invalidArgument("either location_name or location_code is required")
	}
	if req.LanguageName == "" && req.LanguageCode == "" {
		return nil, invalidArgument("either language_name or language_code is required")
	}

	useClickstream := true
	if req.UseClickstream != nil {
		useClickstream = *req.UseClickstream
	}

	task := searchVolumeTask{
		Keywords:       req.Keywords,
		UseClickstream: &useClickstream,
		Tag:            req.Tag,
	}
	// Names take precedence over codes when both are set.
	if req.LocationName != "" {
		task.LocationName = req.LocationName
	} else {
		task.LocationCode = req.LocationCode
	}
	if req.LanguageName != "" {
		task.LanguageName = req.LanguageName
	} else {
		task.LanguageCode = req.LanguageCode
	}

	body, err := c.execute(ctx, http.MethodPost, endpointSearchVolume, []searchVolumeTask{task})
	if err != nil {
		return nil, err
	}

	return c.parseFlatResults(body, endpointSearchVolume)
}

// GlobalSearchVolume fetches clickstream-normalized global volumes with a
// per-country breakdown. Every keyword must be at least 3 characters, a
// provider-side constraint enforced here to avoid a wasted call.
func (c *Client) GlobalSearchVolume(ctx context.Context, req GlobalSearchVolumeRequest) ([]GlobalSearchVolumeResult, error) {
	if len(req.Keywords) == 0 {
		return nil, invalidArgument("keywords list cannot be empty")
	}
	if len(req.Keywords) > maxKeywordsPerRequest {
		return nil, invalidArgument("maximum %d keywords allowed per request", maxKeywordsPerRequest)
	}
	for _, kw := range req.Keywords {
		if utf8.RuneCountInString(kw) < minGlobalKeywordLen {
			return nil, invalidArgument("keyword %q must be at least %d characters", kw, minGlobalKeywordLen)
		}
	}

	task := searchVolumeTask{Keywords: req.Keywords, Tag: req.Tag}
	body, err := c.execute(ctx, http.MethodPost, endpointGlobalSearchVolume, []searchVolumeTask{task})
	if err != nil {
		return nil, err
	}

	return c.parseGlobalResults(body, endpointGlobalSearchVolume)
}

// SearchVolumeByLocation fetches volumes for a single location with no
// language dimension. Unlike GlobalSearchVolume there is no per-keyword
// length check on this path, matching the provider client this replaces.
func (c *Client) SearchVolumeByLocation(ctx context.Context, req SearchVolumeByLocationRequest) ([]SearchVolumeResult, error) {
	if len(req.Keywords) == 0 {
		return nil, invalidArgument("keywords list cannot be empty")
	}
	if req.LocationName == "" && req.LocationCode == 0 {
		return nil, invalidArgument("either location_name or location_code is required")
	}

	task := searchVolumeTask{Keywords: req.Keywords, Tag: req.Tag}
	if req.LocationName != "" {
		task.LocationName = req.LocationName
	} else {
		task.LocationCode = req.LocationCode
	}

	body, err := c.execute(ctx, http.MethodPost, endpointSearchVolumeByLocation, []searchVolumeTask{task})
	if err != nil {
		return nil, err
	}

	return c.parseNestedResults(body, endpointSearchVolumeByLocation)
}

// LocationsAndLanguages returns the raw, envelope-validated response listing
// supported locations and languages. Callers walk it by key; it has never
// warranted a dedicated type.
func (c *Client) LocationsAndLanguages(ctx context.Context) (map[string]interface{}, error) {
	body, err := c.execute(ctx, http.MethodGet, endpointLocationsLanguages, nil)
	if err != nil {
		return nil, err
	}

	var out map[string]interface{}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &MalformedResponseError{Endpoint: endpointLocationsLanguages, Err: err}
	}
	return out, nil
}
