// Package httpapi implements platform.Client over the platform's REST API.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"session-export/internal/platform"
)

const defaultTimeout = 30 * time.Second

// Client is an HTTP client for the platform API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ platform.Client = (*Client)(nil)

// NewClient creates a client for baseURL (".../api") authenticating with
// apiKey.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// BaseURLFromKey derives the API base URL from a "host[:port]:secret" key.
func BaseURLFromKey(apiKey string) (string, error) {
	i := strings.LastIndex(apiKey, ":")
	if i <= 0 || i == len(apiKey)-1 {
		return "", errors.New("api key has no site prefix; set the API URL explicitly")
	}

	host := apiKey[:i]
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}

	return strings.TrimSuffix(host, "/") + "/api", nil
}

// ErrorResponse is the error body returned by the platform.
type ErrorResponse struct {
	Message string `json:"message"`
}

type lookupRequest struct {
	Path []string `json:"path"`
}

type createResponse struct {
	ID string `json:"_id"`
}

type tagRequest struct {
	Value string `json:"value"`
}

// LookupProject resolves "group/project".
func (c *Client) LookupProject(ctx context.Context, path string) (*platform.Container, error) {
	group, project, ok := strings.Cut(path, "/")
	if !ok || group == "" || project == "" || strings.Contains(project, "/") {
		return nil, fmt.Errorf("invalid project path %q, expected group/project", path)
	}

	var ct platform.Container
	if err := c.doJSON(ctx, http.MethodPost, "/lookup", lookupRequest{Path: []string{group, project}}, &ct); err != nil {
		return nil, fmt.Errorf("looking up project %s: %w", path, err)
	}

	if ct.Type == "" {
		ct.Type = platform.Project
	}

	if ct.Type != platform.Project {
		return nil, fmt.Errorf("looking up project %s: resolved to a %s: %w", path, ct.Type, platform.ErrNotFound)
	}

	return &ct, nil
}

// Get loads a container.
func (c *Client) Get(ctx context.Context, ref platform.Ref) (*platform.Container, error) {
	var ct platform.Container
	if err := c.doJSON(ctx, http.MethodGet, containerPath(ref), nil, &ct); err != nil {
		return nil, fmt.Errorf("loading %s: %w", ref, err)
	}

	if ct.Type == "" {
		ct.Type = ref.Type
	}

	return &ct, nil
}

// Children lists child containers, filtered server side.
func (c *Client) Children(
	ctx context.Context,
	parent platform.Ref,
	childType platform.ContainerType,
	filters ...platform.Filter,
) ([]platform.Container, error) {
	path := containerPath(parent) + "/" + childType.Plural()
	if len(filters) > 0 {
		path += "?" + url.Values{"filter": {platform.FilterString(filters)}}.Encode()
	}

	var out []platform.Container
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("listing %s of %s: %w", childType.Plural(), parent, err)
	}

	for i := range out {
		if out[i].Type == "" {
			out[i].Type = childType
		}
	}

	return out, nil
}

// Create makes a container under spec.Parent.
func (c *Client) Create(ctx context.Context, spec platform.NewContainer) (*platform.Container, error) {
	body := make(map[string]any, len(spec.Fields)+1)
	for k, v := range spec.Fields {
		body[k] = v
	}

	body[string(spec.Parent.Type)] = spec.Parent.ID

	var created createResponse
	if err := c.doJSON(ctx, http.MethodPost, "/"+spec.Type.Plural(), body, &created); err != nil {
		return nil, fmt.Errorf("creating %s under %s: %w", spec.Type, spec.Parent, err)
	}

	return c.Get(ctx, platform.Ref{Type: spec.Type, ID: created.ID})
}

// Rules lists the gear rules of a project.
func (c *Client) Rules(ctx context.Context, projectID string) ([]platform.Rule, error) {
	var rules []platform.Rule
	if err := c.doJSON(ctx, http.MethodGet, "/projects/"+url.PathEscape(projectID)+"/rules", nil, &rules); err != nil {
		return nil, fmt.Errorf("listing rules of project %s: %w", projectID, err)
	}

	return rules, nil
}

// Download fetches a file's content.
func (c *Client) Download(ctx context.Context, parent platform.Ref, name string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, filePath(parent, name), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading %s from %s: %w", name, parent, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("downloading %s from %s: %w", name, parent, err)
	}

	return data, nil
}

// Upload attaches a file with its metadata in one multipart request.
func (c *Client) Upload(ctx context.Context, parent platform.Ref, upload platform.Upload) error {
	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	meta, err := json.Marshal(upload.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal file metadata: %w", err)
	}

	if err := mw.WriteField("metadata", string(meta)); err != nil {
		return fmt.Errorf("writing metadata part: %w", err)
	}

	part, err := mw.CreateFormFile("file", upload.Name)
	if err != nil {
		return fmt.Errorf("creating file part: %w", err)
	}

	if _, err := part.Write(upload.Content); err != nil {
		return fmt.Errorf("writing file part: %w", err)
	}

	if err := mw.Close(); err != nil {
		return fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, containerPath(parent)+"/files", &buf)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("uploading %s to %s: %w", upload.Name, parent, err)
	}

	return resp.Body.Close()
}

// AddTag tags a container; a tag that is already present is accepted.
func (c *Client) AddTag(ctx context.Context, ref platform.Ref, tag string) error {
	err := c.doJSON(ctx, http.MethodPost, containerPath(ref)+"/tags", tagRequest{Value: tag}, nil)

	var apiErr *platform.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
		return nil
	}

	if err != nil {
		return fmt.Errorf("tagging %s with %s: %w", ref, tag, err)
	}

	return nil
}

// Modality loads a modality schema.
func (c *Client) Modality(ctx context.Context, name string) (*platform.Modality, error) {
	var m platform.Modality
	if err := c.doJSON(ctx, http.MethodGet, "/modalities/"+url.PathEscape(name), nil, &m); err != nil {
		return nil, fmt.Errorf("loading modality %s: %w", name, err)
	}

	return &m, nil
}

func containerPath(ref platform.Ref) string {
	return "/" + ref.Type.Plural() + "/" + url.PathEscape(ref.ID)
}

func filePath(parent platform.Ref, name string) string {
	return containerPath(parent) + "/files/" + url.PathEscape(name)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "scitran-user "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	return req, nil
}

// do sends req and turns transport failures and non-2xx responses into
// platform errors. The caller closes the body of a successful response.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", platform.ErrUnavailable, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()

	apiErr := &platform.APIError{
		StatusCode: resp.StatusCode,
		Method:     req.Method,
		Path:       req.URL.Path,
	}

	var errResp ErrorResponse
	if body, readErr := io.ReadAll(resp.Body); readErr == nil && json.Unmarshal(body, &errResp) == nil {
		apiErr.Message = errResp.Message
	}

	return nil, apiErr
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader

	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}

		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}

	// Numbers inside info stay json.Number so large integers keep their digits.
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()

	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
