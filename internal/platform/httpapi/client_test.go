package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"session-export/internal/header"
	"session-export/internal/platform"
)

const testKey = "platform.example.org:secret"

// fakeServer is a tiny stand-in for the platform API.
type fakeServer struct {
	t        *testing.T
	uploads  map[string][]byte
	metadata map[string]platform.FileMetadata
	tags     map[string][]string
	created  []map[string]any
}

func newFakeServer(t *testing.T) (*fakeServer, *Client) {
	t.Helper()

	fs := &fakeServer{
		t:        t,
		uploads:  map[string][]byte{},
		metadata: map[string]platform.FileMetadata{},
		tags:     map[string][]string{},
	}

	e := echo.New()
	e.Use(fs.auth)
	e.POST("/api/lookup", fs.lookup)
	e.GET("/api/sessions/:id", fs.getSession)
	e.GET("/api/sessions/:id/acquisitions", fs.listAcquisitions)
	e.POST("/api/subjects", fs.createSubject)
	e.GET("/api/subjects/:id", func(c echo.Context) error {
		return c.JSON(http.StatusOK, platform.Container{ID: c.Param("id"), Label: "SUBJ01"})
	})
	e.GET("/api/projects/:id/rules", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []platform.Rule{{ID: "r1", Name: "classifier"}})
	})
	e.GET("/api/acquisitions/:id", func(c echo.Context) error {
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, []byte(`{"_id":"`+c.Param("id")+`","label":"T1",`+
			`"files":[{"name":"t1.dcm","info":{"header":{"dicom":{"AccessionNumber":9007199254740993,"PatientWeight":70.50}}}}]}`))
	})
	e.GET("/api/acquisitions/:id/files/:name", func(c echo.Context) error {
		return c.Blob(http.StatusOK, "application/octet-stream", []byte("payload:"+c.Param("name")))
	})
	e.POST("/api/acquisitions/:id/files", fs.upload)
	e.POST("/api/sessions/:id/tags", fs.tag)
	e.GET("/api/modalities/:name", func(c echo.Context) error {
		return c.JSON(http.StatusOK, platform.Modality{ID: c.Param("name"), Classification: map[string][]string{
			"Intent": {"Structural", "Functional"},
		}})
	})

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return fs, NewClient(srv.URL+"/api/", testKey)
}

func (fs *fakeServer) auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().Header.Get("Authorization") != "scitran-user "+testKey {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "invalid api key"})
		}

		return next(c)
	}
}

func (fs *fakeServer) lookup(c echo.Context) error {
	var req lookupRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	if len(req.Path) == 2 && req.Path[0] == "grp" && req.Path[1] == "export" {
		return c.JSON(http.StatusOK, platform.Container{ID: "p-export", Type: platform.Project, Label: "export"})
	}

	return c.JSON(http.StatusNotFound, ErrorResponse{Message: "resource not found"})
}

func (fs *fakeServer) getSession(c echo.Context) error {
	if c.Param("id") != "ses1" {
		return c.JSON(http.StatusNotFound, ErrorResponse{Message: "session not found"})
	}

	return c.JSON(http.StatusOK, platform.Container{
		ID:      "ses1",
		Label:   "baseline",
		Tags:    []string{"qc"},
		Parents: platform.Parents{Group: "grp", Project: "p-src", Subject: "sub1"},
		Files:   []platform.File{{Name: "notes.txt", Type: "text"}},
	})
}

func (fs *fakeServer) listAcquisitions(c echo.Context) error {
	acqs := []platform.Container{
		{ID: "acq1", Label: "T1", Info: map[string]any{"export": map[string]any{"origin_id": "abc"}}},
		{ID: "acq2", Label: "001"},
	}

	switch c.QueryParam("filter") {
	case "":
		return c.JSON(http.StatusOK, acqs)
	case "info.export.origin_id=abc":
		return c.JSON(http.StatusOK, acqs[:1])
	case `label="001"`:
		return c.JSON(http.StatusOK, acqs[1:])
	default:
		return c.JSON(http.StatusOK, []platform.Container{})
	}
}

func (fs *fakeServer) createSubject(c echo.Context) error {
	var body map[string]any
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return err
	}

	fs.created = append(fs.created, body)

	return c.JSON(http.StatusOK, createResponse{ID: "sub-new"})
}

func (fs *fakeServer) upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	if string(data) == "reject" {
		return c.JSON(http.StatusBadGateway, ErrorResponse{Message: "storage backend unavailable"})
	}

	var meta platform.FileMetadata
	if err := json.Unmarshal([]byte(c.FormValue("metadata")), &meta); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
	}

	fs.uploads[fh.Filename] = data
	fs.metadata[fh.Filename] = meta

	return c.JSON(http.StatusOK, []platform.File{{Name: fh.Filename}})
}

func (fs *fakeServer) tag(c echo.Context) error {
	var req tagRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	id := c.Param("id")
	for _, t := range fs.tags[id] {
		if t == req.Value {
			return c.JSON(http.StatusConflict, ErrorResponse{Message: "tag already exists"})
		}
	}

	fs.tags[id] = append(fs.tags[id], req.Value)

	return c.NoContent(http.StatusOK)
}

func TestBaseURLFromKey(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{key: "site.example.org:abc", want: "https://site.example.org/api"},
		{key: "localhost:8443:abc", want: "https://localhost:8443/api"},
		{key: "http://localhost:8080:abc", want: "http://localhost:8080/api"},
		{key: "nosite", wantErr: true},
		{key: "site:", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := BaseURLFromKey(tt.key)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_LookupProject(t *testing.T) {
	_, client := newFakeServer(t)
	ctx := context.Background()

	p, err := client.LookupProject(ctx, "grp/export")
	require.NoError(t, err)
	assert.Equal(t, "p-export", p.ID)

	_, err = client.LookupProject(ctx, "grp/missing")
	require.Error(t, err)
	assert.True(t, platform.IsNotFound(err))

	_, err = client.LookupProject(ctx, "just-a-project")
	require.Error(t, err)
}

func TestClient_GetAndChildren(t *testing.T) {
	_, client := newFakeServer(t)
	ctx := context.Background()

	ses, err := client.Get(ctx, platform.Ref{Type: platform.Session, ID: "ses1"})
	require.NoError(t, err)
	assert.Equal(t, platform.Session, ses.Type)
	assert.Equal(t, "sub1", ses.Parents.Subject)

	_, err = client.Get(ctx, platform.Ref{Type: platform.Session, ID: "nope"})
	assert.True(t, platform.IsNotFound(err))

	all, err := client.Children(ctx, ses.Ref(), platform.Acquisition)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, platform.Acquisition, all[0].Type)

	byOrigin, err := client.Children(ctx, ses.Ref(), platform.Acquisition, platform.Eq("info.export.origin_id", "abc"))
	require.NoError(t, err)
	require.Len(t, byOrigin, 1)
	assert.Equal(t, "acq1", byOrigin[0].ID)

	numeric, err := client.Children(ctx, ses.Ref(), platform.Acquisition, platform.Eq("label", "001"))
	require.NoError(t, err)
	require.Len(t, numeric, 1)
	assert.Equal(t, "acq2", numeric[0].ID)
}

func TestClient_InfoNumbersKeepTheirDigits(t *testing.T) {
	_, client := newFakeServer(t)

	acq, err := client.Get(context.Background(), platform.Ref{Type: platform.Acquisition, ID: "acq9"})
	require.NoError(t, err)
	require.Len(t, acq.Files, 1)

	dicom := acq.Files[0].Info["header"].(map[string]any)["dicom"].(map[string]any)
	assert.Equal(t, json.Number("9007199254740993"), dicom["AccessionNumber"])

	v, err := header.ValueOf(dicom["AccessionNumber"])
	require.NoError(t, err)
	assert.Equal(t, header.Value{"9007199254740993"}, v)

	v, err = header.ValueOf(dicom["PatientWeight"])
	require.NoError(t, err)
	assert.Equal(t, header.Value{"70.50"}, v)
}

func TestClient_Create(t *testing.T) {
	fs, client := newFakeServer(t)

	sub, err := client.Create(context.Background(), platform.NewContainer{
		Type:   platform.Subject,
		Parent: platform.Ref{Type: platform.Project, ID: "p-export"},
		Fields: map[string]any{"label": "SUBJ01", "code": "SUBJ01"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sub-new", sub.ID)
	assert.Equal(t, platform.Subject, sub.Type)

	require.Len(t, fs.created, 1)
	assert.Equal(t, map[string]any{"label": "SUBJ01", "code": "SUBJ01", "project": "p-export"}, fs.created[0])
}

func TestClient_FilesAndTags(t *testing.T) {
	fs, client := newFakeServer(t)
	ctx := context.Background()
	acq := platform.Ref{Type: platform.Acquisition, ID: "acq1"}

	data, err := client.Download(ctx, acq, "scan.dcm")
	require.NoError(t, err)
	assert.Equal(t, "payload:scan.dcm", string(data))

	err = client.Upload(ctx, acq, platform.Upload{
		Name:    "scan.dcm",
		Content: []byte("dicom bytes"),
		Metadata: platform.FileMetadata{
			Type: "dicom",
			Info: map[string]any{"export": map[string]any{"origin_id": "f1"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "dicom bytes", string(fs.uploads["scan.dcm"]))
	assert.Equal(t, "dicom", fs.metadata["scan.dcm"].Type)

	err = client.Upload(ctx, acq, platform.Upload{Name: "bad.dcm", Content: []byte("reject")})
	var apiErr *platform.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "storage backend unavailable", apiErr.Message)
	assert.False(t, platform.IsFatal(err))

	ses := platform.Ref{Type: platform.Session, ID: "ses1"}
	require.NoError(t, client.AddTag(ctx, ses, platform.TagExported))
	require.NoError(t, client.AddTag(ctx, ses, platform.TagExported), "duplicate tag is accepted")
	assert.Equal(t, []string{platform.TagExported}, fs.tags["ses1"])
}

func TestClient_RulesAndModality(t *testing.T) {
	_, client := newFakeServer(t)
	ctx := context.Background()

	rules, err := client.Rules(ctx, "p-export")
	require.NoError(t, err)
	assert.Equal(t, []platform.Rule{{ID: "r1", Name: "classifier"}}, rules)

	m, err := client.Modality(ctx, "MR")
	require.NoError(t, err)
	assert.Equal(t, []string{"Structural", "Functional"}, m.Classification["Intent"])
}

func TestClient_ErrorClassification(t *testing.T) {
	_, client := newFakeServer(t)
	client.apiKey = "platform.example.org:wrong"

	_, err := client.LookupProject(context.Background(), "grp/export")
	require.Error(t, err)
	assert.True(t, platform.IsFatal(err))

	unreachable := NewClient("http://127.0.0.1:1/api", testKey)
	_, err = unreachable.Rules(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, platform.ErrUnavailable)
	assert.True(t, platform.IsFatal(err))
}
