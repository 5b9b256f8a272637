package sheetclient_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetdrop/sheetclient"
	"sheetdrop/uploadserver"
)

func TestClient_EndToEnd(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Input_Spreadsheets")
	srv := httptest.NewServer(uploadserver.NewHandler(&uploadserver.DiskStore{Dir: dir}, prometheus.NewRegistry()))
	defer srv.Close()

	var sel sheetclient.Selection
	require.True(t, sel.AcceptFile(sheetclient.Candidate{
		Name:     "Quarterly.XLS",
		MIMEType: sheetclient.MIMETypeXLS,
		Data:     []byte("workbook"),
	}))

	res, err := sel.Submit(context.Background(), sheetclient.NewClient(srv.URL+"/"))
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "Quarterly", res.ProjectID)
	assert.Equal(t, filepath.Join(dir, "Quarterly.xlsx"), res.SavedPath)
	assert.Equal(t, sheetclient.MsgUploaded, sel.Snapshot().Message)

	got, err := os.ReadFile(res.SavedPath)
	require.NoError(t, err)
	assert.Equal(t, "workbook", string(got))
}

func TestClient_ServerErrorMessage(t *testing.T) {
	srv := httptest.NewServer(uploadserver.NewHandler(&uploadserver.DiskStore{Dir: t.TempDir()}, prometheus.NewRegistry()))
	defer srv.Close()

	// The server check is stricter than the client's MIME-based acceptance.
	_, err := sheetclient.NewClient(srv.URL).Upload(context.Background(), sheetclient.Candidate{
		Name:     "export",
		MIMEType: sheetclient.MIMETypeXLSX,
		Data:     []byte("x"),
	})

	var upErr *sheetclient.UploadError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusBadRequest, upErr.Status)
	assert.Equal(t, "Only .xlsx/.xls files are supported", upErr.Error())
}

func TestClient_NonJSONFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "<html>bad gateway</html>", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := sheetclient.NewClient(srv.URL).Upload(context.Background(), sheetclient.Candidate{Name: "a.xlsx"})

	var upErr *sheetclient.UploadError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusBadGateway, upErr.Status)
	assert.Equal(t, "Upload failed", upErr.Message)
}

func TestClient_SendsMultipartFileField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/upload", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		file, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		assert.Equal(t, "a b.xlsx", hdr.Filename)
		assert.Equal(t, sheetclient.MIMETypeXLSX, hdr.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"projectId":"a b","savedPath":"/x/a b.xlsx"}`))
	}))
	defer srv.Close()

	res, err := sheetclient.NewClient(srv.URL).Upload(context.Background(), sheetclient.Candidate{
		Name:     "a b.xlsx",
		MIMEType: sheetclient.MIMETypeXLSX,
		Data:     []byte("x"),
	})
	require.NoError(t, err)
	assert.Equal(t, "a b", res.ProjectID)
}

func TestClient_FilenameEscaping(t *testing.T) {
	names := []string{`we"ird.xlsx`, `back\slash.xlsx`, `café résumé.xlsx`}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, hdr, err := r.FormFile("file")
				if !assert.NoError(t, err) {
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
				assert.Equal(t, name, hdr.Filename)
				w.Write([]byte(`{"ok":true}`))
			}))
			defer srv.Close()

			_, err := sheetclient.NewClient(srv.URL).Upload(context.Background(), sheetclient.Candidate{Name: name, Data: []byte("x")})
			require.NoError(t, err)
		})
	}
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var sel sheetclient.Selection
	sel.AcceptFile(sheetclient.Candidate{Name: "a.xlsx"})
	_, err := sel.Submit(context.Background(), sheetclient.NewClient(url))

	require.Error(t, err)
	snap := sel.Snapshot()
	assert.Equal(t, sheetclient.FileSelected, snap.Phase)
	assert.NotEmpty(t, snap.Error)
}
