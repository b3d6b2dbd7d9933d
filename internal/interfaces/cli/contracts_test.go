package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer responds to the API paths the CLI exercises.
func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/contracts", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Filename string `json:"filename"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"id": "c1", "filename": req.Filename, "status": "uploaded"},
		})
	})
	mux.HandleFunc("GET /api/v1/contracts", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": []map[string]any{
				{"id": "c1", "filename": "msa.txt", "status": "completed", "risk_level": "medium", "clause_count": 12},
			},
			"pagination": map[string]any{"page": 1, "page_size": 20, "total": 1},
		})
	})
	mux.HandleFunc("GET /api/v1/contracts/c1/status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"id": "c1", "status": "processing"},
		})
	})
	mux.HandleFunc("DELETE /api/v1/contracts/c1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]any{"deleted": "c1"}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestContractsUpload(t *testing.T) {
	srv := fakeServer(t)

	path := filepath.Join(t.TempDir(), "msa.txt")
	require.NoError(t, os.WriteFile(path, []byte("This Agreement."), 0o644))

	out, err := runCLI(t, "contracts", "upload", "--file", path, "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Uploaded msa.txt as c1")
}

func TestContractsList_Table(t *testing.T) {
	srv := fakeServer(t)

	out, err := runCLI(t, "contracts", "list", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "FILENAME")
	assert.Contains(t, out, "msa.txt")
	assert.Contains(t, out, "Page 1 of 1 total contracts")
}

func TestContractsStatus(t *testing.T) {
	srv := fakeServer(t)

	out, err := runCLI(t, "contracts", "status", "c1", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "c1: processing")
}

func TestContractsDelete(t *testing.T) {
	srv := fakeServer(t)

	out, err := runCLI(t, "contracts", "delete", "c1", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted c1")
}

func TestContracts_ServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   map[string]string{"code": "CTR_001", "message": "contract not found"},
		})
	}))
	t.Cleanup(srv.Close)

	_, err := runCLI(t, "contracts", "status", "missing", "--server", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CTR_001")
}
