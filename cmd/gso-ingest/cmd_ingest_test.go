package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gso-bench/gso-ingest/internal/docent"
	"github.com/gso-bench/gso-ingest/internal/ingest"
)

func TestIngest_DirSink(t *testing.T) {
	root := t.TempDir()
	sub := writeSubmission(t, root, "o3-run", "numpy__numpy-1", "pandas__pandas-2", "pillow__pillow-3")
	outDir := filepath.Join(root, "out")

	stdout, _, err := runCLI(t, root,
		"ingest", "--submission-dir", sub, "--collection-name", "GSO o3", "--sink", "dir", "--out-dir", outDir, "--batch-size", "2")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Prepared 3 runs")
	assert.Contains(t, stdout, "Created collection: GSO o3")
	assert.Contains(t, stdout, "Malformed")
	assert.Contains(t, stdout, "Status passed")
	assert.Contains(t, stdout, "Collection ID: gso-o3-")
	assert.NotContains(t, stdout, "View at:")

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	collection := filepath.Join(outDir, entries[0].Name())
	data, err := os.ReadFile(filepath.Join(collection, "o3-run__numpy__numpy-1.json"))
	require.NoError(t, err)

	var run map[string]any
	require.NoError(t, json.Unmarshal(data, &run))
	md := run["metadata"].(map[string]any)
	assert.Equal(t, "numpy__numpy-1", md["instance_id"])
	assert.Equal(t, "o3-run", md["model_name"])
	assert.Equal(t, "passed", md["scores"].(map[string]any)["status"])

	msgs := run["transcripts"].([]any)[0].(map[string]any)["messages"].([]any)
	assert.Len(t, msgs, 4)
}

func TestIngest_Recursive(t *testing.T) {
	root := t.TempDir()
	base := filepath.Join(root, "submissions")
	writeSubmission(t, base, "model-a", "a-1")
	writeSubmission(t, base, "model-b", "b-1", "b-2")
	outDir := filepath.Join(root, "out")

	stdout, _, err := runCLI(t, root,
		"ingest", "--submission-dir", base, "--recursive", "--collection-name", "all", "--sink", "dir", "--out-dir", outDir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Prepared 3 runs")
	assert.Contains(t, stdout, "model-a")
	assert.Contains(t, stdout, "model-b")
}

func TestIngest_RecursiveRejectsPerSourceFlags(t *testing.T) {
	root := t.TempDir()
	base := filepath.Join(root, "submissions")
	writeSubmission(t, base, "model-a", "a-1")

	for _, flag := range []string{"--logs-dir", "--report-file", "--model-name"} {
		t.Run(flag, func(t *testing.T) {
			_, _, err := runCLI(t, root,
				"ingest", "--submission-dir", base, "--recursive", flag, "x",
				"--collection-name", "all", "--sink", "dir", "--out-dir", filepath.Join(root, "out"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), flag+" cannot be combined with --recursive")
		})
	}
}

func TestIngest_Docent(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
		runs  int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		paths = append(paths, r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		switch {
		case r.URL.Path == "/create":
			_, _ = io.WriteString(w, `{"collection_id":"col-42"}`)
		case strings.HasSuffix(r.URL.Path, "/agent_runs"):
			var body struct {
				AgentRuns []json.RawMessage `json:"agent_runs"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			runs += len(body.AgentRuns)
		}
	}))
	defer srv.Close()

	root := t.TempDir()
	sub := writeSubmission(t, root, "o3", "a", "b")
	config := "docent:\n  base_url: " + srv.URL + "\n  api_key_env: TEST_DOCENT_KEY\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gso-ingest.yaml"), []byte(config), 0o644))
	t.Setenv("TEST_DOCENT_KEY", "test-key")

	stdout, _, err := runCLI(t, root, "ingest", "--submission-dir", sub, "--collection-name", "gso")
	require.NoError(t, err)

	assert.Equal(t, []string{"/create", "/col-42/make_public", "/col-42/agent_runs"}, paths)
	assert.Equal(t, 2, runs)
	assert.Contains(t, stdout, "Created public collection: gso (col-42)")
	assert.Contains(t, stdout, "View at: https://docent.transluce.org/dashboard/col-42")
}

func TestIngest_DocentPartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	root := t.TempDir()
	sub := writeSubmission(t, root, "o3", "a")
	config := "docent:\n  base_url: " + srv.URL + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gso-ingest.yaml"), []byte(config), 0o644))
	t.Setenv("DOCENT_API_KEY", "k")

	_, _, err := runCLI(t, root, "ingest", "--submission-dir", sub, "--collection-id", "existing")
	var partial *ingest.PartialFailureError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, ExitPartialFailure, exitCode(err, io.Discard))
}

func TestIngest_MissingAPIKey(t *testing.T) {
	root := t.TempDir()
	sub := writeSubmission(t, root, "o3", "a")
	t.Setenv("DOCENT_API_KEY", "")

	_, _, err := runCLI(t, root, "ingest", "--submission-dir", sub, "--collection-name", "x")
	require.ErrorIs(t, err, docent.ErrMissingAPIKey)
	assert.Contains(t, err.Error(), "DOCENT_API_KEY")
}

func TestIngest_EnvFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer from-env-file", r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	root := t.TempDir()
	sub := writeSubmission(t, root, "o3", "a")
	config := "docent:\n  base_url: " + srv.URL + "\n  api_key_env: GSO_TEST_ENVFILE_KEY\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gso-ingest.yaml"), []byte(config), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("GSO_TEST_ENVFILE_KEY=from-env-file\n"), 0o644))
	t.Setenv("GSO_TEST_ENVFILE_KEY", "")
	require.NoError(t, os.Unsetenv("GSO_TEST_ENVFILE_KEY"))

	_, _, err := runCLI(t, root, "ingest", "--submission-dir", sub, "--collection-id", "c")
	require.NoError(t, err)
}

func TestIngest_FlagErrors(t *testing.T) {
	root := t.TempDir()
	sub := writeSubmission(t, root, "o3", "a")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no collection", []string{"ingest", "--submission-dir", sub, "--sink", "dir"}, "--collection-name or --collection-id"},
		{"bad sink", []string{"ingest", "--submission-dir", sub, "--collection-id", "c", "--sink", "s3"}, `unknown sink "s3"`},
		{"bad batch", []string{"ingest", "--submission-dir", sub, "--collection-id", "c", "--batch-size", "0"}, "--batch-size must be positive"},
		{"missing dir", []string{"ingest", "--submission-dir", filepath.Join(root, "nope"), "--collection-id", "c", "--sink", "dir"}, "submission directory not found"},
		{"no submission flag", []string{"ingest", "--collection-id", "c"}, "submission-dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, root, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestIngest_SessionLog(t *testing.T) {
	root := t.TempDir()
	sub := writeSubmission(t, root, "o3", "a")
	config := "ingest:\n  session_dir: " + filepath.Join(root, "sessions") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gso-ingest.yaml"), []byte(config), 0o644))

	stdout, _, err := runCLI(t, root,
		"ingest", "--submission-dir", sub, "--collection-name", "x", "--sink", "dir", "--out-dir", filepath.Join(root, "out"), "--session-log")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Session log: ")

	listOut, _, err := runCLI(t, root, "session", "list")
	require.NoError(t, err)
	assert.Contains(t, listOut, "-ingest.jsonl")

	files, err := filepath.Glob(filepath.Join(root, "sessions", "*-ingest.jsonl"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	viewOut, _, err := runCLI(t, root, "session", "view", files[0])
	require.NoError(t, err)
	assert.Contains(t, viewOut, "INGEST TIMELINE")
	assert.Contains(t, viewOut, "skipped (malformed)")
	assert.Contains(t, viewOut, "Ingest complete")
}

func TestConfirmPublish(t *testing.T) {
	orig := promptConfirm
	t.Cleanup(func() { promptConfirm = orig })

	var asked string
	promptConfirm = func(_ io.Reader, _ io.Writer, question string) bool {
		asked = question
		return false
	}

	ok, err := confirmPublish(strings.NewReader(""), io.Discard, true)("gso")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "Make collection gso publicly viewable?", asked)

	asked = ""
	ok, err = confirmPublish(strings.NewReader(""), io.Discard, false)("gso")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, asked)
}
