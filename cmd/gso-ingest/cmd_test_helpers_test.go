package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testTrajectory = `{"instance_id":"%s","history":[` +
	`{"source":"user","action":"message","content":"make it faster"},` +
	`{"source":"agent","action":"run","args":{"command":"pytest","thought":"run the tests"}},` +
	`{"source":"environment","observation":"run","content":"3 passed"},` +
	`{"source":"agent","action":"finish","args":{"final_thought":"done"}}` +
	`],"metadata":{"agent_class":"CodeActAgent","llm_config":{"model":"o3"}},"test_result":{"git_patch":"diff --git"}}`

// writeSubmission lays out <root>/<name>/output.jsonl and logs/ with a run report
// marking the first instance as passed.
func writeSubmission(t *testing.T, root, name string, ids ...string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs"), 0o755))

	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, testTrajectory+"\n", id)
	}
	b.WriteString("\n{not json}\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "output.jsonl"), []byte(b.String()), 0o644))

	report := fmt.Sprintf(`{"instance_sets":{"passed_ids":[%q]}}`, ids[0])
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logs", name+".run.report.json"), []byte(report), 0o644))
	return dir
}

// runCLI executes the root command in dir and returns stdout, stderr and the error.
func runCLI(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	t.Chdir(dir)

	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
