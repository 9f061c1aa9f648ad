package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/gso-bench/gso-ingest/internal/models"
	"github.com/gso-bench/gso-ingest/internal/session"
)

// writeSubmission creates a submission directory with n trajectory lines.
func writeSubmission(t *testing.T, root, name string, n int, withLogs bool) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	var b strings.Builder
	for i := range n {
		b.WriteString(strings.Replace(sampleLine, "numpy__numpy-1", fmt.Sprintf("%s-%d", name, i), 1))
		b.WriteString("\n\n")
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "output.jsonl"), []byte(b.String()), 0o644))

	if withLogs {
		logs := filepath.Join(dir, "logs")
		require.NoError(t, os.MkdirAll(logs, 0o755))
		report := fmt.Sprintf(`{"instance_sets":{"passed_ids":["%s-0"]}}`, name)
		require.NoError(t, os.WriteFile(filepath.Join(logs, "model.run1.report.json"), []byte(report), 0o644))
	}
	return dir
}

func TestResolveSource(t *testing.T) {
	dir := writeSubmission(t, t.TempDir(), "claude-run", 1, true)

	var notes bytes.Buffer
	src, err := ResolveSource(dir, SourceOptions{}, &notes)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "output.jsonl"), src.TrajectoryFile)
	assert.Equal(t, filepath.Join(dir, "logs"), src.LogsDir)
	assert.Equal(t, "claude-run", src.ModelName)
	require.NotNil(t, src.RunReport)
	assert.Equal(t, []string{"claude-run-0"}, src.RunReport.InstanceSets.PassedIDs)
	assert.Empty(t, notes.String())
}

func TestResolveSource_NoLogs(t *testing.T) {
	dir := writeSubmission(t, t.TempDir(), "m", 1, false)

	var notes bytes.Buffer
	src, err := ResolveSource(dir, SourceOptions{ModelName: "override"}, &notes)
	require.NoError(t, err)
	assert.Empty(t, src.LogsDir)
	assert.Nil(t, src.RunReport)
	assert.Equal(t, "override", src.ModelName)
	assert.Contains(t, notes.String(), "No logs directory found, scoring info will be limited")
}

func TestResolveSource_ExplicitReport(t *testing.T) {
	root := t.TempDir()
	dir := writeSubmission(t, root, "m", 1, true)

	explicit := filepath.Join(root, "explicit.json")
	require.NoError(t, os.WriteFile(explicit, []byte(`{"instance_sets":{"error_ids":["m-0"]}}`), 0o644))

	src, err := ResolveSource(dir, SourceOptions{ReportFile: explicit}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"m-0"}, src.RunReport.InstanceSets.ErrorIDs)

	// An unreadable explicit report falls back to the logs directory.
	require.NoError(t, os.WriteFile(explicit, []byte(`{broken`), 0o644))
	src, err = ResolveSource(dir, SourceOptions{ReportFile: explicit}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"m-0"}, src.RunReport.InstanceSets.PassedIDs)
}

func TestResolveSource_Errors(t *testing.T) {
	_, err := ResolveSource(filepath.Join(t.TempDir(), "missing"), SourceOptions{}, nil)
	require.Error(t, err)

	_, err = ResolveSource(t.TempDir(), SourceOptions{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trajectory file not found")
}

func TestDiscoverSources(t *testing.T) {
	root := t.TempDir()
	writeSubmission(t, root, "b-model", 1, false)
	writeSubmission(t, root, "a-model", 1, true)

	srcs, err := DiscoverSources(root, nil)
	require.NoError(t, err)
	require.Len(t, srcs, 2)
	assert.Equal(t, "a-model", srcs[0].ModelName)
	assert.Equal(t, "b-model", srcs[1].ModelName)

	_, err = DiscoverSources(t.TempDir(), nil)
	require.ErrorIs(t, err, ErrNoTrajectories)
}

func TestIngester_CreatesPublicCollection(t *testing.T) {
	dir := writeSubmission(t, t.TempDir(), "m", 3, true)
	src, err := ResolveSource(dir, SourceOptions{}, nil)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	sink := NewMockSink(ctrl)
	gomock.InOrder(
		sink.EXPECT().CreateCollection(gomock.Any(), "gso", CollectionDescription).Return("col-9", nil),
		sink.EXPECT().MakeCollectionPublic(gomock.Any(), "col-9").Return(nil),
		sink.EXPECT().AddAgentRuns(gomock.Any(), "col-9", gomock.Len(2)).Return(nil),
		sink.EXPECT().AddAgentRuns(gomock.Any(), "col-9", gomock.Len(1)).Return(nil),
	)

	logPath := filepath.Join(t.TempDir(), "s"+session.LogSuffix)
	logger, err := session.Create(logPath)
	require.NoError(t, err)

	var out bytes.Buffer
	res, err := New(sink, Options{
		CollectionName: "gso",
		BatchSize:      2,
		Public:         true,
		Session:        logger,
		Out:            &out,
	}).Run(context.Background(), []*Source{src})
	require.NoError(t, err)
	require.NoError(t, logger.Close())

	assert.Equal(t, "col-9", res.CollectionID)
	assert.True(t, res.Created)
	assert.True(t, res.Public)
	assert.Equal(t, 2, res.Upload.Sent)
	assert.Equal(t, 2, res.Batches)

	stats := res.Stats()
	assert.Equal(t, 3, stats.Prepared)
	assert.Equal(t, 3, stats.Blank)
	assert.Equal(t, 1, stats.Statuses[models.StatusPassed])

	assert.Contains(t, out.String(), "Prepared 3 runs")
	assert.Contains(t, out.String(), "Created public collection: gso (col-9)")

	events, err := session.ReadEvents(logPath)
	require.NoError(t, err)
	var types []session.EventType
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []session.EventType{
		session.EventIngestStart,
		session.EventCollectionReady,
		session.EventBatchUploaded,
		session.EventBatchUploaded,
		session.EventIngestComplete,
	}, types)
}

func TestIngester_ExistingCollection(t *testing.T) {
	dir := writeSubmission(t, t.TempDir(), "m", 1, false)
	src, err := ResolveSource(dir, SourceOptions{}, nil)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	sink := NewMockSink(ctrl)
	sink.EXPECT().AddAgentRuns(gomock.Any(), "existing", gomock.Len(1)).Return(nil)

	res, err := New(sink, Options{CollectionID: "existing", Public: true}).Run(context.Background(), []*Source{src})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "existing", res.CollectionID)
}

func TestIngester_DeclinedPublish(t *testing.T) {
	dir := writeSubmission(t, t.TempDir(), "m", 1, false)
	src, err := ResolveSource(dir, SourceOptions{}, nil)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	sink := NewMockSink(ctrl)
	sink.EXPECT().CreateCollection(gomock.Any(), "gso", CollectionDescription).Return("c", nil)
	sink.EXPECT().AddAgentRuns(gomock.Any(), "c", gomock.Any()).Return(nil)

	var asked string
	res, err := New(sink, Options{
		CollectionName: "gso",
		Public:         true,
		ConfirmPublic: func(name string) (bool, error) {
			asked = name
			return false, nil
		},
	}).Run(context.Background(), []*Source{src})
	require.NoError(t, err)
	assert.Equal(t, "gso", asked)
	assert.False(t, res.Public)
}

func TestIngester_UnsupportedPublish(t *testing.T) {
	dir := writeSubmission(t, t.TempDir(), "m", 1, false)
	src, err := ResolveSource(dir, SourceOptions{}, nil)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	sink := NewMockSink(ctrl)
	sink.EXPECT().CreateCollection(gomock.Any(), "gso", CollectionDescription).Return("c", nil)
	sink.EXPECT().MakeCollectionPublic(gomock.Any(), "c").Return(fmt.Errorf("blob: %w", errors.ErrUnsupported))
	sink.EXPECT().AddAgentRuns(gomock.Any(), "c", gomock.Any()).Return(nil)

	res, err := New(sink, Options{CollectionName: "gso", Public: true}).Run(context.Background(), []*Source{src})
	require.NoError(t, err)
	assert.False(t, res.Public)
}

func TestIngester_PartialFailure(t *testing.T) {
	dir := writeSubmission(t, t.TempDir(), "m", 3, false)
	src, err := ResolveSource(dir, SourceOptions{}, nil)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	sink := NewMockSink(ctrl)
	gomock.InOrder(
		sink.EXPECT().AddAgentRuns(gomock.Any(), "c", gomock.Any()).Return(errors.New("boom")),
		sink.EXPECT().AddAgentRuns(gomock.Any(), "c", gomock.Any()).Return(nil),
	)

	res, err := New(sink, Options{CollectionID: "c", BatchSize: 2}).Run(context.Background(), []*Source{src})
	var pf *PartialFailureError
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, 1, pf.Failed)
	assert.Equal(t, 2, pf.Total)
	assert.Equal(t, 1, res.Upload.Sent)
}

func TestIngester_CreateFails(t *testing.T) {
	dir := writeSubmission(t, t.TempDir(), "m", 1, false)
	src, err := ResolveSource(dir, SourceOptions{}, nil)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	sink := NewMockSink(ctrl)
	sink.EXPECT().CreateCollection(gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("denied"))

	_, err = New(sink, Options{CollectionName: "gso"}).Run(context.Background(), []*Source{src})
	require.EqualError(t, err, "denied")
}

func TestIngester_RequiresCollection(t *testing.T) {
	dir := writeSubmission(t, t.TempDir(), "m", 1, false)
	src, err := ResolveSource(dir, SourceOptions{}, nil)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	_, err = New(NewMockSink(ctrl), Options{}).Run(context.Background(), []*Source{src})
	require.Error(t, err)

	_, err = New(NewMockSink(ctrl), Options{CollectionID: "c"}).Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoTrajectories)
}

func TestFileSource(t *testing.T) {
	dir := writeSubmission(t, t.TempDir(), "gz-model", 1, true)
	other := filepath.Join(dir, "subset.jsonl")
	require.NoError(t, os.WriteFile(other, []byte(sampleLine+"\n"), 0o644))

	src, err := FileSource(other, SourceOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, other, src.TrajectoryFile)
	assert.Equal(t, "gz-model", src.ModelName)
	assert.NotNil(t, src.RunReport)

	_, err = FileSource(filepath.Join(dir, "missing.jsonl"), SourceOptions{}, nil)
	require.Error(t, err)
}
