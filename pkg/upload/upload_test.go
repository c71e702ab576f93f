package upload_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jaffee/respcli/pkg/upload"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	registerErrs map[string]error
	attachErrs   map[string]error
	panics       map[string]bool
	delay        time.Duration

	active    int64
	maxActive int64

	mu       sync.Mutex
	attached map[string]string // content id -> destination
	order    []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		registerErrs: map[string]error{},
		attachErrs:   map[string]error{},
		panics:       map[string]bool{},
		attached:     map[string]string{},
	}
}

func (f *fakeRemote) Register(ctx context.Context, name string, content []byte, purpose string) (string, error) {
	n := atomic.AddInt64(&f.active, 1)
	for {
		m := atomic.LoadInt64(&f.maxActive)
		if n <= m || atomic.CompareAndSwapInt64(&f.maxActive, m, n) {
			break
		}
	}
	time.Sleep(f.delay)
	if f.panics[name] {
		atomic.AddInt64(&f.active, -1)
		panic("boom")
	}
	if err := f.registerErrs[name]; err != nil {
		atomic.AddInt64(&f.active, -1)
		return "", err
	}
	if purpose != upload.PurposeAssistants {
		atomic.AddInt64(&f.active, -1)
		return "", errors.Errorf("bad purpose %s", purpose)
	}
	return "file-" + name, nil
}

func (f *fakeRemote) Attach(ctx context.Context, destinationID, contentID string) (string, error) {
	defer atomic.AddInt64(&f.active, -1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order = append(f.order, contentID)
	if err := f.attachErrs[contentID]; err != nil {
		return "", err
	}
	f.attached[contentID] = destinationID
	return "in_progress", nil
}

func writeFiles(t *testing.T, n int) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, n)
	for i := range paths {
		paths[i] = filepath.Join(dir, fmt.Sprintf("doc%d.txt", i+1))
		require.NoError(t, os.WriteFile(paths[i], []byte(fmt.Sprintf("content %d", i+1)), 0o600))
	}
	return paths
}

func TestUploadBatchAllSucceed(t *testing.T) {
	remote := newFakeRemote()
	paths := writeFiles(t, 3)

	u := upload.New(remote, upload.Config{Concurrency: 2})
	report, err := u.UploadBatch(context.Background(), paths, "vs_1")
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.Empty(t, report.Errors)
	assert.Len(t, remote.attached, 3)
	for _, res := range report.Results {
		assert.Equal(t, "in_progress", res.Status)
		assert.Equal(t, "vs_1", remote.attached[res.ContentID])
	}
}

func TestUploadBatchRegisterFailure(t *testing.T) {
	remote := newFakeRemote()
	paths := writeFiles(t, 3)
	remote.registerErrs["doc2.txt"] = errors.New("network error")

	u := upload.New(remote, upload.Config{})
	report, err := u.UploadBatch(context.Background(), paths, "vs_1")
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	require.Equal(t, []upload.Failure{{File: "doc2.txt", Phase: upload.PhaseRegister, Error: "network error"}}, report.Errors)

	// attach must never be attempted for the failed unit
	assert.NotContains(t, remote.order, "file-doc2.txt")
}

func TestUploadBatchAttachFailure(t *testing.T) {
	remote := newFakeRemote()
	paths := writeFiles(t, 2)
	remote.attachErrs["file-doc1.txt"] = errors.New("vector store not found")

	report, err := upload.New(remote, upload.Config{}).UploadBatch(context.Background(), paths, "vs_missing")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Succeeded)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, upload.PhaseAttach, report.Errors[0].Phase)
	assert.Equal(t, "doc1.txt", report.Errors[0].File)
}

func TestUploadBatchEmpty(t *testing.T) {
	remote := newFakeRemote()
	report, err := upload.New(remote, upload.Config{}).UploadBatch(context.Background(), nil, "vs_1")
	require.NoError(t, err)
	assert.Equal(t, &upload.Report{}, report)
	assert.Equal(t, int64(0), remote.maxActive)
}

func TestUploadBatchConcurrencyBound(t *testing.T) {
	cases := []struct {
		concurrency int
		files       int
	}{
		{concurrency: 1, files: 5},
		{concurrency: 2, files: 7},
		{concurrency: 4, files: 20},
	}

	for i, tst := range cases {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			remote := newFakeRemote()
			remote.delay = 5 * time.Millisecond
			paths := writeFiles(t, tst.files)

			var progressed int
			u := upload.New(remote, upload.Config{
				Concurrency: tst.concurrency,
				Progress:    func(upload.Result) { progressed++ },
			})
			report, err := u.UploadBatch(context.Background(), paths, "vs_1")
			require.NoError(t, err)

			assert.LessOrEqual(t, remote.maxActive, int64(tst.concurrency))
			assert.Equal(t, tst.files, report.Total)
			assert.Equal(t, report.Total, report.Succeeded+report.Failed)
			assert.Equal(t, tst.files, progressed)
		})
	}
}

func TestUploadBatchSumInvariant(t *testing.T) {
	remote := newFakeRemote()
	paths := writeFiles(t, 10)
	remote.registerErrs["doc3.txt"] = errors.New("quota exceeded")
	remote.attachErrs["file-doc7.txt"] = errors.New("processing failed")
	remote.panics["doc9.txt"] = true
	paths = append(paths, filepath.Join(t.TempDir(), "missing.pdf"))

	u := upload.New(remote, upload.Config{Concurrency: 3})
	first, err := u.UploadBatch(context.Background(), paths, "vs_1")
	require.NoError(t, err)

	assert.Equal(t, 11, first.Total)
	assert.Equal(t, 7, first.Succeeded)
	assert.Equal(t, 4, first.Failed)
	assert.Len(t, first.Results, 11)

	phases := map[string]upload.Phase{}
	for _, f := range first.Errors {
		phases[f.File] = f.Phase
	}
	assert.Equal(t, map[string]upload.Phase{
		"doc3.txt":    upload.PhaseRegister,
		"doc7.txt":    upload.PhaseAttach,
		"doc9.txt":    upload.PhaseRegister,
		"missing.pdf": upload.PhaseRead,
	}, phases)

	// same inputs against a fresh destination give the same counts
	second, err := u.UploadBatch(context.Background(), paths, "vs_2")
	require.NoError(t, err)
	assert.Equal(t, first.Succeeded, second.Succeeded)
	assert.Equal(t, first.Failed, second.Failed)
}

func TestUploadBatchCancelled(t *testing.T) {
	remote := newFakeRemote()
	paths := writeFiles(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := upload.New(remote, upload.Config{}).UploadBatch(ctx, paths, "vs_1")
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, 0, report.Total)
	assert.Equal(t, paths, report.Skipped)
}

func TestUploadBatchCancelMidway(t *testing.T) {
	remote := newFakeRemote()
	remote.delay = 20 * time.Millisecond
	paths := writeFiles(t, 6)
	ctx, cancel := context.WithCancel(context.Background())

	u := upload.New(remote, upload.Config{
		Concurrency: 1,
		Progress:    func(upload.Result) { cancel() },
	})
	report, err := u.UploadBatch(ctx, paths, "vs_1")
	require.Error(t, err)
	require.NotNil(t, report)

	// the first completion cancels while the second unit waits for the
	// only slot, so the second is never submitted
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, paths[1:], report.Skipped)
	assert.Equal(t, report.Total, report.Succeeded+report.Failed)
	assert.Equal(t, len(paths), report.Total+len(report.Skipped))
	// in-flight units are not cut short
	assert.Equal(t, 0, report.Failed)
}

func TestUploadBatchNoSubmitAfterCancel(t *testing.T) {
	cases := []struct {
		concurrency int
		files       int
	}{
		{concurrency: 1, files: 2},
		{concurrency: 1, files: 5},
		{concurrency: 2, files: 8},
	}

	for i, tst := range cases {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			remote := newFakeRemote()
			remote.delay = 5 * time.Millisecond
			paths := writeFiles(t, tst.files)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			var afterCancel int
			u := upload.New(remote, upload.Config{
				Concurrency: tst.concurrency,
				Progress: func(upload.Result) {
					if ctx.Err() != nil {
						afterCancel++
					}
					cancel()
				},
			})
			report, err := u.UploadBatch(ctx, paths, "vs_1")
			require.ErrorIs(t, err, context.Canceled)

			// only units already running when the batch was cancelled may
			// complete after it
			assert.LessOrEqual(t, afterCancel, tst.concurrency-1)
			assert.LessOrEqual(t, report.Total, tst.concurrency)
			assert.Equal(t, tst.files, report.Total+len(report.Skipped))
		})
	}
}

func TestUploadBatchCoordinationErrors(t *testing.T) {
	_, err := upload.New(nil, upload.Config{}).UploadBatch(context.Background(), []string{"a.txt"}, "vs_1")
	require.Error(t, err)

	_, err = upload.New(newFakeRemote(), upload.Config{}).UploadBatch(context.Background(), []string{"a.txt"}, "")
	require.Error(t, err)
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "Uploaded a.txt with status completed", upload.Result{File: "a.txt", Status: "completed"}.String())
	assert.Equal(t, "Failed to upload b.txt: nope", upload.Result{File: "b.txt", Err: errors.New("nope")}.String())
}
