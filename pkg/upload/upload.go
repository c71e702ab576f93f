package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency bounds the number of simultaneous uploads when no other
// limit is configured.
const DefaultConcurrency = 10

// PurposeAssistants is the purpose tag content is registered with so that it
// can be attached to a vector store.
const PurposeAssistants = "assistants"

// Remote is the provider boundary the uploader talks to.
type Remote interface {
	// Register stores the raw content and returns an opaque handle for it.
	Register(ctx context.Context, name string, content []byte, purpose string) (string, error)
	// Attach links previously registered content to a destination and
	// returns the provider's attachment status.
	Attach(ctx context.Context, destinationID, contentID string) (string, error)
}

// Phase identifies which step of a unit failed.
type Phase string

const (
	PhaseRead     Phase = "read"
	PhaseRegister Phase = "register"
	PhaseAttach   Phase = "attach"
)

// Unit is one file paired with the destination it should be attached to.
type Unit struct {
	Path          string
	DestinationID string
}

// Result is the outcome of exactly one Unit. Err is nil on success, in which
// case Status holds the attachment status.
type Result struct {
	File      string
	Path      string
	ContentID string
	Status    string
	Phase     Phase
	Err       error
}

func (r Result) Succeeded() bool { return r.Err == nil }

// Failure is a reportable failed unit.
type Failure struct {
	File  string
	Phase Phase
	Error string
}

// Report summarizes a batch. Succeeded + Failed always equals Total.
type Report struct {
	Total     int
	Succeeded int
	Failed    int
	Errors    []Failure

	// Results holds every unit result in completion order.
	Results []Result
	// Skipped lists the paths that were never submitted because the batch
	// was interrupted.
	Skipped []string
}

// add must be called with the accumulator lock held.
func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	if res.Succeeded() {
		r.Succeeded++
		return
	}
	r.Failed++
	r.Errors = append(r.Errors, Failure{File: res.File, Phase: res.Phase, Error: res.Err.Error()})
}

type Config struct {
	Concurrency int
	Purpose     string
	// Progress, if set, is called once per completed unit. Calls are
	// serialized.
	Progress func(Result)
}

type Uploader struct {
	remote Remote
	cfg    Config
}

func New(remote Remote, cfg Config) *Uploader {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Purpose == "" {
		cfg.Purpose = PurposeAssistants
	}
	return &Uploader{
		remote: remote,
		cfg:    cfg,
	}
}

// UploadBatch uploads every path to destinationID using at most the
// configured number of concurrent workers. Per-file failures are recorded in
// the report and never abort the batch. If ctx is cancelled no further files
// are submitted, in-flight files finish, and the partial report is returned
// along with the context error.
func (u *Uploader) UploadBatch(ctx context.Context, paths []string, destinationID string) (*Report, error) {
	if u.remote == nil {
		return nil, errors.New("no remote configured")
	}
	if destinationID == "" {
		return nil, errors.New("need a destination id")
	}

	report := &Report{}
	if len(paths) == 0 {
		return report, nil
	}

	// units outlive cancellation of the batch
	unitCtx := context.WithoutCancel(ctx)

	var mu sync.Mutex
	g := &errgroup.Group{}
	// a slot is only held once acquired, so a cancelled batch never submits
	// the unit it was waiting on
	slots := semaphore.NewWeighted(int64(u.cfg.Concurrency))

	for i, path := range paths {
		if err := slots.Acquire(ctx, 1); err != nil {
			report.Skipped = append(report.Skipped, paths[i:]...)
			break
		}
		if ctx.Err() != nil {
			slots.Release(1)
			report.Skipped = append(report.Skipped, paths[i:]...)
			break
		}
		unit := Unit{Path: path, DestinationID: destinationID}
		report.Total++
		g.Go(func() error {
			defer slots.Release(1)
			res := u.run(unitCtx, unit)
			mu.Lock()
			defer mu.Unlock()
			report.add(res)
			if u.cfg.Progress != nil {
				u.cfg.Progress(res)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "waiting for uploads")
	}
	if len(report.Skipped) > 0 {
		return report, errors.Wrapf(ctx.Err(), "upload interrupted with %d files not submitted", len(report.Skipped))
	}
	return report, nil
}

// run executes both phases of a single unit. It never panics.
func (u *Uploader) run(ctx context.Context, unit Unit) (res Result) {
	res = Result{File: filepath.Base(unit.Path), Path: unit.Path}
	defer func() {
		if rvr := recover(); rvr != nil {
			res.Err = errors.Errorf("panic: %v\n%s", rvr, debug.Stack())
			if res.Phase == "" {
				res.Phase = PhaseRegister
			}
		}
	}()

	content, err := os.ReadFile(unit.Path)
	if err != nil {
		res.Phase, res.Err = PhaseRead, errors.Wrap(err, "reading file")
		return res
	}

	res.Phase = PhaseRegister
	contentID, err := u.remote.Register(ctx, res.File, content, u.cfg.Purpose)
	if err != nil {
		res.Err = err
		return res
	}
	res.ContentID = contentID

	res.Phase = PhaseAttach
	status, err := u.remote.Attach(ctx, unit.DestinationID, contentID)
	if err != nil {
		res.Err = err
		return res
	}
	res.Phase, res.Status = "", status
	return res
}

// String renders the result the way the setup command reports progress.
func (r Result) String() string {
	if r.Succeeded() {
		return fmt.Sprintf("Uploaded %s with status %s", r.File, r.Status)
	}
	return fmt.Sprintf("Failed to upload %s: %v", r.File, r.Err)
}
