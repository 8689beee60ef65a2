package commands

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teranos/ontomap/am"
	"github.com/teranos/ontomap/errors"
	"github.com/teranos/ontomap/logger"
	"github.com/teranos/ontomap/pipeline"
)

// WatchCmd processes text files as they are written to a directory
var WatchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Extract triplets from .txt files dropped into a directory",
	Long: `Watch a directory and run every .txt file written to it through the
pipeline. New triples are drained every pipeline.drain_every sentences and
once more on shutdown.

Changes to the active ontomap.toml are picked up without a restart:
thresholds and drain_every apply to the next sentence.

Examples:
  ontomap watch ./inbox
  ontomap watch ./inbox -v`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var watchDebounce time.Duration

func init() {
	WatchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "Wait this long after the last write before reading a file")
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return errors.Newf("%s is not a directory", dir)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sys, rec, err := openSystem(ctx)
	if err != nil {
		return err
	}
	defer sys.Close()
	log := logger.ComponentLogger("watch")

	if path := am.ActiveConfigFile(); path != "" {
		cw, err := am.NewConfigWatcher(path)
		if err != nil {
			log.Warnw("Config hot reload disabled", logger.FieldError, err)
		} else {
			cw.OnReload(func(cfg *am.Config) error {
				sys.Pipeline.Reconfigure(cfg)
				return nil
			})
			cw.Start()
			am.SetGlobalWatcher(cw)
			defer cw.Stop()
		}
	}

	in, err := newInbox(dir, watchDebounce, log)
	if err != nil {
		return err
	}
	defer in.Close()

	pterm.Info.Printf("Watching %s for .txt files (Ctrl+C to stop)\n", dir)

	g, gctx := errgroup.WithContext(ctx)
	if sys.Config.Metrics.Enabled {
		g.Go(func() error {
			return rec.Serve(gctx, sys.Config.Metrics.Addr, logger.ComponentLogger("metrics"))
		})
	}
	g.Go(func() error {
		in.Run(gctx)
		return nil
	})
	g.Go(func() error {
		for path := range in.Files() {
			processFile(gctx, sys, path, log)
		}
		return nil
	})

	err = g.Wait()

	// Final drain outlives the cancelled context
	res, drainErr := sys.Pipeline.Drain(context.Background())
	if drainErr != nil {
		return errors.Wrap(drainErr, "failed to drain on shutdown")
	}
	printDrain(res)
	return err
}

func processFile(ctx context.Context, sys *pipeline.System, path string, log *zap.SugaredLogger) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warnw("Failed to read file", logger.FieldFile, path, logger.FieldError, err)
		return
	}
	results, err := sys.Pipeline.ExtractTriplets(ctx, string(data))
	if err != nil {
		log.Warnw("Extraction interrupted", logger.FieldFile, path, logger.FieldError, err)
		return
	}
	pterm.Success.Printf("%s: %d triplets mapped\n", filepath.Base(path), len(results))
	if len(results) > 0 {
		_ = pterm.DefaultTable.WithHasHeader().WithData(resultRows(results, sys.Caches)).Render()
	}
}

// inbox turns fsnotify events in a directory into settled .txt file paths.
// A file is emitted once writes to it have been quiet for the debounce period.
type inbox struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.SugaredLogger

	mu     sync.Mutex
	timers map[string]*time.Timer
	files  chan string
}

func newInbox(dir string, debounce time.Duration, log *zap.SugaredLogger) (*inbox, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", dir)
	}
	return &inbox{
		watcher:  w,
		debounce: debounce,
		logger:   log,
		timers:   make(map[string]*time.Timer),
		files:    make(chan string, 16),
	}, nil
}

// Files yields settled paths until Run returns
func (in *inbox) Files() <-chan string { return in.files }

// Run forwards events until ctx is done, then closes Files
func (in *inbox) Run(ctx context.Context) {
	defer func() {
		in.mu.Lock()
		for _, t := range in.timers {
			t.Stop()
		}
		in.timers = nil
		in.mu.Unlock()
		close(in.files)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-in.watcher.Events:
			if !ok {
				return
			}
			if isInboxFile(event) {
				in.schedule(ctx, event.Name)
			}
		case err, ok := <-in.watcher.Errors:
			if !ok {
				return
			}
			in.logger.Warnw("Inbox watcher error", logger.FieldError, err)
		}
	}
}

func (in *inbox) schedule(ctx context.Context, path string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.timers == nil {
		return
	}
	if t, ok := in.timers[path]; ok {
		t.Stop()
	}
	in.timers[path] = time.AfterFunc(in.debounce, func() {
		in.mu.Lock()
		if in.timers == nil {
			in.mu.Unlock()
			return
		}
		delete(in.timers, path)
		// Sending under the lock keeps the channel open until Run's cleanup
		select {
		case in.files <- path:
		case <-ctx.Done():
		}
		in.mu.Unlock()
	})
}

// Close stops the underlying watcher
func (in *inbox) Close() error {
	return in.watcher.Close()
}

func isInboxFile(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), ".txt")
}
