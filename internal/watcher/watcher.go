// Package watcher implements C5 (Replay Folder Watcher): a robust,
// multi-strategy watch loop that survives the native watcher going silent
// (a known ReadDirectoryChangesW failure mode on Windows).
//
// Grounded on _examples/original_source/src-tauri/src/file_watcher.rs for the
// three-task shape (native watch, heartbeat monitor, polling fallback) and on
// _examples/other_examples/...kylesnowschwartz-tail-claude__watcher.go.go for
// idiomatic Go fsnotify usage (select loop over Events/Errors, debounce via
// time.AfterFunc, closing channels on exit to unblock receivers).
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ladderlegends/sc2-uploader-agent/internal/config"
	"github.com/ladderlegends/sc2-uploader-agent/internal/logging"
	"github.com/ladderlegends/sc2-uploader-agent/internal/replay"
)

var errAlreadyRunning = errors.New("watcher is already running")

// Stats is a snapshot of watcher activity counters.
type Stats struct {
	EventsReceived  int64
	ReplaysDetected int64
	ErrorsRecovered int64
	Restarts        int64
	PollScans       int64
	PollFinds       int64
}

// Watcher monitors a set of replay folders and invokes a callback once per
// newly settled .SC2Replay file.
type Watcher struct {
	folders  []string
	cfg      config.Config
	logger   *logging.Logger
	callback func(path string)

	running atomic.Bool
	stats   statsCounters

	processedMu sync.Mutex
	processed   map[string]struct{}

	lastEventUnix atomic.Int64
}

type statsCounters struct {
	eventsReceived  atomic.Int64
	replaysDetected atomic.Int64
	errorsRecovered atomic.Int64
	restarts        atomic.Int64
	pollScans       atomic.Int64
	pollFinds       atomic.Int64
}

// New constructs a Watcher for the given folders. callback is invoked from
// the event-processor goroutine; it must not block for long.
func New(folders []string, cfg config.Config, logger *logging.Logger, callback func(path string)) *Watcher {
	if logger == nil {
		logger = logging.L()
	}
	return &Watcher{
		folders:   folders,
		cfg:       cfg,
		logger:    logger,
		callback:  callback,
		processed: make(map[string]struct{}),
	}
}

// Stats returns a snapshot of watcher activity counters.
func (w *Watcher) Stats() Stats {
	return Stats{
		EventsReceived:  w.stats.eventsReceived.Load(),
		ReplaysDetected: w.stats.replaysDetected.Load(),
		ErrorsRecovered: w.stats.errorsRecovered.Load(),
		Restarts:        w.stats.restarts.Load(),
		PollScans:       w.stats.pollScans.Load(),
		PollFinds:       w.stats.pollFinds.Load(),
	}
}

// Start launches the native watcher, heartbeat monitor, polling fallback,
// and event processor as goroutines. It returns once the native watcher is
// attached to every folder; the returned context.CancelFunc-free design
// instead relies on ctx cancellation to stop all goroutines.
func (w *Watcher) Start(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return errAlreadyRunning
	}
	w.lastEventUnix.Store(time.Now().Unix())

	w.logger.Info("starting replay folder watcher", logging.Int("folder_count", len(w.folders)))

	events := make(chan string, w.channelBufferSize())

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.running.Store(false)
		return err
	}
	for _, folder := range w.folders {
		if err := addRecursive(fsWatcher, folder); err != nil {
			w.logger.Warn("failed to watch folder", logging.String("folder", folder), logging.Error(err))
			continue
		}
		w.logger.Info("watching folder", logging.String("folder", folder))
	}

	var wg sync.WaitGroup
	wg.Add(4)
	go w.runNativeWatcher(ctx, &wg, fsWatcher, events)
	go w.runHeartbeatMonitor(ctx, &wg, events)
	go w.runPollingFallback(ctx, &wg, events)
	go w.runEventProcessor(ctx, &wg, events)

	go func() {
		wg.Wait()
		fsWatcher.Close()
		w.running.Store(false)
		w.logger.Info("replay folder watcher stopped")
	}()

	return nil
}

func (w *Watcher) channelBufferSize() int {
	if w.cfg.WatcherChannelBufferSize > 0 {
		return w.cfg.WatcherChannelBufferSize
	}
	return 100
}

func (w *Watcher) settleDelay() time.Duration {
	if runtime.GOOS == "windows" {
		if w.cfg.SettleDelayWindows > 0 {
			return w.cfg.SettleDelayWindows
		}
		return config.DefaultSettleDelayWindows
	}
	if w.cfg.SettleDelayOther > 0 {
		return w.cfg.SettleDelayOther
	}
	return config.DefaultSettleDelayOther
}

// runNativeWatcher forwards fsnotify Create/Write events for replay files
// onto the shared events channel and refreshes the heartbeat timestamp.
func (w *Watcher) runNativeWatcher(ctx context.Context, wg *sync.WaitGroup, fsWatcher *fsnotify.Watcher, events chan<- string) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return
			}
			w.lastEventUnix.Store(time.Now().Unix())
			w.stats.eventsReceived.Add(1)
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !replay.IsReplayFile(event.Name) {
				continue
			}
			w.stats.replaysDetected.Add(1)
			w.logger.Debug("replay detected by watcher", logging.String("path", event.Name))
			select {
			case events <- event.Name:
			case <-ctx.Done():
				return
			}
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return
			}
			w.stats.errorsRecovered.Add(1)
			w.logger.Warn("watcher error", logging.Error(err))
		}
	}
}

// runHeartbeatMonitor triggers a recovery poll scan if no event has arrived
// within the configured timeout, the Windows ReadDirectoryChangesW failure
// mode this whole package exists to survive.
func (w *Watcher) runHeartbeatMonitor(ctx context.Context, wg *sync.WaitGroup, events chan<- string) {
	defer wg.Done()
	interval := w.cfg.HeartbeatInterval
	if interval <= 0 {
		interval = config.DefaultHeartbeatInterval
	}
	timeout := w.cfg.HeartbeatTimeout
	if timeout <= 0 {
		timeout = config.DefaultHeartbeatTimeout
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			elapsed := time.Since(time.Unix(w.lastEventUnix.Load(), 0))
			if elapsed <= timeout {
				continue
			}
			w.logger.Warn("watcher heartbeat timeout, triggering recovery poll",
				logging.Duration("elapsed", elapsed))
			w.stats.restarts.Add(1)
			w.pollOnce(ctx, events)
			w.lastEventUnix.Store(time.Now().Unix())
		}
	}
}

// runPollingFallback periodically rescans every folder for files the native
// watcher may have missed.
func (w *Watcher) runPollingFallback(ctx context.Context, wg *sync.WaitGroup, events chan<- string) {
	defer wg.Done()
	interval := w.cfg.PollInterval
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}

	select {
	case <-time.After(10 * time.Second):
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollOnce(ctx, events)
		}
	}
}

func (w *Watcher) pollOnce(ctx context.Context, events chan<- string) {
	w.stats.pollScans.Add(1)
	slack := w.cfg.PollRecentWindowSlack
	if slack <= 0 {
		slack = config.DefaultPollRecentWindowSlack
	}
	interval := w.cfg.PollInterval
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}
	recentWindow := interval + slack

	found := pollFoldersForReplays(w.folders)
	newCount := 0
	for _, path := range found {
		w.processedMu.Lock()
		_, already := w.processed[path]
		w.processedMu.Unlock()
		if already {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) >= recentWindow {
			continue
		}
		newCount++
		select {
		case events <- path:
		case <-ctx.Done():
			return
		}
	}
	if newCount > 0 {
		w.stats.pollFinds.Add(int64(newCount))
		w.logger.Info("poll scan found new replays", logging.Int("count", newCount))
	}
}

// runEventProcessor dedups and debounces raw path events, waiting for the
// file to settle (stop being written to) before invoking the callback.
func (w *Watcher) runEventProcessor(ctx context.Context, wg *sync.WaitGroup, events <-chan string) {
	defer wg.Done()
	delay := w.settleDelay()
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-events:
			if !ok {
				return
			}
			w.processedMu.Lock()
			if _, seen := w.processed[path]; seen {
				w.processedMu.Unlock()
				continue
			}
			w.processed[path] = struct{}{}
			w.processedMu.Unlock()

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}

			if _, err := os.Stat(path); err != nil {
				w.logger.Debug("file disappeared before settling", logging.String("path", path))
				continue
			}
			w.logger.Info("processing replay", logging.String("path", path))
			if w.callback != nil {
				// Dispatched off the processor goroutine: the callback is
				// network-bound (scan + upload), and running it inline would
				// stall settle-delay waits for every subsequent event on
				// this channel.
				go w.callback(path)
			}
		}
	}
}

func addRecursive(fsWatcher *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			_ = fsWatcher.Add(path)
		}
		return nil
	})
}

func pollFoldersForReplays(folders []string) []string {
	var found []string
	for _, folder := range folders {
		_ = filepath.Walk(folder, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if !info.IsDir() && replay.IsReplayFile(path) {
				found = append(found, path)
			}
			return nil
		})
	}
	return found
}
