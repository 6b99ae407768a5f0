package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/Abhitodan/SQLDraw/internal/cfgbuilder"
	"github.com/Abhitodan/SQLDraw/internal/config"
	"github.com/Abhitodan/SQLDraw/internal/dryrun"
	"github.com/Abhitodan/SQLDraw/internal/predicate"
	"github.com/Abhitodan/SQLDraw/internal/tsql"
)

// watchDebounce is the quiet period before a batch of file events triggers a
// re-run, the same window the teacher's fileWatcher uses.
const watchDebounce = 500 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch <file.sql>",
	Short: "Re-run the dry-run simulation every time a procedure file changes",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	path := args[0]

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ignore, err := compileGlobs(cfg.Watch.Ignore)
	if err != nil {
		return fmt.Errorf("compile ignore patterns: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "watching %s (ctrl-c to stop)\n", path)
	runOnce(cmd, path)

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if matchesAny(ignore, ev.Name) {
				continue
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				runOnce(cmd, path)
			})
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "watch error:", err)
		}
	}
}

func runOnce(cmd *cobra.Command, path string) {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "read:", err)
		return
	}

	prog, err := tsql.Parse(string(source))
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "parse:", err)
		return
	}

	graph, err := cfgbuilder.Build(prog, string(source))
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "build control-flow graph:", err)
		return
	}

	eval := predicate.New()
	defer eval.Close()

	result, err := dryrun.Run(graph, predicate.Binding{}, eval)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "dry run:", err)
		return
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.Encode(result)
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

func matchesAny(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}
