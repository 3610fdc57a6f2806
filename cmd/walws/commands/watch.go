package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/walworkspace/pkg/config"
	"github.com/openfroyo/walworkspace/pkg/engine"
	"github.com/openfroyo/walworkspace/pkg/policy"
)

// applyDelay debounces bursts of editor writes into one update.
const applyDelay = 500 * time.Millisecond

func newWatchCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-apply a workspace document whenever it changes",
		Long: `Watch a workspace document and run Update each time it changes.

The document as loaded at start is treated as applied; each successful update
becomes the previous state of the next one. Persisted operations that are due
are resumed first, and configured policy files are reloaded on change.`,
		Example: `  walws watch -f workspace.yaml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()

			a, err := newApp(ctx, true)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := a.close(ctx); cerr != nil && err == nil {
					err = cerr
				}
			}()

			if _, err := a.driver.Resume(ctx); err != nil {
				return err
			}

			if a.policies != nil && len(a.cfg.Policy.Paths) > 0 {
				loader := policy.NewLoader(log.Logger)
				err := loader.Watch(ctx, a.cfg.Policy.Paths, func(policies []policy.Policy) error {
					return a.policies.ReplacePolicies(ctx, policies)
				})
				if err != nil {
					return err
				}
				defer func() { _ = loader.StopWatching() }()
			}

			w := &documentWatcher{app: a, cmd: cmd, parser: config.NewDocumentParser()}
			return w.run(ctx, file)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "workspace document to watch")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

type documentWatcher struct {
	app     *app
	cmd     *cobra.Command
	parser  *config.DocumentParser
	applied *config.Document
}

func (w *documentWatcher) run(ctx context.Context, file string) error {
	path, err := filepath.Abs(file)
	if err != nil {
		return err
	}

	w.applied, err = w.parser.ParseFile(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	log.Info().Str("document", path).Str("workspace", w.applied.Name).Msg("Watching document")

	changed := make(chan struct{}, 1)
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(applyDelay, func() {
				select {
				case changed <- struct{}{}:
				default:
				}
			})

		case <-changed:
			w.apply(ctx, path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("Watcher error")
		}
	}
}

// apply runs Update for the current document. Failures are logged and the
// applied document is kept.
func (w *documentWatcher) apply(ctx context.Context, path string) {
	doc, err := w.parser.ParseFile(path)
	if err != nil {
		log.Error().Err(err).Msg("Ignoring invalid document")
		return
	}
	if doc.Name != w.applied.Name {
		log.Error().
			Str("applied", w.applied.Name).
			Str("document", doc.Name).
			Msg("Workspace name is immutable; ignoring change")
		return
	}

	out, err := w.app.driver.Run(ctx, engine.ActionUpdate, doc.Request(w.app.cfg.AWS, w.applied))
	if err != nil {
		log.Error().Err(err).Msg("Update failed")
		return
	}
	if err := printOutcome(w.cmd.OutOrStdout(), out); err != nil {
		log.Error().Err(err).Msg("Update failed")
		return
	}

	w.applied = doc
}
