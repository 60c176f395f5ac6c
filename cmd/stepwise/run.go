package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dshills/stepwise/internal/config"
	"github.com/dshills/stepwise/internal/config/store"
	"github.com/dshills/stepwise/internal/debug"
	"github.com/dshills/stepwise/internal/debug/luavm"
	"github.com/dshills/stepwise/internal/logging"
	"github.com/dshills/stepwise/internal/renderer/backend"
	"github.com/dshills/stepwise/internal/ui"
	"github.com/dshills/stepwise/internal/watcher"
)

var runCmd = &cobra.Command{
	Use:   "run <file.lua>...",
	Short: "Debug a Lua program; the first file is the entry point",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return errors.New("run needs an interactive terminal")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		screen, err := backend.NewTerminal()
		if err != nil {
			return fmt.Errorf("create terminal: %w", err)
		}
		return runDebugger(ctx, settings, args, screen)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// runDebugger loads the program in paths and drives it from screen until
// the user quits. Breakpoints are restored from and saved to the
// configured store.
func runDebugger(ctx context.Context, s config.Settings, paths []string, screen backend.Backend) error {
	log, closeLog, err := newLogger(s, io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	cfg, err := store.OpenSettings(s.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer cfg.Close()

	output := &programOutput{}
	vm, err := luavm.New(paths, luavm.WithOutput(output), luavm.WithLogger(log))
	if err != nil {
		return err
	}

	host := ui.NewHost(
		ui.WithSearchPaths(s.Debugger.SearchPaths...),
		ui.WithTabWidth(s.UI.TabWidth),
		ui.WithLogger(log),
	)
	session := debug.New(host,
		debug.WithLogger(log),
		debug.WithAutoOpenCurrent(s.Debugger.AutoOpenCurrent),
		debug.WithSourceIDThreshold(s.Debugger.SourceIDThreshold),
	)
	output.logf = session.Logf

	keys, err := ui.NewKeymap(s.UI.Keys)
	if err != nil {
		return err
	}

	if err := screen.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	defer screen.Shutdown()

	if res := session.LoadProgram(vm, cfg); res != debug.LoadOK {
		host.SetMessage("breakpoints: %s", res)
	}
	if _, err := session.OpenFile(filepath.Base(paths[0])); err != nil {
		log.Warn("open %s: %v", paths[0], err)
	}

	ctrl := ui.NewController(session, host, screen, keys, log)
	ctrl.SetReloader(func(changed []string) error {
		if err := vm.Reload(); err != nil {
			return err
		}
		res := session.Reload()
		session.Logf("reloaded %d file(s): %s", len(changed), res)
		return nil
	})

	if s.Watch.Enabled {
		w, err := watcher.New(paths, s.DebounceDuration())
		if err != nil {
			log.Warn("watch disabled: %v", err)
		} else {
			defer w.Close()
			go forwardChanges(w, screen, log)
		}
	}

	go func() {
		<-ctx.Done()
		screen.PostEvent(backend.Event{Type: backend.EventKey, Key: backend.KeyCtrlC})
	}()

	err = ctrl.Loop(ctx, func(ctx context.Context, action string, onStop func()) error {
		vm.SetStopOnEntry(action == ui.ActionStepInto || action == ui.ActionStepOver)
		return vm.Run(ctx, onStop)
	})
	output.Flush()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return errors.Join(err, session.Save(cfg))
}

// forwardChanges turns watcher batches into reload interrupts on screen.
func forwardChanges(w *watcher.Watcher, screen backend.Backend, log *logging.Logger) {
	changes, errs := w.Changes(), w.Errors()
	for changes != nil || errs != nil {
		select {
		case batch, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			log.Debug("files changed: %v", batch)
			screen.PostEvent(backend.Event{
				Type: backend.EventInterrupt,
				Data: ui.ReloadRequest{Paths: batch},
			})
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Warn("watch: %v", err)
		}
	}
}

// programOutput sends each complete line the program prints to the debug
// log. The program runs on the session goroutine, so logf needs no lock.
type programOutput struct {
	logf func(format string, args ...any)
	buf  bytes.Buffer
}

func (p *programOutput) Write(b []byte) (int, error) {
	p.buf.Write(b)
	for {
		i := bytes.IndexByte(p.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(p.buf.Next(i + 1))
		p.emit(line[:len(line)-1])
	}
	return len(b), nil
}

// Flush emits a trailing partial line.
func (p *programOutput) Flush() {
	if p.buf.Len() > 0 {
		p.emit(p.buf.String())
		p.buf.Reset()
	}
}

func (p *programOutput) emit(line string) {
	if p.logf != nil {
		p.logf("%s", line)
	}
}
