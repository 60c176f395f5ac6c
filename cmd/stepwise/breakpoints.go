package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/stepwise/internal/config/store"
	"github.com/dshills/stepwise/internal/debug"
	"github.com/dshills/stepwise/internal/ui"
)

var (
	addCondition string
	addOnChange  bool
	addGlobal    bool
)

var breakpointsCmd = &cobra.Command{
	Use:     "breakpoints",
	Aliases: []string{"bp"},
	Short:   "Inspect and edit saved breakpoints",
}

var breakpointsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved breakpoints",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOfflineSession(cmd, false, func(s *debug.Session) error {
			n := 0
			s.EnumBreakpoints(func(bp debug.Breakpoint) bool {
				cmd.Println(describeBreakpoint(s, bp))
				n++
				return true
			})
			if n == 0 {
				cmd.Println("no breakpoints")
			}
			return nil
		})
	},
}

var breakpointsAddCmd = &cobra.Command{
	Use:   "add <file:line> | --global --if <condition>",
	Short: "Add a breakpoint to the saved set",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOfflineSession(cmd, true, func(s *debug.Session) error {
			if addGlobal {
				if len(args) != 0 {
					return fmt.Errorf("a global breakpoint takes no location")
				}
				bp, err := s.AddGlobalBreakpoint(addCondition, addOnChange)
				if err != nil {
					return err
				}
				cmd.Println(describeBreakpoint(s, *bp))
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("missing breakpoint location")
			}
			file, line, err := parseLocation(args[0])
			if err != nil {
				return err
			}
			src, _ := s.Sources().FindOrSynthesize(file, "")
			if bp, ok := s.Breakpoints().At(src.ID, line); ok {
				return fmt.Errorf("breakpoint #%d already set at %s:%d", bp.Number, file, line)
			}
			if _, err := s.ToggleBreakpointAt(src.ID, line, addCondition, addOnChange); err != nil {
				return err
			}
			bp, _ := s.Breakpoints().At(src.ID, line)
			cmd.Println(describeBreakpoint(s, *bp))
			return nil
		})
	},
}

var breakpointsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every saved breakpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOfflineSession(cmd, true, func(s *debug.Session) error {
			n := s.Breakpoints().Len()
			s.ClearBreakpoints()
			cmd.Printf("cleared %d breakpoint(s)\n", n)
			return nil
		})
	},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the line sources recorded in the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOfflineSession(cmd, false, func(s *debug.Session) error {
			all := s.Sources().All()
			if len(all) == 0 {
				cmd.Println("no sources")
			}
			for _, src := range all {
				if src.Path != "" {
					cmd.Printf("%d\t%s\t%s\n", src.ID, src.Filename, src.Path)
				} else {
					cmd.Printf("%d\t%s\n", src.ID, src.Filename)
				}
			}
			return nil
		})
	},
}

func init() {
	breakpointsAddCmd.Flags().StringVar(&addCondition, "if", "", "condition expression")
	breakpointsAddCmd.Flags().BoolVar(&addOnChange, "on-change", false, "stop when the condition value changes")
	breakpointsAddCmd.Flags().BoolVarP(&addGlobal, "global", "g", false, "condition-only breakpoint")

	breakpointsCmd.AddCommand(breakpointsListCmd, breakpointsAddCmd, breakpointsClearCmd)
	rootCmd.AddCommand(breakpointsCmd, sourcesCmd)
}

// withOfflineSession loads the saved breakpoints into a session with no
// program attached and runs fn. With save set the session is written back.
func withOfflineSession(cmd *cobra.Command, save bool, fn func(s *debug.Session) error) error {
	log, closeLog, err := newLogger(settings, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	cfg, err := store.OpenSettings(settings.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer cfg.Close()

	s := debug.New(ui.NewHost(ui.WithLogger(log)),
		debug.WithLogger(log),
		debug.WithSourceIDThreshold(settings.Debugger.SourceIDThreshold),
	)
	if res := s.LoadProgram(nil, cfg); res != debug.LoadOK {
		cmd.PrintErrf("warning: %s\n", res)
	}
	if err := fn(s); err != nil {
		return err
	}
	if !save {
		return nil
	}
	return s.Save(cfg)
}

// describeBreakpoint formats bp the way the breakpoint list shows it.
func describeBreakpoint(s *debug.Session, bp debug.Breakpoint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d ", bp.Number)
	if bp.IsGlobal() {
		b.WriteString("<global>")
	} else {
		file := "?"
		if src, ok := s.Sources().Get(bp.SourceID); ok {
			file = src.Filename
		}
		fmt.Fprintf(&b, "%s:%d", file, bp.Line)
	}
	if bp.Enabled {
		b.WriteString(" enabled")
	} else {
		b.WriteString(" disabled")
	}
	if bp.Condition != "" {
		fmt.Fprintf(&b, " if %s", bp.Condition)
	}
	if bp.StopOnChange {
		b.WriteString(" (on change)")
	}
	return b.String()
}

// parseLocation splits "file:line".
func parseLocation(loc string) (string, int, error) {
	i := strings.LastIndexByte(loc, ':')
	if i <= 0 {
		return "", 0, fmt.Errorf("location %q: want file:line", loc)
	}
	line, err := strconv.Atoi(loc[i+1:])
	if err != nil || line < 1 {
		return "", 0, fmt.Errorf("location %q: invalid line", loc)
	}
	return loc[:i], line, nil
}
