// Package debug is the control plane between a debugger UI and an embedded
// script runtime.
//
// It tracks which line sources are shown in which windows, owns the
// breakpoint list, keeps per-line status markers in sync with every window
// that displays a line, drives execution through the runtime and persists
// breakpoints and source files to a configuration store.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────┐
//	│                        Session                           │
//	│  LineSourceRegistry   BreakpointRegistry                 │
//	│  LineStatusTracker    WindowAssociationRegistry          │
//	│  ExecutionStateController   ConfigurationBridge          │
//	└──────────────────────────────────────────────────────────┘
//	        │ UI (windows, markers)        │ Runtime (VM)
//	        ▼                              ▼
//
// The registries are deliberately coupled: every breakpoint mutation updates
// the line status tracker, and every status change is pushed to all windows
// showing that line source.
//
// # Threading
//
// A Session is not safe for concurrent use. All calls, including runtime
// callbacks such as OnDebuggerEntered, must come from the goroutine that runs
// the UI event loop. Enumerations snapshot their keys before invoking
// callbacks, so a callback may delete the item it is handed.
package debug
