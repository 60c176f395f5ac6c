// Package luavm runs Lua programs under the debugger.
//
// Programs are compiled with gopher-lua after an instrumentation pass that
// puts a line hook in front of every statement. The hook gives the VM the
// per-line control gopher-lua does not expose natively: breakpoints,
// conditions and the three step modes are all decided there.
//
// The VM implements debug.Runtime. It is not safe for concurrent use; the
// host drives it from the goroutine that calls Run, including from inside
// the stop callback.
package luavm
