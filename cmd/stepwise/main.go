// Command stepwise is a terminal source-level debugger for Lua programs.
package main

func main() {
	Execute()
}
