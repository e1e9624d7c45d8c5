package lua

import (
	"strings"

	glua "github.com/yuin/gopher-lua"
)

// registerCoreFuncs registers app.* primitives and the print override.
func (e *Engine) registerCoreFuncs() {
	// app.print(...): Outputs values to the local display, tab separated
	printFn := e.L.NewFunction(func(L *glua.LState) int {
		top := L.GetTop()
		parts := make([]string, 0, top)
		for i := 1; i <= top; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		e.ui.Print(strings.Join(parts, "\t"))
		return 0
	})
	e.L.SetField(e.appTable, "print", printFn)
	e.L.SetGlobal("print", printFn)

	// app.quit(): Exit the program
	e.L.SetField(e.appTable, "quit", e.L.NewFunction(func(L *glua.LState) int {
		e.sys.Quit()
		return 0
	}))

	// app.reload(): Reload all scripts
	e.L.SetField(e.appTable, "reload", e.L.NewFunction(func(L *glua.LState) int {
		e.sys.Reload()
		return 0
	}))

	// app.load(path): Load a Lua script (runs immediately, no round-trip)
	e.L.SetField(e.appTable, "load", e.L.NewFunction(func(L *glua.LState) int {
		path := L.CheckString(1)
		if err := e.DoFile(path); err != nil {
			L.Push(glua.LString(err.Error()))
			return 1
		}
		e.CallHook("loaded", path)
		return 0
	}))

	// app.load_later(path): Queue a script load for the session loop
	e.L.SetField(e.appTable, "load_later", e.L.NewFunction(func(L *glua.LState) int {
		e.sys.Load(L.CheckString(1))
		return 0
	}))
}
