package lua

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	glua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/drake/beatclock/cue"
)

// Engine wraps gopher-lua and manages the VM lifecycle.
// It is a pure mechanism: it knows how to run Lua code and expose APIs.
// It does NOT know about core scripts, config dirs, or boot sequences.
type Engine struct {
	L *glua.LState

	// Compiled script files keyed by path and modification time
	chunks *lru.Cache[string, *glua.FunctionProto]

	// Cached table references
	clockTable *glua.LTable
	appTable   *glua.LTable

	// Segregated services
	clock ClockService
	ui    UIService
	sys   SystemService

	// Cue callbacks - one per Lua function with pending cues, so uncue(fn)
	// matches what cue(fn) scheduled
	callbacks map[*glua.LFunction]*cue.Callback

	logger *slog.Logger
}

// NewEngine creates an Engine with the given services.
func NewEngine(clock ClockService, ui UIService, sys SystemService, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cache, _ := lru.New[string, *glua.FunctionProto](64)
	return &Engine{
		chunks:    cache,
		clock:     clock,
		ui:        ui,
		sys:       sys,
		callbacks: make(map[*glua.LFunction]*cue.Callback),
		logger:    logger.With("component", "lua"),
	}
}

// --- Lifecycle ---

// Init initializes (or re-initializes) the Lua VM with fresh state.
// It registers the API but does NOT load any scripts - that's the caller's job.
func (e *Engine) Init() error {
	// Close old Lua state if it exists
	if e.L != nil {
		e.L.Close()
	}

	// Create fresh Lua state
	e.L = glua.NewState()

	// Cues hold closures over the old state; drop them all
	e.clock.UncueAll()
	e.callbacks = make(map[*glua.LFunction]*cue.Callback)

	// Register API functions
	e.registerAPIs()

	return nil
}

// Close cleans up the Lua state.
func (e *Engine) Close() {
	e.clock.UncueAll()
	e.callbacks = nil
	if e.L != nil {
		e.L.Close()
		e.L = nil
	}
}

// SetConfigDir exposes the configuration directory to scripts as app.config_dir.
func (e *Engine) SetConfigDir(dir string) {
	if e.appTable != nil {
		e.L.SetField(e.appTable, "config_dir", glua.LString(dir))
	}
}

// CallbackCount returns the number of Lua functions with pending cues.
func (e *Engine) CallbackCount() int { return len(e.callbacks) }

// --- Execution Primitives (Mechanism) ---

// DoString executes a raw string of Lua code.
// The name parameter is used for stack traces.
func (e *Engine) DoString(name, code string) error {
	fn, err := e.L.Load(strings.NewReader(code), name)
	if err != nil {
		return err
	}
	e.L.Push(fn)
	return e.L.PCall(0, 0, nil)
}

// DoFile executes a Lua file from the filesystem.
// It temporarily adjusts package.path to allow local requires.
func (e *Engine) DoFile(path string) error {
	path = expandTilde(path)

	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	proto, err := e.compiled(absPath)
	if err != nil {
		return err
	}
	dir := filepath.Dir(absPath)

	// Temporarily prepend script's directory to package.path
	pkg := e.L.GetGlobal("package").(*glua.LTable)
	oldPath := e.L.GetField(pkg, "path").String()
	newPath := dir + "/?.lua;" + oldPath
	e.L.SetField(pkg, "path", glua.LString(newPath))

	e.L.Push(e.L.NewFunctionFromProto(proto))
	err = e.L.PCall(0, 0, nil)

	// Restore original path
	e.L.SetField(pkg, "path", glua.LString(oldPath))

	return err
}

// compiled returns the function prototype for a script file, compiling it
// unless an unchanged copy is cached.
func (e *Engine) compiled(path string) (*glua.FunctionProto, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s@%d", path, info.ModTime().UnixNano())
	if proto, ok := e.chunks.Get(key); ok {
		return proto, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	chunk, err := parse.Parse(bufio.NewReader(f), path)
	if err != nil {
		return nil, err
	}
	proto, err := glua.Compile(chunk, path)
	if err != nil {
		return nil, err
	}
	e.chunks.Add(key, proto)
	return proto, nil
}

// --- Event Handlers ---

// OnInput hands a line the user typed to the input hook and reports
// whether a handler claimed it.
func (e *Engine) OnInput(text string) bool {
	if err := e.L.CallByParam(glua.P{
		Fn:      e.getHooksCall(),
		NRet:    1,
		Protect: true,
	}, glua.LString("input"), glua.LString(text)); err != nil {
		e.logger.Warn("input hook failed", "error", err)
		return false
	}

	ret := e.L.Get(-1)
	e.L.Pop(1)

	return glua.LVAsBool(ret)
}

// CallHook calls a hook event with string arguments.
func (e *Engine) CallHook(event string, args ...string) {
	luaArgs := make([]glua.LValue, len(args)+1)
	luaArgs[0] = glua.LString(event)
	for i, arg := range args {
		luaArgs[i+1] = glua.LString(arg)
	}

	if err := e.L.CallByParam(glua.P{
		Fn:      e.getHooksCall(),
		NRet:    0,
		Protect: true,
	}, luaArgs...); err != nil {
		e.logger.Warn("hook failed", "hook", event, "error", err)
	}
}

// --- Cue callbacks ---

// callback returns the cue callback for fn, creating it on first use.
func (e *Engine) callback(fn *glua.LFunction) *cue.Callback {
	if cb, ok := e.callbacks[fn]; ok {
		return cb
	}
	L := e.L
	name := "lua"
	if fn.Proto != nil {
		name = fmt.Sprintf("%s:%d", fn.Proto.SourceName, fn.Proto.LineDefined)
	}
	cb := cue.NewCallback(name, func(t float64) {
		if e.L != L {
			return // Belonged to a previous VM
		}
		e.L.Push(fn)
		e.L.Push(glua.LNumber(t))
		if err := e.L.PCall(1, 0, nil); err != nil {
			e.logger.Warn("cue callback failed", "callback", name, "error", err)
			e.CallHook("error", "cue: "+err.Error())
		}
	})
	// Forget fn once nothing is queued for it
	cb.OnIdle(func() {
		if e.callbacks[fn] == cb {
			delete(e.callbacks, fn)
		}
	})
	e.callbacks[fn] = cb
	return cb
}

// lookupCallback returns the callback for fn if fn has pending cues.
func (e *Engine) lookupCallback(fn *glua.LFunction) (*cue.Callback, bool) {
	cb, ok := e.callbacks[fn]
	return cb, ok
}

// --- API Registration ---

func (e *Engine) registerAPIs() {
	e.appTable = e.L.NewTable()
	e.L.SetGlobal("app", e.appTable)
	e.clockTable = e.L.NewTable()
	e.L.SetGlobal("clock", e.clockTable)

	e.registerCoreFuncs()
	e.registerClockFuncs()
}

// getHooksCall returns the hooks.call function, or a no-op before the
// core scripts define it.
func (e *Engine) getHooksCall() glua.LValue {
	hooks, ok := e.L.GetGlobal("hooks").(*glua.LTable)
	if !ok {
		return e.L.NewFunction(func(*glua.LState) int { return 0 })
	}
	fn := e.L.GetField(hooks, "call")
	if fn.Type() != glua.LTFunction {
		return e.L.NewFunction(func(*glua.LState) int { return 0 })
	}
	return fn
}

// --- Private Helpers ---

// expandTilde expands ~ to home directory.
func expandTilde(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
