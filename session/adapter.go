package session

import (
	"github.com/drake/beatclock/event"
	"github.com/drake/beatclock/lua"
)

// Compile-time interface checks for segregated services
var (
	_ lua.UIService     = (*LuaAdapter)(nil)
	_ lua.SystemService = (*LuaAdapter)(nil)
)

// LuaAdapter bridges Lua service interfaces to Session infrastructure.
// The clock service is the session's *clock.Clock itself.
type LuaAdapter struct {
	session *Session
}

// NewLuaAdapter creates an adapter wired to the session's components.
func NewLuaAdapter(s *Session) *LuaAdapter {
	return &LuaAdapter{session: s}
}

// --- UIService ---

func (a *LuaAdapter) Print(text string) {
	a.session.ui.Print(text)
}

// --- SystemService ---

// Quit stops the session once the calling script returns.
func (a *LuaAdapter) Quit() {
	a.session.post(event.Event{
		Type:    event.SystemControl,
		Control: event.ControlOp{Action: event.ActionQuit},
	})
}

// Reload re-boots the VM from the session loop, after the calling script
// has returned.
func (a *LuaAdapter) Reload() {
	a.session.engine.CallHook("reloading")
	a.session.post(event.Event{
		Type:    event.SystemControl,
		Control: event.ControlOp{Action: event.ActionReload},
	})
}

// Load enqueues a request to load a Lua script on the session loop.
func (a *LuaAdapter) Load(path string) {
	a.session.post(event.Event{
		Type: event.SystemControl,
		Control: event.ControlOp{
			Action:     event.ActionLoadScript,
			ScriptPath: path,
		},
	})
}
