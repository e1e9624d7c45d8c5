package lua

import (
	"time"

	glua "github.com/yuin/gopher-lua"

	"github.com/drake/beatclock/cue"
)

// registerClockFuncs registers the clock.* table.
func (e *Engine) registerClockFuncs() {
	t := e.clockTable
	set := func(name string, fn glua.LGFunction) {
		e.L.SetField(t, name, e.L.NewFunction(fn))
	}

	// clock.time(), clock.beat(), clock.start_time()
	set("time", func(L *glua.LState) int {
		L.Push(glua.LNumber(e.clock.Time()))
		return 1
	})
	set("beat", func(L *glua.LState) int {
		L.Push(glua.LNumber(e.clock.Beat()))
		return 1
	})
	set("start_time", func(L *glua.LState) int {
		L.Push(glua.LNumber(e.clock.StartTime()))
		return 1
	})

	// clock.start([time]): Move beat 0 to now or to time
	set("start", func(L *glua.LState) int {
		if L.GetTop() >= 1 {
			e.clock.StartAt(float64(L.CheckNumber(1)))
		} else {
			e.clock.Start()
		}
		return 0
	})

	// clock.tempo(): current tempo
	// clock.tempo(bpm[, beat]): change tempo, returns the beat it took effect at
	// or nil plus an error message
	set("tempo", func(L *glua.LState) int {
		if L.GetTop() == 0 {
			L.Push(glua.LNumber(e.clock.Tempo()))
			return 1
		}
		bpm := float64(L.CheckNumber(1))
		beat := float64(L.OptNumber(2, glua.LNumber(e.clock.Beat())))
		entry, err := e.clock.SetTempoAt(bpm, beat)
		if err != nil {
			L.Push(glua.LNil)
			L.Push(glua.LString(err.Error()))
			return 2
		}
		L.Push(glua.LNumber(entry.Beat))
		return 1
	})

	// clock.tempo_at(beat)
	set("tempo_at", func(L *glua.LState) int {
		L.Push(glua.LNumber(e.clock.TempoAt(float64(L.CheckNumber(1)))))
		return 1
	})

	// clock.remove_tempo(beat): true if a change was removed
	set("remove_tempo", func(L *glua.LState) int {
		L.Push(glua.LBool(e.clock.RemoveTempo(float64(L.CheckNumber(1)))))
		return 1
	})

	// clock.tempos(): array of {beat=, tempo=}
	set("tempos", func(L *glua.LState) int {
		list := L.NewTable()
		for _, entry := range e.clock.Tempos() {
			row := L.NewTable()
			L.SetField(row, "beat", glua.LNumber(entry.Beat))
			L.SetField(row, "tempo", glua.LNumber(entry.Tempo))
			list.Append(row)
		}
		L.Push(list)
		return 1
	})

	set("time_at_beat", func(L *glua.LState) int {
		L.Push(glua.LNumber(e.clock.TimeAtBeat(float64(L.CheckNumber(1)))))
		return 1
	})
	set("beat_at_time", func(L *glua.LState) int {
		L.Push(glua.LNumber(e.clock.BeatAtTime(float64(L.CheckNumber(1)))))
		return 1
	})

	// clock.lookahead(): default lead in milliseconds
	set("lookahead", func(L *glua.LState) int {
		L.Push(glua.LNumber(float64(e.clock.Lookahead()) / float64(time.Millisecond)))
		return 1
	})

	// clock.cue(beat, fn[, lead_ms]) and clock.on(beat, fn): return the cue id
	set("cue", func(L *glua.LState) int {
		beat := float64(L.CheckNumber(1))
		cb := e.callback(L.CheckFunction(2))
		lead := e.optLead(L, 3, e.clock.Lookahead())
		L.Push(glua.LNumber(e.clock.CueLead(beat, cb, lead)))
		return 1
	})
	set("on", func(L *glua.LState) int {
		beat := float64(L.CheckNumber(1))
		cb := e.callback(L.CheckFunction(2))
		L.Push(glua.LNumber(e.clock.CueLead(beat, cb, 0)))
		return 1
	})

	// clock.cue_time(time, fn[, lead_ms]) and clock.on_time(time, fn)
	set("cue_time", func(L *glua.LState) int {
		at := float64(L.CheckNumber(1))
		cb := e.callback(L.CheckFunction(2))
		lead := e.optLead(L, 3, e.clock.Lookahead())
		L.Push(glua.LNumber(e.clock.CueTimeLead(at, cb, lead)))
		return 1
	})
	set("on_time", func(L *glua.LState) int {
		at := float64(L.CheckNumber(1))
		cb := e.callback(L.CheckFunction(2))
		L.Push(glua.LNumber(e.clock.CueTimeLead(at, cb, 0)))
		return 1
	})

	// clock.uncue(): everything
	// clock.uncue(fn): every cue of fn
	// clock.uncue(beat[, fn]): cues at beat, optionally only fn's
	set("uncue", func(L *glua.LState) int {
		L.Push(glua.LNumber(e.uncue(L, e.clock.Uncue)))
		return 1
	})
	set("uncue_time", func(L *glua.LState) int {
		L.Push(glua.LNumber(e.uncue(L, e.clock.UncueTime)))
		return 1
	})

	// clock.uncue_after(beat[, fn]) and clock.uncue_after_time(time[, fn])
	set("uncue_after", func(L *glua.LState) int {
		at := float64(L.CheckNumber(1))
		cb, ok := e.optCallback(L, 2)
		if !ok {
			L.Push(glua.LNumber(0))
			return 1
		}
		L.Push(glua.LNumber(e.clock.UncueAfter(at, cb)))
		return 1
	})
	set("uncue_after_time", func(L *glua.LState) int {
		at := float64(L.CheckNumber(1))
		cb, ok := e.optCallback(L, 2)
		if !ok {
			L.Push(glua.LNumber(0))
			return 1
		}
		L.Push(glua.LNumber(e.clock.UncueAfterTime(at, cb)))
		return 1
	})

	// clock.cancel(id): true if the cue was still pending
	set("cancel", func(L *glua.LState) int {
		L.Push(glua.LBool(e.clock.Cancel(cue.ID(L.CheckNumber(1)))))
		return 1
	})

	// clock.pending(): array of {id=, time=, lead=, beat=?, name=}
	set("pending", func(L *glua.LState) int {
		list := L.NewTable()
		for _, c := range e.clock.Pending() {
			row := L.NewTable()
			L.SetField(row, "id", glua.LNumber(c.ID))
			L.SetField(row, "time", glua.LNumber(c.Time))
			L.SetField(row, "lead", glua.LNumber(float64(c.Lead)/float64(time.Millisecond)))
			L.SetField(row, "name", glua.LString(c.Callback.Name()))
			if c.Musical {
				L.SetField(row, "beat", glua.LNumber(c.Beat))
			}
			list.Append(row)
		}
		L.Push(list)
		return 1
	})
}

// uncue applies the shared argument convention of clock.uncue and
// clock.uncue_time to at, the beat- or time-indexed cancel.
func (e *Engine) uncue(L *glua.LState, at func(float64, *cue.Callback) int) int {
	switch v := L.Get(1).(type) {
	case *glua.LNilType:
		if L.GetTop() == 0 {
			return e.clock.UncueAll()
		}
	case *glua.LFunction:
		cb, ok := e.lookupCallback(v)
		if !ok {
			return 0
		}
		return e.clock.UncueCallback(cb)
	case glua.LNumber:
		cb, ok := e.optCallback(L, 2)
		if !ok {
			return 0
		}
		return at(float64(v), cb)
	}
	L.ArgError(1, "number or function expected")
	return 0
}

// optCallback resolves an optional function argument. A nil argument
// matches any callback. A function with nothing queued matches nothing,
// reported as ok == false.
func (e *Engine) optCallback(L *glua.LState, n int) (*cue.Callback, bool) {
	if L.Get(n) == glua.LNil {
		return nil, true
	}
	return e.lookupCallback(L.CheckFunction(n))
}

// optLead reads an optional lead in milliseconds.
func (e *Engine) optLead(L *glua.LState, n int, def time.Duration) time.Duration {
	if L.Get(n) == glua.LNil {
		return def
	}
	return time.Duration(float64(L.CheckNumber(n)) * float64(time.Millisecond))
}
