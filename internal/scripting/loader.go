// Package scripting loads Lua extension scripts that register additional
// input-action template families beyond the built-in set.
package scripting

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"zigbee-go-setup/internal/actions"
)

// Loader owns one sandboxed Lua VM for all extension scripts. Expansion
// callbacks run on whatever goroutine compiles templates, so every entry into
// the VM is serialized through the loader's mutex.
type Loader struct {
	state  *lua.LState
	mu     sync.Mutex
	logger *slog.Logger
}

// NewLoader creates the VM and installs the actions module.
func NewLoader(logger *slog.Logger) *Loader {
	L := lua.NewState(lua.Options{SkipOpenLibs: false})

	// Sandbox: remove dangerous libs and functions
	L.SetGlobal("os", lua.LNil)
	L.SetGlobal("io", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("require", lua.LNil)
	L.SetGlobal("load", lua.LNil)
	L.SetGlobal("debug", lua.LNil)
	L.SetGlobal("package", lua.LNil)

	l := &Loader{state: L, logger: logger.With("component", "scripting")}

	mod := L.NewTable()
	mod.RawSetString("register_family", L.NewFunction(l.luaRegisterFamily))
	mod.RawSetString("log", L.NewFunction(func(L *lua.LState) int {
		l.logger.Info("script log", "msg", L.CheckString(1))
		return 0
	}))
	L.SetGlobal("actions", mod)

	return l
}

// Close shuts the VM down. Families registered from scripts stay registered
// but fail expansion afterwards.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Close()
}

// LoadDir runs every *.lua script in dir. A missing directory is not an error.
func (l *Loader) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("scripting: read dir %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("scripting: read %s: %w", path, err)
		}
		if err := l.Run(string(data)); err != nil {
			return fmt.Errorf("scripting: %s: %w", entry.Name(), err)
		}
		l.logger.Info("extension script loaded", "file", entry.Name())
	}
	return nil
}

// Run executes a chunk of Lua code in the loader's VM.
func (l *Loader) Run(code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.DoString(code)
}

// luaRegisterFamily implements actions.register_family{name=..., expand=...}.
// The expand function receives (input|inputs, endpoint, template) and returns
// a list of rows, each row a list of numbers:
// {input, event, endpoint, cluster, client, command, payload...}.
func (l *Loader) luaRegisterFamily(L *lua.LState) int {
	tbl := L.CheckTable(1)

	name := lua.LVAsString(tbl.RawGetString("name"))
	if name == "" {
		L.RaiseError("register_family: missing name")
		return 0
	}
	fn, ok := tbl.RawGetString("expand").(*lua.LFunction)
	if !ok {
		L.RaiseError("register_family: %s: missing expand function", name)
		return 0
	}
	double := lua.LVAsBool(tbl.RawGetString("double_inputs"))
	cover := lua.LVAsBool(tbl.RawGetString("cover"))

	fam := &actions.Family{Name: name, DoubleInputs: double, Cover: cover}
	if double {
		fam.ExpandPair = func(inputs [2]uint8, endpoint uint8, t *actions.Template) []actions.Instruction {
			pair := func(L *lua.LState) lua.LValue {
				pt := L.NewTable()
				pt.RawSetInt(1, lua.LNumber(inputs[0]))
				pt.RawSetInt(2, lua.LNumber(inputs[1]))
				return pt
			}
			return l.expand(name, fn, pair, endpoint, t)
		}
	} else {
		fam.Expand = func(input, endpoint uint8, t *actions.Template) []actions.Instruction {
			single := func(*lua.LState) lua.LValue { return lua.LNumber(input) }
			return l.expand(name, fn, single, endpoint, t)
		}
	}
	actions.RegisterFamily(fam)
	l.logger.Info("custom template family registered", "name", name, "double_inputs", double, "cover", cover)
	return 0
}

// expand calls a Lua expansion function and converts its rows. A script error
// during expansion logs and yields no rows; the compiler itself stays pure.
func (l *Loader) expand(name string, fn *lua.LFunction, inputArg func(*lua.LState) lua.LValue, endpoint uint8, t *actions.Template) []actions.Instruction {
	l.mu.Lock()
	defer l.mu.Unlock()

	L := l.state
	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, inputArg(L), lua.LNumber(endpoint), templateToLua(L, t)); err != nil {
		l.logger.Error("lua family expansion failed", "family", name, "err", err)
		return nil
	}
	ret := L.Get(-1)
	L.Pop(1)

	rows, ok := ret.(*lua.LTable)
	if !ok {
		l.logger.Error("lua family expansion returned no row list", "family", name)
		return nil
	}

	var out []actions.Instruction
	for i := 1; i <= rows.MaxN(); i++ {
		row, ok := rows.RawGetInt(i).(*lua.LTable)
		if !ok {
			l.logger.Error("lua family row is not a table", "family", name, "row", i)
			return nil
		}
		in, ok := rowToInstruction(row)
		if !ok {
			l.logger.Error("lua family row too short", "family", name, "row", i)
			return nil
		}
		out = append(out, in)
	}
	return out
}

func rowToInstruction(row *lua.LTable) (actions.Instruction, bool) {
	n := row.MaxN()
	if n < 6 {
		return actions.Instruction{}, false
	}
	nums := make([]int64, n)
	for i := 1; i <= n; i++ {
		nums[i-1] = int64(lua.LVAsNumber(row.RawGetInt(i)))
	}
	in := actions.Instruction{
		Input:    uint8(nums[0]),
		Event:    uint8(nums[1]),
		Endpoint: uint8(nums[2]),
		Cluster:  uint16(nums[3]),
		Client:   nums[4] != 0,
		Command:  uint8(nums[5]),
	}
	for _, p := range nums[6:] {
		in.Payload = append(in.Payload, byte(p))
	}
	return in, true
}

func templateToLua(L *lua.LState, t *actions.Template) *lua.LTable {
	tbl := L.NewTable()
	rate := 50
	if t.Rate != nil {
		rate = *t.Rate
	}
	tbl.RawSetString("rate", lua.LNumber(rate))
	tbl.RawSetString("no_onoff", lua.LBool(t.NoOnOff))
	tbl.RawSetString("no_onoff_up", lua.LBool(t.NoOnOffUp))
	tbl.RawSetString("no_onoff_down", lua.LBool(t.NoOnOffDown))
	return tbl
}
