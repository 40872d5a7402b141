package scripting

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

//go:embed scripts/*.lua
var defaultScripts embed.FS

// Engine wraps a single gopher-lua VM for combat formula execution.
// The VM is not goroutine-safe; all calls serialize on an internal mutex.
type Engine struct {
	mu  sync.Mutex
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine, loads the embedded default scripts and
// then any .lua files from scriptsDir (may be empty), letting operators
// override the built-in formulas.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	entries, err := defaultScripts.ReadDir("scripts")
	if err != nil {
		vm.Close()
		return nil, fmt.Errorf("read embedded scripts: %w", err)
	}
	for _, entry := range entries {
		raw, err := defaultScripts.ReadFile("scripts/" + entry.Name())
		if err != nil {
			vm.Close()
			return nil, fmt.Errorf("read embedded %s: %w", entry.Name(), err)
		}
		if err := vm.DoString(string(raw)); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load embedded %s: %w", entry.Name(), err)
		}
	}

	if scriptsDir != "" {
		if err := e.loadDir(scriptsDir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load override scripts: %w", err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Close releases the Lua VM.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}

// BossDamage calls the Lua calc_boss_damage function.
// rarityMult and weaponBonus default to 1.0 for an unequipped attacker.
func (e *Engine) BossDamage(rarityMult, weaponBonus float64) int32 {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal("calc_boss_damage")
	if fn == lua.LNil {
		e.log.Error("lua function calc_boss_damage not found")
		return 1
	}

	t := e.vm.NewTable()
	t.RawSetString("rarity_mult", lua.LNumber(rarityMult))
	t.RawSetString("weapon_bonus", lua.LNumber(weaponBonus))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua calc_boss_damage error", zap.Error(err))
		return 1
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	dmg := int32(lua.LVAsNumber(result))
	if dmg < 1 {
		dmg = 1
	}
	return dmg
}

// CounterDamage calls the Lua calc_counter_damage function.
func (e *Engine) CounterDamage(min, max int) int32 {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal("calc_counter_damage")
	if fn == lua.LNil {
		e.log.Error("lua function calc_counter_damage not found")
		return int32(min)
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LNumber(min), lua.LNumber(max)); err != nil {
		e.log.Error("lua calc_counter_damage error", zap.Error(err))
		return int32(min)
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	c := int32(lua.LVAsNumber(result))
	if c < int32(min) {
		c = int32(min)
	}
	if c > int32(max) {
		c = int32(max)
	}
	return c
}
