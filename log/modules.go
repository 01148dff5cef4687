// Package log provides module-scoped logging on top of logrus.
//
// Warnings and errors are always emitted. Debug and info output is emitted
// only for modules whose bit is set in the debug mask, so hot paths such as
// per-slot FIFO servicing pay nothing when their module is disabled.
package log

import (
	"io"

	"gopkg.in/Sirupsen/logrus.v0"
)

type ModuleMask uint64
type Module uint

const ModuleMaskAll ModuleMask = 0xFFFFFFFFFFFFFFFF

const (
	ModEmu Module = iota + 1
	ModVDP
	ModDMA
	ModFIFO
	ModBus
	ModCPU

	endStandardMods
)

var modCount = endStandardMods

var (
	modDebugMask ModuleMask
	disabled     bool
)

var modNames = []string{
	"<error>", "emu", "vdp", "dma", "fifo", "bus", "cpu",
}

func init() {
	logrus.SetLevel(logrus.DebugLevel)
}

// NewModule registers an additional module name and returns its handle.
func NewModule(name string) Module {
	mod := modCount
	modCount++
	modNames = append(modNames, name)
	return mod
}

// ModuleByName returns the module registered under name.
func ModuleByName(name string) (Module, bool) {
	for idx, s := range modNames {
		if idx == 0 {
			continue
		}
		if s == name {
			return Module(idx), true
		}
	}
	return Module(0xFFFFFFFF), false
}

// ModuleNames returns the names of all registered modules.
func ModuleNames() []string {
	names := make([]string, 0, len(modNames)-1)
	return append(names, modNames[1:]...)
}

func EnableDebugModules(mask ModuleMask) {
	modDebugMask |= mask
}

func DisableDebugModules(mask ModuleMask) {
	modDebugMask &^= mask
}

// Disable silences every module, warnings included.
func Disable() {
	disabled = true
}

// SetOutput redirects all log output.
func SetOutput(w io.Writer) {
	logrus.SetOutput(w)
}

// SetColors switches colored level names on or off.
func SetColors(enabled bool) {
	logrus.SetFormatter(&logrus.TextFormatter{
		ForceColors:   enabled,
		DisableColors: !enabled,
	})
}

func (mod Module) Mask() ModuleMask {
	return 1 << ModuleMask(mod)
}

func (mod Module) String() string {
	if int(mod) < len(modNames) {
		return modNames[mod]
	}
	return modNames[0]
}

func (mod Module) Enabled(level logrus.Level) bool {
	if disabled {
		return false
	}
	return level <= logrus.WarnLevel || modDebugMask&mod.Mask() != 0
}

func (mod Module) WithField(key string, value any) Entry {
	return Entry{mod: mod}.WithField(key, value)
}

func (mod Module) WithFields(fields Fields) Entry {
	return Entry{mod: mod}.WithFields(fields)
}

func (mod Module) Debugf(format string, args ...any) {
	Entry{mod: mod}.Debugf(format, args...)
}

func (mod Module) Infof(format string, args ...any) {
	Entry{mod: mod}.Infof(format, args...)
}

func (mod Module) Warnf(format string, args ...any) {
	Entry{mod: mod}.Warnf(format, args...)
}

func (mod Module) Errorf(format string, args ...any) {
	Entry{mod: mod}.Errorf(format, args...)
}
