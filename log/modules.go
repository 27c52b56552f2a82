package log

type ModuleMask uint64
type Module uint

const (
	ModuleMaskAll ModuleMask = 0xFFFFFFFFFFFFFFFF
)

// Standard modules. Each hardware layer logs through its own module so that
// debug output can be enabled selectively with the --log flag.
const (
	ModDrv   Module = iota + 1 // top-level run loop and CLI
	ModACIA                    // bus sequencer and driver
	ModBus                     // line level changes
	ModClock                   // timer programming
	ModHwIo                    // register accesses
	ModGPIO                    // periph.io backend
	ModSim                     // simulated chip and terminal

	endStandardMods
)

var modCount = endStandardMods

var modDebugMask ModuleMask = 0

var modNames = []string{
	"<error>", "drv", "acia", "bus", "clock", "hwio", "gpio", "sim",
}

func NewModule(name string) Module {
	mod := modCount
	modCount++
	modNames = append(modNames, name)
	return mod
}

func ModuleByName(name string) (Module, bool) {
	for idx, s := range modNames {
		if s == name {
			return Module(idx), true
		}
	}
	return Module(0xFFFFFFFF), false
}

// ModuleNames returns the names of all registered modules.
func ModuleNames() []string {
	return append([]string(nil), modNames[1:]...)
}

func EnableDebugModules(mask ModuleMask) {
	modDebugMask |= mask
}

func DisableDebugModules(mask ModuleMask) {
	modDebugMask &^= mask
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

func (mod Module) Enabled(level Level) bool {
	if disabled {
		return false
	}
	return level <= WarnLevel || modDebugMask&mod.Mask() != 0
}

func (mod Module) WithFields(fields Fields) Entry {
	return Entry{mod: mod}.WithFields(fields)
}

func (mod Module) WithField(key string, value any) Entry {
	return Entry{mod: mod}.WithField(key, value)
}

// printf-like family

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

func (mod Module) Fatalf(format string, args ...any) {
	Entry{mod: mod}.Fatalf(format, args...)
}

// Builder-style functions, nil (and thus free) when the module is disabled
// for the level.

func (mod Module) logz(lvl Level, msg string) *EntryZ {
	if mod.Enabled(lvl) {
		e := NewEntryZ()
		e.lvl = lvl
		e.msg = msg
		e.mod = mod
		return e
	}
	return nil
}

func (mod Module) DebugZ(msg string) *EntryZ { return mod.logz(DebugLevel, msg) }
func (mod Module) InfoZ(msg string) *EntryZ  { return mod.logz(InfoLevel, msg) }
func (mod Module) WarnZ(msg string) *EntryZ  { return mod.logz(WarnLevel, msg) }
func (mod Module) ErrorZ(msg string) *EntryZ { return mod.logz(ErrorLevel, msg) }
func (mod Module) FatalZ(msg string) *EntryZ { return mod.logz(FatalLevel, msg) }
