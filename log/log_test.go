package log

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		DisableDebugModules(ModuleMaskAll)
	})
	return &buf
}

func TestModuleByName(t *testing.T) {
	for _, name := range ModuleNames() {
		mod, ok := ModuleByName(name)
		if !ok || mod.String() != name {
			t.Errorf("ModuleByName(%q) = %v, %t", name, mod, ok)
		}
	}
	if _, ok := ModuleByName("cpu"); ok {
		t.Error("ModuleByName(cpu) should fail")
	}
}

func TestEnabled(t *testing.T) {
	captureOutput(t)

	if ModACIA.Enabled(DebugLevel) || ModACIA.Enabled(InfoLevel) {
		t.Fatal("debug enabled by default")
	}
	if !ModACIA.Enabled(WarnLevel) || !ModACIA.Enabled(ErrorLevel) {
		t.Fatal("warnings must always be enabled")
	}

	EnableDebugModules(ModACIA.Mask() | ModSim.Mask())
	if !ModACIA.Enabled(DebugLevel) || !ModSim.Enabled(DebugLevel) || ModClock.Enabled(DebugLevel) {
		t.Error("mask not honored")
	}

	DisableDebugModules(ModSim.Mask())
	if ModSim.Enabled(DebugLevel) {
		t.Error("ModSim still enabled")
	}

	if ModClock.DebugZ("nope") != nil {
		t.Error("DebugZ must return nil for a disabled module")
	}
	// Builders on a nil entry are no-ops.
	ModClock.DebugZ("nope").Hex8("v", 1).String("s", "x").End()
}

func TestEntryZ(t *testing.T) {
	buf := captureOutput(t)
	EnableDebugModules(ModACIA.Mask())

	ModACIA.DebugZ("write").
		Hex8("val", 0x15).
		Hex16("addr", 0xBEEF).
		Int("n", -3).
		Bool("ok", true).
		Duration("settle", time.Millisecond).
		Error("err", errors.New("boom")).
		Blob("raw", []byte{0xCA, 0xFE}).
		End()

	out := buf.String()
	for _, want := range []string{
		"level=debug", "msg=write", "_mod=acia", "val=15", "addr=beef", "n=-3",
		"ok=true", "settle=1ms", "err=boom", "raw=cafe",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q: %s", want, out)
		}
	}
}

func TestPrintf(t *testing.T) {
	buf := captureOutput(t)

	ModGPIO.Warnf("pin %s busy", "GPIO17")
	ModGPIO.Debugf("hidden %d", 1)

	out := buf.String()
	if !strings.Contains(out, "pin GPIO17 busy") || !strings.Contains(out, "_mod=gpio") {
		t.Errorf("unexpected output: %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug output of disabled module: %s", out)
	}

	buf.Reset()
	ModDrv.WithField("path", "/tmp/x").Warn("oops")
	if out := buf.String(); !strings.Contains(out, "path=/tmp/x") || !strings.Contains(out, "oops") {
		t.Errorf("unexpected output: %s", out)
	}
}
