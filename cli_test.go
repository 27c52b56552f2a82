package main

import (
	"testing"

	"aciatx/log"
)

func TestParseLogModules(t *testing.T) {
	tests := []struct {
		s       string
		want    log.ModuleMask
		wantErr bool
	}{
		{s: "acia", want: log.ModACIA.Mask()},
		{s: "acia,sim", want: log.ModACIA.Mask() | log.ModSim.Mask()},
		{s: "all", want: log.ModuleMaskAll},
		{s: "no", want: 0},
		{s: "no,all", wantErr: true},
		{s: "no,acia", wantErr: true},
		{s: "cpu", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseLogModules(tt.s)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLogModules(%q) error = %v, wantErr %t", tt.s, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLogModules(%q) = %x, want %x", tt.s, got, tt.want)
		}
	}
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		args []string
		mode mode
	}{
		{[]string{"send"}, sendMode},
		{[]string{"send", "--once", "hello"}, sendMode},
		{[]string{"sim", "--repeat=3", "hi"}, simMode},
		{[]string{"clock", "--timer-hz=8000000"}, clockMode},
		{[]string{"config"}, configMode},
		{[]string{"version"}, versionMode},
	}

	for _, tt := range tests {
		cli := parseArgs(tt.args)
		if cli.mode != tt.mode {
			t.Errorf("parseArgs(%q).mode = %d, want %d", tt.args, cli.mode, tt.mode)
		}
		if cli.ConfigPath == "" {
			t.Errorf("parseArgs(%q): no config path", tt.args)
		}
	}

	cli := parseArgs([]string{"sim", "--repeat=3", "--strict", "--config=/tmp/x.toml", "hi"})
	if cli.Sim.Repeat != 3 || !cli.Sim.Strict || cli.Sim.Message != "hi" || cli.ConfigPath != "/tmp/x.toml" {
		t.Errorf("sim args = %+v, config %q", cli.Sim, cli.ConfigPath)
	}
}
