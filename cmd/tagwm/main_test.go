package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/1broseidon/tagwm/internal/config"
	"github.com/1broseidon/tagwm/internal/geom"
	"github.com/1broseidon/tagwm/internal/wm"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		w, h    int
		wantErr bool
	}{
		{"1920x1080", 1920, 1080, false},
		{"800X600", 800, 600, false},
		{"1920", 0, 0, true},
		{"0x600", 0, 0, true},
		{"800x-1", 0, 0, true},
		{"axb", 0, 0, true},
	}
	for _, tt := range tests {
		w, h, err := parseSize(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseSize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if !tt.wantErr && (w != tt.w || h != tt.h) {
			t.Fatalf("parseSize(%q) = %dx%d, want %dx%d", tt.in, w, h, tt.w, tt.h)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate short = %q", got)
	}
	if got := truncate("héllo wörld", 5); got != "héll…" {
		t.Fatalf("truncate = %q, want %q", got, "héll…")
	}
}

func TestClientFlags(t *testing.T) {
	c := wm.ClientInfo{
		State:      wm.StateMapped.String(),
		Focused:    true,
		Fullscreen: true,
	}
	if got := clientFlags(c); got != "focused,fullscreen" {
		t.Fatalf("clientFlags = %q", got)
	}

	c = wm.ClientInfo{State: wm.StateMapped.String()}
	if got := clientFlags(c); got != "-" {
		t.Fatalf("clientFlags(empty) = %q, want -", got)
	}

	c = wm.ClientInfo{State: wm.StateUnmapped.String(), Banned: true}
	if got := clientFlags(c); got != "hidden,"+wm.StateUnmapped.String() {
		t.Fatalf("clientFlags(unmapped) = %q", got)
	}
}

func TestWriteClientsTable(t *testing.T) {
	var buf bytes.Buffer
	writeClients(&buf, []wm.ClientInfo{{
		AppID:       "firefox",
		Title:       "Mozilla Firefox",
		State:       wm.StateMapped.String(),
		MonitorName: "HEADLESS-1",
		TagNames:    []string{"1", "3"},
		Layer:       "normal",
		Geometry:    geom.Rect{Width: 100, Height: 100},
	}})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", buf.String())
	}
	for _, want := range []string{"firefox", "HEADLESS-1", "1,3", "normal"} {
		if !strings.Contains(lines[1], want) {
			t.Fatalf("row %q missing %q", lines[1], want)
		}
	}
}

func TestFormatSource(t *testing.T) {
	tests := []struct {
		src  config.Source
		want string
	}{
		{config.Source{Kind: config.SourceDefault}, "default"},
		{config.Source{Kind: config.SourceFile}, "file"},
		{config.Source{Kind: config.SourceFile, File: "/tmp/c.yaml"}, "file:/tmp/c.yaml"},
		{config.Source{Kind: config.SourceFile, File: "/tmp/c.yaml", Line: 3, Column: 5}, "file:/tmp/c.yaml:3:5"},
	}
	for _, tt := range tests {
		if got := formatSource(tt.src); got != tt.want {
			t.Fatalf("formatSource(%+v) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestRectString(t *testing.T) {
	r := geom.Rect{X: 1920, Y: -10, Width: 800, Height: 600}
	if got := r.String(); got != "800x600+1920-10" {
		t.Fatalf("Rect.String = %q", got)
	}
}
