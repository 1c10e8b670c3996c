package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/alfredjeanlab/vaultsync/internal/syncengine"
	"github.com/alfredjeanlab/vaultsync/internal/ui"
)

func TestWatchPrinter_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	p := &watchPrinter{w: &buf, palette: ui.NewPalette(false), json: true}

	p.InvalidateItem("x\x01\"1")
	p.InvalidateItemList()
	p.State(syncengine.StateConnected)

	want := []watchLine{
		{Kind: "invalidate", Detail: "item x\x01\"1"},
		{Kind: "invalidate", Detail: "item list"},
		{Kind: "state", Detail: "connected"},
	}
	sc := bufio.NewScanner(&buf)
	i := 0
	for ; sc.Scan(); i++ {
		if i >= len(want) {
			t.Fatalf("unexpected extra line %q", sc.Text())
		}
		var got watchLine
		if err := json.Unmarshal(sc.Bytes(), &got); err != nil {
			t.Fatalf("line %d is not valid JSON: %q: %v", i, sc.Text(), err)
		}
		if got.Kind != want[i].Kind || got.Detail != want[i].Detail {
			t.Errorf("line %d = %+v, want kind=%q detail=%q", i, got, want[i].Kind, want[i].Detail)
		}
		if got.Time == "" {
			t.Errorf("line %d has no time", i)
		}
	}
	if i != len(want) {
		t.Fatalf("got %d lines, want %d", i, len(want))
	}
}

func TestWatchPrinter_Text(t *testing.T) {
	var buf bytes.Buffer
	p := &watchPrinter{w: &buf, palette: ui.NewPalette(false)}
	p.InvalidateItem("x1")
	if got := buf.String(); !strings.Contains(got, "invalidate") || !strings.HasSuffix(got, "item x1\n") {
		t.Fatalf("text line = %q", got)
	}
}
