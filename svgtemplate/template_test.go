package svgtemplate

import (
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flanksource/commons/logger"
	"golang.org/x/net/html/charset"
)

var testLog = logger.GetLogger("svgtemplate")

func writeTemplate(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "template.svg")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveDefault(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.svg")} {
		if got := Resolve(path, testLog); got != Default {
			t.Errorf("path %q: expected default template, got %q", path, got)
		}
	}
	if !strings.Contains(string(Default), "viewBox='0 0 800 600'") || strings.Count(string(Default), Placeholder) != 1 {
		t.Error("default template should be 800x600 with one placeholder")
	}
}

func TestResolveFile(t *testing.T) {
	// no placeholder check is done
	content := "<svg viewBox='0 0 10 10'><rect width='10' height='10'/></svg>"
	path := writeTemplate(t, []byte(content))
	if got := Resolve(path, testLog); string(got) != content {
		t.Errorf("unexpected template %q", got)
	}
}

func TestLoad(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.svg"))
	if !errors.Is(err, ErrUnreadable) {
		t.Errorf("expected ErrUnreadable, got %v", err)
	}

	latin1 := []byte("<?xml version='1.0' encoding='ISO-8859-1'?><svg><text>caf\xe9 %s</text></svg>")
	tmpl, err := Load(writeTemplate(t, latin1))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(tmpl), "café %s") {
		t.Errorf("template not decoded: %q", tmpl)
	}
	if got := prologEncoding([]byte(tmpl)); got != "UTF-8" {
		t.Errorf("prolog should declare UTF-8 after decoding, got %q", got)
	}

	// XML parsers must read the text once decoded
	dec := xml.NewDecoder(strings.NewReader(tmpl.Apply("x")))
	dec.CharsetReader = charset.NewReaderLabel
	var doc struct {
		Text string `xml:"text"`
	}
	if err := dec.Decode(&doc); err != nil {
		t.Fatal(err)
	}
	if doc.Text != "café x" {
		t.Errorf("unexpected text %q", doc.Text)
	}
}

func TestApply(t *testing.T) {
	for _, tc := range []struct {
		tmpl Template
		text string
		exp  string
	}{
		{Default, "Hello", strings.Replace(string(Default), "%s", "Hello", 1)},
		{"<a>%s</a><b>%s</b>", "x", "<a>x</a><b>%s</b>"},
		{"<a>100%% %s</a>", "x", "<a>100%% x</a>"},
		{"<a>%d</a>", "x", "<a>%d</a>"},
		{"<a>%s</a>", "%s", "<a>%s</a>"},
	} {
		if got := tc.tmpl.Apply(tc.text); got != tc.exp {
			t.Errorf("Apply(%q) on %q = %q, expected %q", tc.text, tc.tmpl, got, tc.exp)
		}
	}
}

func TestToUTF8(t *testing.T) {
	if got := ToUTF8([]byte("déjà")); got != "déjà" {
		t.Errorf("valid UTF-8 should be kept, got %q", got)
	}
	if got := ToUTF8([]byte("d\xe9j\xe0")); got != "déjà" {
		t.Errorf("expected windows-1252 detection, got %q", got)
	}
	if got := prologEncoding([]byte(`<?xml version="1.0" encoding="koi8-r"?>`)); got != "koi8-r" {
		t.Errorf("unexpected prolog encoding %q", got)
	}
	if got := ToUTF8([]byte("<?xml version='1.0' encoding='windows-1252'?><svg>d\xe9j\xe0</svg>")); got != "<?xml version='1.0' encoding='UTF-8'?><svg>déjà</svg>" {
		t.Errorf("unexpected relabeled document %q", got)
	}
	if got := prologEncoding([]byte(`<svg/>`)); got != "" {
		t.Errorf("unexpected prolog encoding %q", got)
	}
}
