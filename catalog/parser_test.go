package catalog

import (
	"crypto/md5"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/VanDung-dev/flm-bridge/flm"
)

func TestIsRule(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"||example.org^", true},
		{"example.com##.banner", true},
		{"#comment-like-selector", true},
		{"", false},
		{"! Title: test", false},
		{"!#if windows", false},
		{"# hosts comment", false},
	}
	for _, tt := range tests {
		if got := IsRule(tt.line); got != tt.want {
			t.Errorf("IsRule(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestCountRules(t *testing.T) {
	text := "! Title: x\r\n||a^\r\n\r\n# comment\r\n  ||b^  \r\n"
	if got := CountRules(text); got != 2 {
		t.Errorf("Expected 2 rules, got %d", got)
	}
	if got := CountRules(""); got != 0 {
		t.Errorf("Expected 0 rules for empty text, got %d", got)
	}
}

func TestParseExpires(t *testing.T) {
	tests := []struct {
		in   string
		want int32
	}{
		{"4 days (update frequency)", 345600},
		{"1day 5 HoUrS 12 mIn ", 105120},
		{"3600", 3600},
		{"12 hours", 43200},
		{"5.5 hours", 19800},
		{"1d 1seconds 1h 1m", 86401},
		{"32fd2 1d 1second", 32},
		{"asdf 1 hour", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := ParseExpires(tt.in); got != tt.want {
			t.Errorf("ParseExpires(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseHeader(t *testing.T) {
	body := strings.Join([]string{
		"! Title: Base filter",
		"!Description: Removes ads",
		"! Version: 2.1.0",
		"! TimeUpdated: 2024-07-31T12:31:19+00:00",
		"! Last modified: 123",
		"! Expires: 4 days",
		"! Homepage: https://example.org",
		"! License: GPL",
		"! Diff-Path: patches/1.patch",
		"||ads.example^",
		"! Title: ignored after the first rule",
	}, "\n")

	h := parseHeader(body)
	if h.Title != "Base filter" {
		t.Errorf("Expected title 'Base filter', got %q", h.Title)
	}
	if h.Description != "Removes ads" {
		t.Errorf("Expected description without space prefix, got %q", h.Description)
	}
	if h.TimeUpdated != "2024-07-31T12:31:19+00:00" {
		t.Errorf("Expected first TimeUpdated to win, got %q", h.TimeUpdated)
	}
	if h.Version != "2.1.0" || h.Homepage != "https://example.org" || h.License != "GPL" || h.DiffPath != "patches/1.patch" {
		t.Errorf("Unexpected header %+v", h)
	}
	if ParseExpires(h.Expires) != 345600 {
		t.Errorf("Expected 4 days, got %q", h.Expires)
	}
}

func TestParseTimeUpdated(t *testing.T) {
	if got := parseTimeUpdated("2024-07-31T12:31:19+00:00", testNow); got != 1722429079 {
		t.Errorf("Expected 1722429079, got %d", got)
	}
	if got := parseTimeUpdated("123123", testNow); got != 123123 {
		t.Errorf("Expected 123123, got %d", got)
	}
	if got := parseTimeUpdated("yesterday", testNow); got != testNow.Unix() {
		t.Errorf("Expected fallback, got %d", got)
	}
}

func TestCheckContent(t *testing.T) {
	for _, body := range []string{
		"<!DOCTYPE html><html></html>",
		"\ufeff  <html>",
		"<?xml version=\"1.0\"?>",
		"<!-- comment -->",
		"<HEAD>",
	} {
		err := checkContent(body)
		if !errors.Is(err, &flm.Error{Kind: flm.KindFilterContentIsLikelyNotAFilter}) {
			t.Errorf("checkContent(%q) = %v, want markup error", body, err)
		}
	}
	for _, body := range []string{"", "||example.org^", "! Title: <html> in comment"} {
		if err := checkContent(body); err != nil {
			t.Errorf("checkContent(%q) = %v, want nil", body, err)
		}
	}
}

func TestVerifyChecksum(t *testing.T) {
	content := "! Title: x\n||a^\n||b^"
	sum := md5.Sum([]byte(content))
	checksum := base64.RawStdEncoding.EncodeToString(sum[:])

	valid := "! Checksum: " + checksum + "\n! Title: x\n\n||a^\r\n  ||b^\n"
	if err := verifyChecksum(valid); err != nil {
		t.Fatalf("Expected valid checksum, got %v", err)
	}

	invalid := "! Checksum: " + checksum + "\n! Title: x\n||c^\n"
	err := verifyChecksum(invalid)
	if !errors.Is(err, &flm.Error{Kind: flm.KindFilterParserError}) {
		t.Errorf("Expected parser error, got %v", err)
	}

	if err := verifyChecksum("||a^\n"); err != nil {
		t.Errorf("Expected lists without checksum to pass, got %v", err)
	}
}

func TestCompileDirectives(t *testing.T) {
	body := strings.Join([]string{
		"!#if true",
		"true rule",
		"!#if false",
		"discarded rule",
		"!#else",
		"caught rule",
		"!#endif",
		"!#endif",
		"!#if windows",
		"windows rule",
		"!#else",
		"other rule",
		"!#endif",
		"!#if mac",
		"mac rule",
		"!#endif",
	}, "\n")

	out, err := compile(body, []string{"windows"})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	want := "true rule\ncaught rule\nwindows rule"
	if out != want {
		t.Errorf("Expected %q, got %q", want, out)
	}
}

func TestCompileUnbalanced(t *testing.T) {
	for _, body := range []string{
		"!#if true\n||a^",
		"!#endif",
		"!#else",
		"!#if true\n!#else\n!#else\n!#endif",
		"!#if \n!#endif",
		"!#if (windows\n!#endif",
	} {
		_, err := compile(body, nil)
		if !errors.Is(err, &flm.Error{Kind: flm.KindFilterParserError}) {
			t.Errorf("compile(%q) = %v, want parser error", body, err)
		}
	}
}

func TestEvalCondition(t *testing.T) {
	constants := []string{"windows", "iOS"}
	tests := []struct {
		expr string
		want bool
	}{
		{"(adguard && (adguard_ext_firefox || adguard_app_windows))", false},
		{" mac || windows ", true},
		{"(false || (windows && true) ) ", true},
		{"(nonexistent || (windows && other) ) ", false},
		{"!mac && iOS", true},
		{"!(windows)", false},
	}
	for _, tt := range tests {
		got, err := evalCondition(tt.expr, constants)
		if err != nil {
			t.Errorf("evalCondition(%q) failed: %v", tt.expr, err)
			continue
		}
		if got != tt.want {
			t.Errorf("evalCondition(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}

	for _, expr := range []string{"", "()", " (false ", "windows & mac", "a || "} {
		if _, err := evalCondition(expr, constants); err == nil {
			t.Errorf("evalCondition(%q) expected error", expr)
		}
	}
}

func TestActiveText(t *testing.T) {
	got := activeText("! c\n||a^\n||b^\n||c^", "||b^")
	if len(got) != 2 || got[0] != "||a^" || got[1] != "||c^" {
		t.Errorf("Unexpected active rules %v", got)
	}
}
