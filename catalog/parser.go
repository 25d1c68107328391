package catalog

import (
	"crypto/md5"
	"encoding/base64"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/VanDung-dev/flm-bridge/flm"
)

const (
	maxMetadataLines = 100
	maxChecksumLine  = 50

	directiveIf    = "!#if"
	directiveElse  = "!#else"
	directiveEndif = "!#endif"
)

// IsRule reports whether a list line is a rule rather than a comment,
// directive or blank line.
func IsRule(line string) bool {
	return !(line == "" || strings.HasPrefix(line, "!") || strings.HasPrefix(line, "# "))
}

// CountRules counts the rule lines of text.
func CountRules(text string) int32 {
	var n int32
	for _, line := range splitLines(text) {
		if IsRule(strings.TrimSpace(line)) {
			n++
		}
	}
	return n
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

var markupStart = regexp.MustCompile(`(?i)^<\s*(!doctype|\?xml|html|head|body|script|div|table|meta|!--)`)

// checkContent rejects bodies that look like an HTML page.
func checkContent(body string) error {
	trimmed := strings.TrimSpace(strings.TrimPrefix(body, "\ufeff"))
	if markupStart.MatchString(trimmed) {
		return flm.Errorf(flm.KindFilterContentIsLikelyNotAFilter, "content looks like markup")
	}
	return nil
}

// header holds the known "! Key: value" properties of a list.
type header struct {
	Title       string
	Description string
	Version     string
	Expires     string
	Homepage    string
	TimeUpdated string
	License     string
	Checksum    string
	DiffPath    string
}

func parseHeader(body string) header {
	var h header
	for i, raw := range splitLines(body) {
		line := strings.TrimSpace(raw)
		if i >= maxMetadataLines || (line != "" && !strings.HasPrefix(line, "!")) {
			break
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimLeft(key, "!"))
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		var dst *string
		switch key {
		case "Title":
			dst = &h.Title
		case "Description":
			dst = &h.Description
		case "Version":
			dst = &h.Version
		case "Expires":
			dst = &h.Expires
		case "Homepage":
			dst = &h.Homepage
		case "TimeUpdated", "Last modified":
			dst = &h.TimeUpdated
		case "License":
			dst = &h.License
		case "Checksum":
			dst = &h.Checksum
		case "Diff-Path":
			dst = &h.DiffPath
		default:
			continue
		}
		if *dst == "" {
			*dst = value
		}
	}
	return h
}

// metadata converts a header into the reported form.
func (h header) metadata(url string, rulesCount int32) flm.FilterListMetadata {
	return flm.FilterListMetadata{
		Title:       h.Title,
		Description: h.Description,
		TimeUpdated: h.TimeUpdated,
		Version:     h.Version,
		Homepage:    h.Homepage,
		License:     h.License,
		Checksum:    h.Checksum,
		URL:         url,
		RulesCount:  rulesCount,
	}
}

// parseTimeUpdated accepts RFC 3339 and unix seconds; anything else yields
// fallback.
func parseTimeUpdated(value string, fallback time.Time) int64 {
	if value == "" {
		return fallback.Unix()
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.Unix()
	}
	if t, err := time.Parse("2006-01-02T15:04:05-0700", value); err == nil {
		return t.Unix()
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	return fallback.Unix()
}

var expiresUnits = []struct {
	name string
	bit  uint8
}{
	{"days", 1}, {"day", 1}, {"d", 1},
	{"hours", 2}, {"hour", 2}, {"hrs", 2}, {"hr", 2}, {"h", 2},
	{"minutes", 4}, {"minute", 4}, {"min", 4}, {"m", 4},
	{"seconds", 8}, {"second", 8}, {"sec", 8}, {"s", 8},
}

// ParseExpires converts an Expires value like "4 days (update frequency)"
// or "1d 12h" into seconds. Units must appear from days down to seconds; a
// bare number is seconds.
func ParseExpires(value string) int32 {
	s := strings.TrimSpace(strings.ToLower(value))
	var units [4]float32
	var seconds int32
	var mask uint8

	for i := 0; i < 4; i++ {
		number, rest, ok := takeNumber(s)
		if !ok {
			break
		}
		rest = strings.TrimLeft(rest, " \t")
		bit, rest, ok := takeUnit(rest)
		if !ok {
			if i == 0 {
				whole, _, _ := strings.Cut(number, ".")
				n, _ := strconv.ParseInt(whole, 10, 32)
				seconds = int32(n)
			}
			break
		}
		if mask >= bit {
			break
		}
		mask |= bit
		if bit == 8 {
			whole, _, _ := strings.Cut(number, ".")
			n, _ := strconv.ParseInt(whole, 10, 32)
			seconds = int32(n)
		} else {
			f, _ := strconv.ParseFloat(number, 32)
			switch bit {
			case 1:
				units[0] = float32(f)
			case 2:
				units[1] = float32(f)
			case 4:
				units[2] = float32(f)
			}
		}
		s = strings.TrimLeft(rest, " \t")
	}

	total := int32(math.Floor(float64(units[0]*86400+units[1]*3600+units[2]*60))) + seconds
	return max(total, 0)
}

func takeNumber(s string) (number, rest string, ok bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return "", s, false
	}
	if i+1 < len(s) && s[i] == '.' && s[i+1] >= '0' && s[i+1] <= '9' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
	}
	return s[:i], s[i:], true
}

func takeUnit(s string) (uint8, string, bool) {
	for _, u := range expiresUnits {
		if strings.HasPrefix(s, u.name) {
			return u.bit, s[len(u.name):], true
		}
	}
	return 0, s, false
}

// verifyChecksum validates a "! Checksum:" line against the MD5 of the
// remaining non-empty trimmed lines. Lists without a checksum pass.
func verifyChecksum(body string) error {
	var b strings.Builder
	checksum := ""
	found := false
	for i, raw := range splitLines(body) {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if !found {
			if i > maxChecksumLine {
				return nil
			}
			if value, ok := checksumValue(line); ok {
				checksum = value
				found = true
				continue
			}
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if checksum == "" {
		return nil
	}

	content := strings.TrimSuffix(b.String(), "\n")
	sum := md5.Sum([]byte(content))
	if got := base64.RawStdEncoding.EncodeToString(sum[:]); got != checksum {
		return flm.Errorf(flm.KindFilterParserError, "invalid checksum: expected %s, computed %s", checksum, got)
	}
	return nil
}

func checksumValue(line string) (string, bool) {
	rest, ok := strings.CutPrefix(line, "!")
	if !ok {
		return "", false
	}
	rest = strings.TrimLeft(rest, " \t")
	if len(rest) < len("checksum:") || !strings.EqualFold(rest[:len("checksum:")], "checksum:") {
		return "", false
	}
	rest = strings.TrimLeft(rest[len("checksum:"):], " \t")
	end := 0
	for end < len(rest) && isBase64(rest[end]) {
		end++
	}
	return rest[:end], true
}

func isBase64(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
		c == '+' || c == '/' || c == '='
}

// compile evaluates conditional directives against constants and returns
// the lines that remain. Include directives are kept as plain comment lines.
func compile(body string, constants []string) (string, error) {
	lines := splitLines(body)
	out := make([]string, 0, len(lines))

	// Each frame records whether its branch is captured and whether an
	// else was seen.
	type frame struct {
		capture bool
		parent  bool
		hasElse bool
	}
	var stack []frame
	capturing := true

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, directiveIf):
			expr := line[len(directiveIf):]
			if strings.TrimSpace(expr) == "" {
				return "", flm.Errorf(flm.KindFilterParserError, "empty if")
			}
			value := false
			if capturing {
				v, err := evalCondition(expr, constants)
				if err != nil {
					return "", err
				}
				value = v
			}
			stack = append(stack, frame{capture: capturing && value, parent: capturing})
			capturing = capturing && value
		case strings.HasPrefix(line, directiveElse):
			if len(stack) == 0 || stack[len(stack)-1].hasElse {
				return "", flm.Errorf(flm.KindFilterParserError, "unbalanced else")
			}
			top := &stack[len(stack)-1]
			top.hasElse = true
			top.capture = top.parent && !top.capture
			capturing = top.capture
		case strings.HasPrefix(line, directiveEndif):
			if len(stack) == 0 {
				return "", flm.Errorf(flm.KindFilterParserError, "unbalanced endif")
			}
			capturing = stack[len(stack)-1].parent
			stack = stack[:len(stack)-1]
		default:
			if capturing {
				out = append(out, raw)
			}
		}
	}
	if len(stack) != 0 {
		return "", flm.Errorf(flm.KindFilterParserError, "unbalanced if")
	}
	return strings.Join(out, "\n"), nil
}

// evalCondition evaluates expressions like "(windows || mac) && !ios".
func evalCondition(expr string, constants []string) (bool, error) {
	p := condParser{tokens: tokenize(expr), constants: constants}
	v, err := p.or()
	if err != nil {
		return false, err
	}
	if p.pos != len(p.tokens) {
		return false, flm.Errorf(flm.KindFilterParserError, "invalid boolean expression %q", expr)
	}
	return v, nil
}

func tokenize(expr string) []string {
	var tokens []string
	for i := 0; i < len(expr); {
		switch c := expr[i]; {
		case c == ' ' || c == '\t':
			i++
		case c == '(' || c == ')':
			tokens = append(tokens, string(c))
			i++
		case c == '!':
			tokens = append(tokens, "!")
			i++
		case strings.HasPrefix(expr[i:], "&&") || strings.HasPrefix(expr[i:], "||"):
			tokens = append(tokens, expr[i:i+2])
			i += 2
		default:
			j := i
			for j < len(expr) && !strings.ContainsRune(" \t()!&|", rune(expr[j])) {
				j++
			}
			if j == i {
				// A lone '&' or '|'.
				j++
			}
			tokens = append(tokens, expr[i:j])
			i = j
		}
	}
	return tokens
}

type condParser struct {
	tokens    []string
	pos       int
	constants []string
}

func (p *condParser) peek() string {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return ""
}

func (p *condParser) or() (bool, error) {
	left, err := p.and()
	if err != nil {
		return false, err
	}
	for p.peek() == "||" {
		p.pos++
		right, err := p.and()
		if err != nil {
			return false, err
		}
		left = left || right
	}
	return left, nil
}

func (p *condParser) and() (bool, error) {
	left, err := p.term()
	if err != nil {
		return false, err
	}
	for p.peek() == "&&" {
		p.pos++
		right, err := p.term()
		if err != nil {
			return false, err
		}
		left = left && right
	}
	return left, nil
}

func (p *condParser) term() (bool, error) {
	tok := p.peek()
	p.pos++
	switch tok {
	case "":
		return false, flm.Errorf(flm.KindFilterParserError, "unexpected end of expression")
	case "!":
		v, err := p.term()
		return !v, err
	case "(":
		v, err := p.or()
		if err != nil {
			return false, err
		}
		if p.peek() != ")" {
			return false, flm.Errorf(flm.KindFilterParserError, "unbalanced brackets")
		}
		p.pos++
		return v, nil
	case ")", "&&", "||", "&", "|":
		return false, flm.Errorf(flm.KindFilterParserError, "unexpected %q", tok)
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	for _, c := range p.constants {
		if c == tok {
			return true, nil
		}
	}
	return false, nil
}

// activeText drops disabled rules from text.
func activeText(text, disabled string) []string {
	off := make(map[string]struct{})
	for _, line := range splitLines(disabled) {
		off[strings.TrimSpace(line)] = struct{}{}
	}
	var rules []string
	for _, line := range splitLines(text) {
		trimmed := strings.TrimSpace(line)
		if !IsRule(trimmed) {
			continue
		}
		if _, ok := off[trimmed]; ok {
			continue
		}
		rules = append(rules, trimmed)
	}
	return rules
}
