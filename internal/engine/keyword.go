package engine

import (
	"fmt"
	"strings"
	"unicode"
)

// Keyword is a compiled -k expression:
//
//	expr := or
//	or   := and { "or" and }
//	and  := not { "and" not }
//	not  := "not" not | "(" expr ")" | ident
//
// An ident matches when it is a case-insensitive substring of any of the
// names handed to Match. The empty expression matches everything.
type Keyword struct {
	src  string
	root kwNode
}

type kwNode interface {
	eval(match func(ident string) bool) bool
}

type kwIdent string

type kwNot struct{ x kwNode }

type kwAnd struct{ l, r kwNode }

type kwOr struct{ l, r kwNode }

func (n kwIdent) eval(m func(string) bool) bool { return m(string(n)) }
func (n kwNot) eval(m func(string) bool) bool   { return !n.x.eval(m) }
func (n kwAnd) eval(m func(string) bool) bool   { return n.l.eval(m) && n.r.eval(m) }
func (n kwOr) eval(m func(string) bool) bool    { return n.l.eval(m) || n.r.eval(m) }

// CompileKeyword parses a keyword expression.
func CompileKeyword(src string) (*Keyword, error) {
	k := &Keyword{src: src}
	toks := tokenizeKeyword(src)
	if len(toks) == 0 {
		return k, nil
	}
	p := &kwParser{toks: toks}
	root, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("wrong expression passed to '-k': %s: %w", src, err)
	}
	if p.pos < len(p.toks) {
		return nil, fmt.Errorf("wrong expression passed to '-k': %s: unexpected %q", src, p.toks[p.pos])
	}
	k.root = root
	return k, nil
}

// Match reports whether the expression holds for an item with the given
// names.
func (k *Keyword) Match(names ...string) bool {
	if k == nil || k.root == nil {
		return true
	}
	lower := make([]string, len(names))
	for i, n := range names {
		lower[i] = strings.ToLower(n)
	}
	return k.root.eval(func(ident string) bool {
		ident = strings.ToLower(ident)
		for _, n := range lower {
			if strings.Contains(n, ident) {
				return true
			}
		}
		return false
	})
}

func (k *Keyword) String() string { return k.src }

// ---- parser -----------------------------------------------------------------

func tokenizeKeyword(src string) []string {
	var toks []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			toks = append(toks, b.String())
			b.Reset()
		}
	}
	for _, r := range src {
		switch {
		case unicode.IsSpace(r):
			flush()
		case r == '(' || r == ')':
			flush()
			toks = append(toks, string(r))
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return toks
}

type kwParser struct {
	toks []string
	pos  int
}

func (p *kwParser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *kwParser) parseOr() (kwNode, error) {
	l, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek() == "or" {
		p.pos++
		r, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		l = kwOr{l, r}
	}
	return l, nil
}

func (p *kwParser) parseAnd() (kwNode, error) {
	l, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek() == "and" {
		p.pos++
		r, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		l = kwAnd{l, r}
	}
	return l, nil
}

func (p *kwParser) parseNot() (kwNode, error) {
	switch tok := p.peek(); tok {
	case "":
		return nil, fmt.Errorf("unexpected end of expression")
	case "not":
		p.pos++
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return kwNot{x}, nil
	case "(":
		p.pos++
		x, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek() != ")" {
			return nil, fmt.Errorf("expected ')'")
		}
		p.pos++
		return x, nil
	case ")", "and", "or":
		return nil, fmt.Errorf("unexpected %q", tok)
	default:
		p.pos++
		return kwIdent(tok), nil
	}
}
