package fieldpath

import (
	"regexp"

	"github.com/pkg/errors"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Segment is one dotted component of a path with its optional selector.
type Segment struct {
	Name        string
	HasSelector bool
	// Key is the raw selector text; empty for "[]".
	Key    string
	Quoted bool
}

func (s Segment) String() string {
	if !s.HasSelector {
		return s.Name
	}
	return s.Name + "[" + s.Key + "]"
}

// Parse splits path into segments. Quoted keys are unquoted.
func Parse(path string) ([]Segment, error) {
	tokens, err := NewLexer(path).Tokenize()
	if err != nil {
		return nil, err
	}
	p := &parser{path: path, tokens: tokens}
	return p.parse()
}

type parser struct {
	path   string
	tokens []Token
	pos    int
}

func (p *parser) current() (Token, bool) {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos], true
	}
	return Token{}, false
}

func (p *parser) expect(tt TokenType) (Token, error) {
	tok, ok := p.current()
	if !ok {
		return Token{}, errors.Wrapf(ErrMalformedPath, "%q: expected %s at end of input", p.path, tt)
	}
	if tok.Type != tt {
		return Token{}, errors.Wrapf(ErrMalformedPath, "%q: expected %s at position %d, got %s", p.path, tt, tok.Position, tok)
	}
	p.pos++
	return tok, nil
}

func (p *parser) parse() ([]Segment, error) {
	if len(p.tokens) == 0 {
		return nil, errors.Wrap(ErrMalformedPath, "empty path")
	}
	var segments []Segment
	for {
		segment, err := p.parseSegment()
		if err != nil {
			return nil, err
		}
		segments = append(segments, segment)

		if _, ok := p.current(); !ok {
			return segments, nil
		}
		if _, err := p.expect(TokenDot); err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseSegment() (Segment, error) {
	name, err := p.expect(TokenWord)
	if err != nil {
		return Segment{}, err
	}
	if !identPattern.MatchString(name.Value) {
		return Segment{}, errors.Wrapf(ErrMalformedPath, "%q: invalid field name %q", p.path, name.Value)
	}
	segment := Segment{Name: name.Value}

	tok, ok := p.current()
	if !ok || tok.Type != TokenLBracket {
		return segment, nil
	}
	p.pos++
	segment.HasSelector = true

	tok, ok = p.current()
	if ok {
		switch tok.Type {
		case TokenWord:
			segment.Key = tok.Value
			p.pos++
		case TokenString:
			segment.Key = tok.Value[1 : len(tok.Value)-1]
			segment.Quoted = true
			p.pos++
		}
	}
	if _, err := p.expect(TokenRBracket); err != nil {
		return Segment{}, err
	}
	return segment, nil
}
