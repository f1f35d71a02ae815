// Package fieldpath parses string field paths and resolves them against a
// scheme's structures.
//
// Supported forms:
//
//	Name                    a direct field
//	Address.City            a field of a nested class
//	PhoneBook[home]         one entry of a dictionary
//	AddressBook[work].City  a field of a dictionary entry
//	Status.Value            the underlying value of a list item
//	Roles[].Value           the value of every element of a list-item array
package fieldpath

import (
	"fmt"
	"regexp"

	"github.com/pkg/errors"
)

type TokenType string

const (
	TokenDot      TokenType = "DOT"
	TokenLBracket TokenType = "LBRACKET"
	TokenRBracket TokenType = "RBRACKET"
	TokenString   TokenType = "STRING"
	TokenWord     TokenType = "WORD"
)

type Token struct {
	Type     TokenType
	Value    string
	Position int
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%s, %q)", t.Type, t.Value)
}

type tokenPattern struct {
	Type    TokenType
	Pattern *regexp.Regexp
}

// Words cover identifiers, indexes and bare dictionary keys; the parser
// decides which one a word is from its position.
var tokenPatterns = []tokenPattern{
	{TokenDot, regexp.MustCompile(`^\.`)},
	{TokenLBracket, regexp.MustCompile(`^\[`)},
	{TokenRBracket, regexp.MustCompile(`^\]`)},
	{TokenString, regexp.MustCompile(`^'[^']*'|^"[^"]*"`)},
	{TokenWord, regexp.MustCompile(`^[A-Za-z0-9_\-]+`)},
}

type Lexer struct {
	text     string
	position int
	tokens   []Token
}

func NewLexer(text string) *Lexer {
	return &Lexer{text: text}
}

func (l *Lexer) Tokenize() ([]Token, error) {
	for l.position < len(l.text) {
		matched := false
		remaining := l.text[l.position:]

		for _, pattern := range tokenPatterns {
			loc := pattern.Pattern.FindStringIndex(remaining)
			if loc != nil {
				l.tokens = append(l.tokens, Token{
					Type:     pattern.Type,
					Value:    remaining[:loc[1]],
					Position: l.position,
				})
				l.position += loc[1]
				matched = true
				break
			}
		}

		if !matched {
			return nil, errors.Wrapf(ErrMalformedPath, "unexpected character at position %d: %q", l.position, l.text[l.position])
		}
	}
	return l.tokens, nil
}
