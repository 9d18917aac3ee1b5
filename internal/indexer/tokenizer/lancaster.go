package tokenizer

import (
	"fmt"
	"strings"
)

// lancasterRules is the Paice/Husk rule table. Each rule is written as
// <reversed ending>[*]<remove count>[<append>]<'>' continue | '.' stop>;
// '*' restricts the rule to words no rule has touched yet.
var lancasterRules = []string{
	"ai*2.", "a*1.", "bb1.", "city3s.", "ci2>", "cn1t>", "dd1.", "dei3y>",
	"deec2ss.", "dee1.", "de2>", "dooh4>", "e1>", "feil1v.", "fi2>", "gni3>",
	"gai3y.", "ga2>", "gg1.", "ht*2.", "hsiug5ct.", "hsi3>", "i*1.", "i1y>",
	"ji1d.", "juf1s.", "ju1d.", "jo1d.", "jeh1r.", "jrev1t.", "jsim2t.", "jn1d.",
	"j1s.", "lbaifi6.", "lbai4y.", "lba3>", "lbi3.", "lib2l>", "lc1.", "lufi4y.",
	"luf3>", "lu2.", "lai3>", "lau3>", "la2>", "ll1.", "mui3.", "mu*2.",
	"msi3>", "mm1.", "nois4j>", "noix4ct.", "noi3>", "nai3>", "na2>", "nee0.",
	"ne2>", "nn1.", "pihs4>", "pp1.", "re2>", "rae0.", "ra2.", "ro2>",
	"ru2>", "rr1.", "rt1>", "rei3y>", "sei3y>", "sis2.", "si2>", "ssen4>",
	"ss0.", "suo3>", "su*2.", "s*1>", "s0.", "tacilp4y.", "ta2>", "tnem4>",
	"tne3>", "tna3>", "tpir2b.", "tpro2b.", "tcud1.", "tpmus2.", "tpec2iv.", "tulo2v.",
	"tsis0.", "tsi3>", "tt1.", "uqi3.", "ugo1.", "vis3j>", "vie0.", "vi2>",
	"ylb1>", "yli3y>", "ylp0.", "yl2>", "ygo1.", "yhp1.", "ymo1.", "ypo1.",
	"yti3>", "yte3>", "ytl2.", "yrtsi5.", "yra3>", "yro3>", "yfi3.", "ycn2t>",
	"yca3>", "zi2>", "zy1s.",
}

type lancasterRule struct {
	ending     string
	intactOnly bool
	remove     int
	appendStr  string
	stop       bool
}

// Lancaster is an iterative affix-stripping stemmer. It repeatedly applies the
// first acceptable rule keyed by the word's last letter until a rule says stop,
// no rule applies, or the remaining stem would become too short.
type Lancaster struct {
	rules map[byte][]lancasterRule
}

// NewLancaster parses the rule table. It panics on a malformed rule, which can
// only happen if the table above is edited incorrectly.
func NewLancaster() *Lancaster {
	rules := make(map[byte][]lancasterRule)
	for _, raw := range lancasterRules {
		r, err := parseLancasterRule(raw)
		if err != nil {
			panic(err)
		}
		key := r.ending[len(r.ending)-1]
		rules[key] = append(rules[key], r)
	}
	return &Lancaster{rules: rules}
}

func (l *Lancaster) Name() string { return "lancaster" }

// Stem returns the Lancaster stem of token. Tokens are expected lower-case.
func (l *Lancaster) Stem(token string) string {
	word := token
	intact := true
	for {
		last := lastLetter(word)
		if last < 0 {
			return word
		}
		candidates, ok := l.rules[word[last]]
		if !ok {
			return word
		}
		applied := false
		for _, r := range candidates {
			if !strings.HasSuffix(word, r.ending) {
				continue
			}
			if r.intactOnly && !intact {
				continue
			}
			if !acceptable(word, r.remove) {
				continue
			}
			word = word[:len(word)-r.remove] + r.appendStr
			intact = word == token
			applied = true
			if r.stop {
				return word
			}
			break
		}
		if !applied {
			return word
		}
	}
}

// lastLetter returns the index of the last letter of the leading run of
// letters in word, or -1 when word does not start with a letter.
func lastLetter(word string) int {
	last := -1
	for i := 0; i < len(word); i++ {
		if word[i] < 'a' || word[i] > 'z' {
			break
		}
		last = i
	}
	return last
}

func isVowel(c byte) bool {
	return strings.IndexByte("aeiouy", c) >= 0
}

// acceptable reports whether removing n bytes leaves a valid stem: at least two
// letters if the word starts with a vowel, otherwise at least three letters
// with a vowel in the second or third position.
func acceptable(word string, n int) bool {
	rest := len(word) - n
	if isVowel(word[0]) {
		return rest >= 2
	}
	if rest < 3 {
		return false
	}
	return isVowel(word[1]) || isVowel(word[2])
}

func parseLancasterRule(raw string) (lancasterRule, error) {
	var r lancasterRule
	i := 0
	for i < len(raw) && raw[i] >= 'a' && raw[i] <= 'z' {
		i++
	}
	if i == 0 {
		return r, fmt.Errorf("lancaster rule %q: missing ending", raw)
	}
	rev := []byte(raw[:i])
	for a, b := 0, len(rev)-1; a < b; a, b = a+1, b-1 {
		rev[a], rev[b] = rev[b], rev[a]
	}
	r.ending = string(rev)
	if i < len(raw) && raw[i] == '*' {
		r.intactOnly = true
		i++
	}
	if i >= len(raw) || raw[i] < '0' || raw[i] > '9' {
		return r, fmt.Errorf("lancaster rule %q: missing remove count", raw)
	}
	r.remove = int(raw[i] - '0')
	i++
	j := i
	for j < len(raw) && raw[j] >= 'a' && raw[j] <= 'z' {
		j++
	}
	r.appendStr = raw[i:j]
	if j != len(raw)-1 || (raw[j] != '.' && raw[j] != '>') {
		return r, fmt.Errorf("lancaster rule %q: bad terminator", raw)
	}
	r.stop = raw[j] == '.'
	return r, nil
}
