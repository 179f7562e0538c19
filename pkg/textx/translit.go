package textx

// Approximate Devanagari romanization for Hinglish transcripts. This is a
// fixed substitution table applied grapheme by grapheme, not a linguistically
// complete transliteration: conjuncts are handled only through halant
// removal.

const halant = '्'

var devanagariVowels = map[rune]string{
	'अ': "a", 'आ': "aa", 'इ': "i", 'ई': "ii", 'उ': "u", 'ऊ': "uu",
	'ए': "e", 'ऐ': "ai", 'ओ': "o", 'औ': "au", 'ऋ': "ri",
}

var devanagariConsonants = map[rune]string{
	'क': "k", 'ख': "kh", 'ग': "g", 'घ': "gh", 'ङ': "n",
	'च': "ch", 'छ': "chh", 'ज': "j", 'झ': "jh", 'ञ': "ny",
	'ट': "t", 'ठ': "th", 'ड': "d", 'ढ': "dh", 'ण': "n",
	'त': "t", 'थ': "th", 'द': "d", 'ध': "dh", 'न': "n",
	'प': "p", 'फ': "ph", 'ब': "b", 'भ': "bh", 'म': "m",
	'य': "y", 'र': "r", 'ल': "l", 'व': "v", 'श': "sh", 'ष': "sh", 'स': "s", 'ह': "h",
	// Nukta consonants by their precomposed code points (U+0958..U+095F).
	'क़': "q", 'ख़': "kh", 'ग़': "gh", 'ज़': "z",
	'फ़': "f", 'ड़': "r", 'ढ़': "rh",
}

// nuktaCompositions folds decomposed consonant + combining nukta (U+093C)
// pairs onto their precomposed forms. Transcripts arrive in either form.
var nuktaCompositions = map[rune]rune{
	'क': 'क़', 'ख': 'ख़', 'ग': 'ग़', 'ज': 'ज़',
	'फ': 'फ़', 'ड': 'ड़', 'ढ': 'ढ़',
}

var devanagariMatras = map[rune]string{
	'ा': "aa", 'ि': "i", 'ी': "ii", 'ु': "u", 'ू': "uu",
	'े': "e", 'ै': "ai", 'ो': "o", 'ौ': "au", 'ृ': "ri",
}

var devanagariMarks = map[rune]string{
	'ं': "n", 'ँ': "n", 'ः': "h", '़': "",
}

// HasDevanagari reports whether s contains any rune in the Devanagari block.
func HasDevanagari(s string) bool {
	for _, r := range s {
		if r >= 0x0900 && r <= 0x097F {
			return true
		}
	}
	return false
}

// Romanize returns s with Devanagari graphemes replaced by approximate Roman
// Hindi. Strings without Devanagari are returned unchanged.
func Romanize(s string) string {
	if !HasDevanagari(s) {
		return s
	}
	return transliterateDevanagari(s)
}

func transliterateDevanagari(s string) string {
	runes := composeNukta([]rune(s))
	var out []rune

	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		if v, ok := devanagariVowels[ch]; ok {
			out = append(out, []rune(v)...)
			continue
		}

		if base, ok := devanagariConsonants[ch]; ok {
			var next rune
			if i+1 < len(runes) {
				next = runes[i+1]
			}

			switch {
			case next == halant:
				out = append(out, []rune(base)...)
				i++
			case devanagariMatras[next] != "":
				out = append(out, []rune(base+devanagariMatras[next])...)
				i++
			case hasMark(next):
				out = append(out, []rune(base+"a"+devanagariMarks[next])...)
				i++
			default:
				out = append(out, []rune(base+"a")...)
			}
			continue
		}

		if m, ok := devanagariMatras[ch]; ok {
			out = append(out, []rune(m)...)
			continue
		}
		if m, ok := devanagariMarks[ch]; ok {
			out = append(out, []rune(m)...)
			continue
		}
		if ch == halant {
			continue
		}

		out = append(out, ch)
	}

	return string(out)
}

func hasMark(r rune) bool {
	_, ok := devanagariMarks[r]
	return ok
}

func composeNukta(runes []rune) []rune {
	out := make([]rune, 0, len(runes))
	for i := 0; i < len(runes); i++ {
		if i+1 < len(runes) && runes[i+1] == '़' {
			if composed, ok := nuktaCompositions[runes[i]]; ok {
				out = append(out, composed)
				i++
				continue
			}
		}
		out = append(out, runes[i])
	}
	return out
}
