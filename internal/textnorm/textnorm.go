// Package textnorm prepares story text for narration. Submitted stories
// arrive with digits, smart punctuation, and stray formatting that read
// badly aloud; normalization rewrites them into the plain spoken form
// the synthesizer handles well.
package textnorm

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	numberBaseTen      = 10
	numberBaseTwenty   = 20
	numberBaseHundred  = 100
	numberBaseThousand = 1000
	// maxNumberForWords bounds digit-to-word conversion. Larger numbers
	// stay as digits.
	maxNumberForWords = 999999
)

const (
	numberRegexPattern     = `\d+`
	whitespaceRegexPattern = `\s+`
)

// Normalizer rewrites story text into narration-ready form.
type Normalizer struct {
	numberPattern        *regexp.Regexp
	whitespacePattern    *regexp.Regexp
	abbreviationReplacer *strings.Replacer
	symbolReplacer       *strings.Replacer
}

// New creates a normalizer with compiled patterns and replacers.
func New() *Normalizer {
	abbreviations := []string{
		"Mr.", "Mister",
		"Mrs.", "Misses",
		"Ms.", "Miss",
		"Dr.", "Doctor",
		"St.", "Saint",
	}

	symbols := []string{
		"—", "-", // em dash
		"–", "-", // en dash
		"‒", "-", // figure dash
		"…", "...",
		"“", `"`,
		"”", `"`,
		"‘", "'",
		"’", "'",
		"\r\n", " ",
		"\n", " ",
		"\t", " ",
	}

	return &Normalizer{
		numberPattern:        regexp.MustCompile(numberRegexPattern),
		whitespacePattern:    regexp.MustCompile(whitespaceRegexPattern),
		abbreviationReplacer: strings.NewReplacer(abbreviations...),
		symbolReplacer:       strings.NewReplacer(symbols...),
	}
}

// Normalize rewrites text for narration: abbreviations expand, digits
// become words, smart punctuation flattens to plain characters, runs of
// whitespace collapse, and the text gains a terminal period if it lacks
// sentence-ending punctuation.
func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return text
	}

	normalized := n.abbreviationReplacer.Replace(text)
	normalized = n.normalizeNumbers(normalized)
	normalized = n.symbolReplacer.Replace(normalized)
	normalized = n.collapseWhitespace(normalized)

	return n.ensureTerminalPunctuation(normalized)
}

// normalizeNumbers finds all integers in the text and converts them to words.
func (n *Normalizer) normalizeNumbers(text string) string {
	return n.numberPattern.ReplaceAllStringFunc(text, func(s string) string {
		num, err := strconv.Atoi(s)
		if err != nil {
			return s
		}

		return integerToWords(num)
	})
}

func (n *Normalizer) collapseWhitespace(text string) string {
	return strings.TrimSpace(n.whitespacePattern.ReplaceAllString(text, " "))
}

// ensureTerminalPunctuation appends a period when the text does not end
// with sentence-ending punctuation, so the last sentence still gets a
// segment of its own downstream.
func (n *Normalizer) ensureTerminalPunctuation(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}

	lastChar, _ := utf8.DecodeLastRuneInString(trimmed)
	if !unicode.IsPunct(lastChar) {
		return trimmed + "."
	}

	switch lastChar {
	case '.', '!', '?':
		return trimmed
	default:
		return trimmed + "."
	}
}

// integerToWords converts an integer into its English word representation.
type numberConverter struct {
	ones  []string
	teens []string
	tens  []string
}

func newNumberConverter() *numberConverter {
	return &numberConverter{
		ones: []string{
			"", "one", "two", "three", "four", "five",
			"six", "seven", "eight", "nine",
		},
		teens: []string{
			"ten", "eleven", "twelve", "thirteen", "fourteen",
			"fifteen", "sixteen", "seventeen", "eighteen", "nineteen",
		},
		tens: []string{
			"", "", "twenty", "thirty", "forty", "fifty",
			"sixty", "seventy", "eighty", "ninety",
		},
	}
}

func (nc *numberConverter) convertUnderHundred(num int) string {
	if num < numberBaseTen {
		return nc.ones[num]
	}

	if num < numberBaseTwenty {
		return nc.teens[num-numberBaseTen]
	}

	result := nc.tens[num/numberBaseTen]
	if num%numberBaseTen > 0 {
		result += " " + nc.ones[num%numberBaseTen]
	}

	return result
}

func (nc *numberConverter) convertHundreds(num int) string {
	result := nc.ones[num/numberBaseHundred] + " hundred"

	remainder := num % numberBaseHundred
	if remainder > 0 {
		result += " " + nc.convertUnderHundred(remainder)
	}

	return result
}

func integerToWords(number int) string {
	if number < 0 || number > maxNumberForWords {
		return strconv.Itoa(number)
	}

	if number == 0 {
		return "zero"
	}

	converter := newNumberConverter()

	var parts []string

	thousands := number / numberBaseThousand
	if thousands > 0 {
		if thousands >= numberBaseHundred {
			parts = append(parts, converter.convertHundreds(thousands)+" thousand")
		} else {
			parts = append(parts, converter.convertUnderHundred(thousands)+" thousand")
		}
	}

	remaining := number % numberBaseThousand

	hundreds := remaining / numberBaseHundred
	if hundreds > 0 {
		parts = append(parts, converter.ones[hundreds]+" hundred")
	}

	remaining %= numberBaseHundred
	if remaining > 0 {
		parts = append(parts, converter.convertUnderHundred(remaining))
	}

	return strings.Join(parts, " ")
}
