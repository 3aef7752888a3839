// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

// Package preprocess cleans raw meeting transcripts before extraction:
// noise removal, normalization, segmentation, and lightweight metadata
// mining.
package preprocess

import (
	"math"
	"regexp"
	"strings"
	"time"

	minutederr "github.com/minuted-dev/minuted/pkg/errors"
)

// Segmentation selects how the cleaned text is split.
type Segmentation string

const (
	SegmentByParagraph Segmentation = "paragraph"
	SegmentBySentence  Segmentation = "sentence"
	SegmentByTopic     Segmentation = "topic"
)

// minSegmentLen drops fragments too short to carry meaning.
const minSegmentLen = 10

// Options controls the cleaning passes.
type Options struct {
	RemoveFillers       bool
	RemoveRepetitions   bool
	RemoveSpeakerLabels bool
	SegmentBy           Segmentation
	MaxSegments         int
}

// DefaultOptions returns the standard transcript-cleaning options.
func DefaultOptions() Options {
	return Options{
		RemoveFillers:     true,
		RemoveRepetitions: true,
		SegmentBy:         SegmentByParagraph,
		MaxSegments:       50,
	}
}

// Entities are the surface-level mentions found in the cleaned text.
type Entities struct {
	Names  []string `json:"names"`
	Emails []string `json:"emails"`
	Dates  []string `json:"dates"`
}

// Markers counts structural cue words in the cleaned text.
type Markers struct {
	Topic    int `json:"topic"`
	Action   int `json:"action"`
	Decision int `json:"decision"`
}

// Quality holds rough readability metrics of the cleaned text.
type Quality struct {
	Readability       float64 `json:"readability"`
	Coherence         float64 `json:"coherence"`
	AvgWordLength     float64 `json:"avg_word_length"`
	AvgSentenceLength float64 `json:"avg_sentence_length"`
}

// Metadata describes the preprocessing run and what it found.
type Metadata struct {
	ProcessedAt      time.Time `json:"processed_at"`
	OriginalLength   int       `json:"original_length"`
	CleanedLength    int       `json:"cleaned_length"`
	CompressionRatio float64   `json:"compression_ratio"`
	Entities         Entities  `json:"entities"`
	Markers          Markers   `json:"markers"`
	Quality          Quality   `json:"quality"`
}

// Stats summarizes how much the cleaning removed.
type Stats struct {
	OriginalChars    int `json:"original_chars"`
	CleanedChars     int `json:"cleaned_chars"`
	CharsRemoved     int `json:"chars_removed"`
	OriginalWords    int `json:"original_words"`
	CleanedWords     int `json:"cleaned_words"`
	WordsRemoved     int `json:"words_removed"`
	SegmentsCreated  int `json:"segments_created"`
	AvgSegmentLength int `json:"avg_segment_length"`
}

// Result is the preprocessed transcript.
type Result struct {
	Original string   `json:"-"`
	Cleaned  string   `json:"cleaned"`
	Segments []string `json:"segments"`
	Metadata Metadata `json:"metadata"`
	Stats    Stats    `json:"stats"`
}

var (
	extraWhitespaceRe = regexp.MustCompile(`\s{2,}`)
	markerRe          = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)
	timestampRe       = regexp.MustCompile(`\d{1,2}:\d{2}(?::\d{2})?(?:\s*[AP]M)?`)
	fillerRe          = regexp.MustCompile(`(?i)\b(um|uh|ah|er|hmm|like|you know|sort of|kind of)\b`)
	speakerLabelRe    = regexp.MustCompile(`(?m)^(Speaker\s*\d+|[A-Z][a-z]+):\s*`)
	interruptionRe    = regexp.MustCompile(`--+|\.{3,}|…`)

	sentenceBoundaryRe  = regexp.MustCompile(`[.!?]+\s+`)
	paragraphBoundaryRe = regexp.MustCompile(`\n\s*\n`)
	topicMarkerRe       = regexp.MustCompile(`(?i)\b(next|moving on|agenda|topic|item|discussion)\b`)
	actionMarkerRe      = regexp.MustCompile(`(?i)\b(action|task|todo|follow.?up|assign)\b`)
	decisionMarkerRe    = regexp.MustCompile(`(?i)\b(decide|decision|agree|resolved|conclusion)\b`)

	nameRe  = regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`)
	emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	dateRe  = regexp.MustCompile(`(?i)\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b|\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2}(?:,\s*\d{4})?\b`)

	multiDotRe      = regexp.MustCompile(`\.{2,}`)
	multiBangRe     = regexp.MustCompile(`!{2,}`)
	multiQuestionRe = regexp.MustCompile(`\?{2,}`)
	sentenceGapRe   = regexp.MustCompile(`([.!?])\s*([A-Z])`)
)

// replacements expands contractions and common transcription shorthand.
var replacements = []struct{ old, new string }{
	{"gonna", "going to"},
	{"wanna", "want to"},
	{"gotta", "got to"},
	{"shoulda", "should have"},
	{"coulda", "could have"},
	{"wouldve", "would have"},
	{"don't", "do not"},
	{"won't", "will not"},
	{"can't", "cannot"},
	{"isn't", "is not"},
	{"aren't", "are not"},
	{"wasn't", "was not"},
	{"weren't", "were not"},
	{"haven't", "have not"},
	{"hasn't", "has not"},
	{"hadn't", "had not"},
	{"shouldn't", "should not"},
	{"wouldn't", "would not"},
	{"couldn't", "could not"},
}

var replacementRes = buildReplacementRes()

func buildReplacementRes() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(replacements))
	for i, r := range replacements {
		res[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(r.old) + `\b`)
	}
	return res
}

// Preprocess cleans, normalizes, and segments a raw transcript. Empty
// or whitespace-only input is rejected.
func Preprocess(text string, opts Options) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, minutederr.New(minutederr.CodeExtractPreprocessFailure,
			"transcript is empty")
	}

	cleaned := initialCleaning(text)
	cleaned = removeNoise(cleaned, opts)
	cleaned = normalize(cleaned)
	segments := segment(cleaned, opts)

	return &Result{
		Original: text,
		Cleaned:  cleaned,
		Segments: segments,
		Metadata: extractMetadata(text, cleaned),
		Stats:    generateStats(text, cleaned, segments),
	}, nil
}

func initialCleaning(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = markerRe.ReplaceAllString(text, "")
	text = timestampRe.ReplaceAllString(text, "")
	text = collapseSpaces(text)
	return strings.TrimSpace(text)
}

// collapseSpaces squeezes runs of spaces and tabs without flattening
// paragraph breaks.
func collapseSpaces(text string) string {
	return extraWhitespaceRe.ReplaceAllStringFunc(text, func(run string) string {
		if strings.Count(run, "\n") >= 2 {
			return "\n\n"
		}
		if strings.Contains(run, "\n") {
			return "\n"
		}
		return " "
	})
}

func removeNoise(text string, opts Options) string {
	if opts.RemoveFillers {
		text = fillerRe.ReplaceAllString(text, "")
	}
	if opts.RemoveRepetitions {
		text = dropRepeatedWords(text)
	}
	if opts.RemoveSpeakerLabels {
		text = speakerLabelRe.ReplaceAllString(text, "")
	}
	return interruptionRe.ReplaceAllString(text, ".")
}

// dropRepeatedWords removes immediate word doublings ("the the")
// case-insensitively, keeping the first occurrence.
func dropRepeatedWords(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return text
	}

	out := fields[:1]
	for _, word := range fields[1:] {
		prev := strings.Trim(out[len(out)-1], ".,!?;:")
		cur := strings.Trim(word, ".,!?;:")
		if cur != "" && strings.EqualFold(prev, cur) {
			// Keep trailing punctuation from the dropped duplicate.
			if tail := strings.TrimPrefix(word, cur); tail != "" && !strings.HasSuffix(out[len(out)-1], tail) {
				out[len(out)-1] += tail
			}
			continue
		}
		out = append(out, word)
	}
	return strings.Join(out, " ")
}

func normalize(text string) string {
	for i, re := range replacementRes {
		text = re.ReplaceAllString(text, replacements[i].new)
	}

	text = multiDotRe.ReplaceAllString(text, ".")
	text = multiBangRe.ReplaceAllString(text, "!")
	text = multiQuestionRe.ReplaceAllString(text, "?")
	text = sentenceGapRe.ReplaceAllString(text, "$1 $2")
	text = collapseSpaces(text)
	return strings.TrimSpace(text)
}

func segment(text string, opts Options) []string {
	var raw []string
	switch opts.SegmentBy {
	case SegmentBySentence:
		raw = sentenceBoundaryRe.Split(text, -1)
	case SegmentByTopic:
		raw = segmentByTopic(text)
	default:
		raw = paragraphBoundaryRe.Split(text, -1)
	}

	segments := make([]string, 0, len(raw))
	for _, seg := range raw {
		seg = strings.TrimSpace(seg)
		if len(seg) > minSegmentLen {
			segments = append(segments, seg)
		}
	}
	if opts.MaxSegments > 0 && len(segments) > opts.MaxSegments {
		segments = segments[:opts.MaxSegments]
	}
	return segments
}

// segmentByTopic splits at topic cue words, falling back to paragraphs
// when the text has none.
func segmentByTopic(text string) []string {
	marks := topicMarkerRe.FindAllStringIndex(text, -1)
	if len(marks) == 0 {
		return paragraphBoundaryRe.Split(text, -1)
	}

	var segments []string
	start := 0
	for _, m := range marks {
		if start < m[0] {
			segments = append(segments, text[start:m[0]])
		}
		start = m[0]
	}
	if start < len(text) {
		segments = append(segments, text[start:])
	}
	return segments
}

func extractMetadata(original, cleaned string) Metadata {
	ratio := 0.0
	if len(original) > 0 {
		ratio = float64(len(cleaned)) / float64(len(original))
	}

	return Metadata{
		ProcessedAt:      time.Now().UTC(),
		OriginalLength:   len(original),
		CleanedLength:    len(cleaned),
		CompressionRatio: ratio,
		Entities: Entities{
			Names:  unique(nameRe.FindAllString(cleaned, -1)),
			Emails: unique(emailRe.FindAllString(cleaned, -1)),
			Dates:  unique(dateRe.FindAllString(cleaned, -1)),
		},
		Markers: Markers{
			Topic:    len(topicMarkerRe.FindAllString(cleaned, -1)),
			Action:   len(actionMarkerRe.FindAllString(cleaned, -1)),
			Decision: len(decisionMarkerRe.FindAllString(cleaned, -1)),
		},
		Quality: qualityMetrics(cleaned),
	}
}

func unique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func qualityMetrics(text string) Quality {
	words := strings.Fields(text)
	if len(words) == 0 {
		return Quality{}
	}
	sentences := sentenceBoundaryRe.Split(text, -1)

	totalLen := 0
	uniqueWords := make(map[string]struct{})
	for _, w := range words {
		totalLen += len(w)
		if isAlpha(w) {
			uniqueWords[strings.ToLower(w)] = struct{}{}
		}
	}

	avgWordLen := float64(totalLen) / float64(len(words))
	avgSentenceLen := 0.0
	if len(sentences) > 0 {
		avgSentenceLen = float64(len(words)) / float64(len(sentences))
	}

	readability := 50.0
	if avgSentenceLen > 0 {
		readability = 206.835 - 1.015*avgSentenceLen - 84.6*(avgWordLen/avgSentenceLen)
		readability = math.Max(0, math.Min(100, readability))
	}
	coherence := float64(len(uniqueWords)) / float64(len(words)) * 100

	return Quality{
		Readability:       round2(readability),
		Coherence:         round2(coherence),
		AvgWordLength:     round2(avgWordLen),
		AvgSentenceLength: round2(avgSentenceLen),
	}
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return s != ""
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func generateStats(original, cleaned string, segments []string) Stats {
	origWords := len(strings.Fields(original))
	cleanWords := len(strings.Fields(cleaned))

	avgSegLen := 0
	if len(segments) > 0 {
		total := 0
		for _, seg := range segments {
			total += len(seg)
		}
		avgSegLen = total / len(segments)
	}

	return Stats{
		OriginalChars:    len(original),
		CleanedChars:     len(cleaned),
		CharsRemoved:     len(original) - len(cleaned),
		OriginalWords:    origWords,
		CleanedWords:     cleanWords,
		WordsRemoved:     origWords - cleanWords,
		SegmentsCreated:  len(segments),
		AvgSegmentLength: avgSegLen,
	}
}
