// Package seo 为内容草稿计算可复现的 SEO 评分。
package seo

import (
	"bytes"
	"fmt"
	"html"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const (
	TitleMinLength       = 30
	TitleMaxLength       = 60
	DescriptionMinLength = 120
	DescriptionMaxLength = 160
	MinWordCount         = 300
	MinDensity           = 0.5
	MaxDensity           = 2.5
)

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	strict   = bluemonday.StrictPolicy()
)

// Input 是待评分的草稿。Keywords 的第一个元素为主关键词。
type Input struct {
	Body            string   `json:"body"`
	Title           string   `json:"title"`
	MetaDescription string   `json:"meta_description"`
	Keywords        []string `json:"keywords"`
}

// Check 是单项检查结果。
type Check struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Points  int    `json:"points"`
	Max     int    `json:"max"`
	Message string `json:"message"`
}

// Score 汇总各项检查。
type Score struct {
	Total          int     `json:"total"`
	Max            int     `json:"max"`
	Grade          string  `json:"grade"`
	WordCount      int     `json:"word_count"`
	Keyword        string  `json:"keyword,omitempty"`
	KeywordDensity float64 `json:"keyword_density"`
	Checks         []Check `json:"checks"`
}

// Analyze 对标题、描述与正文打分；相同输入总是得到相同结果。
func Analyze(in Input) Score {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.MetaDescription)
	keyword := primaryKeyword(in.Keywords)
	words := tokenize(PlainText(in.Body))

	score := Score{
		WordCount: len(words),
		Keyword:   keyword,
	}
	if keyword != "" && len(words) > 0 {
		score.KeywordDensity = roundTo(float64(countPhrase(words, tokenize(keyword)))/float64(len(words))*100, 2)
	}

	score.Checks = []Check{
		lengthCheck("title_length", "title", title, TitleMinLength, TitleMaxLength, 20),
		lengthCheck("meta_description_length", "meta description", description, DescriptionMinLength, DescriptionMaxLength, 20),
		wordCountCheck(len(words)),
		keywordInCheck("keyword_in_title", "title", keyword, title, 15),
		keywordInCheck("keyword_in_meta_description", "meta description", keyword, description, 10),
		densityCheck(keyword, score.KeywordDensity, len(words)),
	}

	for _, check := range score.Checks {
		score.Total += check.Points
		score.Max += check.Max
	}
	score.Grade = Grade(score.Total)
	return score
}

// Grade 将总分映射为 A/B/C/D。
func Grade(total int) string {
	switch {
	case total >= 85:
		return "A"
	case total >= 70:
		return "B"
	case total >= 50:
		return "C"
	default:
		return "D"
	}
}

// PlainText 将 markdown 渲染后去除全部标签，得到纯文本。
func PlainText(body string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(body), &buf); err != nil {
		return body
	}
	return html.UnescapeString(strict.Sanitize(buf.String()))
}

func lengthCheck(name, label, value string, min, max, points int) Check {
	length := utf8.RuneCountInString(value)
	check := Check{Name: name, Max: points}
	switch {
	case length == 0:
		check.Message = fmt.Sprintf("%s is empty", label)
	case length < min:
		check.Message = fmt.Sprintf("%s is %d characters; aim for %d-%d", label, length, min, max)
	case length > max:
		check.Message = fmt.Sprintf("%s is %d characters; shorten to at most %d", label, length, max)
	default:
		check.Passed = true
		check.Points = points
		check.Message = fmt.Sprintf("%s length is good (%d characters)", label, length)
	}
	return check
}

func wordCountCheck(count int) Check {
	check := Check{Name: "word_count", Max: 20}
	if count >= MinWordCount {
		check.Passed = true
		check.Points = check.Max
		check.Message = fmt.Sprintf("body has %d words", count)
		return check
	}
	check.Message = fmt.Sprintf("body has %d words; aim for at least %d", count, MinWordCount)
	return check
}

func keywordInCheck(name, label, keyword, text string, points int) Check {
	check := Check{Name: name, Max: points}
	if keyword == "" {
		check.Message = "no focus keyword set"
		return check
	}
	if countPhrase(tokenize(text), tokenize(keyword)) > 0 {
		check.Passed = true
		check.Points = points
		check.Message = fmt.Sprintf("%s contains %q", label, keyword)
		return check
	}
	check.Message = fmt.Sprintf("%s does not contain %q", label, keyword)
	return check
}

func densityCheck(keyword string, density float64, words int) Check {
	check := Check{Name: "keyword_density", Max: 15}
	switch {
	case keyword == "":
		check.Message = "no focus keyword set"
	case words == 0:
		check.Message = "body is empty"
	case density < MinDensity:
		check.Message = fmt.Sprintf("keyword density %.2f%% is below %.1f%%", density, MinDensity)
	case density > MaxDensity:
		check.Message = fmt.Sprintf("keyword density %.2f%% is above %.1f%%", density, MaxDensity)
	default:
		check.Passed = true
		check.Points = check.Max
		check.Message = fmt.Sprintf("keyword density %.2f%% is within range", density)
	}
	return check
}

func primaryKeyword(keywords []string) string {
	for _, keyword := range keywords {
		if trimmed := strings.TrimSpace(keyword); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// tokenize 按非字母数字切分并转为小写。
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func countPhrase(words, phrase []string) int {
	if len(phrase) == 0 || len(words) < len(phrase) {
		return 0
	}
	count := 0
outer:
	for i := 0; i+len(phrase) <= len(words); i++ {
		for j, part := range phrase {
			if words[i+j] != part {
				continue outer
			}
		}
		count++
	}
	return count
}

func roundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}
