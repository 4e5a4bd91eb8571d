package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"skillplan_backend/internal/util"
	"strings"
	"unicode/utf8"
)

// GeneratedLesson 经过修复与校验后的结构化课程
type GeneratedLesson struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	OptionalTip string `json:"optionalTip,omitempty"`
}

const (
	lessonTitleMin       = 3
	lessonTitleMax       = 120
	lessonDescriptionMin = 10
	lessonDescriptionMax = 600
	lessonContentMin     = 200
	lessonTipMax         = 400
)

var errNoLessonObject = errors.New("no lesson object found in response")

// 字段别名，统一按小写比较
var lessonFieldAliases = map[string][]string{
	"title":       {"title", "topic"},
	"description": {"description"},
	"content":     {"content"},
	"optionalTip": {"optionaltip", "optional_tip", "tip"},
}

type lessonStrategy struct {
	name  string
	parse func(raw string) (*GeneratedLesson, error)
}

// LessonParser 按顺序尝试各修复策略，第一个解析出内容的策略决定结果
type LessonParser struct {
	strategies []lessonStrategy
}

func NewLessonParser() *LessonParser {
	return &LessonParser{strategies: []lessonStrategy{
		{name: "direct", parse: parseDirect},
		{name: "normalized", parse: parseNormalized},
		{name: "fields", parse: parseFields},
		{name: "labels", parse: parseLabels},
	}}
}

// Parse 返回校验通过的课程以及生效的策略名
func (p *LessonParser) Parse(raw string) (*GeneratedLesson, string, error) {
	for _, s := range p.strategies {
		lesson, err := s.parse(raw)
		if err != nil || lesson == nil || lesson.empty() {
			continue
		}
		lesson.trim()
		if err := lesson.Validate(); err != nil {
			return nil, s.name, err
		}
		return lesson, s.name, nil
	}
	return nil, "", fmt.Errorf("%w: %v", util.ErrValidation, errNoLessonObject)
}

func (l *GeneratedLesson) empty() bool {
	return l.Title == "" && l.Description == "" && l.Content == "" && l.OptionalTip == ""
}

func (l *GeneratedLesson) trim() {
	l.Title = strings.Trim(l.Title, " \t\r\n*_\"`#")
	l.Description = strings.TrimSpace(l.Description)
	l.Content = strings.TrimSpace(l.Content)
	l.OptionalTip = strings.TrimSpace(l.OptionalTip)
}

// Validate 检查长度约束和正文结构
func (l *GeneratedLesson) Validate() error {
	if n := utf8.RuneCountInString(l.Title); n < lessonTitleMin || n > lessonTitleMax {
		return fmt.Errorf("%w: title must be %d-%d characters, got %d", util.ErrValidation, lessonTitleMin, lessonTitleMax, n)
	}
	if n := utf8.RuneCountInString(l.Description); n < lessonDescriptionMin || n > lessonDescriptionMax {
		return fmt.Errorf("%w: description must be %d-%d characters, got %d", util.ErrValidation, lessonDescriptionMin, lessonDescriptionMax, n)
	}
	if n := utf8.RuneCountInString(l.Content); n < lessonContentMin {
		return fmt.Errorf("%w: content must be at least %d characters, got %d", util.ErrValidation, lessonContentMin, n)
	}
	if !hasSectionMarker(l.Content) {
		return fmt.Errorf("%w: content has no section heading or delimiter", util.ErrValidation)
	}
	if n := utf8.RuneCountInString(l.OptionalTip); n > lessonTipMax {
		return fmt.Errorf("%w: optional tip must be at most %d characters, got %d", util.ErrValidation, lessonTipMax, n)
	}
	return nil
}

func hasSectionMarker(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "---") {
			return true
		}
	}
	return false
}

func parseDirect(raw string) (*GeneratedLesson, error) {
	obj, ok := extractJSONObject(raw)
	if !ok {
		return nil, errNoLessonObject
	}
	return decodeLesson(obj)
}

func parseNormalized(raw string) (*GeneratedLesson, error) {
	obj, ok := extractJSONObject(raw)
	if !ok {
		return nil, errNoLessonObject
	}
	return decodeLesson(normalizeJSON(obj))
}

func decodeLesson(obj string) (*GeneratedLesson, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return nil, err
	}
	// {"lesson": {...}} 这类单层包裹
	if len(fields) == 1 {
		for _, v := range fields {
			if inner, ok := v.(map[string]interface{}); ok {
				fields = inner
			}
		}
	}
	values := make(map[string]string, len(fields))
	for k, v := range fields {
		values[strings.ToLower(k)] = stringValue(v)
	}
	return lessonFromValues(values), nil
}

func stringValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}

func lessonFromValues(values map[string]string) *GeneratedLesson {
	pick := func(field string) string {
		for _, alias := range lessonFieldAliases[field] {
			if v, ok := values[alias]; ok && strings.TrimSpace(v) != "" {
				return v
			}
		}
		return ""
	}
	return &GeneratedLesson{
		Title:       pick("title"),
		Description: pick("description"),
		Content:     pick("content"),
		OptionalTip: pick("optionalTip"),
	}
}

// stripFences 去掉包裹 JSON 的 ``` 围栏及其前面的说明文字
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	fence := strings.Index(s, "```")
	brace := strings.IndexByte(s, '{')
	if fence >= 0 && (brace < 0 || fence < brace) {
		s = s[fence+3:]
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

// extractJSONObject 定位最外层配对的 {...}，跳过字符串内的括号
func extractJSONObject(raw string) (string, bool) {
	s := stripFences(raw)
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	// 括号不配对时退回到最后一个 }
	if end := strings.LastIndexByte(s, '}'); end > start {
		return s[start : end+1], true
	}
	return "", false
}

// normalizeJSON 保守修复：弯引号、非法转义、字符串内的裸控制字符、尾随逗号
func normalizeJSON(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	smartOpened := false
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if inString {
			switch {
			case r == '\\':
				if i+1 < len(runes) && strings.ContainsRune(`"\/bfnrtu`, runes[i+1]) {
					b.WriteRune(r)
					b.WriteRune(runes[i+1])
					i++
				} else {
					b.WriteString(`\\`)
				}
			case r == '"' && !smartOpened, r == '”' && smartOpened:
				inString = false
				b.WriteByte('"')
			case r == '"':
				b.WriteString(`\"`)
			case r == '\n':
				b.WriteString(`\n`)
			case r == '\r':
				b.WriteString(`\r`)
			case r == '\t':
				b.WriteString(`\t`)
			case r < 0x20:
				fmt.Fprintf(&b, `\u%04x`, r)
			default:
				b.WriteRune(r)
			}
			continue
		}

		switch r {
		case '"':
			inString = true
			smartOpened = false
			b.WriteByte('"')
		case '“', '”':
			inString = true
			smartOpened = true
			b.WriteByte('"')
		case ',':
			if next := nextNonSpace(runes, i+1); next == '}' || next == ']' {
				continue
			}
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func nextNonSpace(runes []rune, from int) rune {
	for i := from; i < len(runes); i++ {
		switch runes[i] {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return runes[i]
	}
	return 0
}

var lessonFieldPatterns = map[string]*regexp.Regexp{
	"title":       jsonFieldPattern("title", "topic"),
	"description": jsonFieldPattern("description"),
	"content":     jsonFieldPattern("content"),
	"optionalTip": jsonFieldPattern("optionalTip", "optional_tip", "tip"),
}

func jsonFieldPattern(keys ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)["'](?:` + strings.Join(keys, "|") + `)["']\s*:\s*"((?:[^"\\]|\\.)*)"`)
}

var jsonStringUnescaper = strings.NewReplacer(`\n`, "\n", `\r`, "", `\t`, "\t", `\"`, `"`, `\/`, "/", `\\`, `\`)

// parseFields 逐字段正则提取，用于整体无法解析的 JSON
func parseFields(raw string) (*GeneratedLesson, error) {
	s := stripFences(raw)
	values := make(map[string]string, len(lessonFieldPatterns))
	for field, re := range lessonFieldPatterns {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		var v string
		if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &v); err != nil {
			v = jsonStringUnescaper.Replace(m[1])
		}
		values[strings.ToLower(field)] = v
	}
	if len(values) == 0 {
		return nil, errNoLessonObject
	}
	return &GeneratedLesson{
		Title:       values["title"],
		Description: values["description"],
		Content:     values["content"],
		OptionalTip: values["optionaltip"],
	}, nil
}

var lessonLabelPattern = regexp.MustCompile(`(?i)^[\s>*_-]*(topic|title|description|optional\s*tip|tip|content)\s*[*_]*\s*:\s*[*_]*\s*(.*)$`)

// parseLabels 解析 "Topic: ... / Description: ... / Optional Tip: ..." 的行格式
func parseLabels(raw string) (*GeneratedLesson, error) {
	sections := map[string]*strings.Builder{}
	current := ""
	for _, line := range strings.Split(stripFences(raw), "\n") {
		if m := lessonLabelPattern.FindStringSubmatch(line); m != nil && current != "content" {
			current = labelField(m[1])
			if sections[current] == nil {
				sections[current] = &strings.Builder{}
			}
			sections[current].WriteString(m[2])
			continue
		}
		if current == "" {
			continue
		}
		sb := sections[current]
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)
	}
	if len(sections) == 0 {
		return nil, errNoLessonObject
	}

	get := func(field string) string {
		if sb := sections[field]; sb != nil {
			return sb.String()
		}
		return ""
	}
	return &GeneratedLesson{
		Title:       get("title"),
		Description: get("description"),
		Content:     get("content"),
		OptionalTip: get("optionalTip"),
	}, nil
}

func labelField(label string) string {
	switch l := strings.ToLower(strings.Join(strings.Fields(label), "")); l {
	case "topic", "title":
		return "title"
	case "optionaltip", "tip":
		return "optionalTip"
	default:
		return l
	}
}
