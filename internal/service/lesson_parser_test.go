package service

import (
	"errors"
	"skillplan_backend/internal/util"
	"strings"
	"testing"
)

var longContent = "## Why it matters\n" + strings.Repeat("Closures capture variables from the enclosing scope. ", 6) + "\n## Try it\nWrite a counter."

func TestLessonParserStrategies(t *testing.T) {
	parser := NewLessonParser()

	cases := []struct {
		name         string
		raw          string
		wantStrategy string
		wantTitle    string
	}{
		{
			name:         "plain json",
			raw:          lessonJSON("Closures"),
			wantStrategy: "direct",
			wantTitle:    "Closures",
		},
		{
			name:         "fenced json with preamble",
			raw:          "Here is today's lesson:\n```json\n" + lessonJSON("Closures") + "\n```\nEnjoy!",
			wantStrategy: "direct",
			wantTitle:    "Closures",
		},
		{
			name:         "wrapped object",
			raw:          `{"lesson": ` + lessonJSON("Closures") + `}`,
			wantStrategy: "direct",
			wantTitle:    "Closures",
		},
		{
			name:         "aliased keys",
			raw:          strings.Replace(lessonJSON("Closures"), `"title"`, `"Topic"`, 1),
			wantStrategy: "direct",
			wantTitle:    "Closures",
		},
		{
			name: "trailing comma and raw newlines",
			raw: "{\"title\": \"Closures\", \"description\": \"Functions that remember.\",\n \"content\": \"" +
				longContent + "\",}",
			wantStrategy: "normalized",
			wantTitle:    "Closures",
		},
		{
			name:         "smart quotes",
			raw:          "{“title”: “Closures”, “description”: “Functions that remember.”, “content”: “" + strings.ReplaceAll(longContent, "\n", `\n`) + "”}",
			wantStrategy: "normalized",
			wantTitle:    "Closures",
		},
		{
			name: "truncated json",
			raw: `{"title": "Closures", "description": "Functions that remember.", "content": "` +
				strings.ReplaceAll(longContent, "\n", `\n`) + `", "optionalTip": "Try`,
			wantStrategy: "fields",
			wantTitle:    "Closures",
		},
		{
			name: "labelled lines",
			raw: "**Topic:** Closures\nDescription: Functions that remember their scope.\nOptional Tip: Draw the scope chain.\nContent:\n" +
				longContent,
			wantStrategy: "labels",
			wantTitle:    "Closures",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lesson, strategy, err := parser.Parse(tc.raw)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if strategy != tc.wantStrategy {
				t.Fatalf("expected strategy %q, got %q", tc.wantStrategy, strategy)
			}
			if lesson.Title != tc.wantTitle {
				t.Fatalf("expected title %q, got %q", tc.wantTitle, lesson.Title)
			}
			if !strings.Contains(lesson.Content, "## ") {
				t.Fatalf("content lost its headings: %q", lesson.Content)
			}
		})
	}
}

func TestLessonParserRejectsInvalidLessons(t *testing.T) {
	parser := NewLessonParser()

	cases := map[string]string{
		"no object":       "Sorry, I cannot help with that.",
		"short title":     `{"title": "Go", "description": "A short description.", "content": "` + strings.ReplaceAll(longContent, "\n", `\n`) + `"}`,
		"short content":   `{"title": "Closures", "description": "A short description.", "content": "## Tiny\nToo short."}`,
		"no headings":     `{"title": "Closures", "description": "A short description.", "content": "` + strings.Repeat("plain text ", 30) + `"}`,
		"long tip":        `{"title": "Closures", "description": "A short description.", "content": "` + strings.ReplaceAll(longContent, "\n", `\n`) + `", "optionalTip": "` + strings.Repeat("x", 401) + `"}`,
		"missing content": `{"title": "Closures", "description": "A short description."}`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := parser.Parse(raw)
			if !errors.Is(err, util.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestExtractJSONObjectSkipsBracesInStrings(t *testing.T) {
	raw := `prefix {"title": "Use {braces}", "content": "a } b"} suffix {"other": 1}`
	obj, ok := extractJSONObject(raw)
	if !ok {
		t.Fatal("expected an object")
	}
	if obj != `{"title": "Use {braces}", "content": "a } b"}` {
		t.Fatalf("unexpected object: %s", obj)
	}
}

func TestNormalizeJSON(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: `{"a": "x",}`, want: `{"a": "x"}`},
		{in: `{"a": [1, 2, ]}`, want: `{"a": [1, 2 ]}`},
		{in: "{\"a\": \"line1\nline2\"}", want: `{"a": "line1\nline2"}`},
		{in: `{"a": "C:\path"}`, want: `{"a": "C:\\path"}`},
		{in: `{“a”: “b”}`, want: `{"a": "b"}`},
	}
	for _, tc := range cases {
		if got := normalizeJSON(tc.in); got != tc.want {
			t.Errorf("normalizeJSON(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCheckDuplicateTitle(t *testing.T) {
	covered := []string{"Loops", "Error  Handling"}

	if err := checkDuplicateTitle("loops", covered); !isDuplicateLesson(err) {
		t.Fatalf("expected duplicate for case variant, got %v", err)
	}
	if err := checkDuplicateTitle("error handling", covered); !isDuplicateLesson(err) {
		t.Fatalf("expected duplicate for whitespace variant, got %v", err)
	}
	if err := checkDuplicateTitle("Goroutines", covered, []string{"goroutines"}); !isDuplicateLesson(err) {
		t.Fatalf("expected duplicate against excluded titles, got %v", err)
	}
	if err := checkDuplicateTitle("Channels", covered); err != nil {
		t.Fatalf("expected new title to pass, got %v", err)
	}
}
