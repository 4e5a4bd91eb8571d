package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"skillplan_backend/internal/model"
	"strings"
)

// LessonContext 生成当日课程所需的全部上下文
type LessonContext struct {
	SkillName          string
	Category           string
	TargetLevel        model.TargetLevel
	DurationInDays     int
	CurrentDay         int
	CompletedSubtopics []string

	// Exclude 重新生成时被丢弃的标题，同样不允许再出现
	Exclude []string
	// Regenerate 为 true 时跳过缓存读取
	Regenerate bool
}

const lessonSystemPrompt = "You are an expert educator who writes structured, self-contained daily lessons."

const lessonSchemaHint = `{
  "title": "short, clear topic name (3-120 characters)",
  "description": "1-2 short paragraphs explaining the topic (10-600 characters)",
  "content": "markdown lesson body, at least 200 characters, organised with ## section headings",
  "optionalTip": "an example, micro-exercise or analogy (optional, at most 400 characters)"
}`

// BuildLessonPrompt 相同上下文必须得到逐字节相同的 prompt，缓存依赖这一点
func BuildLessonPrompt(lc LessonContext) string {
	var b strings.Builder

	level := lc.TargetLevel
	if level == "" {
		level = model.LevelBeginner
	}
	fmt.Fprintf(&b, "You are helping a student learn %q in the %q category at a %s level.\n", lc.SkillName, lc.Category, level)
	fmt.Fprintf(&b, "They aim to master this in %d days. Today is Day %d.\n\n", lc.DurationInDays, lc.CurrentDay)

	if len(lc.CompletedSubtopics) > 0 {
		b.WriteString("They have already completed the following topics:\n")
		for _, t := range lc.CompletedSubtopics {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	} else {
		b.WriteString("This is their first day, no topics completed yet.\n")
	}

	if len(lc.Exclude) > 0 {
		b.WriteString("\nThe following topics were rejected for today and must not be suggested again:\n")
		for _, t := range lc.Exclude {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}

	b.WriteString("\nSuggest a NEW topic for today that has NOT been covered earlier. ")
	b.WriteString("Do not reuse any title listed above, not even with different capitalisation.\n\n")
	b.WriteString("Respond with a single JSON object and nothing else, using exactly these keys:\n")
	b.WriteString(lessonSchemaHint)
	return b.String()
}

// lessonCacheKey prompt 与结构化输出约束共同决定缓存 key
func lessonCacheKey(system, prompt, schema string) string {
	sum := sha256.Sum256([]byte(system + "\x00" + prompt + "\x00" + schema))
	return hex.EncodeToString(sum[:])
}
