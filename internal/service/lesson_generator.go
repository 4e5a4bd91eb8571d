package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"skillplan_backend/internal/config"
	"skillplan_backend/internal/util"
	"skillplan_backend/pkg/cache"
	"skillplan_backend/pkg/logger"
	"skillplan_backend/pkg/monitoring"
	"skillplan_backend/pkg/ratelimit"
	"skillplan_backend/pkg/tracing"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// LessonGenerator 课程生成管线：缓存 → 限流 → 模型调用 → 修复校验 → 去重，失败按指数退避重试
type LessonGenerator struct {
	model   LessonModel
	parser  *LessonParser
	limiter ratelimit.Limiter
	cache   cache.Cache
	group   singleflight.Group

	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
}

func NewLessonGenerator(model LessonModel, limiter ratelimit.Limiter, c cache.Cache, cfg config.AIConfig) *LessonGenerator {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &LessonGenerator{
		model:          model,
		parser:         NewLessonParser(),
		limiter:        limiter,
		cache:          c,
		maxAttempts:    attempts,
		initialBackoff: time.Duration(cfg.BackoffInitialMS) * time.Millisecond,
		maxBackoff:     time.Duration(cfg.BackoffMaxMS) * time.Millisecond,
		sleep:          sleepContext,
	}
}

// ModelName 写入 DailyTopic / AiHistory 的模型标识
func (g *LessonGenerator) ModelName() string {
	return g.model.Name()
}

// Generate 为给定上下文生成一节课程。相同 prompt 命中缓存时不消耗调用预算，
// 并发的相同请求合并为一次生成。
func (g *LessonGenerator) Generate(ctx context.Context, lc LessonContext) (*GeneratedLesson, error) {
	prompt := BuildLessonPrompt(lc)
	key := lessonCacheKey(lessonSystemPrompt, prompt, lessonSchemaHint)

	ctx, span := tracing.Tracer.Start(ctx, "lesson.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("lesson.skill", lc.SkillName),
		attribute.Int("lesson.day", lc.CurrentDay),
		attribute.Bool("lesson.regenerate", lc.Regenerate),
	)

	if !lc.Regenerate {
		if lesson, ok := g.cachedLesson(ctx, key); ok {
			monitoring.GenerationEvents.WithLabelValues("cache_hit").Inc()
			span.SetAttributes(attribute.Bool("lesson.cache_hit", true))
			return lesson, nil
		}
	}

	flightKey := key
	if lc.Regenerate {
		flightKey = "regen:" + key
	}
	v, err, _ := g.group.Do(flightKey, func() (interface{}, error) {
		start := time.Now()
		defer func() {
			monitoring.GenerationDuration.Observe(time.Since(start).Seconds())
		}()

		lesson, err := g.generateWithRetry(ctx, prompt, lc)
		if err != nil {
			return nil, err
		}
		g.storeLesson(ctx, key, lesson)
		return lesson, nil
	})
	if err != nil {
		monitoring.GenerationEvents.WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	lesson := *v.(*GeneratedLesson)
	return &lesson, nil
}

func (g *LessonGenerator) generateWithRetry(ctx context.Context, prompt string, lc LessonContext) (*GeneratedLesson, error) {
	req := GenerationRequest{System: lessonSystemPrompt, Prompt: prompt, JSON: true}
	schedule := g.newBackOff()

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := schedule.NextBackOff()
			logger.Log.Warn("Lesson generation retrying",
				zap.String("skill", lc.SkillName),
				zap.Int("day", lc.CurrentDay),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", g.maxAttempts),
				zap.Duration("sleep", delay),
				zap.Error(lastErr),
			)
			if err := g.sleep(ctx, delay); err != nil {
				return nil, fmt.Errorf("%w: %v", util.ErrUpstream, err)
			}
		}

		if !g.limiter.Allow() {
			monitoring.GenerationEvents.WithLabelValues("rate_limited").Inc()
			return nil, util.ErrRateLimited
		}
		monitoring.GenerationEvents.WithLabelValues("attempt").Inc()

		raw, err := g.model.Generate(ctx, req)
		if err != nil {
			if errors.Is(err, util.ErrRateLimited) || errors.Is(err, util.ErrGenerationAuth) {
				monitoring.GenerationEvents.WithLabelValues("rejected").Inc()
				return nil, err
			}
			monitoring.GenerationEvents.WithLabelValues("upstream_error").Inc()
			lastErr = err
			continue
		}

		lesson, strategy, err := g.parser.Parse(raw)
		if err != nil {
			monitoring.GenerationEvents.WithLabelValues("invalid").Inc()
			lastErr = err
			continue
		}
		monitoring.ParseStrategies.WithLabelValues(strategy).Inc()

		if err := checkDuplicateTitle(lesson.Title, lc.CompletedSubtopics, lc.Exclude); err != nil {
			monitoring.GenerationEvents.WithLabelValues("duplicate").Inc()
			lastErr = err
			continue
		}

		monitoring.GenerationEvents.WithLabelValues("success").Inc()
		return lesson, nil
	}

	logger.Log.Error("Lesson generation exhausted retries",
		zap.String("skill", lc.SkillName),
		zap.Int("day", lc.CurrentDay),
		zap.Int("attempts", g.maxAttempts),
		zap.Error(lastErr),
	)
	if isDuplicateLesson(lastErr) {
		return nil, fmt.Errorf("%w: %v", util.ErrRegenerateRequired, lastErr)
	}
	if errors.Is(lastErr, util.ErrUpstream) {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: after %d attempts: %v", util.ErrUpstream, g.maxAttempts, lastErr)
}

// GenerateText 纯文本生成（技能描述），与课程共享限流预算和缓存
func (g *LessonGenerator) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	sum := sha256.Sum256([]byte("text\x00" + system + "\x00" + prompt))
	key := hex.EncodeToString(sum[:])

	if g.cache != nil {
		if b, ok, err := g.cache.Get(ctx, key); err == nil && ok {
			monitoring.GenerationEvents.WithLabelValues("cache_hit").Inc()
			return string(b), nil
		}
	}

	v, err, _ := g.group.Do("text:"+key, func() (interface{}, error) {
		schedule := g.newBackOff()
		var lastErr error
		for attempt := 1; attempt <= g.maxAttempts; attempt++ {
			if attempt > 1 {
				if err := g.sleep(ctx, schedule.NextBackOff()); err != nil {
					return nil, fmt.Errorf("%w: %v", util.ErrUpstream, err)
				}
			}
			if !g.limiter.Allow() {
				monitoring.GenerationEvents.WithLabelValues("rate_limited").Inc()
				return nil, util.ErrRateLimited
			}
			text, err := g.model.Generate(ctx, GenerationRequest{System: system, Prompt: prompt})
			if err != nil {
				if errors.Is(err, util.ErrRateLimited) || errors.Is(err, util.ErrGenerationAuth) {
					return nil, err
				}
				lastErr = err
				continue
			}
			text = strings.TrimSpace(text)
			if g.cache != nil {
				if err := g.cache.Set(ctx, key, []byte(text)); err != nil {
					logger.Log.Warn("Failed to cache generated text", zap.Error(err))
				}
			}
			return text, nil
		}
		return nil, fmt.Errorf("%w: after %d attempts: %v", util.ErrUpstream, g.maxAttempts, lastErr)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (g *LessonGenerator) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if g.initialBackoff > 0 {
		b.InitialInterval = g.initialBackoff
	}
	if g.maxBackoff > 0 {
		b.MaxInterval = g.maxBackoff
	}
	b.Reset()
	return b
}

func (g *LessonGenerator) cachedLesson(ctx context.Context, key string) (*GeneratedLesson, bool) {
	if g.cache == nil {
		return nil, false
	}
	b, ok, err := g.cache.Get(ctx, key)
	if err != nil {
		logger.Log.Warn("Lesson cache lookup failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var lesson GeneratedLesson
	if err := json.Unmarshal(b, &lesson); err != nil {
		return nil, false
	}
	return &lesson, true
}

func (g *LessonGenerator) storeLesson(ctx context.Context, key string, lesson *GeneratedLesson) {
	if g.cache == nil {
		return
	}
	b, err := json.Marshal(lesson)
	if err != nil {
		return
	}
	if err := g.cache.Set(ctx, key, b); err != nil {
		logger.Log.Warn("Failed to cache lesson", zap.Error(err))
	}
}

// sleepContext 退避等待，不占用共享 worker
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
