package util

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")

	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("resource not found")
	ErrForbidden   = errors.New("permission denied")
	ErrConflict    = errors.New("conflict")
	ErrPersistence = errors.New("persistence failure")

	// 生成相关：RateLimited 与鉴权失败不重试，Upstream 可稍后重试
	ErrRateLimited    = errors.New("generation rate limit exceeded, try again later")
	ErrGenerationAuth = errors.New("generation service rejected credentials")
	ErrUpstream       = errors.New("generation service failed, try again")

	// ErrRegenerateRequired 多次重试后仍与已学内容重复
	ErrRegenerateRequired = fmt.Errorf("%w: lesson repeats covered material, regenerate", ErrUpstream)
)
