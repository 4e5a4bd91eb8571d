package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	DBDriverMySQL  = "mysql"
	DBDriverSQLite = "sqlite"
)

const (
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// 通知列表过滤
const (
	NotificationFilterAll    = "all"
	NotificationFilterUnread = "unread"
	NotificationFilterToday  = "today"
)
