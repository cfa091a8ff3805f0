package cnst

const (
	LangEN      = "en"
	LangZH      = "zh"
	LangDefault = LangEN
)

const (
	// XLang is the request header and context key carrying the preferred language
	XLang = "X-Lang"
	// XRequestID is the request header carrying the request id
	XRequestID = "X-Request-ID"
	// XCleanupKey is the header a scheduler presents to trigger a cleanup sweep
	XCleanupKey = "X-Cleanup-Key"
)
