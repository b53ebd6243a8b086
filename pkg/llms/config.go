package llms

import "time"

var defaultGeminiRequestConfig = &RequestConfig{
	Temperature: 0.2,
	MaxTokens:   8192,
}

const (
	defaultGeminiBaseURL   = "https://generativelanguage.googleapis.com"
	defaultGeminiVersion   = "v1beta"
	defaultRetryAttempts   = 1
	defaultRetryInterval   = time.Second
	maxRequestRetries      = 10
	structuredResponseMIME = "application/json"
)
