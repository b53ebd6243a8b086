package llms

import (
	"reflect"
	"sync"

	"github.com/pkg/errors"
	"google.golang.org/genai"
)

// responseSchemas maps a Go reply type to the schema Gemini is asked to
// follow when structured output is on.
type responseSchemas struct {
	mu     sync.RWMutex
	byType map[reflect.Type]*genai.Schema
}

var schemas = &responseSchemas{byType: make(map[reflect.Type]*genai.Schema)}

func registerSchema[T any](s *genai.Schema) {
	schemas.mu.Lock()
	defer schemas.mu.Unlock()

	schemas.byType[reflect.TypeFor[T]()] = s
}

func lookupSchema[T any]() (*genai.Schema, error) {
	schemas.mu.RLock()
	defer schemas.mu.RUnlock()

	t := reflect.TypeFor[T]()

	s, ok := schemas.byType[t]
	if !ok {
		return nil, errors.Errorf("no response schema registered for %s", t)
	}

	return s, nil
}
