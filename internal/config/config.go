package config

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// KnownKeys defines environment variable keys that lostfound recognizes.
var KnownKeys = []string{
	"LOSTFOUND_ADDR",
	"LOSTFOUND_SERVER_URL",
	"LOSTFOUND_SQLITE_PATH",
	"LOSTFOUND_API_TOKEN",
	"LOSTFOUND_LOG_LEVEL",
	"LOSTFOUND_VECTOR_PROVIDER",
	"LOSTFOUND_COSDATA_HOST",
	"LOSTFOUND_COSDATA_USERNAME",
	"LOSTFOUND_COSDATA_PASSWORD",
	"LOSTFOUND_COLLECTION",
	"LOSTFOUND_VECTOR_DIM",
	"LOSTFOUND_EMBED_PROVIDER",
	"LOSTFOUND_OPENAI_BASE_URL",
	"LOSTFOUND_OPENAI_API_KEY",
	"LOSTFOUND_EMBEDDING_MODEL",
	"LOSTFOUND_EMBED_CACHE_DISABLE",
	"LOSTFOUND_EMBED_CACHE_TTL_SEC",
}

// DefaultCollection is the vector collection name used when
// LOSTFOUND_COLLECTION is unset.
const DefaultCollection = "lost_items"

// DefaultVectorDim matches the placeholder embedding provider.
const DefaultVectorDim = 1536

// Collection returns the configured vector collection name.
func Collection() string {
	if v := os.Getenv("LOSTFOUND_COLLECTION"); v != "" {
		return v
	}
	return DefaultCollection
}

// VectorDim returns the configured embedding dimension. Values that do
// not parse as a positive integer fall back to the default.
func VectorDim() int {
	if v := os.Getenv("LOSTFOUND_VECTOR_DIM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultVectorDim
}

// LoadAndApply loads configuration from ~/.lostfound/config.yaml (or
// .yml/.json) and applies values into the process environment for known
// keys if they are not already set. Environment variables take
// precedence over file values.
func LoadAndApply() error {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return nil // non-fatal
	}
	base := filepath.Join(home, ".lostfound")
	paths := []string{
		filepath.Join(base, "config.yaml"),
		filepath.Join(base, "config.yml"),
		filepath.Join(base, "config.json"),
	}
	var data map[string]any
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if strings.HasSuffix(p, ".json") {
			if m, err := parseJSON(b); err == nil {
				data = m
				break
			}
		} else {
			if m, err := parseYAMLShallow(string(b)); err == nil {
				data = m
				break
			}
		}
	}
	if len(data) == 0 {
		return nil
	}
	for _, key := range KnownKeys {
		if os.Getenv(key) != "" {
			continue
		}
		if v, ok := lookupInsensitive(data, key); ok {
			os.Setenv(key, toString(v))
		}
	}
	return nil
}

func parseJSON(b []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// parseYAMLShallow parses very shallow YAML with top-level key: value
// pairs. It ignores nested objects/arrays and comments. Values can be
// quoted strings, booleans, or numbers; everything else is a string.
func parseYAMLShallow(s string) (map[string]any, error) {
	m := make(map[string]any)
	rd := bufio.NewScanner(strings.NewReader(s))
	for rd.Scan() {
		line := strings.TrimSpace(rd.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// skip indented (nested) lines
		if strings.HasPrefix(rd.Text(), " ") || strings.HasPrefix(rd.Text(), "\t") {
			continue
		}
		i := strings.IndexRune(line, ':')
		if i <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:i])
		val := strings.TrimSpace(line[i+1:])
		if j := strings.Index(val, " #"); j >= 0 {
			val = strings.TrimSpace(val[:j])
		}
		if (strings.HasPrefix(val, "\"") && strings.HasSuffix(val, "\"")) ||
			(strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'")) {
			val = strings.TrimSuffix(strings.TrimPrefix(val, string(val[0])), string(val[len(val)-1]))
		}
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			m[key] = b
			continue
		}
		if n, err := strconv.ParseFloat(val, 64); err == nil {
			m[key] = n
			continue
		}
		m[key] = val
	}
	if err := rd.Err(); err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, errors.New("empty or unsupported YAML")
	}
	return m, nil
}

func lookupInsensitive(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		// avoid trailing .0 for integer-like values
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
