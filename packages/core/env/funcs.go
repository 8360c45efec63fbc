package env

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/rand"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Func is a built-in placeholder function.
type Func func(args []string) (string, error)

var callPattern = regexp.MustCompile(`^(\w+)\((.*)\)$`)

func builtins() map[string]Func {
	return map[string]Func{
		"uuid":         func([]string) (string, error) { return uuid.NewString(), nil },
		"now":          func([]string) (string, error) { return time.Now().UTC().Format(time.RFC3339), nil },
		"timestamp":    func([]string) (string, error) { return strconv.FormatInt(time.Now().Unix(), 10), nil },
		"timestampMs":  func([]string) (string, error) { return strconv.FormatInt(time.Now().UnixMilli(), 10), nil },
		"date":         funcDate,
		"random":       funcRandom,
		"randomString": funcRandomString,
		"base64":       oneArg(func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }),
		"sha256": oneArg(func(s string) string {
			sum := sha256.Sum256([]byte(s))
			return hex.EncodeToString(sum[:])
		}),
		"urlEncode": oneArg(url.QueryEscape),
	}
}

func oneArg(fn func(string) string) Func {
	return func(args []string) (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("expected 1 argument, got %d", len(args))
		}
		return fn(args[0]), nil
	}
}

func funcDate(args []string) (string, error) {
	layout := time.DateOnly
	if len(args) > 0 {
		layout = args[0]
	}
	return time.Now().UTC().Format(layout), nil
}

// funcRandom returns an integer in [min, max], 0 to 100 by default.
func funcRandom(args []string) (string, error) {
	lo, hi := 0, 100
	if len(args) == 2 {
		var err error
		if lo, err = strconv.Atoi(args[0]); err != nil {
			return "", fmt.Errorf("min %q is not an integer", args[0])
		}
		if hi, err = strconv.Atoi(args[1]); err != nil {
			return "", fmt.Errorf("max %q is not an integer", args[1])
		}
	}
	if hi < lo {
		return "", fmt.Errorf("max %d is less than min %d", hi, lo)
	}
	return strconv.Itoa(lo + rand.Intn(hi-lo+1)), nil
}

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func funcRandomString(args []string) (string, error) {
	n := 16
	if len(args) > 0 {
		var err error
		if n, err = strconv.Atoi(args[0]); err != nil || n < 0 {
			return "", fmt.Errorf("length %q is not a non-negative integer", args[0])
		}
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumeric[rand.Intn(len(alphanumeric))]
	}
	return string(b), nil
}

// splitArgs splits a comma separated argument list. Commas inside single or
// double quotes do not split and the quotes are removed.
func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var (
		args    []string
		current strings.Builder
		quote   byte
	)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote == 0 && (ch == '"' || ch == '\''):
			quote = ch
		case quote != 0 && ch == quote:
			quote = 0
		case quote == 0 && ch == ',':
			args = append(args, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}
	return append(args, strings.TrimSpace(current.String()))
}
