package logger

import (
	"time"

	"go.uber.org/zap"
)

// Field is a structured log field.
type Field = zap.Field

func String(key, val string) Field { return zap.String(key, val) }

func Int(key string, val int) Field { return zap.Int(key, val) }

func Error(err error) Field { return zap.Error(err) }

// Any falls back to reflection; prefer a typed constructor.
func Any(key string, val any) Field { return zap.Any(key, val) }

// Component names the part of the service emitting the entry.
func Component(name string) Field { return zap.String("component", name) }

// Account fields. Session tokens and password material are never logged.

func UserID(id string) Field { return zap.String("user_id", id) }

func AdminID(id string) Field { return zap.String("admin_id", id) }

func Username(name string) Field { return zap.String("username", name) }

func Provider(name string) Field { return zap.String("provider", name) }

// Request fields, written once per request by the access log.

func RequestID(id string) Field { return zap.String("request_id", id) }

func Method(method string) Field { return zap.String("method", method) }

// Path is the request path without its query string.
func Path(path string) Field { return zap.String("path", path) }

func Status(code int) Field { return zap.Int("status", code) }

func Latency(d time.Duration) Field { return zap.Duration("latency", d) }

func ClientIP(ip string) Field { return zap.String("client_ip", ip) }

func UserAgent(ua string) Field { return zap.String("user_agent", ua) }

// Infrastructure fields.

// Driver names the SQL backend in use.
func Driver(name string) Field { return zap.String("driver", name) }

func Addr(addr string) Field { return zap.String("addr", addr) }
