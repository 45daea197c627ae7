package main

import (
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	defaultListenAddr  = ":8081"
	defaultOCRTimeout  = 30 * time.Second
	defaultMaxUploadMB = 10
)

// uploadBaseDir returns the base directory for local uploads (configurable via UPLOAD_BASE env)
func uploadBaseDir() string {
	if v := os.Getenv("UPLOAD_BASE"); v != "" {
		return v
	}
	return "uploads"
}

func listenAddr() string {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		return v
	}
	return defaultListenAddr
}

func ocrLanguage() string {
	if v := os.Getenv("OCR_LANG"); v != "" {
		return v
	}
	return "eng"
}

// ocrTimeout bounds one OCR pipeline run. Unparseable values fall back to the default.
func ocrTimeout() time.Duration {
	v := os.Getenv("OCR_TIMEOUT")
	if v == "" {
		return defaultOCRTimeout
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("invalid OCR_TIMEOUT %q, using %s", v, defaultOCRTimeout)
		return defaultOCRTimeout
	}
	return d
}

// ocrWorkers is the number of OCR runs allowed at once (OCR_WORKERS, default NumCPU).
func ocrWorkers() int {
	if v := os.Getenv("OCR_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("invalid OCR_WORKERS %q, using %d", v, runtime.NumCPU())
	}
	return runtime.NumCPU()
}

func maxUploadBytes() int64 {
	mb := int64(defaultMaxUploadMB)
	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			mb = n
		}
	}
	return mb << 20
}

func corsOrigins() []string {
	v := os.Getenv("CORS_ORIGINS")
	if v == "" {
		return []string{"*"}
	}
	var out []string
	for _, o := range strings.Split(v, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// envBool treats false/0/no (any case) as false and anything else non-empty as true.
func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "false", "0", "no":
		return false
	}
	return true
}
