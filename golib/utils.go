package golib

import (
	log "log"
	"os"
	"path/filepath"
	"strings"
)

func GetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func GetEnvBool(key string, fallback bool) bool {
	switch strings.ToLower(GetEnv(key, "")) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return fallback
}

// DefaultInputDir is where uploads land when HYDROBOOST_INPUT_DIR is unset:
// two levels above the working directory, under BACKEND/Input_Spreadsheets.
func DefaultInputDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return filepath.Join(cwd, "..", "..", "BACKEND", "Input_Spreadsheets")
}

func ConsoleLog(format string, a ...any) {
	log.Printf(format+"\n", a...)
}
