package ui

import (
	"os"
	"regexp"
	"testing"
)

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

func TestMain(m *testing.M) {
	DisableColors()
	os.Exit(m.Run())
}
