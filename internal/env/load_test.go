package env

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetters(t *testing.T) {
	t.Setenv("BAKERY_TEST_INT", "12")
	t.Setenv("BAKERY_TEST_BAD_INT", "twelve")
	t.Setenv("BAKERY_TEST_BOOL", "true")
	t.Setenv("BAKERY_TEST_SECONDS", "8")
	t.Setenv("BAKERY_TEST_DURATION", "250ms")
	t.Setenv("BAKERY_TEST_LIST", "a:9092, ,b:9092")
	t.Setenv("BAKERY_TEST_BLANK", "   ")

	if n, err := Int("BAKERY_TEST_INT", 1); err != nil || n != 12 {
		t.Errorf("Int() = %d, %v", n, err)
	}
	if _, err := Int("BAKERY_TEST_BAD_INT", 1); err == nil {
		t.Error("Int() accepted a non-integer")
	}
	if n, err := Int("BAKERY_TEST_UNSET", 7); err != nil || n != 7 {
		t.Errorf("Int() default = %d, %v", n, err)
	}
	if b, err := Bool("BAKERY_TEST_BOOL", false); err != nil || !b {
		t.Errorf("Bool() = %v, %v", b, err)
	}
	if d, err := Duration("BAKERY_TEST_SECONDS", 0); err != nil || d != 8*time.Second {
		t.Errorf("Duration() seconds = %v, %v", d, err)
	}
	if d, err := Duration("BAKERY_TEST_DURATION", 0); err != nil || d != 250*time.Millisecond {
		t.Errorf("Duration() = %v, %v", d, err)
	}
	if got := List("BAKERY_TEST_LIST"); len(got) != 2 || got[1] != "b:9092" {
		t.Errorf("List() = %v", got)
	}
	if got := String("BAKERY_TEST_BLANK", "def"); got != "def" {
		t.Errorf("String() on blank = %q", got)
	}
	if _, err := Require("BAKERY_TEST_UNSET"); err == nil {
		t.Error("Require() on unset variable returned no error")
	}
}

func TestLoadEnv_DoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("BAKERY_TEST_FROM_FILE=file\nBAKERY_TEST_PRESET=file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BAKERY_TEST_PRESET", "process")
	t.Setenv("BAKERY_TEST_FROM_FILE", "")
	os.Unsetenv("BAKERY_TEST_FROM_FILE")

	LoadEnv(path)
	defer os.Unsetenv("BAKERY_TEST_FROM_FILE")

	if got := os.Getenv("BAKERY_TEST_FROM_FILE"); got != "file" {
		t.Errorf("BAKERY_TEST_FROM_FILE = %q, want file", got)
	}
	if got := os.Getenv("BAKERY_TEST_PRESET"); got != "process" {
		t.Errorf("BAKERY_TEST_PRESET = %q, want process", got)
	}
}
