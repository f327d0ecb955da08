package ols

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempYaml(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ols.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfigDefaults(t *testing.T) {
	// 未初始化走默认值
	if GetCollinearTol() <= 0 {
		t.Fatalf("collinear_tol = %v", GetCollinearTol())
	}
	if a := GetAlpha(); a <= 0 || a >= 1 {
		t.Fatalf("alpha = %v", a)
	}
}

func TestConfigLoad(t *testing.T) {
	path := writeTempYaml(t, "collinear_tol: 1e-8\nalpha: 0.1\n")
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.CollinearTol != 1e-8 || c.Alpha != 0.1 {
		t.Fatalf("config = %+v", c)
	}
}

func TestConfigLoadFillsDefaults(t *testing.T) {
	path := writeTempYaml(t, "alpha: 0.01\n")
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.CollinearTol != DEFAULT_COLLINEAR_TOL {
		t.Fatalf("collinear_tol = %v, want default", c.CollinearTol)
	}
}

func TestConfigInvalidAlpha(t *testing.T) {
	path := writeTempYaml(t, "alpha: 1.5\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected invalid alpha error")
	}
}

func TestConfigMissingFile(t *testing.T) {
	if err := Init(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected read error")
	}
}
