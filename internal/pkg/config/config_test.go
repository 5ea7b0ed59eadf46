package config

import (
	"testing"
	"time"
)

func TestParseWeekday(t *testing.T) {
	cases := []struct {
		in   string
		want time.Weekday
	}{
		{"", time.Monday},
		{"monday", time.Monday},
		{"Monday", time.Monday},
		{" sunday ", time.Sunday},
		{"saturday", time.Saturday},
	}
	for _, tc := range cases {
		got, err := ParseWeekday(tc.in)
		if err != nil {
			t.Errorf("ParseWeekday(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseWeekday(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := ParseWeekday("someday"); err == nil {
		t.Error("非法值应返回错误")
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("MOODMIRROR_TEST_KEY", "secret")

	if got := expandEnv("${MOODMIRROR_TEST_KEY}"); got != "secret" {
		t.Errorf("expandEnv = %q", got)
	}
	if got := expandEnv("plain-value"); got != "plain-value" {
		t.Errorf("非占位符应原样返回: %q", got)
	}
	if got := expandEnv("${MISSING_VAR_XYZ}"); got != "" {
		t.Errorf("未设置的变量应展开为空: %q", got)
	}
}

func TestDefaultIsLoadable(t *testing.T) {
	cfg := Default()
	if cfg.Server.ListenAddr == "" || cfg.Storage.DBPath == "" {
		t.Errorf("默认配置不完整: %+v", cfg)
	}
	if _, err := ParseWeekday(cfg.Journal.WeekStart); err != nil {
		t.Errorf("默认周起始日非法: %v", err)
	}
}
