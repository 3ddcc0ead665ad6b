package timeouts

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestConfigure_IgnoresZero(t *testing.T) {
	defer Reset()

	Configure(Config{Short: 7 * time.Second})

	if Short() != 7*time.Second {
		t.Errorf("Short = %v, want 7s", Short())
	}
	if Medium() != DefaultMedium {
		t.Errorf("Medium = %v, want default", Medium())
	}
}

func TestConfigureFromEnv(t *testing.T) {
	defer Reset()

	t.Setenv("STUDYBUDDY_TIMEOUT_LONG", "45s")
	t.Setenv("STUDYBUDDY_TIMEOUT_SHORT", "not-a-duration")

	if n := ConfigureFromEnv(); n != 1 {
		t.Fatalf("configured %d, want 1", n)
	}
	if Long() != 45*time.Second {
		t.Errorf("Long = %v, want 45s", Long())
	}
	if Short() != DefaultShort {
		t.Errorf("Short = %v, want default", Short())
	}
}

func TestWithTimeout_Expires(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), time.Millisecond, zap.NewNop(), "test")
	defer cancel()

	<-ctx.Done()
	if ctx.Err() != context.DeadlineExceeded {
		t.Errorf("err = %v, want deadline exceeded", ctx.Err())
	}
}
