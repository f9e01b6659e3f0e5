package config

import (
	"testing"
	"time"
)

func TestLoadEnvDefaults(t *testing.T) {
	for _, k := range []string{"APP_ADDR", "STORE_BACKEND", "STORE_TIMEOUT", "NOTIFY_WORKERS", "ADMIN_EMAILS"} {
		t.Setenv(k, "")
	}
	env := LoadEnv()
	if env.AppAddr != ":5000" {
		t.Fatalf("AppAddr = %q, want :5000", env.AppAddr)
	}
	if env.StoreBackend != BackendMemory {
		t.Fatalf("StoreBackend = %q, want memory", env.StoreBackend)
	}
	if env.StoreTimeout != 5*time.Second {
		t.Fatalf("StoreTimeout = %v, want 5s", env.StoreTimeout)
	}
	if env.NotifyWorkers != 2 {
		t.Fatalf("NotifyWorkers = %d, want 2", env.NotifyWorkers)
	}
	if len(env.AdminEmails) != 0 {
		t.Fatalf("AdminEmails = %v, want empty", env.AdminEmails)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "MySQL")
	t.Setenv("STORE_TIMEOUT", "250ms")
	t.Setenv("NOTIFY_WORKERS", "-3")
	t.Setenv("ADMIN_EMAILS", " ops@busyatri.com , ,root@busyatri.com")
	t.Setenv("MONGO_TRANSACTIONS", "true")

	env := LoadEnv()
	if env.StoreBackend != BackendMySQL {
		t.Fatalf("StoreBackend = %q", env.StoreBackend)
	}
	if env.StoreTimeout != 250*time.Millisecond {
		t.Fatalf("StoreTimeout = %v", env.StoreTimeout)
	}
	if env.NotifyWorkers != 2 {
		t.Fatalf("invalid NOTIFY_WORKERS should fall back to default, got %d", env.NotifyWorkers)
	}
	if len(env.AdminEmails) != 2 || env.AdminEmails[1] != "root@busyatri.com" {
		t.Fatalf("AdminEmails = %v", env.AdminEmails)
	}
	if !env.MongoTransactions {
		t.Fatalf("MongoTransactions should be true")
	}
}
