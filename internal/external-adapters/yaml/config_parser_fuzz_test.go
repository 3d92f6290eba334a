package yaml

import (
	"testing"
)

// FuzzConfigParser tests the config parser against random/malformed inputs
// to detect crashes or panics.
//
// Run with: go test -fuzz=FuzzConfigParser -fuzztime=30s
func FuzzConfigParser(f *testing.F) {
	f.Add([]byte("concurrency: 4\nrequest_timeout: 2s\n"))
	f.Add([]byte("helper:\n  command: [sudo, taskexplorer, helper]\n"))
	f.Add([]byte("whitelistedFiles:\n  - abc\n"))
	f.Add([]byte(""))
	f.Add([]byte("{{{"))

	f.Fuzz(func(t *testing.T, data []byte) {
		cfg, err := NewConfigParser().Parse(data)
		if err != nil {
			return
		}
		if cfg.Concurrency < 1 {
			t.Errorf("accepted concurrency %d", cfg.Concurrency)
		}
		if cfg.RequestTimeout <= 0 {
			t.Errorf("accepted request timeout %v", cfg.RequestTimeout)
		}

		// The same bytes must never crash the whitelist parser either
		_, _ = NewTrustStoreParser(nil).Parse(data)
	})
}
