package main

import (
	"testing"

	"github.com/odyssey-erp/receivables/internal/app"
	_ "github.com/odyssey-erp/receivables/testing"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	app.RefreshTestMode()
	if !app.InTestMode() {
		t.Fatal("expected test mode to be enabled")
	}
	main()
}
