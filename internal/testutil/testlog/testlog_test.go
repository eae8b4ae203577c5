package testlog

import (
	"testing"

	"github.com/gin-gonic/gin"
)

func TestStartPutsGinInTestMode(t *testing.T) {
	gin.SetMode(gin.DebugMode)
	t.Cleanup(func() { gin.SetMode(gin.TestMode) })

	Start(t)
	if gin.Mode() != gin.TestMode {
		t.Fatalf("expected gin mode %q, got %q", gin.TestMode, gin.Mode())
	}
}
