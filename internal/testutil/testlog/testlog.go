package testlog

import (
	"testing"

	"github.com/gardenzilla/cashregisterbridge/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	gin.SetMode(gin.TestMode)
	log.Info().Msgf("test=%s", t.Name())
}
