package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gardenzilla/cashregisterbridge/internal/bridge"
	"github.com/gardenzilla/cashregisterbridge/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	writeConfig := flag.String("write-config", "", "write a config template to this path and exit")
	force := flag.Bool("force", false, "overwrite an existing file with -write-config")
	validate := flag.Bool("validate", false, "validate -config and exit")
	flag.Parse()

	observability.InitLogger("cashregisterbridge")
	gin.SetMode(gin.ReleaseMode)

	if *writeConfig != "" {
		if err := writeTemplate(*writeConfig, *force); err != nil {
			fail(err)
		}
		log.Info().Str("path", *writeConfig).Msg("wrote config template")
		return
	}

	cfg := bridge.DefaultServiceConfig()
	if *configPath != "" {
		loaded, err := loadServiceConfig(*configPath)
		if err != nil {
			fail(err)
		}
		cfg = loaded
	}

	if *validate {
		if err := cfg.Validate(); err != nil {
			fail(err)
		}
		log.Info().Str("path", *configPath).Msg("validated config")
		return
	}

	svc := bridge.NewServiceWithConfig(cfg)
	if err := svc.Run(); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "cashregisterbridge: %v\n", err)
	os.Exit(1)
}
