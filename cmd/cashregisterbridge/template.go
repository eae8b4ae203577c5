package main

import (
	"fmt"
	"os"
)

const configTemplate = `listen_addr = "127.0.0.1:2796"
websocket_path = "/"
subprotocol = "cashregisterbridge"
allowed_origins = []
max_connections = 0
read_limit = 65536
write_timeout = "5s"
shutdown_timeout = "5s"
heartbeat_interval = "30s"
device_path = "/dev/ttyUSB0"
device_write_timeout = "5s"
item_label = "Tételek"
footnote = [
  "Köszönjük, hogy nálunk vásárolt!",
  "*",
  "www.gardenzilla.hu",
  "Eszelős favágó",
]
`

func writeTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(configTemplate), 0o600)
}
