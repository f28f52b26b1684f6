//go:build ble

package main

import (
	"oxylog/internal/adapter/ble"
	"oxylog/internal/infra/config"
)

const bleBuild = true

func newBackend(cfg *config.Config) (ble.Backend, error) {
	return ble.NewTinyGoBackend(cfg.Device), nil
}
