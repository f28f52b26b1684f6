//go:build !ble

package main

import (
	"oxylog/internal/adapter/ble"
	"oxylog/internal/domain"
	"oxylog/internal/infra/config"
)

const bleBuild = false

func newBackend(cfg *config.Config) (ble.Backend, error) {
	return nil, domain.NewDomainError("backend", domain.ErrBLEUnsupported,
		"rebuild with -tags ble to talk to the oximeter")
}
