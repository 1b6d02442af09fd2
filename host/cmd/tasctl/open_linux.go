//go:build linux

package main

import (
	"errors"

	"tas2563/host/config"
	"tas2563/power"
	"tas2563/transport"
)

func openSMBus(bus int, addr transport.Address) (*transport.SMBus, error) {
	return transport.OpenSMBus(bus, addr)
}

func openShutdownLine(cfg *config.Config) (*power.ShutdownLine, error) {
	if !cfg.HardReset() {
		return nil, errors.New("hard-reset: no sdz_line configured")
	}
	return power.OpenShutdownLine(cfg.GPIOChip, cfg.SDZLine)
}
