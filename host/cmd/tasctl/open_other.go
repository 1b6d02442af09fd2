//go:build !linux

package main

import (
	"errors"

	"tas2563/host/config"
	"tas2563/power"
	"tas2563/regmap"
	"tas2563/transport"
)

var errLinuxOnly = errors.New("only available on Linux")

type noBus struct {
	regmap.Transport
}

func (noBus) Close() error { return nil }

func openSMBus(bus int, addr transport.Address) (*noBus, error) {
	return nil, errLinuxOnly
}

func openShutdownLine(cfg *config.Config) (*power.ShutdownLine, error) {
	return nil, errLinuxOnly
}
