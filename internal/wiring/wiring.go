// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/conduit/internal/adapters/clock"
	_ "go.trai.ch/conduit/internal/adapters/config"
	_ "go.trai.ch/conduit/internal/adapters/logger"
	_ "go.trai.ch/conduit/internal/adapters/telemetry/progrock"
	// Register app nodes.
	_ "go.trai.ch/conduit/internal/app"
)
