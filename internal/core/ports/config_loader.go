package ports

import "go.trai.ch/conduit/internal/core/domain"

// ConfigLoader defines the interface for loading engine settings and the pipeline manifest.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the configuration file at path. An empty path searches the working
	// directory for the default file name.
	Load(path string) (*domain.Settings, error)
}
