package config

import "github.com/caarlos0/env/v11"

// Appearance is TUI appearance configuration read from the environment
type Appearance struct {
	GlamourStyle   string `env:"GLAMOUR_STYLE"`
	GlamourEnabled bool   `env:"ATTACCA_ENABLE_GLAMOUR" envDefault:"true"`
	EnableMouse    bool   `env:"ATTACCA_MOUSE"`
	MaxWidth       uint   `env:"ATTACCA_MAX_WIDTH" envDefault:"120"`
}

// AppearanceFromEnv parses appearance settings from the environment
func AppearanceFromEnv() (Appearance, error) {
	return env.ParseAs[Appearance]()
}
