package folding

// Defaults holds the values substituted for zero fields of a request.
type Defaults struct {
	// Temperature in degrees Celsius.
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE" validate:"gt=-273.15,lt=200"`

	// BindingSiteVersion selects the binding-site algorithm variant.
	BindingSiteVersion float64 `yaml:"binding_site_version" env:"BINDING_SITE_VERSION" validate:"gt=0"`
}

// Standard defaults.
const (
	DefaultTemperature        = 37.0
	DefaultBindingSiteVersion = 2.0
)

// StandardDefaults returns 37 °C and binding-site version 2.0.
func StandardDefaults() Defaults {
	return Defaults{
		Temperature:        DefaultTemperature,
		BindingSiteVersion: DefaultBindingSiteVersion,
	}
}

func (d Defaults) withFallback() Defaults {
	std := StandardDefaults()
	if d.Temperature == 0 {
		d.Temperature = std.Temperature
	}
	if d.BindingSiteVersion == 0 {
		d.BindingSiteVersion = std.BindingSiteVersion
	}
	return d
}

func (d Defaults) temperature(t float64) float64 {
	if t == 0 {
		return d.Temperature
	}
	return t
}

func (d Defaults) version(v float64) float64 {
	if v == 0 {
		return d.BindingSiteVersion
	}
	return v
}
