package domain

// Validation bounds mirror the registration API contract: values outside
// these ranges are rejected before any physics computation runs.

// Validate checks the site coordinates.
func (s *SiteConfig) Validate() error {
	if s.Latitude < -90 || s.Latitude > 90 {
		return NewConfigurationError("location.latitude", "must be between -90 and 90, got %v", s.Latitude)
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return NewConfigurationError("location.longitude", "must be between -180 and 180, got %v", s.Longitude)
	}
	if s.Altitude < 0 || s.Altitude > 5000 {
		return NewConfigurationError("location.altitude", "must be between 0 and 5000 meters, got %v", s.Altitude)
	}
	return nil
}

// Validate checks the array orientation and stringing layout.
func (a *ArrayConfig) Validate() error {
	if a.Tilt < 0 || a.Tilt > 90 {
		return NewConfigurationError("array.tilt", "must be between 0 and 90 degrees, got %v", a.Tilt)
	}
	if a.Azimuth < 0 || a.Azimuth > 360 {
		return NewConfigurationError("array.azimuth", "must be between 0 and 360 degrees, got %v", a.Azimuth)
	}
	if a.Stringing.ModulesPerString < 1 || a.Stringing.ModulesPerString > 50 {
		return NewConfigurationError("array.stringing.modules_per_string", "must be between 1 and 50, got %d", a.Stringing.ModulesPerString)
	}
	if a.Stringing.StringsPerInverter < 1 || a.Stringing.StringsPerInverter > 100 {
		return NewConfigurationError("array.stringing.strings_per_inverter", "must be between 1 and 100, got %d", a.Stringing.StringsPerInverter)
	}
	return nil
}

// Validate checks the module nameplate figures.
func (m *ModuleParams) Validate() error {
	if m.Power < 100 || m.Power > 1000 {
		return NewConfigurationError("module_params.power", "must be between 100 and 1000 watts, got %v", m.Power)
	}
	if m.TempCoefficient < -1 || m.TempCoefficient > 0 {
		return NewConfigurationError("module_params.temp_coefficient", "must be between -1 and 0 %%/degC, got %v", m.TempCoefficient)
	}
	return nil
}

// Validate checks the inverter nameplate figures.
func (i *InverterParams) Validate() error {
	if i.Power < 1000 || i.Power > 1000000 {
		return NewConfigurationError("inverter_params.power", "must be between 1000 and 1000000 watts, got %v", i.Power)
	}
	if i.Efficiency < 80 || i.Efficiency > 100 {
		return NewConfigurationError("inverter_params.efficiency", "must be between 80 and 100 percent, got %v", i.Efficiency)
	}
	return nil
}

// Validate checks each loss percentage against its plausible ceiling.
func (l *LossParams) Validate() error {
	checks := []struct {
		field string
		value float64
		max   float64
	}{
		{"loss_params.soiling", l.Soiling, 10},
		{"loss_params.shading", l.Shading, 20},
		{"loss_params.snow", l.Snow, 5},
		{"loss_params.mismatch", l.Mismatch, 10},
		{"loss_params.wiring", l.Wiring, 10},
		{"loss_params.connections", l.Connections, 5},
		{"loss_params.lid", l.LID, 5},
		{"loss_params.nameplate", l.Nameplate, 5},
		{"loss_params.age", l.Age, 20},
		{"loss_params.availability", l.Availability, 10},
	}
	for _, c := range checks {
		if c.value < 0 || c.value > c.max {
			return NewConfigurationError(c.field, "must be between 0 and %v percent, got %v", c.max, c.value)
		}
	}
	return nil
}

// Validate checks the whole plant configuration and fills the timezone
// default for sites that omit it.
func (p *PlantConfig) Validate() error {
	if p.Location.Timezone == "" {
		p.Location.Timezone = "Europe/London"
	}
	if err := p.Location.Validate(); err != nil {
		return err
	}
	if err := p.Array.Validate(); err != nil {
		return err
	}
	if err := p.Module.Validate(); err != nil {
		return err
	}
	if err := p.Inverter.Validate(); err != nil {
		return err
	}
	return p.Losses.Validate()
}

// Validate checks a telemetry sample. Only the timestamp and the actual AC
// power are mandatory; optional sensors are bounds-checked when present.
func (t *TelemetrySample) Validate() error {
	if t.Timestamp.IsZero() {
		return NewConfigurationError("timestamp", "is required")
	}
	if t.ACPowerKW < 0 {
		return NewConfigurationError("ac_power_kw", "must be non-negative, got %v", t.ACPowerKW)
	}
	if t.DCPowerKW < 0 {
		return NewConfigurationError("dc_power_kw", "must be non-negative, got %v", t.DCPowerKW)
	}
	if t.IrradianceWM2 < 0 || t.IrradianceWM2 > 2000 {
		return NewConfigurationError("irradiance_wm2", "must be between 0 and 2000 W/m2, got %v", t.IrradianceWM2)
	}
	if t.AmbientTempC < -50 || t.AmbientTempC > 60 {
		return NewConfigurationError("ambient_temp_c", "must be between -50 and 60 degC, got %v", t.AmbientTempC)
	}
	if t.ModuleTempC < -50 || t.ModuleTempC > 100 {
		return NewConfigurationError("module_temp_c", "must be between -50 and 100 degC, got %v", t.ModuleTempC)
	}
	if t.WindSpeedMS < 0 || t.WindSpeedMS > 50 {
		return NewConfigurationError("wind_speed_ms", "must be between 0 and 50 m/s, got %v", t.WindSpeedMS)
	}
	if t.InverterEfficiency < 0 || t.InverterEfficiency > 100 {
		return NewConfigurationError("inverter_efficiency", "must be between 0 and 100 percent, got %v", t.InverterEfficiency)
	}
	if t.SystemAvailability < 0 || t.SystemAvailability > 100 {
		return NewConfigurationError("system_availability", "must be between 0 and 100 percent, got %v", t.SystemAvailability)
	}
	return nil
}

// Validate checks the registration payload around the plant config.
func (f *SolarFarm) Validate() error {
	if len(f.Name) < 1 || len(f.Name) > 255 {
		return NewConfigurationError("name", "must be between 1 and 255 characters")
	}
	if f.CapacityKW < 1 || f.CapacityKW > 1000000 {
		return NewConfigurationError("capacity_kw", "must be between 1 and 1000000 kW, got %v", f.CapacityKW)
	}
	return f.Config.Validate()
}
