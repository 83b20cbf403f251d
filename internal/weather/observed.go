package weather

import (
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/pwscontext/pwscontext/internal/ngsi"
)

// EntityType is the context broker type served by this provider.
const EntityType = "WeatherObserved"

// Position is the mandatory placement of an entity: a point or an address.
type Position struct {
	point   *Point
	address *string
}

// AtPoint places an entity at a geographic point.
func AtPoint(p Point) Position {
	return Position{point: &p}
}

// AtAddress places an entity at a postal address.
func AtAddress(address string) Position {
	return Position{address: &address}
}

// Reference is either a URL or free text.
type Reference struct {
	url  *url.URL
	text string
}

// URLReference wraps a URL.
func URLReference(u *url.URL) Reference {
	return Reference{url: u}
}

// TextReference wraps free text.
func TextReference(text string) Reference {
	return Reference{text: text}
}

// URL returns the wrapped URL, or nil for text references.
func (r Reference) URL() *url.URL { return r.url }

func (r Reference) String() string {
	if r.url != nil {
		return r.url.String()
	}
	return r.text
}

func (r Reference) normalize() *ngsi.Attribute {
	if r.url != nil {
		return ngsi.URL(r.url)
	}
	return ngsi.Text(r.text)
}

// WeatherObserved is an observation of weather conditions at a place and time,
// following the Smart Data Models WeatherObserved schema. Fields are only
// written through setters so every invariant holds at all times.
type WeatherObserved struct {
	id           string
	dateObserved time.Time

	location *Point
	address  *string

	dataProvider       *Reference
	name               *string
	source             *Reference
	refDevice          *string
	refPointOfInterest *string
	weatherType        []WeatherType
	visibility         *Visibility
	pressureTendency   *PressureTendency

	dewPoint            *float64
	temperature         *float64
	relativeHumidity    *float64
	precipitation       *float64
	windDirection       *float64
	windSpeed           *float64
	atmosphericPressure *float64
	solarRadiation      *float64
	illuminance         *float64
	streamGauge         *float64
	snowHeight          *float64
}

// NewWeatherObserved creates an entity with its mandatory attributes.
func NewWeatherObserved(id string, dateObserved time.Time, position Position) (*WeatherObserved, error) {
	w := &WeatherObserved{id: id, dateObserved: dateObserved}
	if position.point != nil {
		if err := w.SetLocation(position.point); err != nil {
			return nil, err
		}
		return w, nil
	}
	if err := w.SetAddress(position.address); err != nil {
		return nil, err
	}
	return w, nil
}

// ID returns the entity URN.
func (w *WeatherObserved) ID() string { return w.id }

// DateObserved returns the observation instant.
func (w *WeatherObserved) DateObserved() time.Time { return w.dateObserved }

// SetDateObserved replaces the observation instant.
func (w *WeatherObserved) SetDateObserved(t time.Time) { w.dateObserved = t }

// Location returns the point of the observation, if set.
func (w *WeatherObserved) Location() (Point, bool) { return get(w.location) }

// SetLocation sets or clears the location. Clearing fails when no address is set.
func (w *WeatherObserved) SetLocation(p *Point) error {
	if p == nil && w.address == nil {
		return valueErrorf("If address is undefined the location property is mandatory.")
	}
	w.location = clone(p)
	return nil
}

// Address returns the address of the observation, if set.
func (w *WeatherObserved) Address() (string, bool) { return get(w.address) }

// SetAddress sets or clears the address. Clearing fails when no location is set.
func (w *WeatherObserved) SetAddress(address *string) error {
	if address == nil && w.location == nil {
		return valueErrorf("If location is undefined the address property is mandatory.")
	}
	w.address = clone(address)
	return nil
}

// DataProvider returns the data provider, if set.
func (w *WeatherObserved) DataProvider() (Reference, bool) { return get(w.dataProvider) }

// SetDataProvider sets or clears the data provider.
func (w *WeatherObserved) SetDataProvider(r *Reference) { w.dataProvider = clone(r) }

// Name returns the name, if set.
func (w *WeatherObserved) Name() (string, bool) { return get(w.name) }

// SetName sets or clears the name.
func (w *WeatherObserved) SetName(name *string) { w.name = clone(name) }

// Source returns the source, if set.
func (w *WeatherObserved) Source() (Reference, bool) { return get(w.source) }

// SetSource sets or clears the source.
func (w *WeatherObserved) SetSource(r *Reference) { w.source = clone(r) }

// RefDevice returns the device relationship, if set.
func (w *WeatherObserved) RefDevice() (string, bool) { return get(w.refDevice) }

// SetRefDevice sets or clears the device relationship.
func (w *WeatherObserved) SetRefDevice(urn *string) error {
	if err := validateURN("refDevice", urn); err != nil {
		return err
	}
	w.refDevice = clone(urn)
	return nil
}

// RefPointOfInterest returns the point of interest relationship, if set.
func (w *WeatherObserved) RefPointOfInterest() (string, bool) { return get(w.refPointOfInterest) }

// SetRefPointOfInterest sets or clears the point of interest relationship.
func (w *WeatherObserved) SetRefPointOfInterest(urn *string) error {
	if err := validateURN("refPointOfInterest", urn); err != nil {
		return err
	}
	w.refPointOfInterest = clone(urn)
	return nil
}

// WeatherType returns the weather type tokens in insertion order.
func (w *WeatherObserved) WeatherType() ([]WeatherType, bool) {
	if w.weatherType == nil {
		return nil, false
	}
	return append([]WeatherType(nil), w.weatherType...), true
}

// SetWeatherType sets the weather type tokens; nil clears them. Repeated
// tokens are kept once, at their first position.
func (w *WeatherObserved) SetWeatherType(types []WeatherType) error {
	if types == nil {
		w.weatherType = nil
		return nil
	}
	seen := make(map[WeatherType]struct{}, len(types))
	set := make([]WeatherType, 0, len(types))
	for _, t := range types {
		if !t.Valid() {
			return valueErrorf("Weather type '%s' is not part of the WeatherObserved vocabulary.", t)
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		set = append(set, t)
	}
	w.weatherType = set
	return nil
}

// Visibility returns the visibility level, if set.
func (w *WeatherObserved) Visibility() (Visibility, bool) { return get(w.visibility) }

// SetVisibility sets or clears the visibility level.
func (w *WeatherObserved) SetVisibility(v *Visibility) error {
	if v != nil && !v.Valid() {
		return valueErrorf("Visibility '%s' is not a valid visibility level.", *v)
	}
	w.visibility = clone(v)
	return nil
}

// PressureTendency returns the pressure tendency, if set.
func (w *WeatherObserved) PressureTendency() (PressureTendency, bool) { return get(w.pressureTendency) }

// SetPressureTendency sets or clears the pressure tendency.
func (w *WeatherObserved) SetPressureTendency(p *PressureTendency) error {
	if p != nil {
		if delta, ok := p.Numeric(); ok && (math.IsNaN(delta) || math.IsInf(delta, 0)) {
			return valueErrorf("Pressure tendency must be a finite number.")
		}
		if t, ok := p.Tendency(); ok && !t.Valid() {
			return valueErrorf("Pressure tendency '%s' is neither raising, falling nor steady.", t)
		}
	}
	w.pressureTendency = clone(p)
	return nil
}

// RelativeHumidity returns the relative humidity (0..1), if set.
func (w *WeatherObserved) RelativeHumidity() (float64, bool) { return get(w.relativeHumidity) }

// SetRelativeHumidity sets or clears the relative humidity.
func (w *WeatherObserved) SetRelativeHumidity(v *float64) error {
	if v != nil && !(*v >= 0 && *v <= 1) {
		return valueErrorf("Relative humidity must be a number between 0 and 1. This is not the case for value '%v'.", *v)
	}
	w.relativeHumidity = clone(v)
	return nil
}

// WindDirection returns the wind direction in decimal degrees, if set.
func (w *WeatherObserved) WindDirection() (float64, bool) { return get(w.windDirection) }

// SetWindDirection sets or clears the wind direction. Values must be in [0, 360).
func (w *WeatherObserved) SetWindDirection(v *float64) error {
	if v != nil && !(*v >= 0 && *v < 360) {
		return valueErrorf("Wind direction is measured in decimal degrees. The value '%v' is either in another unit or not modulo reduced.", *v)
	}
	w.windDirection = clone(v)
	return nil
}

// DewPoint returns the dew point in degrees Celsius, if set.
func (w *WeatherObserved) DewPoint() (float64, bool) {
	return get(w.dewPoint)
}

// SetDewPoint sets or clears the dew point in degrees Celsius.
func (w *WeatherObserved) SetDewPoint(v *float64) {
	w.dewPoint = clone(v)
}

// Temperature returns the air temperature in degrees Celsius, if set.
func (w *WeatherObserved) Temperature() (float64, bool) {
	return get(w.temperature)
}

// SetTemperature sets or clears the air temperature in degrees Celsius.
func (w *WeatherObserved) SetTemperature(v *float64) {
	w.temperature = clone(v)
}

// Precipitation returns the precipitation rate in l/m², if set.
func (w *WeatherObserved) Precipitation() (float64, bool) {
	return get(w.precipitation)
}

// SetPrecipitation sets or clears the precipitation rate in l/m².
func (w *WeatherObserved) SetPrecipitation(v *float64) {
	w.precipitation = clone(v)
}

// WindSpeed returns the wind speed in m/s, if set.
func (w *WeatherObserved) WindSpeed() (float64, bool) {
	return get(w.windSpeed)
}

// SetWindSpeed sets or clears the wind speed in m/s.
func (w *WeatherObserved) SetWindSpeed(v *float64) {
	w.windSpeed = clone(v)
}

// AtmosphericPressure returns the atmospheric pressure in hPa, if set.
func (w *WeatherObserved) AtmosphericPressure() (float64, bool) {
	return get(w.atmosphericPressure)
}

// SetAtmosphericPressure sets or clears the atmospheric pressure in hPa.
func (w *WeatherObserved) SetAtmosphericPressure(v *float64) {
	w.atmosphericPressure = clone(v)
}

// SolarRadiation returns the solar radiation in W/m², if set.
func (w *WeatherObserved) SolarRadiation() (float64, bool) {
	return get(w.solarRadiation)
}

// SetSolarRadiation sets or clears the solar radiation in W/m².
func (w *WeatherObserved) SetSolarRadiation(v *float64) {
	w.solarRadiation = clone(v)
}

// Illuminance returns the illuminance in lux, if set.
func (w *WeatherObserved) Illuminance() (float64, bool) {
	return get(w.illuminance)
}

// SetIlluminance sets or clears the illuminance in lux.
func (w *WeatherObserved) SetIlluminance(v *float64) {
	w.illuminance = clone(v)
}

// StreamGauge returns the water level of a nearby stream in meters, if set.
func (w *WeatherObserved) StreamGauge() (float64, bool) {
	return get(w.streamGauge)
}

// SetStreamGauge sets or clears the water level of a nearby stream in meters.
func (w *WeatherObserved) SetStreamGauge(v *float64) {
	w.streamGauge = clone(v)
}

// SnowHeight returns the snow height in meters, if set.
func (w *WeatherObserved) SnowHeight() (float64, bool) {
	return get(w.snowHeight)
}

// SetSnowHeight sets or clears the snow height in meters.
func (w *WeatherObserved) SetSnowHeight(v *float64) {
	w.snowHeight = clone(v)
}

// Normalize returns the broker wire form. Every known attribute is recorded,
// absent ones without a value.
func (w *WeatherObserved) Normalize() *ngsi.Entity {
	e := ngsi.NewEntity(w.id, EntityType)

	e.Set("dataProvider", optional(w.dataProvider, Reference.normalize))
	e.Set("name", optional(w.name, ngsi.Text))
	e.Set("location", optional(w.location, Point.Normalize))
	e.Set("address", optional(w.address, ngsi.Text))
	e.Set("dateObserved", ngsi.DateTime(w.dateObserved))
	e.Set("source", optional(w.source, Reference.normalize))
	e.Set("refDevice", optional(w.refDevice, ngsi.Relationship))
	e.Set("refPointOfInterest", optional(w.refPointOfInterest, ngsi.Relationship))
	e.Set("weatherType", w.normalizeWeatherType())
	e.Set("dewPoint", optional(w.dewPoint, ngsi.Number))
	e.Set("visibility", optional(w.visibility, func(v Visibility) *ngsi.Attribute {
		return ngsi.Text(string(v))
	}))
	e.Set("temperature", optional(w.temperature, ngsi.Number))
	e.Set("relativeHumidity", optional(w.relativeHumidity, ngsi.Number))
	e.Set("precipitation", optional(w.precipitation, ngsi.Number))
	e.Set("windDirection", optional(w.windDirection, ngsi.Number))
	e.Set("windSpeed", optional(w.windSpeed, ngsi.Number))
	e.Set("atmosphericPressure", optional(w.atmosphericPressure, ngsi.Number))
	e.Set("pressureTendency", optional(w.pressureTendency, func(p PressureTendency) *ngsi.Attribute {
		if delta, ok := p.Numeric(); ok {
			return ngsi.Number(delta)
		}
		return ngsi.Text(p.String())
	}))
	e.Set("solarRadiation", optional(w.solarRadiation, ngsi.Number))
	e.Set("illuminance", optional(w.illuminance, ngsi.Number))
	e.Set("streamGauge", optional(w.streamGauge, ngsi.Number))
	e.Set("snowHeight", optional(w.snowHeight, ngsi.Number))

	return e
}

func (w *WeatherObserved) normalizeWeatherType() *ngsi.Attribute {
	if w.weatherType == nil {
		return nil
	}
	tokens := make([]string, len(w.weatherType))
	for i, t := range w.weatherType {
		tokens[i] = string(t)
	}
	return ngsi.Text(strings.Join(tokens, ","))
}

// validateURN accepts nil and strings of the form urn:<nid>:<nss>.
func validateURN(attribute string, urn *string) error {
	if urn == nil {
		return nil
	}
	parts := strings.Split(*urn, ":")
	if len(parts) < 3 || !strings.EqualFold(parts[0], "urn") {
		return valueErrorf("%s must be a relationship URN. This is not the case for value '%s'.", attribute, *urn)
	}
	for _, part := range parts[1:] {
		if part == "" {
			return valueErrorf("%s must be a relationship URN. This is not the case for value '%s'.", attribute, *urn)
		}
	}
	return nil
}

func optional[T any](p *T, normalize func(T) *ngsi.Attribute) *ngsi.Attribute {
	if p == nil {
		return nil
	}
	return normalize(*p)
}

func get[T any](p *T) (T, bool) {
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

func clone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
