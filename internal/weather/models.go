package weather

import (
	"net/url"
	"strings"
	"time"
)

// DataProviderURL identifies the upstream service on every entity.
const DataProviderURL = "https://api.weather.com/v2/pws/observations/current"

// EntityIDPrefix is prepended to the station id to build the entity URN.
const EntityIDPrefix = "urn:ngsi-ld:WeatherObserved:"

// Observation is a current conditions record of a personal weather station,
// already in SI-compatible units. Nil fields were absent upstream.
type Observation struct {
	StationID string

	// Station metadata
	Latitude          *float64
	Longitude         *float64
	Elevation         *float64 // m
	Neighborhood      *string
	Country           *string
	SoftwareType      *string
	QCStatus          *QualityControlStatus
	ObservationTime   *time.Time
	RealtimeFrequency *float64 // s

	SolarRadiation *float64 // W/m²
	UV             *float64
	WindDirection  *float64 // degrees
	Humidity       *float64 // 0..1

	// Temperatures in Celsius
	Temperature *float64
	HeatIndex   *float64
	DewPoint    *float64
	WindChill   *float64

	// Wind in m/s
	WindSpeed *float64
	WindGust  *float64

	Pressure           *float64 // hPa
	PrecipitationRate  *float64 // l/m²
	PrecipitationTotal *float64 // l/m²
}

// EntityID returns the WeatherObserved URN of the observation's station.
func (o *Observation) EntityID() string {
	return EntityIDPrefix + o.StationID
}

// StationIDFromEntityID extracts the station id from an entity id. The id is
// the fourth colon separated segment, as in urn:ngsi-ld:WeatherObserved:IHERNE113;
// later segments are ignored.
func StationIDFromEntityID(entityID string) (string, bool) {
	parts := strings.SplitN(entityID, ":", 5)
	if len(parts) < 4 || parts[3] == "" {
		return "", false
	}
	return parts[3], true
}

// ToWeatherObserved converts the observation into a validated entity. now is
// used as dateObserved when the observation carries no time.
func (o *Observation) ToWeatherObserved(now time.Time) (*WeatherObserved, error) {
	point, err := NewPointWithElevation(orZero(o.Latitude), orZero(o.Longitude), orZero(o.Elevation))
	if err != nil {
		return nil, err
	}

	observed := now
	if o.ObservationTime != nil {
		observed = *o.ObservationTime
	}

	w, err := NewWeatherObserved(o.EntityID(), observed, AtPoint(point))
	if err != nil {
		return nil, err
	}

	provider, err := url.Parse(DataProviderURL)
	if err != nil {
		return nil, err
	}
	ref := URLReference(provider)
	w.SetDataProvider(&ref)

	w.SetDewPoint(o.DewPoint)
	w.SetTemperature(o.Temperature)
	if err := w.SetRelativeHumidity(o.Humidity); err != nil {
		return nil, err
	}
	w.SetPrecipitation(o.PrecipitationRate)
	if err := w.SetWindDirection(o.WindDirection); err != nil {
		return nil, err
	}
	w.SetWindSpeed(o.WindSpeed)
	w.SetAtmosphericPressure(o.Pressure)
	w.SetSolarRadiation(o.SolarRadiation)

	return w, nil
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
