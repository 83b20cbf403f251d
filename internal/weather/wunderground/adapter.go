package wunderground

import (
	"time"

	"github.com/pwscontext/pwscontext/internal/weather"
)

// CurrentConditionsResponse is the envelope of the PWS current conditions API.
type CurrentConditionsResponse struct {
	Observations []RawObservation `json:"observations"`
}

// RawObservation is a decoded upstream record. Every field may be null or missing.
type RawObservation struct {
	StationID         *string    `json:"stationID"`
	ObsTimeUTC        *string    `json:"obsTimeUtc"`
	ObsTimeLocal      *string    `json:"obsTimeLocal"`
	Neighborhood      *string    `json:"neighborhood"`
	SoftwareType      *string    `json:"softwareType"`
	Country           *string    `json:"country"`
	SolarRadiation    *float64   `json:"solarRadiation"`
	Lon               *float64   `json:"lon"`
	Lat               *float64   `json:"lat"`
	RealtimeFrequency *float64   `json:"realtimeFrequency"`
	Epoch             *int64     `json:"epoch"`
	UV                *float64   `json:"uv"`
	WindDir           *float64   `json:"winddir"`
	Humidity          *float64   `json:"humidity"`
	QCStatus          *int       `json:"qcStatus"`
	Metric            *RawMetric `json:"metric"`
}

// RawMetric holds the measurements of a record requested with units=m.
type RawMetric struct {
	Temp        *float64 `json:"temp"`
	HeatIndex   *float64 `json:"heatIndex"`
	Dewpt       *float64 `json:"dewpt"`
	WindChill   *float64 `json:"windChill"`
	WindSpeed   *float64 `json:"windSpeed"` // km/h
	WindGust    *float64 `json:"windGust"`  // km/h
	Pressure    *float64 `json:"pressure"`
	PrecipRate  *float64 `json:"precipRate"`
	PrecipTotal *float64 `json:"precipTotal"`
	Elev        *float64 `json:"elev"`
}

// AdaptResponse adapts every observation of an envelope.
func AdaptResponse(resp *CurrentConditionsResponse) ([]*weather.Observation, error) {
	observations := make([]*weather.Observation, 0, len(resp.Observations))
	for i := range resp.Observations {
		obs, err := Adapt(&resp.Observations[i])
		if err != nil {
			return nil, err
		}
		observations = append(observations, obs)
	}
	return observations, nil
}

// Adapt converts an upstream record into an Observation. Humidity is scaled
// from percent to a fraction and wind speeds from km/h to m/s; everything
// else is copied. Absent values stay absent.
func Adapt(raw *RawObservation) (*weather.Observation, error) {
	if raw.StationID == nil || *raw.StationID == "" {
		return nil, &weather.ValueError{Message: "Observation without a station id cannot be adapted."}
	}

	obs := &weather.Observation{
		StationID:         *raw.StationID,
		Latitude:          raw.Lat,
		Longitude:         raw.Lon,
		Neighborhood:      raw.Neighborhood,
		Country:           raw.Country,
		SoftwareType:      raw.SoftwareType,
		RealtimeFrequency: raw.RealtimeFrequency,
		SolarRadiation:    raw.SolarRadiation,
		UV:                raw.UV,
		WindDirection:     raw.WindDir,
		Humidity:          percentToFraction(raw.Humidity),
	}

	if raw.QCStatus != nil {
		status := qualityControlStatus(*raw.QCStatus)
		obs.QCStatus = &status
	}

	if raw.ObsTimeUTC != nil {
		observed, err := time.Parse(time.RFC3339, *raw.ObsTimeUTC)
		if err != nil {
			return nil, &weather.ValueError{
				Message: "Observation time '" + *raw.ObsTimeUTC + "' of station " + obs.StationID + " is not an RFC 3339 timestamp.",
			}
		}
		observed = observed.UTC()
		obs.ObservationTime = &observed
	}

	if m := raw.Metric; m != nil {
		obs.Elevation = m.Elev
		obs.Temperature = m.Temp
		obs.HeatIndex = m.HeatIndex
		obs.DewPoint = m.Dewpt
		obs.WindChill = m.WindChill
		obs.WindSpeed = kmhToMs(m.WindSpeed)
		obs.WindGust = kmhToMs(m.WindGust)
		obs.Pressure = m.Pressure
		obs.PrecipitationRate = m.PrecipRate
		obs.PrecipitationTotal = m.PrecipTotal
	}

	return obs, nil
}

func qualityControlStatus(code int) weather.QualityControlStatus {
	switch weather.QualityControlStatus(code) {
	case weather.QCPassed:
		return weather.QCPassed
	case weather.QCPossiblyIncorrect:
		return weather.QCPossiblyIncorrect
	default:
		return weather.QCUnknown
	}
}

func kmhToMs(v *float64) *float64 {
	if v == nil {
		return nil
	}
	ms := *v * 5 / 18
	return &ms
}

func percentToFraction(v *float64) *float64 {
	if v == nil {
		return nil
	}
	fraction := *v / 100
	return &fraction
}
