package weather

import (
	"strconv"
)

// WeatherType is a token of the WeatherObserved weatherType vocabulary.
type WeatherType string

const (
	WeatherClearNight      WeatherType = "clearNight"
	WeatherSunnyDay        WeatherType = "sunnyDay"
	WeatherSlightlyCloudy  WeatherType = "slightlyCloudy"
	WeatherPartlyCloudy    WeatherType = "partlyCloudy"
	WeatherMist            WeatherType = "mist"
	WeatherFog             WeatherType = "fog"
	WeatherHighClouds      WeatherType = "highClouds"
	WeatherCloudy          WeatherType = "cloudy"
	WeatherVeryCloudy      WeatherType = "veryCloudy"
	WeatherOvercast        WeatherType = "overcast"
	WeatherLightRainShower WeatherType = "lightRainShower"
	WeatherDrizzle         WeatherType = "drizzle"
	WeatherLightRain       WeatherType = "lightRain"
	WeatherHeavyRainShower WeatherType = "heavyRainShower"
	WeatherHeavyRain       WeatherType = "heavyRain"
	WeatherSleetShower     WeatherType = "sleetShower"
	WeatherSleet           WeatherType = "sleet"
	WeatherHailShower      WeatherType = "hailShower"
	WeatherHail            WeatherType = "hail"
	WeatherShower          WeatherType = "shower"
	WeatherLightSnow       WeatherType = "lightSnow"
	WeatherSnow            WeatherType = "snow"
	WeatherHeavySnowShower WeatherType = "heavySnowShower"
	WeatherHeavySnow       WeatherType = "heavySnow"
	WeatherThunderShower   WeatherType = "thunderShower"
	WeatherThunder         WeatherType = "thunder"
)

var weatherTypes = map[WeatherType]struct{}{
	WeatherClearNight: {}, WeatherSunnyDay: {}, WeatherSlightlyCloudy: {}, WeatherPartlyCloudy: {},
	WeatherMist: {}, WeatherFog: {}, WeatherHighClouds: {}, WeatherCloudy: {}, WeatherVeryCloudy: {},
	WeatherOvercast: {}, WeatherLightRainShower: {}, WeatherDrizzle: {}, WeatherLightRain: {},
	WeatherHeavyRainShower: {}, WeatherHeavyRain: {}, WeatherSleetShower: {}, WeatherSleet: {},
	WeatherHailShower: {}, WeatherHail: {}, WeatherShower: {}, WeatherLightSnow: {}, WeatherSnow: {},
	WeatherHeavySnowShower: {}, WeatherHeavySnow: {}, WeatherThunderShower: {}, WeatherThunder: {},
}

// Valid reports whether w belongs to the vocabulary.
func (w WeatherType) Valid() bool {
	_, ok := weatherTypes[w]
	return ok
}

// Visibility is a qualitative visibility level.
type Visibility string

const (
	VisibilityVeryPoor  Visibility = "veryPoor"
	VisibilityPoor      Visibility = "poor"
	VisibilityModerate  Visibility = "moderate"
	VisibilityGood      Visibility = "good"
	VisibilityVeryGood  Visibility = "veryGood"
	VisibilityExcellent Visibility = "excellent"
)

// Valid reports whether v is a known visibility level.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityVeryPoor, VisibilityPoor, VisibilityModerate,
		VisibilityGood, VisibilityVeryGood, VisibilityExcellent:
		return true
	default:
		return false
	}
}

// Tendency is a qualitative pressure tendency.
type Tendency string

const (
	TendencyRaising Tendency = "raising"
	TendencyFalling Tendency = "falling"
	TendencySteady  Tendency = "steady"
)

// Valid reports whether t is a known tendency.
func (t Tendency) Valid() bool {
	switch t {
	case TendencyRaising, TendencyFalling, TendencySteady:
		return true
	default:
		return false
	}
}

// PressureTendency is either a Tendency or a signed pressure delta.
type PressureTendency struct {
	tendency Tendency
	delta    float64
	numeric  bool
}

// TendencyOf wraps a qualitative tendency.
func TendencyOf(t Tendency) PressureTendency {
	return PressureTendency{tendency: t}
}

// TendencyDelta wraps a signed numeric pressure change.
func TendencyDelta(delta float64) PressureTendency {
	return PressureTendency{delta: delta, numeric: true}
}

// Numeric returns the delta and true when the tendency is numeric.
func (p PressureTendency) Numeric() (float64, bool) {
	return p.delta, p.numeric
}

// Tendency returns the qualitative tendency and true when it is not numeric.
func (p PressureTendency) Tendency() (Tendency, bool) {
	return p.tendency, !p.numeric
}

func (p PressureTendency) String() string {
	if p.numeric {
		return strconv.FormatFloat(p.delta, 'g', -1, 64)
	}
	return string(p.tendency)
}

// QualityControlStatus is the upstream quality control verdict of an observation.
type QualityControlStatus int

const (
	QCUnknown           QualityControlStatus = -1
	QCPossiblyIncorrect QualityControlStatus = 0
	QCPassed            QualityControlStatus = 1
)

func (s QualityControlStatus) String() string {
	switch s {
	case QCPassed:
		return "Passed"
	case QCPossiblyIncorrect:
		return "PossiblyIncorrect"
	default:
		return "Unknown"
	}
}
