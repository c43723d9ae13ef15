package types

import "time"

// CurrentConditions is a point-in-time weather reading for a coordinate.
type CurrentConditions struct {
	ObservedAt  time.Time `json:"observed_at"`
	Temperature float64   `json:"temperature"`
	FeelsLike   float64   `json:"feels_like"`
	Humidity    int       `json:"humidity"`
	Pressure    int       `json:"pressure"`
	WindSpeed   float64   `json:"wind_speed"`
	WindDeg     int       `json:"wind_deg"`
	Clouds      int       `json:"clouds"`
	Visibility  int       `json:"visibility"`
	Condition   string    `json:"condition"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Sunrise     time.Time `json:"sunrise"`
	Sunset      time.Time `json:"sunset"`
}

// DailyForecast is one day of the forecast window.
type DailyForecast struct {
	Date          time.Time `json:"date"`
	TempMin       float64   `json:"temp_min"`
	TempMax       float64   `json:"temp_max"`
	Humidity      int       `json:"humidity"`
	WindSpeed     float64   `json:"wind_speed"`
	Precipitation float64   `json:"precipitation"`
	Condition     string    `json:"condition"`
	Description   string    `json:"description"`
	Icon          string    `json:"icon"`
}

// AirQuality carries the air quality index and pollutant concentrations.
type AirQuality struct {
	AQI        int                `json:"aqi"`
	Components map[string]float64 `json:"components"`
	MeasuredAt time.Time          `json:"measured_at"`
}

// WeatherAlert is a government-issued advisory for an area.
type WeatherAlert struct {
	Sender      string    `json:"sender"`
	Event       string    `json:"event"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description"`
}

// WeatherBundle groups everything the dashboard shows for one coordinate.
type WeatherBundle struct {
	Latitude   float64            `json:"latitude"`
	Longitude  float64            `json:"longitude"`
	Current    *CurrentConditions `json:"current"`
	Daily      []DailyForecast    `json:"daily"`
	AirQuality *AirQuality        `json:"air_quality"`
	Alerts     []WeatherAlert     `json:"alerts"`
	FetchedAt  time.Time          `json:"fetched_at"`
}

// GeocodeResult is one match from the provider's direct geocoding endpoint.
type GeocodeResult struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	State     string  `json:"state,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
